package donor

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// The binary car descriptor is a length-prefixed tree of named sections with
// typed attributes. Two layout versions exist around the sandbox's export
// format change: version 2 adds a per-section flags word. The version field
// at the head of the file gates parsing.
const (
	descriptorVersionMin = 1
	descriptorVersionMax = 2
)

// AttrKind types a descriptor attribute.
type AttrKind uint8

const (
	AttrInt AttrKind = iota
	AttrFloat
	AttrString
)

// Attr is one typed attribute of a descriptor section.
type Attr struct {
	Kind  AttrKind
	Int   int32
	Float float64
	Str   string
}

// Node is one named section of the descriptor tree.
type Node struct {
	Name     string
	Flags    uint32 // version 2 only
	Attrs    map[string]Attr
	Children []*Node
}

// Lookup walks a "/"-separated path of child section names from n.
// Returns nil when any segment is missing.
func (n *Node) Lookup(path string) *Node {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// StringAttr returns the named string attribute of the section at path.
func (n *Node) StringAttr(path, name string) (string, error) {
	sec := n.Lookup(path)
	if sec == nil {
		return "", fmt.Errorf("descriptor section %q not found", path)
	}
	a, ok := sec.Attrs[name]
	if !ok {
		return "", fmt.Errorf("descriptor attribute %q not found in %q", name, path)
	}
	if a.Kind != AttrString {
		return "", fmt.Errorf("descriptor attribute %q in %q is not a string", name, path)
	}
	return a.Str, nil
}

// descCursor is an explicit read position over descriptor bytes; nothing in
// the parser mutates shared state.
type descCursor struct {
	buf []byte
	pos int
}

func (c *descCursor) fail(reason string) error {
	return &DescriptorParseError{Offset: c.pos, Reason: reason}
}

func (c *descCursor) u8() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, c.fail("truncated")
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *descCursor) u32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, c.fail("truncated")
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *descCursor) f64() (float64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, c.fail("truncated")
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.buf[c.pos:]))
	c.pos += 8
	return v, nil
}

func (c *descCursor) lpString() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	if int(n) > len(c.buf)-c.pos {
		return "", c.fail(fmt.Sprintf("bad string length %d", n))
	}
	s := string(c.buf[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s, nil
}

// parseDescriptor decodes the root section tree from b.
func parseDescriptor(b []byte) (*Node, error) {
	cur := &descCursor{buf: b}
	version, err := cur.u32()
	if err != nil {
		return nil, err
	}
	if version < descriptorVersionMin || version > descriptorVersionMax {
		return nil, &DescriptorParseError{Offset: 0, Reason: fmt.Sprintf("unsupported descriptor version %d", version)}
	}
	root, err := parseSection(cur, version, 0)
	if err != nil {
		return nil, err
	}
	if cur.pos != len(b) {
		return nil, cur.fail("trailing bytes after root section")
	}
	return root, nil
}

// maxDescriptorDepth bounds recursion against corrupt length fields.
const maxDescriptorDepth = 32

func parseSection(cur *descCursor, version uint32, depth int) (*Node, error) {
	if depth > maxDescriptorDepth {
		return nil, cur.fail("section nesting too deep")
	}
	name, err := cur.lpString()
	if err != nil {
		return nil, err
	}
	n := &Node{Name: name, Attrs: map[string]Attr{}}

	if version >= 2 {
		flags, err := cur.u32()
		if err != nil {
			return nil, err
		}
		n.Flags = flags
	}

	attrCount, err := cur.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < attrCount; i++ {
		attrName, err := cur.lpString()
		if err != nil {
			return nil, err
		}
		kind, err := cur.u8()
		if err != nil {
			return nil, err
		}
		var a Attr
		switch AttrKind(kind) {
		case AttrInt:
			v, err := cur.u32()
			if err != nil {
				return nil, err
			}
			a = Attr{Kind: AttrInt, Int: int32(v)}
		case AttrFloat:
			v, err := cur.f64()
			if err != nil {
				return nil, err
			}
			a = Attr{Kind: AttrFloat, Float: v}
		case AttrString:
			v, err := cur.lpString()
			if err != nil {
				return nil, err
			}
			a = Attr{Kind: AttrString, Str: v}
		default:
			return nil, cur.fail(fmt.Sprintf("unknown attribute kind %d", kind))
		}
		if _, dup := n.Attrs[attrName]; dup {
			return nil, cur.fail(fmt.Sprintf("duplicate attribute %q in section %q", attrName, name))
		}
		n.Attrs[attrName] = a
	}

	childCount, err := cur.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < childCount; i++ {
		child, err := parseSection(cur, version, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
