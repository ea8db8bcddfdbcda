// Package inifile implements an ordered, format-preserving model of the
// simulator's sectioned key/value data files. Untouched lines serialize
// byte-for-byte as they were loaded; modified keys keep their position and
// re-render as KEY=VALUE.
package inifile

import (
	"strings"

	"github.com/enginecrane/enginecrane/internal/util"
)

type lineKind int

const (
	lineRaw lineKind = iota // blank or comment
	lineHeader
	linePair
)

// line is one physical line of the document. Pair lines keep the original
// text until modified; after a Set they render from key and value.
type line struct {
	kind    lineKind
	text    string // original text, valid while !dirty
	section string
	key     string
	value   Value
	dirty   bool
}

// Doc is an in-memory sectioned document. Section names are unique per
// document and keys are unique per section; both are case-sensitive.
type Doc struct {
	lines           []*line
	trailingNewline bool
}

// Load parses b into a Doc. Line endings are normalized to LF; everything
// else is preserved exactly. Comments begin with ';' or '#'.
func Load(b []byte) (*Doc, error) {
	text := string(util.NormalizeNewlines(b))
	doc := &Doc{trailingNewline: strings.HasSuffix(text, "\n")}
	if text == "" {
		return doc, nil
	}
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	sections := map[string]bool{}
	keys := map[string]bool{}
	current := ""
	for i, ln := range raw {
		trimmed := strings.TrimSpace(ln)
		switch {
		case trimmed == "" || trimmed[0] == ';' || trimmed[0] == '#':
			doc.lines = append(doc.lines, &line{kind: lineRaw, text: ln})
		case trimmed[0] == '[':
			end := strings.IndexByte(trimmed, ']')
			if end < 0 {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "unterminated section header"}
			}
			name := trimmed[1:end]
			if name == "" {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "empty section name"}
			}
			if sections[name] {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "duplicate section " + name}
			}
			sections[name] = true
			current = name
			doc.lines = append(doc.lines, &line{kind: lineHeader, text: ln, section: name})
		default:
			eq := strings.IndexByte(ln, '=')
			if eq < 0 {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "expected KEY=VALUE"}
			}
			if current == "" {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "key outside any section"}
			}
			key := strings.TrimSpace(ln[:eq])
			if key == "" {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "empty key"}
			}
			qualified := current + "\x00" + key
			if keys[qualified] {
				return nil, &ParseError{Line: i + 1, Text: ln, Reason: "duplicate key " + key + " in section " + current}
			}
			keys[qualified] = true
			doc.lines = append(doc.lines, &line{
				kind:    linePair,
				text:    ln,
				section: current,
				key:     key,
				value:   Raw(strings.TrimSpace(ln[eq+1:])),
			})
		}
	}
	return doc, nil
}

// HasSection reports whether the document contains the named section.
func (d *Doc) HasSection(section string) bool {
	for _, ln := range d.lines {
		if ln.kind == lineHeader && ln.section == section {
			return true
		}
	}
	return false
}

// Sections returns section names in document order.
func (d *Doc) Sections() []string {
	var names []string
	for _, ln := range d.lines {
		if ln.kind == lineHeader {
			names = append(names, ln.section)
		}
	}
	return names
}

// Keys returns the keys of a section in document order.
func (d *Doc) Keys(section string) []string {
	var keys []string
	for _, ln := range d.lines {
		if ln.kind == linePair && ln.section == section {
			keys = append(keys, ln.key)
		}
	}
	return keys
}

func (d *Doc) find(section, key string) *line {
	for _, ln := range d.lines {
		if ln.kind == linePair && ln.section == section && ln.key == key {
			return ln
		}
	}
	return nil
}

// Get returns the raw string value of section/key, or false if absent.
func (d *Doc) Get(section, key string) (string, bool) {
	ln := d.find(section, key)
	if ln == nil {
		return "", false
	}
	return ln.value.raw, true
}

// GetString returns a mandatory string value.
func (d *Doc) GetString(section, key string) (string, error) {
	ln := d.find(section, key)
	if ln == nil {
		return "", d.missing(section, key)
	}
	return ln.value.raw, nil
}

// GetInt returns a mandatory integer value. Float-formatted whole numbers
// ("7200.0") are accepted.
func (d *Doc) GetInt(section, key string) (int, error) {
	ln := d.find(section, key)
	if ln == nil {
		return 0, d.missing(section, key)
	}
	v, err := util.ParseIntLoose(stripInlineComment(ln.value.raw))
	if err != nil {
		return 0, &TypeError{Kind: "int", Raw: ln.value.raw, Section: section, Key: key}
	}
	return int(v), nil
}

// GetFloat returns a mandatory real value.
func (d *Doc) GetFloat(section, key string) (float64, error) {
	ln := d.find(section, key)
	if ln == nil {
		return 0, d.missing(section, key)
	}
	f, err := parseFloat(stripInlineComment(ln.value.raw))
	if err != nil {
		return 0, &TypeError{Kind: "float", Raw: ln.value.raw, Section: section, Key: key}
	}
	return f, nil
}

// GetVector returns a mandatory comma-separated vector of reals.
func (d *Doc) GetVector(section, key string) ([]float64, error) {
	ln := d.find(section, key)
	if ln == nil {
		return nil, d.missing(section, key)
	}
	parts := strings.Split(stripInlineComment(ln.value.raw), ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := parseFloat(strings.TrimSpace(p))
		if err != nil {
			return nil, &TypeError{Kind: "vector", Raw: ln.value.raw, Section: section, Key: key}
		}
		out = append(out, f)
	}
	return out, nil
}

// stripInlineComment drops a trailing "; ..." or "# ..." annotation before
// numeric coercion. Raw string reads keep the value untouched.
func stripInlineComment(s string) string {
	if i := strings.IndexAny(s, ";#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (d *Doc) missing(section, key string) error {
	if !d.HasSection(section) {
		return &MissingSectionError{Section: section}
	}
	return &MissingFieldError{Section: section, Key: key}
}

// Set writes section/key. An existing key keeps its position; a new key is
// appended at the end of its section; a new section is appended to the
// document. Setting a key to a value that renders identically to the stored
// text is a no-op, so untouched lines keep their original bytes.
func (d *Doc) Set(section, key string, v Value) {
	if ln := d.find(section, key); ln != nil {
		if !ln.dirty && ln.value.raw == v.String() {
			return
		}
		ln.value = v
		ln.dirty = true
		return
	}

	pair := &line{kind: linePair, section: section, key: key, value: v, dirty: true}
	end := d.sectionEnd(section)
	if end < 0 {
		if len(d.lines) > 0 {
			d.lines = append(d.lines, &line{kind: lineRaw, text: ""})
		}
		d.lines = append(d.lines, &line{kind: lineHeader, text: "[" + section + "]", section: section}, pair)
		d.trailingNewline = true
		return
	}
	d.lines = append(d.lines[:end], append([]*line{pair}, d.lines[end:]...)...)
}

// sectionEnd returns the index just past the last pair line of the section
// (or just past its header if it has none), or -1 if the section is absent.
func (d *Doc) sectionEnd(section string) int {
	end := -1
	for i, ln := range d.lines {
		switch ln.kind {
		case lineHeader:
			if ln.section == section {
				end = i + 1
			}
		case linePair:
			if ln.section == section {
				end = i + 1
			}
		}
	}
	return end
}

// Remove deletes section/key. Returns false if the key was absent.
func (d *Doc) Remove(section, key string) bool {
	for i, ln := range d.lines {
		if ln.kind == linePair && ln.section == section && ln.key == key {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveSection deletes a section header and every line belonging to it.
// Returns false if the section was absent.
func (d *Doc) RemoveSection(section string) bool {
	found := false
	kept := d.lines[:0]
	for _, ln := range d.lines {
		if (ln.kind == lineHeader || ln.kind == linePair) && ln.section == section {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	d.lines = kept
	return found
}

// Serialize renders the document. Unmodified lines are emitted verbatim.
func (d *Doc) Serialize() []byte {
	var b strings.Builder
	for i, ln := range d.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if ln.kind == linePair && ln.dirty {
			b.WriteString(ln.key)
			b.WriteByte('=')
			b.WriteString(ln.value.String())
			continue
		}
		b.WriteString(ln.text)
	}
	if d.trailingNewline && b.Len() > 0 {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
