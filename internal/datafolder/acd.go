package datafolder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// acdMagic marks a versioned packed archive.
const acdMagic int32 = -1111

// acdVersion is the only archive layout this build reads and writes.
const acdVersion int32 = 2

// Acd is the packed-archive backend over a car's data.acd file. Entries are
// obfuscated with a byte key derived from the car's folder name, as the
// target sim requires. Every mutation rewrites the whole archive to a temp
// path and renames it over the original.
type Acd struct {
	path    string
	key     []byte
	entries map[string][]byte
	order   []string
}

// OpenAcd loads the archive at path. The obfuscation key is derived from the
// name of the folder containing the archive.
func OpenAcd(path string) (*Acd, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("datafolder: open archive %q: %w", path, err)
	}
	a := &Acd{
		path:    path,
		key:     deriveKey(filepath.Base(filepath.Dir(path))),
		entries: make(map[string][]byte),
	}
	if err := a.decode(raw); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAcd writes an empty archive at path and returns a gateway over it.
func CreateAcd(path string) (*Acd, error) {
	a := &Acd{
		path:    path,
		key:     deriveKey(filepath.Base(filepath.Dir(path))),
		entries: make(map[string][]byte),
	}
	if err := a.save(); err != nil {
		return nil, err
	}
	return a, nil
}

// Path returns the archive location.
func (a *Acd) Path() string { return a.path }

func (a *Acd) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (a *Acd) Write(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	a.put(name, data)
	return a.save()
}

func (a *Acd) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if _, ok := a.entries[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	a.drop(name)
	return a.save()
}

func (a *Acd) List() ([]string, error) {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Flush applies the staged change set and rewrites the archive once. The
// rename at the end makes every change visible simultaneously.
func (a *Acd) Flush(writes map[string][]byte, deletes []string) error {
	names := make([]string, 0, len(writes))
	for name := range writes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.put(name, writes[name])
	}
	for _, name := range deletes {
		a.drop(name)
	}
	return a.save()
}

func (a *Acd) put(name string, data []byte) {
	if _, ok := a.entries[name]; !ok {
		a.order = append(a.order, name)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	a.entries[name] = buf
}

func (a *Acd) drop(name string) {
	if _, ok := a.entries[name]; !ok {
		return
	}
	delete(a.entries, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Acd) save() error {
	tmp := a.path + ".tmp"
	if err := writeSync(tmp, a.encode()); err != nil {
		return err
	}
	if err := os.Rename(tmp, a.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("datafolder: commit archive %q: %w", a.path, err)
	}
	return nil
}

func (a *Acd) encode() []byte {
	var out []byte
	// uint32(acdMagic) would be a constant expression, and the negative
	// magic does not fit; convert through variables
	magic, version := acdMagic, acdVersion
	out = binary.LittleEndian.AppendUint32(out, uint32(magic))
	out = binary.LittleEndian.AppendUint32(out, uint32(version))
	for _, name := range a.order {
		data := a.entries[name]
		out = binary.LittleEndian.AppendUint32(out, uint32(len(name)))
		out = append(out, name...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
		for i, b := range data {
			packed := uint32(b+a.key[i%len(a.key)]) & 0xff
			out = binary.LittleEndian.AppendUint32(out, packed)
		}
	}
	return out
}

func (a *Acd) decode(raw []byte) error {
	cur := newCursor(raw)
	magic, err := cur.int32()
	if err != nil {
		return fmt.Errorf("datafolder: archive %q: %w", a.path, err)
	}
	if magic != acdMagic {
		return fmt.Errorf("datafolder: archive %q: bad magic %d", a.path, magic)
	}
	version, err := cur.int32()
	if err != nil {
		return fmt.Errorf("datafolder: archive %q: %w", a.path, err)
	}
	if version != acdVersion {
		return fmt.Errorf("datafolder: archive %q: unsupported version %d", a.path, version)
	}
	for !cur.done() {
		name, err := cur.lpString()
		if err != nil {
			return fmt.Errorf("datafolder: archive %q: %w", a.path, err)
		}
		n, err := cur.int32()
		if err != nil {
			return fmt.Errorf("datafolder: archive %q entry %q: %w", a.path, name, err)
		}
		if n < 0 || int64(n)*4 > int64(cur.remaining()) {
			return fmt.Errorf("datafolder: archive %q entry %q: bad length %d", a.path, name, n)
		}
		data := make([]byte, n)
		for i := range data {
			packed, err := cur.int32()
			if err != nil {
				return fmt.Errorf("datafolder: archive %q entry %q: %w", a.path, name, err)
			}
			data[i] = byte(uint32(packed)-uint32(a.key[i%len(a.key)])) & 0xff
		}
		a.entries[name] = data
		a.order = append(a.order, name)
	}
	return nil
}

// deriveKey computes the 8-byte obfuscation key from the car folder name.
// Each component folds the lowercased name a different way.
func deriveKey(folder string) []byte {
	s := strings.ToLower(folder)
	if s == "" {
		s = "car"
	}
	b := []byte(s)
	key := make([]byte, 8)

	sum := 0
	for _, c := range b {
		sum += int(c)
	}
	key[0] = byte(sum)

	v := 0
	for i := 0; i+1 < len(b); i += 2 {
		v = v*int(b[i]) - int(b[i+1])
	}
	key[1] = byte(v)

	v = 0
	for i := 1; i+3 < len(b); i += 3 {
		v = v*int(b[i])/(int(b[i+1])+27) + (-27 - int(b[i-1]))
	}
	key[2] = byte(v)

	v = 0x1683
	for i := 1; i < len(b); i++ {
		v -= int(b[i])
	}
	key[3] = byte(v)

	v = 0x42
	for i := 1; i+4 < len(b); i += 4 {
		t := (int(b[i]) + 15) * v
		v = (int(b[i-1])+15)*t + 0x16
	}
	key[4] = byte(v)

	v = 0x65
	for i := 0; i+2 < len(b); i += 2 {
		v -= int(b[i])
	}
	key[5] = byte(v)

	v = 0xab
	for i := 0; i+2 < len(b); i += 2 {
		v %= int(b[i]) + 0x2b
	}
	key[6] = byte(v)

	v = 0xab
	for i := 0; i+1 < len(b); i++ {
		v = v/int(b[i]) + int(b[i+1])
	}
	key[7] = byte(v)

	return key
}
