package datafolder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Dir is the plain-directory backend over a car's data/ folder.
type Dir struct {
	root string

	// rename is swappable so tests can inject failures mid-flush.
	rename func(oldpath, newpath string) error
}

// NewDir returns a gateway over the directory at root.
func NewDir(root string) *Dir {
	return &Dir{root: root, rename: os.Rename}
}

// Root returns the directory this gateway wraps.
func (d *Dir) Root() string { return d.root }

func (d *Dir) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(d.root, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("datafolder: read %q: %w", name, err)
	}
	return b, nil
}

func (d *Dir) Write(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.root, name), data, 0644); err != nil {
		return fmt.Errorf("datafolder: write %q: %w", name, err)
	}
	return nil
}

func (d *Dir) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.root, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("datafolder: delete %q: %w", name, err)
	}
	return nil
}

func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("datafolder: list %q: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Flush applies staged writes and deletes with all-or-nothing visibility.
// Each write lands in a sibling temp file which is fsynced and renamed over
// the target. If a rename fails after earlier ones have landed, the originals
// captured before flushing are written back.
func (d *Dir) Flush(writes map[string][]byte, deletes []string) error {
	names := make([]string, 0, len(writes))
	for name := range writes {
		names = append(names, name)
	}
	sort.Strings(names)

	// capture prior contents for reverse-rename recovery
	backups := make(map[string][]byte, len(names))
	for _, name := range names {
		b, err := d.Read(name)
		if err == nil {
			backups[name] = b
		}
	}

	// stage every temp file before the first rename
	for _, name := range names {
		tmp := filepath.Join(d.root, name+".tmp")
		if err := writeSync(tmp, writes[name]); err != nil {
			d.removeTemps(names)
			return err
		}
	}

	for i, name := range names {
		target := filepath.Join(d.root, name)
		if err := d.rename(target+".tmp", target); err != nil {
			d.restore(names[:i], backups)
			d.removeTemps(names[i:])
			return fmt.Errorf("datafolder: commit %q: %w", name, err)
		}
	}

	for _, name := range deletes {
		if err := os.Remove(filepath.Join(d.root, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("datafolder: commit delete %q: %w", name, err)
		}
	}
	return nil
}

// restore writes the captured originals back over already-renamed targets.
// Best effort: the commit error is surfaced regardless.
func (d *Dir) restore(renamed []string, backups map[string][]byte) {
	for _, name := range renamed {
		target := filepath.Join(d.root, name)
		prior, had := backups[name]
		if !had {
			os.Remove(target)
			continue
		}
		if err := writeSync(target+".tmp", prior); err != nil {
			continue
		}
		d.rename(target+".tmp", target)
	}
}

func (d *Dir) removeTemps(names []string) {
	for _, name := range names {
		os.Remove(filepath.Join(d.root, name+".tmp"))
	}
}

// writeSync writes path and fsyncs it before close.
func writeSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("datafolder: stage %q: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("datafolder: stage %q: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("datafolder: sync %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("datafolder: stage %q: %w", path, err)
	}
	return nil
}
