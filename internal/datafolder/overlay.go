package datafolder

import (
	"fmt"
	"sort"
)

// FlushFunc applies a staged change set all-or-nothing.
type FlushFunc func(writes map[string][]byte, deletes []string) error

// Overlay buffers writes and deletes over a base gateway. Nothing reaches
// the base until Commit; a failed Commit leaves the base untouched and the
// staged set intact.
type Overlay struct {
	base    Gateway
	flush   FlushFunc
	writes  map[string][]byte
	deletes map[string]bool
}

// NewOverlay wraps base with an explicit flush callback.
func NewOverlay(base Gateway, flush FlushFunc) *Overlay {
	return &Overlay{
		base:    base,
		flush:   flush,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

// Stage wraps a flushable backend with its own Flush.
func Stage(base FlushGateway) *Overlay {
	return NewOverlay(base, base.Flush)
}

func (o *Overlay) Read(name string) ([]byte, error) {
	if o.deletes[name] {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if b, ok := o.writes[name]; ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	return o.base.Read(name)
}

func (o *Overlay) Write(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	o.writes[name] = buf
	delete(o.deletes, name)
	return nil
}

func (o *Overlay) Delete(name string) error {
	if _, staged := o.writes[name]; staged {
		delete(o.writes, name)
		o.deletes[name] = true
		return nil
	}
	if _, err := o.base.Read(name); err != nil {
		return err
	}
	o.deletes[name] = true
	return nil
}

func (o *Overlay) List() ([]string, error) {
	base, err := o.base.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(base)+len(o.writes))
	for _, name := range base {
		if !o.deletes[name] {
			seen[name] = true
		}
	}
	for name := range o.writes {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Dirty reports whether any change is staged.
func (o *Overlay) Dirty() bool {
	return len(o.writes) > 0 || len(o.deletes) > 0
}

// Staged returns the staged blob names in lexical order.
func (o *Overlay) Staged() []string {
	names := make([]string, 0, len(o.writes)+len(o.deletes))
	for name := range o.writes {
		names = append(names, name)
	}
	for name := range o.deletes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commit flushes every staged change through the flush callback. On success
// the staging area is cleared; on failure it is preserved so the caller can
// inspect or retry.
func (o *Overlay) Commit() error {
	if !o.Dirty() {
		return nil
	}
	deletes := make([]string, 0, len(o.deletes))
	for name := range o.deletes {
		deletes = append(deletes, name)
	}
	sort.Strings(deletes)

	if err := o.flush(o.writes, deletes); err != nil {
		return err
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]bool)
	return nil
}

// Discard drops every staged change.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]bool)
}
