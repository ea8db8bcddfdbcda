// Package datafolder abstracts access to a car's data directory: named byte
// blobs backed either by a plain data/ directory or by a packed data.acd
// archive. All mutation during a transplant goes through an Overlay that is
// flushed atomically on Commit.
package datafolder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a named blob does not exist.
var ErrNotFound = errors.New("datafolder: not found")

// Gateway is the read/write contract shared by both backends.
type Gateway interface {
	// Read returns the blob bytes, or an error wrapping ErrNotFound.
	Read(name string) ([]byte, error)
	// Write stores the blob, replacing any previous content.
	Write(name string, data []byte) error
	// Delete removes the blob, or returns an error wrapping ErrNotFound.
	Delete(name string) error
	// List returns all blob names in lexical order.
	List() ([]string, error)
}

// FlushGateway is a Gateway that can apply a staged set of writes and
// deletes all-or-nothing. Both backends satisfy it; the Overlay is
// parameterised by its Flush.
type FlushGateway interface {
	Gateway
	Flush(writes map[string][]byte, deletes []string) error
}

// validName rejects names that would escape the data folder.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("datafolder: invalid blob name %q", name)
	}
	return nil
}
