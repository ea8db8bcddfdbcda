package lut

import "fmt"

// MissingLutError reports a header key that should reference a table but is absent.
type MissingLutError struct {
	Section string
	Key     string
}

func (e *MissingLutError) Error() string {
	return fmt.Sprintf("lut: no table referenced at [%s] %s", e.Section, e.Key)
}

// ParseError reports a malformed table, citing its source (header location
// or filename).
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lut: %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
