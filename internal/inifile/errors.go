package inifile

import "fmt"

// ParseError reports a malformed line with its 1-based position.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("inifile: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// MissingSectionError reports a required section that is absent.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("inifile: missing section [%s]", e.Section)
}

// MissingFieldError reports a required key that is absent from an existing section.
type MissingFieldError struct {
	Section string
	Key     string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("inifile: missing field %s in section [%s]", e.Key, e.Section)
}

// TypeError reports a value that could not be coerced to the requested kind.
type TypeError struct {
	Kind    string
	Raw     string
	Section string
	Key     string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("inifile: [%s] %s: %q is not a valid %s", e.Section, e.Key, e.Raw, e.Kind)
}
