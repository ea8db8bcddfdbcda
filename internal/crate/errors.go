package crate

import "fmt"

// InvalidDonorError reports a crate-engine record that violates its
// invariants. Decoders surface it unchanged.
type InvalidDonorError struct {
	Reason string
}

func (e *InvalidDonorError) Error() string {
	return fmt.Sprintf("invalid donor: %s", e.Reason)
}
