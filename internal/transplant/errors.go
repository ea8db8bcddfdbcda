package transplant

import (
	"errors"
	"fmt"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/donor"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/lut"
)

// ErrKind partitions transplant failures so callers can decide between
// "fix your donor", "fix your car" and "fix your disk".
type ErrKind int

const (
	// KindParse marks malformed donor or car input.
	KindParse ErrKind = iota
	// KindMissing marks an absent file, section or field.
	KindMissing
	// KindInvalidDonor marks a donor that parsed but violates a record
	// invariant.
	KindInvalidDonor
	// KindIncompatible marks a donor/car pairing the gate refused.
	KindIncompatible
	// KindPostCondition marks a planned result that failed final checks.
	// Nothing has been committed when this is returned.
	KindPostCondition
	// KindIO marks a filesystem or archive failure.
	KindIO
)

func (k ErrKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindMissing:
		return "missing"
	case KindInvalidDonor:
		return "invalid-donor"
	case KindIncompatible:
		return "incompatible"
	case KindPostCondition:
		return "post-condition"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Error wraps a failure with its stage and kind.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transplant: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap classifies err by inspecting the error types the lower layers
// declare, then tags it with the stage it escaped from.
func wrap(op string, err error) *Error {
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) ErrKind {
	var (
		invalidDonor *crate.InvalidDonorError
		unknownUID   *donor.UnknownUIDError
		unitMismatch *donor.CurveUnitMismatchError
		descErr      *donor.DescriptorParseError
		extractErr   *donor.BundleExtractError
		missingArt   *donor.MissingArtifactError
		iniParse     *inifile.ParseError
		lutParse     *lut.ParseError
		iniType      *inifile.TypeError
		missingSec   *inifile.MissingSectionError
		missingField *inifile.MissingFieldError
		missingLut   *lut.MissingLutError
	)
	switch {
	case errors.As(err, &invalidDonor), errors.As(err, &unknownUID), errors.As(err, &unitMismatch):
		return KindInvalidDonor
	case errors.As(err, &descErr), errors.As(err, &extractErr),
		errors.As(err, &iniParse), errors.As(err, &lutParse), errors.As(err, &iniType):
		return KindParse
	case errors.As(err, &missingArt), errors.As(err, &missingSec),
		errors.As(err, &missingField), errors.As(err, &missingLut),
		errors.Is(err, datafolder.ErrNotFound):
		return KindMissing
	}
	return KindIO
}

// fail builds an Error with an explicit kind for conditions detected by
// the transplant engine itself.
func fail(kind ErrKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
