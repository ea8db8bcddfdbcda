package donor

import "fmt"

// BundleExtractError reports a bundle archive that could not be opened or read.
type BundleExtractError struct {
	Path string
	Err  error
}

func (e *BundleExtractError) Error() string {
	return fmt.Sprintf("donor: extract bundle %q: %v", e.Path, e.Err)
}

func (e *BundleExtractError) Unwrap() error { return e.Err }

// MissingArtifactError reports a required bundle artifact that is absent.
type MissingArtifactError struct {
	Name string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("donor: bundle is missing artifact %q", e.Name)
}

// DescriptorParseError reports malformed bytes in the binary car descriptor.
type DescriptorParseError struct {
	Offset int
	Reason string
}

func (e *DescriptorParseError) Error() string {
	return fmt.Sprintf("donor: car descriptor: %s at offset %d", e.Reason, e.Offset)
}

// UnknownUIDError reports an engine document that has no branch for the
// variant UID named by the car descriptor.
type UnknownUIDError struct {
	UID string
}

func (e *UnknownUIDError) Error() string {
	return fmt.Sprintf("donor: engine document has no entry for variant UID %q", e.UID)
}

// CurveUnitMismatchError reports a torque curve whose unit is missing or
// unusable. The decoder never guesses a unit.
type CurveUnitMismatchError struct {
	Unit string
}

func (e *CurveUnitMismatchError) Error() string {
	if e.Unit == "" {
		return "donor: torque curve declares no unit"
	}
	return fmt.Sprintf("donor: unsupported torque curve unit %q", e.Unit)
}
