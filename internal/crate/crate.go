// Package crate defines the normalised, source-agnostic record of a donor
// engine: the pivot format between the donor decoders and the transplant
// engine. Records are immutable once built.
package crate

import (
	"fmt"
	"math"

	"github.com/enginecrane/enginecrane/internal/lut"
)

// DonorKind tags which decoder produced a record.
type DonorKind string

const (
	KindBundle DonorKind = "intermediate-bundle"
	KindExport DonorKind = "direct-export"
)

// Aspiration tags how the engine breathes.
type Aspiration string

const (
	AspirationNA           Aspiration = "naturalAspirated"
	AspirationTurbo        Aspiration = "turbo"
	AspirationSupercharged Aspiration = "supercharged"
)

// ParseAspiration maps a donor-format tag to an Aspiration.
func ParseAspiration(s string) (Aspiration, error) {
	switch s {
	case "NA", "naturalAspirated", "natural":
		return AspirationNA, nil
	case "Turbo", "turbo":
		return AspirationTurbo, nil
	case "Supercharged", "supercharged":
		return AspirationSupercharged, nil
	}
	return "", fmt.Errorf("unknown aspiration %q", s)
}

// AspirationParams carries forced-induction settings. Present iff the
// aspiration is not naturalAspirated.
type AspirationParams struct {
	MaxBoostBar  float64
	WastegateBar float64
	ReferenceRPM int
}

// Thermal carries the donor's cooling parameters. Optional: a donor that
// does not export them leaves the pointer nil rather than zeroed.
type Thermal struct {
	CoolantCapacityL float64
	OilCapacityL     float64
	// HeatRejection is the per-minute heat rejection coefficient.
	HeatRejection float64
}

// Fuel carries the donor's consumption model.
type Fuel struct {
	ConsumptionCoeff float64
	BaseRate         float64
	Kind             string
	// TankCapacityHintL is advisory; the car's own tank wins when present.
	TankCapacityHintL float64
}

// Engine is the crate-engine record. Curves are SI-consistent: torque in Nm,
// power in kW, both over RPM.
type Engine struct {
	Kind    DonorKind
	UUID    string
	Name    string
	Family  string
	Version int

	DisplacementCC   float64
	Cylinders        int
	BoreMM           float64
	StrokeMM         float64
	CompressionRatio float64
	Aspiration       Aspiration
	AspirationParams *AspirationParams

	Torque *lut.Table
	Power  *lut.Table

	IdleRPM        int
	LimiterRPM     int
	NoLiftShiftRPM int
	MinStableRPM   int

	Fuel    Fuel
	Thermal *Thermal

	DryMassKG float64

	// ArtifactHashes is positional: one optional SHA-256 per donor input
	// artifact, nil when the artifact was absent at build time.
	ArtifactHashes []*[32]byte
}

// curveOverrunRPM is how far a curve may sample past the limiter before the
// record is rejected. Sandbox exports routinely carry one point just past
// the cut.
const curveOverrunRPM = 200

// powerTorqueTolerance is the allowed relative disagreement between the
// power curve and torque·ω at any sampled RPM.
const powerTorqueTolerance = 0.01

// PowerKW converts a torque sample to kilowatts at the given RPM.
func PowerKW(torqueNm float64, rpm int) float64 {
	return torqueNm * 2 * math.Pi * float64(rpm) / 60000
}

// Validate enforces the record invariants. Violations surface as
// InvalidDonorError so decoders can return them unchanged.
func (e *Engine) Validate() error {
	if e.IdleRPM <= 0 {
		return &InvalidDonorError{Reason: "idle<=0"}
	}
	if e.LimiterRPM <= e.IdleRPM {
		return &InvalidDonorError{Reason: "limiter<=idle"}
	}
	if e.Torque == nil || e.Torque.Len() == 0 {
		return &InvalidDonorError{Reason: "empty torque curve"}
	}
	if e.Power == nil || e.Power.Len() == 0 {
		return &InvalidDonorError{Reason: "empty power curve"}
	}
	for _, curve := range []*lut.Table{e.Torque, e.Power} {
		if curve.MaxX() > e.LimiterRPM+curveOverrunRPM {
			return &InvalidDonorError{Reason: fmt.Sprintf("curve extends to %d RPM, past limiter %d", curve.MaxX(), e.LimiterRPM)}
		}
	}
	if e.Aspiration == AspirationNA && e.AspirationParams != nil {
		return &InvalidDonorError{Reason: "aspiration parameters present on naturally aspirated engine"}
	}
	if e.Aspiration != AspirationNA && e.AspirationParams == nil {
		return &InvalidDonorError{Reason: fmt.Sprintf("aspiration %s requires parameters", e.Aspiration)}
	}
	return e.checkPowerTorque()
}

// checkPowerTorque verifies torque·ω = power within tolerance at every
// torque sample.
func (e *Engine) checkPowerTorque() error {
	for _, s := range e.Torque.Samples() {
		if s.X == 0 {
			continue
		}
		want := PowerKW(s.Y, s.X)
		got := e.Power.ValueAt(s.X)
		if want == 0 {
			if got != 0 {
				return &InvalidDonorError{Reason: fmt.Sprintf("power %.3f kW at %d RPM where torque is zero", got, s.X)}
			}
			continue
		}
		if math.Abs(got-want)/math.Abs(want) > powerTorqueTolerance {
			return &InvalidDonorError{Reason: fmt.Sprintf("power curve disagrees with torque at %d RPM: %.3f kW vs %.3f kW", s.X, got, want)}
		}
	}
	return nil
}

// PeakTorque returns the sample with the largest torque.
func (e *Engine) PeakTorque() lut.Sample { return e.Torque.Peak() }

// PeakPowerRPM returns the RPM of the largest power sample.
func (e *Engine) PeakPowerRPM() int { return e.Power.Peak().X }

// Equal compares all fields except the provenance hashes.
func (e *Engine) Equal(other *Engine) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Kind != other.Kind || e.UUID != other.UUID || e.Name != other.Name ||
		e.Family != other.Family || e.Version != other.Version {
		return false
	}
	if e.DisplacementCC != other.DisplacementCC || e.Cylinders != other.Cylinders ||
		e.BoreMM != other.BoreMM || e.StrokeMM != other.StrokeMM ||
		e.CompressionRatio != other.CompressionRatio || e.Aspiration != other.Aspiration {
		return false
	}
	if !paramsEqual(e.AspirationParams, other.AspirationParams) {
		return false
	}
	if !samplesEqual(e.Torque, other.Torque) || !samplesEqual(e.Power, other.Power) {
		return false
	}
	if e.IdleRPM != other.IdleRPM || e.LimiterRPM != other.LimiterRPM ||
		e.NoLiftShiftRPM != other.NoLiftShiftRPM || e.MinStableRPM != other.MinStableRPM {
		return false
	}
	if e.Fuel != other.Fuel || !thermalEqual(e.Thermal, other.Thermal) {
		return false
	}
	return e.DryMassKG == other.DryMassKG
}

func paramsEqual(a, b *AspirationParams) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func thermalEqual(a, b *Thermal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func samplesEqual(a, b *lut.Table) bool {
	if a == nil || b == nil {
		return a == b
	}
	as, bs := a.Samples(), b.Samples()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
