// Package transplant plans and applies an engine swap: it decodes a donor,
// gates it against the target car, rewrites the car's data files, and
// commits the result atomically together with a provenance descriptor.
package transplant

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/enginecrane/enginecrane/internal/car"
	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/donor"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/lut"
	"github.com/enginecrane/enginecrane/internal/provenance"
)

// Policy selects how the donor's curves land in the car.
type Policy string

const (
	// PolicyAdoptDonor replaces the car's curves with the donor's samples.
	PolicyAdoptDonor Policy = "adopt-donor"
	// PolicyPreserveCar keeps the car's RPM grid and resamples the donor's
	// curves onto it.
	PolicyPreserveCar Policy = "preserve-car"
)

const (
	// curve overrun the shift planner keeps below the limiter
	upshiftMarginRPM = 200
	// how far past peak power an upshift still pays off
	upshiftOverPeakRPM = 400
	// downshift floor above idle
	downshiftMarginRPM = 800
	// overrev allowance for downshift protection
	overrevMarginRPM = 500
	// minimum clutch capacity relative to peak torque
	clutchFloorRatio = 1.1
)

// Options tune a transplant. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	ResamplingPolicy Policy
	// ClutchHeadroom scales peak torque into the replacement clutch's
	// MAX_TORQUE.
	ClutchHeadroom float64
	// LimiterSafetyCap rejects donors whose limiter no production gearbox
	// survives.
	LimiterSafetyCap int
	// Compatible, when set, is an extra gate run after the built-in checks.
	// A non-nil return refuses the pairing.
	Compatible func(*crate.Engine, *car.Model) error
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		ResamplingPolicy: PolicyAdoptDonor,
		ClutchHeadroom:   1.25,
		LimiterSafetyCap: 20000,
	}
}

func (o *Options) validate() error {
	switch o.ResamplingPolicy {
	case PolicyAdoptDonor, PolicyPreserveCar:
	default:
		return fmt.Errorf("unknown resampling policy %q", o.ResamplingPolicy)
	}
	if o.ClutchHeadroom < 1 {
		return fmt.Errorf("clutch headroom %.2f below 1", o.ClutchHeadroom)
	}
	if o.LimiterSafetyCap <= 0 {
		return fmt.Errorf("limiter safety cap %d not positive", o.LimiterSafetyCap)
	}
	return nil
}

// FieldChange records one effective rewrite for the report. Old is empty
// when the key did not exist before.
type FieldChange struct {
	File    string
	Section string
	Key     string
	Old     string
	New     string
}

// Report summarises a committed transplant.
type Report struct {
	DonorUUID string
	DonorName string
	Policy    Policy

	// Changes lists only fields whose value actually changed; a repeat
	// transplant of the same donor reports none.
	Changes []FieldChange
	// FilesWritten is the staged blob set, in lexical order.
	FilesWritten []string

	Provenance *provenance.Descriptor
}

// Transplant swaps the donor engine at donorPath into the car rooted at
// carPath. The car's data files are either committed in full or left
// byte-identical to their prior state.
func Transplant(donorPath string, kind crate.DonorKind, carPath string, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, fail(KindIncompatible, "options", "%v", err)
	}

	eng, err := donor.Decode(donorPath, kind)
	if err != nil {
		return nil, wrap("decode donor", err)
	}

	base, err := openCar(carPath)
	if err != nil {
		return nil, wrap("open car", err)
	}
	return Install(eng, base, opts)
}

// Install stages the swap of an already-decoded donor into the given data
// store and commits it. Callers with their own gateway (a packed archive
// opened elsewhere, a test double) enter here.
func Install(eng *crate.Engine, base datafolder.FlushGateway, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, fail(KindIncompatible, "options", "%v", err)
	}
	overlay := datafolder.Stage(base)

	model, err := car.Load(overlay)
	if err != nil {
		return nil, wrap("load car", err)
	}

	if err := gate(eng, model, opts); err != nil {
		return nil, err
	}

	report := &Report{
		DonorUUID: eng.UUID,
		DonorName: eng.Name,
		Policy:    opts.ResamplingPolicy,
	}

	if err := plan(eng, model, opts, report); err != nil {
		return nil, err
	}
	if err := postValidate(eng, model, opts); err != nil {
		return nil, err
	}

	if err := model.Apply(overlay); err != nil {
		return nil, wrap("apply", err)
	}
	if err := model.Serialize(overlay); err != nil {
		return nil, wrap("serialize", err)
	}

	desc, err := provenance.FromEngine(eng)
	if err != nil {
		return nil, wrap("provenance", err)
	}
	if err := desc.Write(overlay); err != nil {
		return nil, wrap("provenance", err)
	}
	report.Provenance = desc

	report.FilesWritten = overlay.Staged()
	if err := overlay.Commit(); err != nil {
		return nil, wrap("commit", err)
	}
	return report, nil
}

// openCar resolves the car's data store: an unpacked data directory wins
// over a packed data.acd when both are present.
func openCar(carPath string) (datafolder.FlushGateway, error) {
	dataDir := filepath.Join(carPath, "data")
	if fi, err := os.Stat(dataDir); err == nil && fi.IsDir() {
		return datafolder.NewDir(dataDir), nil
	}
	acdPath := filepath.Join(carPath, "data.acd")
	if _, err := os.Stat(acdPath); err == nil {
		return datafolder.OpenAcd(acdPath)
	}
	return nil, fmt.Errorf("%s: no data directory or data.acd: %w", carPath, datafolder.ErrNotFound)
}

// gate refuses donor/car pairings before anything is planned.
func gate(eng *crate.Engine, model *car.Model, opts Options) error {
	if eng.LimiterRPM > opts.LimiterSafetyCap {
		return fail(KindIncompatible, "gate",
			"donor limiter %d above safety cap %d", eng.LimiterRPM, opts.LimiterSafetyCap)
	}
	if model.Gearbox.Count <= 0 {
		return fail(KindIncompatible, "gate", "car has no gearbox")
	}
	if opts.Compatible != nil {
		if err := opts.Compatible(eng, model); err != nil {
			return fail(KindIncompatible, "gate", "%v", err)
		}
	}
	return nil
}

// plan computes and stages every rewrite: the donor's direct field patch,
// the curves under the chosen policy, and the rewrites derived from the
// donor/car pairing.
func plan(eng *crate.Engine, model *car.Model, opts Options, report *Report) error {
	patch := eng.TargetPatch()
	recordPatch(model, patch, report)
	if err := model.ApplyPatch(patch); err != nil {
		return wrap("patch", err)
	}

	if err := planCurves(eng, model, opts, report); err != nil {
		return err
	}
	return planDerived(eng, model, opts, report)
}

func planCurves(eng *crate.Engine, model *car.Model, opts Options, report *Report) error {
	torque := eng.Torque.Samples()
	power := eng.Power.Samples()
	if opts.ResamplingPolicy == PolicyPreserveCar {
		torque = resampleOnto(eng.Torque, model.TorqueCurve.Table.Xs())
		// power is recomputed from torque·ω on the car's grid, not
		// interpolated from the donor's power samples: between donor
		// samples the two disagree beyond tolerance
		power = powerFromTorque(eng.Torque, model.PowerCurve.Table.Xs())
	}
	if err := updateCurve(model.TorqueCurve, torque, report); err != nil {
		return err
	}
	return updateCurve(model.PowerCurve, power, report)
}

func planDerived(eng *crate.Engine, model *car.Model, opts Options, report *Report) error {
	peak := eng.PeakTorque().Y
	need := math.Ceil(opts.ClutchHeadroom * peak)
	if need > math.MaxInt32 {
		return fail(KindPostCondition, "plan", "clutch.max_torque out of range")
	}
	if clutch := int(need); clutch > model.Clutch.MaxTorque {
		record(report, crate.FileDrivetrain, "CLUTCH", "MAX_TORQUE",
			inifile.Int(model.Clutch.MaxTorque).String(), inifile.Int(clutch).String())
		model.Clutch.SetMaxTorque(clutch)
	}

	up := eng.LimiterRPM - upshiftMarginRPM
	if byPeak := eng.PeakPowerRPM() + upshiftOverPeakRPM; byPeak < up {
		up = byPeak
	}
	down := eng.IdleRPM + downshiftMarginRPM
	if up <= down {
		return fail(KindPostCondition, "plan",
			"shift window collapsed: up %d <= down %d", up, down)
	}
	if up != model.AutoShifter.Up {
		record(report, crate.FileDrivetrain, "AUTO_SHIFTER", "UP",
			inifile.Int(model.AutoShifter.Up).String(), inifile.Int(up).String())
		model.AutoShifter.SetUp(up)
	}
	if down != model.AutoShifter.Down {
		record(report, crate.FileDrivetrain, "AUTO_SHIFTER", "DOWN",
			inifile.Int(model.AutoShifter.Down).String(), inifile.Int(down).String())
		model.AutoShifter.SetDown(down)
	}

	overrev := eng.LimiterRPM + overrevMarginRPM
	if overrev != model.DownshiftProtection.Overrev {
		record(report, crate.FileDrivetrain, "DOWNSHIFT_PROTECTION", "OVERREV",
			inifile.Int(model.DownshiftProtection.Overrev).String(), inifile.Int(overrev).String())
		model.DownshiftProtection.SetOverrev(overrev)
	}
	return nil
}

// postValidate checks the planned state before anything is applied. A
// failure here leaves the staging area untouched by the caller.
func postValidate(eng *crate.Engine, model *car.Model, opts Options) error {
	idle, limiter := eng.IdleRPM, eng.LimiterRPM
	up, down := model.AutoShifter.Up, model.AutoShifter.Down
	if !(idle < down && down < up && up < limiter) {
		return fail(KindPostCondition, "post-validate",
			"shift points not ordered: idle %d, down %d, up %d, limiter %d", idle, down, up, limiter)
	}
	if floor := clutchFloorRatio * eng.PeakTorque().Y; float64(model.Clutch.MaxTorque) < floor {
		return fail(KindPostCondition, "post-validate",
			"clutch %d Nm below %.0f Nm floor", model.Clutch.MaxTorque, floor)
	}
	for _, curve := range []*car.CurveView{model.TorqueCurve, model.PowerCurve} {
		if err := checkShape(curve.Key, curve.Table.Samples()); err != nil {
			return err
		}
	}
	return nil
}

// checkShape rejects negative samples and curves that rise again after
// their peak.
func checkShape(key string, samples []lut.Sample) error {
	falling := false
	for i, s := range samples {
		if s.Y < 0 {
			return fail(KindPostCondition, "post-validate",
				"%s: negative value %.3f at %d RPM", key, s.Y, s.X)
		}
		if i == 0 {
			continue
		}
		prev := samples[i-1].Y
		if s.Y < prev {
			falling = true
		} else if s.Y > prev && falling {
			return fail(KindPostCondition, "post-validate",
				"%s: rises again at %d RPM after falling", key, s.X)
		}
	}
	return nil
}

func resampleOnto(t *lut.Table, xs []int) []lut.Sample {
	ys := t.Resample(xs)
	out := make([]lut.Sample, len(xs))
	for i, x := range xs {
		out[i] = lut.Sample{X: x, Y: ys[i]}
	}
	return out
}

// powerFromTorque evaluates torque·ω at each grid point.
func powerFromTorque(torque *lut.Table, xs []int) []lut.Sample {
	ys := torque.Resample(xs)
	out := make([]lut.Sample, len(xs))
	for i, x := range xs {
		out[i] = lut.Sample{X: x, Y: crate.PowerKW(ys[i], x)}
	}
	return out
}

func updateCurve(view *car.CurveView, samples []lut.Sample, report *Report) error {
	prior := view.Table.Samples()
	if samplesEqual(prior, samples) {
		return nil
	}
	if _, err := view.Update(samples); err != nil {
		return wrap("curves", err)
	}
	record(report, crate.FileEngine, "HEADER", view.Key,
		renderSamples(prior), renderSamples(samples))
	return nil
}

// recordPatch captures the prior value of every patch write that changes
// something.
func recordPatch(model *car.Model, patch crate.Patch, report *Report) {
	for _, w := range patch {
		doc, err := model.Docs.ByFile(w.File)
		if err != nil {
			continue
		}
		old, _ := doc.Get(w.Section, w.Key)
		if old != w.Value.String() {
			record(report, w.File, w.Section, w.Key, old, w.Value.String())
		}
	}
}

func record(report *Report, file, section, key, oldV, newV string) {
	report.Changes = append(report.Changes, FieldChange{
		File: file, Section: section, Key: key, Old: oldV, New: newV,
	})
}

func renderSamples(samples []lut.Sample) string {
	t, err := lut.New(samples)
	if err != nil {
		return ""
	}
	return t.Inline()
}

func samplesEqual(a, b []lut.Sample) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
