package donor

import (
	"archive/zip"
	"crypto/sha256"
	"io"
	"sort"
	"strings"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/lut"
	"github.com/enginecrane/enginecrane/internal/util"
)

// Logical artifacts inside the intermediate bundle, matched by member name
// suffix. Hash slots in the provenance list follow this order.
const (
	artifactDescriptor = ".car"          // binary car descriptor
	artifactEngineDoc  = "engine.jbeam"  // engine document keyed by UUID
	artifactParams     = "engine.params" // auxiliary parameter file (optional)
)

// bundleArtifactCount is the fixed provenance slot count for bundles.
const bundleArtifactCount = 3

// DecodeBundle mines a crate-engine record out of an intermediate driving-sim
// mod archive at path.
func DecodeBundle(path string) (*crate.Engine, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &BundleExtractError{Path: path, Err: err}
	}
	defer rc.Close()

	descriptorRaw, err := extractMember(rc, artifactDescriptor)
	if err != nil {
		return nil, err
	}
	engineDocRaw, err := extractMember(rc, artifactEngineDoc)
	if err != nil {
		return nil, err
	}
	// the parameter file is advisory; absence leaves a nil hash slot
	paramsRaw, err := extractMember(rc, artifactParams)
	if err != nil {
		if _, missing := err.(*MissingArtifactError); !missing {
			return nil, err
		}
		paramsRaw = nil
	}

	root, err := parseDescriptor(descriptorRaw)
	if err != nil {
		return nil, err
	}
	uid, err := root.StringAttr("Car/Variant", "UID")
	if err != nil {
		return nil, &DescriptorParseError{Offset: 0, Reason: err.Error()}
	}

	entry, err := parseEngineDocument(engineDocRaw, uid)
	if err != nil {
		return nil, err
	}

	params := parseParams(paramsRaw)
	eng, err := buildFromEntry(uid, entry, params)
	if err != nil {
		return nil, err
	}

	eng.Kind = crate.KindBundle
	eng.ArtifactHashes = make([]*[32]byte, bundleArtifactCount)
	eng.ArtifactHashes[0] = hashOf(descriptorRaw)
	eng.ArtifactHashes[1] = hashOf(engineDocRaw)
	if paramsRaw != nil {
		eng.ArtifactHashes[2] = hashOf(paramsRaw)
	}

	if err := eng.Validate(); err != nil {
		return nil, err
	}
	return eng, nil
}

// buildFromEntry assembles the record from the selected engine-document
// branch, with the auxiliary parameters filling declared gaps.
func buildFromEntry(uid string, entry *engineEntry, params map[string]string) (*crate.Engine, error) {
	torque, err := entry.torqueTable(params)
	if err != nil {
		return nil, err
	}
	power := derivePower(torque)

	aspiration := crate.AspirationNA
	if entry.Aspiration != "" {
		aspiration, err = crate.ParseAspiration(entry.Aspiration)
		if err != nil {
			return nil, &crate.InvalidDonorError{Reason: err.Error()}
		}
	}
	var aspParams *crate.AspirationParams
	if aspiration != crate.AspirationNA {
		aspParams = &crate.AspirationParams{
			MaxBoostBar:  entry.MaxBoostBar,
			WastegateBar: entry.WastegateBar,
			ReferenceRPM: entry.ReferenceRPM,
		}
	}

	thermal, err := entry.thermal()
	if err != nil {
		return nil, err
	}

	idle := entry.Idle
	if idle == 0 {
		idle = paramInt(params, "idle_rpm")
	}
	minStable := entry.MinStableRPM
	if minStable == 0 {
		minStable = paramInt(params, "min_stable_rpm")
	}
	noLift := entry.NoLiftShiftRPM
	if noLift == 0 {
		noLift = paramInt(params, "no_lift_shift_rpm")
	}
	fuelKind := entry.FuelKind
	if fuelKind == "" {
		fuelKind = params["fuel_kind"]
	}

	return &crate.Engine{
		UUID:             uid,
		Name:             entry.Name,
		Family:           entry.Family,
		Version:          entry.Version,
		DisplacementCC:   entry.DisplacementCC,
		Cylinders:        entry.Cylinders,
		BoreMM:           entry.BoreMM,
		StrokeMM:         entry.StrokeMM,
		CompressionRatio: entry.CompressionRatio,
		Aspiration:       aspiration,
		AspirationParams: aspParams,
		Torque:           torque,
		Power:            power,
		IdleRPM:          idle,
		LimiterRPM:       entry.Limiter,
		NoLiftShiftRPM:   noLift,
		MinStableRPM:     minStable,
		Fuel: crate.Fuel{
			ConsumptionCoeff:  entry.FuelConsumption,
			BaseRate:          entry.FuelBaseRate,
			Kind:              fuelKind,
			TankCapacityHintL: entry.TankCapacityL,
		},
		Thermal:   thermal,
		DryMassKG: entry.DryMassKG,
	}, nil
}

// derivePower computes the kW curve from torque·ω at the torque samples.
func derivePower(torque *lut.Table) *lut.Table {
	in := torque.Samples()
	out := make([]lut.Sample, len(in))
	for i, s := range in {
		out[i] = lut.Sample{X: s.X, Y: crate.PowerKW(s.Y, s.X)}
	}
	power, err := lut.New(out)
	if err != nil {
		// torque passed the same shape checks already
		panic(err)
	}
	return power
}

// parseParams reads the auxiliary parameter file: one key=value per line,
// '#' comments. A nil input yields an empty map.
func parseParams(raw []byte) map[string]string {
	params := map[string]string{}
	if raw == nil {
		return params
	}
	for _, ln := range strings.Split(string(util.NormalizeNewlines(raw)), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		eq := strings.IndexByte(ln, '=')
		if eq <= 0 {
			continue
		}
		params[strings.TrimSpace(ln[:eq])] = strings.TrimSpace(ln[eq+1:])
	}
	return params
}

func paramInt(params map[string]string, key string) int {
	v, err := util.ParseIntLoose(params[key])
	if err != nil {
		return 0
	}
	return int(v)
}

// extractMember returns the bytes of the first (lexically) zip member whose
// name ends with suffix.
func extractMember(rc *zip.ReadCloser, suffix string) ([]byte, error) {
	names := make([]string, 0, len(rc.File))
	byName := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		names = append(names, f.Name)
		byName[f.Name] = f
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		r, err := byName[name].Open()
		if err != nil {
			return nil, &BundleExtractError{Path: name, Err: err}
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, &BundleExtractError{Path: name, Err: err}
		}
		return b, nil
	}
	return nil, &MissingArtifactError{Name: suffix}
}

func hashOf(b []byte) *[32]byte {
	h := sha256.Sum256(b)
	return &h
}
