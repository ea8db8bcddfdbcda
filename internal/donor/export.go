package donor

import (
	"fmt"
	"os"
	"strings"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/lut"
)

// DecodeExport parses a direct text export of a crate engine. The export is
// a sectioned document in the same dialect as the car's data files; torque
// is always in Nm.
func DecodeExport(path string) (*crate.Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("donor: read export %q: %w", path, err)
	}

	doc, err := inifile.Load(raw)
	if err != nil {
		return nil, err
	}

	eng := &crate.Engine{Kind: crate.KindExport}
	if err := readExportIdentity(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportGeometry(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportAspiration(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportCurves(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportLimits(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportFuel(doc, eng); err != nil {
		return nil, err
	}
	if err := readExportThermal(doc, eng); err != nil {
		return nil, err
	}

	mass, err := doc.GetFloat("MASS", "DRY")
	if err != nil {
		return nil, err
	}
	eng.DryMassKG = mass

	eng.ArtifactHashes = []*[32]byte{hashOf(raw)}

	if err := eng.Validate(); err != nil {
		return nil, err
	}
	return eng, nil
}

func readExportIdentity(doc *inifile.Doc, eng *crate.Engine) error {
	var err error
	if eng.UUID, err = doc.GetString("CRATE_ENGINE", "UUID"); err != nil {
		return err
	}
	if eng.Name, err = doc.GetString("CRATE_ENGINE", "NAME"); err != nil {
		return err
	}
	if eng.Family, err = doc.GetString("CRATE_ENGINE", "FAMILY"); err != nil {
		return err
	}
	if eng.Version, err = doc.GetInt("CRATE_ENGINE", "VERSION"); err != nil {
		return err
	}
	return nil
}

func readExportGeometry(doc *inifile.Doc, eng *crate.Engine) error {
	var err error
	if eng.DisplacementCC, err = doc.GetFloat("GEOMETRY", "DISPLACEMENT_CC"); err != nil {
		return err
	}
	if eng.Cylinders, err = doc.GetInt("GEOMETRY", "CYLINDERS"); err != nil {
		return err
	}
	if eng.BoreMM, err = doc.GetFloat("GEOMETRY", "BORE_MM"); err != nil {
		return err
	}
	if eng.StrokeMM, err = doc.GetFloat("GEOMETRY", "STROKE_MM"); err != nil {
		return err
	}
	if eng.CompressionRatio, err = doc.GetFloat("GEOMETRY", "COMPRESSION"); err != nil {
		return err
	}
	return nil
}

// readExportAspiration reads the optional [ASPIRATION] section; its absence
// means naturally aspirated.
func readExportAspiration(doc *inifile.Doc, eng *crate.Engine) error {
	if !doc.HasSection("ASPIRATION") {
		eng.Aspiration = crate.AspirationNA
		return nil
	}
	tag, err := doc.GetString("ASPIRATION", "TYPE")
	if err != nil {
		return err
	}
	eng.Aspiration, err = crate.ParseAspiration(tag)
	if err != nil {
		return &crate.InvalidDonorError{Reason: err.Error()}
	}
	if eng.Aspiration == crate.AspirationNA {
		return nil
	}
	params := &crate.AspirationParams{}
	if params.MaxBoostBar, err = doc.GetFloat("ASPIRATION", "MAX_BOOST"); err != nil {
		return err
	}
	if params.WastegateBar, err = doc.GetFloat("ASPIRATION", "WASTEGATE"); err != nil {
		return err
	}
	if params.ReferenceRPM, err = doc.GetInt("ASPIRATION", "REFERENCE_RPM"); err != nil {
		return err
	}
	eng.AspirationParams = params
	return nil
}

func readExportCurves(doc *inifile.Doc, eng *crate.Engine) error {
	rawTorque, err := doc.GetString("CURVES", "TORQUE")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.TrimSpace(rawTorque), "(") {
		return &lut.ParseError{Source: "[CURVES] TORQUE", Err: fmt.Errorf("export curves must be inline")}
	}
	if eng.Torque, err = lut.ParseInline(rawTorque); err != nil {
		return err
	}

	// the power curve is optional in the export; derive it when absent
	if rawPower, ok := doc.Get("CURVES", "POWER"); ok {
		if eng.Power, err = lut.ParseInline(rawPower); err != nil {
			return err
		}
	} else {
		eng.Power = derivePower(eng.Torque)
	}
	return nil
}

func readExportLimits(doc *inifile.Doc, eng *crate.Engine) error {
	var err error
	if eng.IdleRPM, err = doc.GetInt("LIMITS", "IDLE"); err != nil {
		return err
	}
	if eng.LimiterRPM, err = doc.GetInt("LIMITS", "LIMITER"); err != nil {
		return err
	}
	eng.NoLiftShiftRPM = optionalInt(doc, "LIMITS", "NO_LIFT_SHIFT")
	eng.MinStableRPM = optionalInt(doc, "LIMITS", "MIN_STABLE")
	return nil
}

func readExportFuel(doc *inifile.Doc, eng *crate.Engine) error {
	var err error
	if eng.Fuel.ConsumptionCoeff, err = doc.GetFloat("FUEL", "CONSUMPTION_COEFF"); err != nil {
		return err
	}
	if eng.Fuel.BaseRate, err = doc.GetFloat("FUEL", "BASE_RATE"); err != nil {
		return err
	}
	if eng.Fuel.Kind, err = doc.GetString("FUEL", "KIND"); err != nil {
		return err
	}
	eng.Fuel.TankCapacityHintL = optionalFloat(doc, "FUEL", "TANK_CAPACITY")
	return nil
}

// readExportThermal reads the optional [THERMAL] section. When the sandbox
// never simulated the engine thermally the section is absent, and the record
// carries no thermal block at all.
func readExportThermal(doc *inifile.Doc, eng *crate.Engine) error {
	if !doc.HasSection("THERMAL") {
		return nil
	}
	th := &crate.Thermal{}
	var err error
	if th.CoolantCapacityL, err = doc.GetFloat("THERMAL", "COOLANT_CAPACITY"); err != nil {
		return err
	}
	if th.OilCapacityL, err = doc.GetFloat("THERMAL", "OIL_CAPACITY"); err != nil {
		return err
	}
	if th.HeatRejection, err = doc.GetFloat("THERMAL", "HEAT_REJECTION"); err != nil {
		return err
	}
	eng.Thermal = th
	return nil
}

func optionalInt(doc *inifile.Doc, section, key string) int {
	v, err := doc.GetInt(section, key)
	if err != nil {
		return 0
	}
	return v
}

func optionalFloat(doc *inifile.Doc, section, key string) float64 {
	v, err := doc.GetFloat(section, key)
	if err != nil {
		return 0
	}
	return v
}
