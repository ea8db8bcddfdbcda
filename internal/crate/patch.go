package crate

import (
	"github.com/enginecrane/enginecrane/internal/inifile"
)

// Data file names inside the car's data folder.
const (
	FileEngine      = "engine.ini"
	FileDrivetrain  = "drivetrain.ini"
	FileElectronics = "electronics.ini"
	FileCar         = "car.ini"
)

// Write is one (file, section, key, value) rewrite.
type Write struct {
	File    string
	Section string
	Key     string
	Value   inifile.Value
}

// Patch is an ordered set of writes.
type Patch []Write

// TargetPatch yields the direct field rewrites an ideal transplant of this
// engine produces. It is a pure function of the record: derived rewrites
// that depend on the target car (curve resampling, clutch scaling, shifter
// points) are the transplant engine's duty.
func (e *Engine) TargetPatch() Patch {
	p := Patch{
		{FileEngine, "ENGINE_DATA", "LIMITER", inifile.Int(e.LimiterRPM)},
		{FileEngine, "ENGINE_DATA", "MINIMUM", inifile.Int(e.IdleRPM)},
		{FileCar, "FUEL", "CONSUMPTION", inifile.FloatPrec(e.Fuel.ConsumptionCoeff, 4)},
	}
	if e.Fuel.Kind != "" {
		p = append(p, Write{FileCar, "FUEL", "FUEL_TYPE", inifile.String(e.Fuel.Kind)})
	}
	if e.Thermal != nil {
		p = append(p,
			Write{FileEngine, "THERMAL", "COOLANT_CAPACITY", inifile.FloatPrec(e.Thermal.CoolantCapacityL, 2)},
			Write{FileEngine, "THERMAL", "OIL_CAPACITY", inifile.FloatPrec(e.Thermal.OilCapacityL, 2)},
			Write{FileEngine, "THERMAL", "HEAT_REJECTION", inifile.FloatPrec(e.Thermal.HeatRejection, 4)},
		)
	}
	if e.AspirationParams != nil {
		p = append(p,
			Write{FileEngine, "TURBO_0", "MAX_BOOST", inifile.FloatPrec(e.AspirationParams.MaxBoostBar, 2)},
			Write{FileEngine, "TURBO_0", "WASTEGATE", inifile.FloatPrec(e.AspirationParams.WastegateBar, 2)},
			Write{FileEngine, "TURBO_0", "REFERENCE_RPM", inifile.Int(e.AspirationParams.ReferenceRPM)},
		)
	}
	return p
}
