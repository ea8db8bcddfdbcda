package car

import (
	"fmt"

	"github.com/enginecrane/enginecrane/internal/inifile"
)

// ClutchView covers [CLUTCH] in drivetrain.ini. MAX_TORQUE is an integer
// field in the target sim's format.
type ClutchView struct {
	MaxTorque int

	writer sectionWriter
}

func loadClutch(doc *inifile.Doc) (*ClutchView, error) {
	v := &ClutchView{writer: newSectionWriter("CLUTCH")}
	var err error
	if v.MaxTorque, err = doc.GetInt("CLUTCH", "MAX_TORQUE"); err != nil {
		return nil, err
	}
	return v, nil
}

// SetMaxTorque stages a new clutch torque capacity.
func (v *ClutchView) SetMaxTorque(nm int) {
	v.MaxTorque = nm
	v.writer.set("MAX_TORQUE", inifile.Int(nm))
}

func (v *ClutchView) applyTo(doc *inifile.Doc) { v.writer.applyTo(doc) }

// GearboxView covers [GEARS] in drivetrain.ini. Read-only during a
// transplant; ratios are the car designer's business.
type GearboxView struct {
	Count   int
	Reverse float64
	Ratios  []float64
	Final   float64
}

func loadGearbox(doc *inifile.Doc) (*GearboxView, error) {
	v := &GearboxView{}
	var err error
	if v.Count, err = doc.GetInt("GEARS", "COUNT"); err != nil {
		return nil, err
	}
	if v.Count < 1 {
		return nil, fmt.Errorf("car: [GEARS] COUNT must be positive, got %d", v.Count)
	}
	if v.Reverse, err = doc.GetFloat("GEARS", "GEAR_R"); err != nil {
		return nil, err
	}
	v.Ratios = make([]float64, v.Count)
	for i := 1; i <= v.Count; i++ {
		if v.Ratios[i-1], err = doc.GetFloat("GEARS", fmt.Sprintf("GEAR_%d", i)); err != nil {
			return nil, err
		}
	}
	if v.Final, err = doc.GetFloat("GEARS", "FINAL"); err != nil {
		return nil, err
	}
	return v, nil
}

// DifferentialView covers [DIFFERENTIAL] in drivetrain.ini. Read-only.
type DifferentialView struct {
	Power   float64
	Coast   float64
	Preload float64
}

func loadDifferential(doc *inifile.Doc) (*DifferentialView, error) {
	v := &DifferentialView{}
	var err error
	if v.Power, err = doc.GetFloat("DIFFERENTIAL", "POWER"); err != nil {
		return nil, err
	}
	if v.Coast, err = doc.GetFloat("DIFFERENTIAL", "COAST"); err != nil {
		return nil, err
	}
	if v.Preload, err = doc.GetFloat("DIFFERENTIAL", "PRELOAD"); err != nil {
		return nil, err
	}
	return v, nil
}

// AutoShifterView covers [AUTO_SHIFTER] in drivetrain.ini.
type AutoShifterView struct {
	Up   int
	Down int

	writer sectionWriter
}

func loadAutoShifter(doc *inifile.Doc) (*AutoShifterView, error) {
	v := &AutoShifterView{writer: newSectionWriter("AUTO_SHIFTER")}
	var err error
	if v.Up, err = doc.GetInt("AUTO_SHIFTER", "UP"); err != nil {
		return nil, err
	}
	if v.Down, err = doc.GetInt("AUTO_SHIFTER", "DOWN"); err != nil {
		return nil, err
	}
	return v, nil
}

// SetUp stages a new up-shift RPM.
func (v *AutoShifterView) SetUp(rpm int) {
	v.Up = rpm
	v.writer.set("UP", inifile.Int(rpm))
}

// SetDown stages a new down-shift RPM.
func (v *AutoShifterView) SetDown(rpm int) {
	v.Down = rpm
	v.writer.set("DOWN", inifile.Int(rpm))
}

func (v *AutoShifterView) applyTo(doc *inifile.Doc) { v.writer.applyTo(doc) }

// DownshiftProtectionView covers [DOWNSHIFT_PROTECTION] in drivetrain.ini.
type DownshiftProtectionView struct {
	Active  bool
	Overrev int

	writer sectionWriter
}

func loadDownshiftProtection(doc *inifile.Doc) (*DownshiftProtectionView, error) {
	v := &DownshiftProtectionView{writer: newSectionWriter("DOWNSHIFT_PROTECTION")}
	active, err := doc.GetInt("DOWNSHIFT_PROTECTION", "ACTIVE")
	if err != nil {
		return nil, err
	}
	v.Active = active != 0
	if v.Overrev, err = doc.GetInt("DOWNSHIFT_PROTECTION", "OVERREV"); err != nil {
		return nil, err
	}
	return v, nil
}

// SetOverrev stages a new over-rev ceiling.
func (v *DownshiftProtectionView) SetOverrev(rpm int) {
	v.Overrev = rpm
	v.writer.set("OVERREV", inifile.Int(rpm))
}

func (v *DownshiftProtectionView) applyTo(doc *inifile.Doc) { v.writer.applyTo(doc) }
