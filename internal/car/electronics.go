package car

import (
	"github.com/enginecrane/enginecrane/internal/inifile"
)

// ABSView covers [ABS] in electronics.ini. Read-only during a transplant;
// loading it still validates the section is intact.
type ABSView struct {
	Present bool
	Active  bool
}

func loadABS(doc *inifile.Doc) (*ABSView, error) {
	present, err := doc.GetInt("ABS", "PRESENT")
	if err != nil {
		return nil, err
	}
	active, err := doc.GetInt("ABS", "ACTIVE")
	if err != nil {
		return nil, err
	}
	return &ABSView{Present: present != 0, Active: active != 0}, nil
}

// TractionControlView covers [TRACTION_CONTROL] in electronics.ini.
type TractionControlView struct {
	Present bool
	Active  bool
}

func loadTractionControl(doc *inifile.Doc) (*TractionControlView, error) {
	present, err := doc.GetInt("TRACTION_CONTROL", "PRESENT")
	if err != nil {
		return nil, err
	}
	active, err := doc.GetInt("TRACTION_CONTROL", "ACTIVE")
	if err != nil {
		return nil, err
	}
	return &TractionControlView{Present: present != 0, Active: active != 0}, nil
}

// FuelView covers [FUEL] in car.ini.
type FuelView struct {
	Consumption float64
	InitialFuel float64
	MaxFuel     int

	writer sectionWriter
}

func loadFuel(doc *inifile.Doc) (*FuelView, error) {
	v := &FuelView{writer: newSectionWriter("FUEL")}
	var err error
	if v.Consumption, err = doc.GetFloat("FUEL", "CONSUMPTION"); err != nil {
		return nil, err
	}
	if v.InitialFuel, err = doc.GetFloat("FUEL", "FUEL"); err != nil {
		return nil, err
	}
	if v.MaxFuel, err = doc.GetInt("FUEL", "MAX_FUEL"); err != nil {
		return nil, err
	}
	return v, nil
}

// SetConsumption stages a new consumption coefficient.
func (v *FuelView) SetConsumption(c float64) {
	v.Consumption = c
	v.writer.set("CONSUMPTION", inifile.FloatPrec(c, 4))
}

// SetType stages the fuel type tag.
func (v *FuelView) SetType(kind string) {
	v.writer.set("FUEL_TYPE", inifile.String(kind))
}

func (v *FuelView) applyTo(doc *inifile.Doc) { v.writer.applyTo(doc) }

// HeaderView covers [BASIC] in car.ini.
type HeaderView struct {
	TotalMass  float64
	ScreenName string // optional
}

func loadHeader(doc *inifile.Doc) (*HeaderView, error) {
	v := &HeaderView{}
	var err error
	if v.TotalMass, err = doc.GetFloat("BASIC", "TOTALMASS"); err != nil {
		return nil, err
	}
	if name, ok := doc.Get("INFO", "SCREEN_NAME"); ok {
		v.ScreenName = name
	}
	return v, nil
}
