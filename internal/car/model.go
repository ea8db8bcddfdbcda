// Package car presents typed views over a target car's data folder. Each
// view loads fail-fast from the underlying documents and writes back through
// its own section writer so file formatting is preserved.
package car

import (
	"fmt"
	"strconv"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/util"
)

// Docs holds the four structured documents of a car. The model exclusively
// owns them for the duration of a transplant.
type Docs struct {
	Engine      *inifile.Doc
	Drivetrain  *inifile.Doc
	Electronics *inifile.Doc
	Car         *inifile.Doc
}

// ByFile returns the document backing one of the known data files.
func (d *Docs) ByFile(name string) (*inifile.Doc, error) {
	switch name {
	case crate.FileEngine:
		return d.Engine, nil
	case crate.FileDrivetrain:
		return d.Drivetrain, nil
	case crate.FileElectronics:
		return d.Electronics, nil
	case crate.FileCar:
		return d.Car, nil
	}
	return nil, fmt.Errorf("car: no document for file %q", name)
}

// Model is the assembled set of views over a car.
type Model struct {
	Docs *Docs

	Engine              *EngineView
	TorqueCurve         *CurveView
	PowerCurve          *CurveView
	Clutch              *ClutchView
	Gearbox             *GearboxView
	Differential        *DifferentialView
	AutoShifter         *AutoShifterView
	DownshiftProtection *DownshiftProtectionView
	ABS                 *ABSView
	TractionControl     *TractionControlView
	Fuel                *FuelView
	Header              *HeaderView
}

// Load reads the car's documents through the gateway and builds every view.
// Missing mandatory sections or fields fail immediately.
func Load(gw datafolder.Gateway) (*Model, error) {
	docs := &Docs{}
	for _, f := range []struct {
		name string
		dst  **inifile.Doc
	}{
		{crate.FileEngine, &docs.Engine},
		{crate.FileDrivetrain, &docs.Drivetrain},
		{crate.FileElectronics, &docs.Electronics},
		{crate.FileCar, &docs.Car},
	} {
		raw, err := gw.Read(f.name)
		if err != nil {
			return nil, fmt.Errorf("car: load %s: %w", f.name, err)
		}
		doc, err := inifile.Load(raw)
		if err != nil {
			return nil, fmt.Errorf("car: parse %s: %w", f.name, err)
		}
		*f.dst = doc
	}

	m := &Model{Docs: docs}
	var err error
	if m.Engine, err = loadEngine(docs.Engine); err != nil {
		return nil, err
	}
	if m.TorqueCurve, err = loadCurve(docs.Engine, "TORQUE_CURVE", gw); err != nil {
		return nil, err
	}
	if m.PowerCurve, err = loadCurve(docs.Engine, "POWER_CURVE", gw); err != nil {
		return nil, err
	}
	if m.Clutch, err = loadClutch(docs.Drivetrain); err != nil {
		return nil, err
	}
	if m.Gearbox, err = loadGearbox(docs.Drivetrain); err != nil {
		return nil, err
	}
	if m.Differential, err = loadDifferential(docs.Drivetrain); err != nil {
		return nil, err
	}
	if m.AutoShifter, err = loadAutoShifter(docs.Drivetrain); err != nil {
		return nil, err
	}
	if m.DownshiftProtection, err = loadDownshiftProtection(docs.Drivetrain); err != nil {
		return nil, err
	}
	if m.ABS, err = loadABS(docs.Electronics); err != nil {
		return nil, err
	}
	if m.TractionControl, err = loadTractionControl(docs.Electronics); err != nil {
		return nil, err
	}
	if m.Fuel, err = loadFuel(docs.Car); err != nil {
		return nil, err
	}
	if m.Header, err = loadHeader(docs.Car); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyPatch routes each write through the view owning its section, so view
// fields stay in step with the documents. Sections no view covers write
// straight to the document.
func (m *Model) ApplyPatch(p crate.Patch) error {
	for _, w := range p {
		if m.routePatchWrite(w) {
			continue
		}
		doc, err := m.Docs.ByFile(w.File)
		if err != nil {
			return err
		}
		doc.Set(w.Section, w.Key, w.Value)
	}
	return nil
}

func (m *Model) routePatchWrite(w crate.Write) bool {
	switch {
	case w.File == crate.FileEngine && w.Section == "ENGINE_DATA":
		rpm, err := util.ParseIntLoose(w.Value.String())
		if err != nil {
			return false
		}
		switch w.Key {
		case "LIMITER":
			m.Engine.SetLimiter(int(rpm))
			return true
		case "MINIMUM":
			m.Engine.SetMinimum(int(rpm))
			return true
		}
	case w.File == crate.FileCar && w.Section == "FUEL":
		switch w.Key {
		case "CONSUMPTION":
			c, err := strconv.ParseFloat(w.Value.String(), 64)
			if err != nil {
				return false
			}
			m.Fuel.SetConsumption(c)
			return true
		case "FUEL_TYPE":
			m.Fuel.SetType(w.Value.String())
			return true
		}
	}
	return false
}

// Apply flushes every view's pending writes into its document and the curve
// tables back through the gateway (external curves stage their files).
func (m *Model) Apply(gw datafolder.Gateway) error {
	m.Engine.applyTo(m.Docs.Engine)
	m.Clutch.applyTo(m.Docs.Drivetrain)
	m.AutoShifter.applyTo(m.Docs.Drivetrain)
	m.DownshiftProtection.applyTo(m.Docs.Drivetrain)
	m.Fuel.applyTo(m.Docs.Car)
	if err := m.TorqueCurve.store(m.Docs.Engine, gw); err != nil {
		return err
	}
	return m.PowerCurve.store(m.Docs.Engine, gw)
}

// Serialize writes all four documents back through the gateway.
func (m *Model) Serialize(gw datafolder.Gateway) error {
	for _, f := range []struct {
		name string
		doc  *inifile.Doc
	}{
		{crate.FileEngine, m.Docs.Engine},
		{crate.FileDrivetrain, m.Docs.Drivetrain},
		{crate.FileElectronics, m.Docs.Electronics},
		{crate.FileCar, m.Docs.Car},
	} {
		if err := gw.Write(f.name, f.doc.Serialize()); err != nil {
			return err
		}
	}
	return nil
}
