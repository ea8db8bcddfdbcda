package car

import (
	"github.com/enginecrane/enginecrane/internal/inifile"
)

// EngineView covers engine.ini: the header and the [ENGINE_DATA] section.
type EngineView struct {
	Version int
	Limiter int
	Minimum int
	Inertia float64

	writer sectionWriter
}

func loadEngine(doc *inifile.Doc) (*EngineView, error) {
	v := &EngineView{writer: newSectionWriter("ENGINE_DATA")}
	var err error
	if v.Version, err = doc.GetInt("HEADER", "VERSION"); err != nil {
		return nil, err
	}
	if v.Limiter, err = doc.GetInt("ENGINE_DATA", "LIMITER"); err != nil {
		return nil, err
	}
	if v.Minimum, err = doc.GetInt("ENGINE_DATA", "MINIMUM"); err != nil {
		return nil, err
	}
	if v.Inertia, err = doc.GetFloat("ENGINE_DATA", "INERTIA"); err != nil {
		return nil, err
	}
	return v, nil
}

// SetLimiter stages a new rev limiter.
func (v *EngineView) SetLimiter(rpm int) {
	v.Limiter = rpm
	v.writer.set("LIMITER", inifile.Int(rpm))
}

// SetMinimum stages a new idle RPM.
func (v *EngineView) SetMinimum(rpm int) {
	v.Minimum = rpm
	v.writer.set("MINIMUM", inifile.Int(rpm))
}

func (v *EngineView) applyTo(doc *inifile.Doc) { v.writer.applyTo(doc) }
