package car

import (
	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/lut"
)

// CurveView owns one of the engine header's lookup tables (TORQUE_CURVE or
// POWER_CURVE), inline or external. The view replaces samples wholesale; it
// never resamples; resampling is the transplant engine's duty.
type CurveView struct {
	Key   string
	Table *lut.Table

	dirty bool
}

func loadCurve(doc *inifile.Doc, key string, gw datafolder.Gateway) (*CurveView, error) {
	table, err := lut.Load(doc, "HEADER", key, gw)
	if err != nil {
		return nil, err
	}
	return &CurveView{Key: key, Table: table}, nil
}

// Update replaces the curve samples, returning the prior samples.
func (v *CurveView) Update(samples []lut.Sample) ([]lut.Sample, error) {
	prior, err := v.Table.Update(samples)
	if err != nil {
		return nil, err
	}
	v.dirty = true
	return prior, nil
}

// store writes the table back through the shape it was loaded with.
func (v *CurveView) store(doc *inifile.Doc, gw datafolder.Gateway) error {
	if !v.dirty {
		return nil
	}
	return v.Table.Store(doc, gw)
}
