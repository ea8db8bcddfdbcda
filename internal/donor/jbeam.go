package donor

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/lut"
)

// engineEntry is one branch of the engine document, keyed by engine UUID.
// The document is written by the sandbox's mod exporter in a loose JSON
// dialect with comments and trailing commas; jsonc normalises it first.
type engineEntry struct {
	Name    string `json:"name"`
	Family  string `json:"family"`
	Version int    `json:"version"`

	DisplacementCC   float64 `json:"displacementCC"`
	Cylinders        int     `json:"cylinders"`
	BoreMM           float64 `json:"boreMM"`
	StrokeMM         float64 `json:"strokeMM"`
	CompressionRatio float64 `json:"compression"`

	Aspiration   string  `json:"aspiration"`
	MaxBoostBar  float64 `json:"maxBoost"`
	WastegateBar float64 `json:"wastegate"`
	ReferenceRPM int     `json:"boostReferenceRPM"`

	Torque     [][]float64 `json:"torque"`
	TorqueUnit string      `json:"torqueUnit"`

	Idle           int `json:"idle"`
	Limiter        int `json:"limiter"`
	NoLiftShiftRPM int `json:"noLiftShiftRPM"`
	MinStableRPM   int `json:"minStableRPM"`

	FuelConsumption float64 `json:"fuelConsumption"`
	FuelBaseRate    float64 `json:"fuelBaseRate"`
	FuelKind        string  `json:"fuelKind"`
	TankCapacityL   float64 `json:"tankCapacity"`

	CoolantCapacityL *float64 `json:"coolantCapacity"`
	OilCapacityL     *float64 `json:"oilCapacity"`
	HeatRejection    *float64 `json:"heatRejection"`

	DryMassKG float64 `json:"dryMass"`
}

// parseEngineDocument decodes the whole document and selects the branch for uid.
func parseEngineDocument(raw []byte, uid string) (*engineEntry, error) {
	var doc map[string]engineEntry
	if err := json.Unmarshal(jsonc.ToJSON(raw), &doc); err != nil {
		return nil, fmt.Errorf("donor: engine document: %w", err)
	}
	entry, ok := doc[uid]
	if !ok {
		return nil, &UnknownUIDError{UID: uid}
	}
	return &entry, nil
}

// torqueTable converts the entry's raw pairs to a Nm table, converting from
// the declared unit. The unit comes from the entry itself or, failing that,
// from the auxiliary parameter file; with neither declaration the decoder
// refuses rather than guesses.
func (e *engineEntry) torqueTable(params map[string]string) (*lut.Table, error) {
	unit := e.TorqueUnit
	if unit == "" {
		unit = params["torque_curve_unit"]
	}
	var toNm float64
	switch unit {
	case "Nm":
		toNm = 1
	case "lbft":
		toNm = 1.3558179483314004
	default:
		return nil, &CurveUnitMismatchError{Unit: unit}
	}

	samples := make([]lut.Sample, 0, len(e.Torque))
	for _, pair := range e.Torque {
		if len(pair) != 2 {
			return nil, fmt.Errorf("donor: engine document: torque pair has %d values", len(pair))
		}
		samples = append(samples, lut.Sample{X: int(pair[0]), Y: pair[1] * toNm})
	}
	table, err := lut.New(samples)
	if err != nil {
		return nil, fmt.Errorf("donor: engine document: %w", err)
	}
	return table, nil
}

// thermal builds the optional thermal block. The sandbox omits the fields
// entirely for engines it never simulated thermally; a partial set is a
// broken export.
func (e *engineEntry) thermal() (*crate.Thermal, error) {
	present := 0
	for _, f := range []*float64{e.CoolantCapacityL, e.OilCapacityL, e.HeatRejection} {
		if f != nil {
			present++
		}
	}
	switch present {
	case 0:
		return nil, nil
	case 3:
		return &crate.Thermal{
			CoolantCapacityL: *e.CoolantCapacityL,
			OilCapacityL:     *e.OilCapacityL,
			HeatRejection:    *e.HeatRejection,
		}, nil
	default:
		return nil, &crate.InvalidDonorError{Reason: "partial thermal parameters"}
	}
}
