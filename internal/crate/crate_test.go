package crate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginecrane/enginecrane/internal/lut"
)

func mustTable(t *testing.T, samples []lut.Sample) *lut.Table {
	t.Helper()
	table, err := lut.New(samples)
	require.NoError(t, err)
	return table
}

// validEngine returns a record that passes Validate; tests mutate copies.
func validEngine(t *testing.T) *Engine {
	t.Helper()
	torque := mustTable(t, []lut.Sample{{X: 1000, Y: 80}, {X: 4000, Y: 220}, {X: 7000, Y: 180}})
	power := mustTable(t, []lut.Sample{
		{X: 1000, Y: PowerKW(80, 1000)},
		{X: 4000, Y: PowerKW(220, 4000)},
		{X: 7000, Y: PowerKW(180, 7000)},
	})
	return &Engine{
		Kind:             KindExport,
		UUID:             "c9a1e7b0-0000-4000-8000-000000000001",
		Name:             "i6 Sledge",
		Family:           "Sledge",
		Version:          3,
		DisplacementCC:   2998,
		Cylinders:        6,
		BoreMM:           86,
		StrokeMM:         86,
		CompressionRatio: 10.5,
		Aspiration:       AspirationNA,
		Torque:           torque,
		Power:            power,
		IdleRPM:          900,
		LimiterRPM:       7200,
		NoLiftShiftRPM:   7000,
		MinStableRPM:     750,
		Fuel: Fuel{
			ConsumptionCoeff:  0.285,
			BaseRate:          0.8,
			Kind:              "petrol",
			TankCapacityHintL: 58,
		},
		Thermal:   &Thermal{CoolantCapacityL: 7.5, OilCapacityL: 5.2, HeatRejection: 0.031},
		DryMassKG: 188,
	}
}

func TestValidateAcceptsSoundRecord(t *testing.T) {
	require.NoError(t, validEngine(t).Validate())
}

func TestValidateInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testing.T, *Engine)
		reason string
	}{
		{
			"limiter below idle",
			func(t *testing.T, e *Engine) { e.IdleRPM = 2000; e.LimiterRPM = 1800 },
			"limiter<=idle",
		},
		{
			"limiter equals idle",
			func(t *testing.T, e *Engine) { e.IdleRPM = 2000; e.LimiterRPM = 2000 },
			"limiter<=idle",
		},
		{
			"zero idle",
			func(t *testing.T, e *Engine) { e.IdleRPM = 0 },
			"idle<=0",
		},
		{
			"curve past limiter",
			func(t *testing.T, e *Engine) { e.LimiterRPM = 6000 },
			"curve extends to 7000 RPM, past limiter 6000",
		},
		{
			"missing torque curve",
			func(t *testing.T, e *Engine) { e.Torque = nil },
			"empty torque curve",
		},
		{
			"missing power curve",
			func(t *testing.T, e *Engine) { e.Power = nil },
			"empty power curve",
		},
		{
			"params on NA engine",
			func(t *testing.T, e *Engine) { e.AspirationParams = &AspirationParams{MaxBoostBar: 1.2} },
			"aspiration parameters present on naturally aspirated engine",
		},
		{
			"turbo without params",
			func(t *testing.T, e *Engine) { e.Aspiration = AspirationTurbo },
			"aspiration turbo requires parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEngine(t)
			tt.mutate(t, e)
			err := e.Validate()
			var derr *InvalidDonorError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.reason, derr.Reason)
		})
	}
}

func TestValidateCurveOverrunTolerance(t *testing.T) {
	e := validEngine(t)
	// 7000 RPM curve max against a 6900 limiter is inside the 200 RPM allowance
	e.LimiterRPM = 6900
	require.NoError(t, e.Validate())
}

func TestValidatePowerTorqueConsistency(t *testing.T) {
	e := validEngine(t)
	e.Power = mustTable(t, []lut.Sample{{X: 1000, Y: 50}, {X: 7000, Y: 60}})

	err := e.Validate()
	var derr *InvalidDonorError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Reason, "power curve disagrees with torque")
}

func TestPowerKW(t *testing.T) {
	tests := []struct {
		name   string
		torque float64
		rpm    int
		want   float64
	}{
		{"peak torque", 220, 4000, 92.15},
		{"low end", 80, 1000, 8.38},
		{"high end", 180, 7000, 131.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PowerKW(tt.torque, tt.rpm), 0.05)
		})
	}
}

func TestPeaks(t *testing.T) {
	e := validEngine(t)
	assert.Equal(t, lut.Sample{X: 4000, Y: 220}, e.PeakTorque())
	assert.Equal(t, 7000, e.PeakPowerRPM())
}

func TestEqualIgnoresProvenance(t *testing.T) {
	a := validEngine(t)
	b := validEngine(t)
	b.ArtifactHashes = []*[32]byte{{1, 2, 3}}

	assert.True(t, a.Equal(b))

	b.LimiterRPM = 6800
	assert.False(t, a.Equal(b))

	c := validEngine(t)
	c.Fuel.Kind = "ethanol"
	assert.False(t, a.Equal(c))

	d := validEngine(t)
	d.Thermal = nil
	assert.False(t, a.Equal(d))
}

func TestParseAspiration(t *testing.T) {
	tests := []struct {
		input   string
		want    Aspiration
		wantErr bool
	}{
		{"NA", AspirationNA, false},
		{"naturalAspirated", AspirationNA, false},
		{"Turbo", AspirationTurbo, false},
		{"supercharged", AspirationSupercharged, false},
		{"rotary", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAspiration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetPatch(t *testing.T) {
	e := validEngine(t)
	p := e.TargetPatch()

	byKey := map[string]string{}
	for _, w := range p {
		byKey[w.File+"/"+w.Section+"/"+w.Key] = w.Value.String()
	}

	assert.Equal(t, "7200", byKey["engine.ini/ENGINE_DATA/LIMITER"])
	assert.Equal(t, "900", byKey["engine.ini/ENGINE_DATA/MINIMUM"])
	assert.Equal(t, "0.2850", byKey["car.ini/FUEL/CONSUMPTION"])
	assert.Equal(t, "petrol", byKey["car.ini/FUEL/FUEL_TYPE"])
	assert.Equal(t, "7.50", byKey["engine.ini/THERMAL/COOLANT_CAPACITY"])

	// no turbo section for a naturally aspirated donor
	_, hasTurbo := byKey["engine.ini/TURBO_0/MAX_BOOST"]
	assert.False(t, hasTurbo)
}

func TestTargetPatchTurbo(t *testing.T) {
	e := validEngine(t)
	e.Aspiration = AspirationTurbo
	e.AspirationParams = &AspirationParams{MaxBoostBar: 1.4, WastegateBar: 1.5, ReferenceRPM: 3500}
	require.NoError(t, e.Validate())

	p := e.TargetPatch()
	var boost, wastegate, ref string
	for _, w := range p {
		if w.Section == "TURBO_0" {
			switch w.Key {
			case "MAX_BOOST":
				boost = w.Value.String()
			case "WASTEGATE":
				wastegate = w.Value.String()
			case "REFERENCE_RPM":
				ref = w.Value.String()
			}
		}
	}
	assert.Equal(t, "1.40", boost)
	assert.Equal(t, "1.50", wastegate)
	assert.Equal(t, "3500", ref)
}
