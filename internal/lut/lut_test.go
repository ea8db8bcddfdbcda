package lut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/inifile"
)

func newDoc(t *testing.T, content string) *inifile.Doc {
	t.Helper()
	doc, err := inifile.Load([]byte(content))
	require.NoError(t, err)
	return doc
}

func newGateway(t *testing.T, files map[string]string) datafolder.Gateway {
	t.Helper()
	d := datafolder.NewDir(t.TempDir())
	for name, content := range files {
		require.NoError(t, d.Write(name, []byte(content)))
	}
	return d
}

func TestLoadInline(t *testing.T) {
	doc := newDoc(t, "[HEADER]\nPOWER_CURVE=(1000=80|4000=220|7000=180)\n")
	gw := newGateway(t, nil)

	table, err := Load(doc, "HEADER", "POWER_CURVE", gw)
	require.NoError(t, err)

	assert.Equal(t, StorageInline, table.Storage())
	assert.Equal(t, []Sample{{1000, 80}, {4000, 220}, {7000, 180}}, table.Samples())
}

func TestLoadExternal(t *testing.T) {
	doc := newDoc(t, "[HEADER]\nPOWER_CURVE=power.lut\n")
	gw := newGateway(t, map[string]string{
		"power.lut": "; rpm|kw\n1000|8.4\n4000|92.2\n7000|131.9\n",
	})

	table, err := Load(doc, "HEADER", "POWER_CURVE", gw)
	require.NoError(t, err)

	assert.Equal(t, StorageExternal, table.Storage())
	assert.Equal(t, "power.lut", table.Filename())
	assert.Equal(t, []Sample{{1000, 8.4}, {4000, 92.2}, {7000, 131.9}}, table.Samples())
}

func TestLoadExternalCommaSeparated(t *testing.T) {
	doc := newDoc(t, "[HEADER]\nCURVE=torque.lut\n")
	gw := newGateway(t, map[string]string{"torque.lut": "800,150\n5000,340\n"})

	table, err := Load(doc, "HEADER", "CURVE", gw)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{800, 150}, {5000, 340}}, table.Samples())
}

func TestLoadErrors(t *testing.T) {
	gw := newGateway(t, map[string]string{"bad.lut": "1000|80\nnot-a-pair\n"})

	tests := []struct {
		name string
		doc  string
	}{
		{"missing key", "[HEADER]\nOTHER=1\n"},
		{"missing file", "[HEADER]\nPOWER_CURVE=absent.lut\n"},
		{"malformed file", "[HEADER]\nPOWER_CURVE=bad.lut\n"},
		{"malformed inline", "[HEADER]\nPOWER_CURVE=(1000=80|junk)\n"},
		{"single point", "[HEADER]\nPOWER_CURVE=(1000=80)\n"},
		{"non increasing x", "[HEADER]\nPOWER_CURVE=(1000=80|1000=90)\n"},
		{"unterminated inline", "[HEADER]\nPOWER_CURVE=(1000=80|2000=90\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, tt.doc)
			_, err := Load(doc, "HEADER", "POWER_CURVE", gw)
			require.Error(t, err)
			if tt.name == "missing key" {
				var merr *MissingLutError
				assert.ErrorAs(t, err, &merr)
			} else {
				var perr *ParseError
				assert.ErrorAs(t, err, &perr)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New([]Sample{{1000, 80}})
	assert.Error(t, err)

	_, err = New([]Sample{{-10, 80}, {1000, 90}})
	assert.Error(t, err)

	table, err := New([]Sample{{0, 0}, {1000, 90}})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestUpdateReturnsPrior(t *testing.T) {
	table, err := New([]Sample{{1000, 80}, {4000, 220}})
	require.NoError(t, err)

	prior, err := table.Update([]Sample{{800, 150}, {5000, 340}, {6500, 300}})
	require.NoError(t, err)
	assert.Equal(t, []Sample{{1000, 80}, {4000, 220}}, prior)
	assert.Equal(t, []Sample{{800, 150}, {5000, 340}, {6500, 300}}, table.Samples())

	_, err = table.Update([]Sample{{1000, 80}})
	assert.Error(t, err)
	// failed update leaves the table unchanged
	assert.Equal(t, 3, table.Len())
}

func TestValueAtInterpolatesAndClamps(t *testing.T) {
	table, err := New([]Sample{{1000, 80}, {4000, 220}, {7000, 180}})
	require.NoError(t, err)

	tests := []struct {
		name string
		x    int
		want float64
	}{
		{"below range clamps", 500, 80},
		{"at first point", 1000, 80},
		{"midpoint", 2500, 150},
		{"at inner point", 4000, 220},
		{"descending segment", 5500, 200},
		{"at last point", 7000, 180},
		{"above range clamps", 9000, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, table.ValueAt(tt.x), 1e-9)
		})
	}
}

func TestResample(t *testing.T) {
	table, err := New([]Sample{{1000, 80}, {4000, 220}})
	require.NoError(t, err)

	ys := table.Resample([]int{0, 1000, 2500, 4000, 8000})
	assert.Equal(t, []float64{80, 80, 150, 220, 220}, ys)
}

func TestPeakAndMaxX(t *testing.T) {
	table, err := New([]Sample{{1000, 80}, {4000, 220}, {7000, 180}})
	require.NoError(t, err)

	assert.Equal(t, Sample{4000, 220}, table.Peak())
	assert.Equal(t, 7000, table.MaxX())
	assert.Equal(t, []int{1000, 4000, 7000}, table.Xs())
}

func TestStoreInlineMirrorsShape(t *testing.T) {
	doc := newDoc(t, "[HEADER]\nPOWER_CURVE=(1000=80|4000=220)\n")
	gw := newGateway(t, nil)

	table, err := Load(doc, "HEADER", "POWER_CURVE", gw)
	require.NoError(t, err)

	_, err = table.Update([]Sample{{800, 150.5}, {5000, 340}})
	require.NoError(t, err)
	require.NoError(t, table.Store(doc, gw))

	assert.Equal(t, "[HEADER]\nPOWER_CURVE=(800=150.5|5000=340)\n", string(doc.Serialize()))
}

func TestStoreExternalMirrorsShape(t *testing.T) {
	doc := newDoc(t, "[HEADER]\nPOWER_CURVE=power.lut\n")
	gw := newGateway(t, map[string]string{"power.lut": "1000|80\n4000|220\n"})

	table, err := Load(doc, "HEADER", "POWER_CURVE", gw)
	require.NoError(t, err)

	_, err = table.Update([]Sample{{800, 150}, {5000, 340}})
	require.NoError(t, err)
	require.NoError(t, table.Store(doc, gw))

	// doc untouched, file rewritten to the same name
	assert.Equal(t, "[HEADER]\nPOWER_CURVE=power.lut\n", string(doc.Serialize()))
	b, err := gw.Read("power.lut")
	require.NoError(t, err)
	assert.Equal(t, "800|150\n5000|340\n", string(b))
}
