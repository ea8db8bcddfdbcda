// Package lut models two-column lookup tables used for torque and power
// curves. A table is either inlined in an INI header value as
// "(x=y|x=y|...)" or stored in a sibling file with one "x|y" pair per line.
// Serialization mirrors the loaded shape.
package lut

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/inifile"
	"github.com/enginecrane/enginecrane/internal/util"
)

// Sample is one (x, y) pair. X values are RPM in every curve this tool
// touches; Y is Nm or kW depending on the curve.
type Sample struct {
	X int
	Y float64
}

// Storage tags where a table lives.
type Storage int

const (
	StorageInline Storage = iota
	StorageExternal
)

// Table is a finite ordered sequence of samples with strictly increasing,
// non-negative X.
type Table struct {
	storage  Storage
	section  string // header location
	key      string
	filename string // external only
	samples  []Sample
}

// Load reads the table referenced by section/key in doc. An inline value of
// the form "(x=y|...)" is parsed directly; anything else is treated as a
// filename resolved through the gateway.
func Load(doc *inifile.Doc, section, key string, gw datafolder.Gateway) (*Table, error) {
	raw, ok := doc.Get(section, key)
	if !ok {
		return nil, &MissingLutError{Section: section, Key: key}
	}
	raw = strings.TrimSpace(raw)

	t := &Table{section: section, key: key}
	if strings.HasPrefix(raw, "(") {
		samples, err := parseInline(raw)
		if err != nil {
			return nil, &ParseError{Source: fmt.Sprintf("[%s] %s", section, key), Err: err}
		}
		t.storage = StorageInline
		t.samples = samples
		return t, nil
	}

	b, err := gw.Read(raw)
	if err != nil {
		return nil, &ParseError{Source: raw, Err: err}
	}
	samples, err := parseFile(b)
	if err != nil {
		return nil, &ParseError{Source: raw, Err: err}
	}
	t.storage = StorageExternal
	t.filename = raw
	t.samples = samples
	return t, nil
}

// New builds an in-memory table with the given shape, for curves that do not
// originate from a car document.
func New(samples []Sample) (*Table, error) {
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	return &Table{storage: StorageInline, samples: cloneSamples(samples)}, nil
}

// ParseInline parses an "(x=y|...)" value into a detached inline table.
func ParseInline(raw string) (*Table, error) {
	samples, err := parseInline(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ParseError{Source: "inline value", Err: err}
	}
	return &Table{storage: StorageInline, samples: samples}, nil
}

// Storage reports whether the table is inline or external.
func (t *Table) Storage() Storage { return t.storage }

// Filename returns the external file name, or "" for inline tables.
func (t *Table) Filename() string { return t.filename }

// Samples returns a copy of the sample sequence.
func (t *Table) Samples() []Sample { return cloneSamples(t.samples) }

// Len returns the number of samples.
func (t *Table) Len() int { return len(t.samples) }

// MaxX returns the largest x value.
func (t *Table) MaxX() int { return t.samples[len(t.samples)-1].X }

// Peak returns the sample with the largest y value. Ties resolve to the
// lowest x.
func (t *Table) Peak() Sample {
	peak := t.samples[0]
	for _, s := range t.samples[1:] {
		if s.Y > peak.Y {
			peak = s
		}
	}
	return peak
}

// Xs returns the x values in order.
func (t *Table) Xs() []int {
	xs := make([]int, len(t.samples))
	for i, s := range t.samples {
		xs[i] = s.X
	}
	return xs
}

// Update replaces the samples in place and returns the prior sequence for
// auditing. The new samples must satisfy the table invariants.
func (t *Table) Update(samples []Sample) ([]Sample, error) {
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	prior := t.samples
	t.samples = cloneSamples(samples)
	return prior, nil
}

// ValueAt linearly interpolates y at x, clamping to the endpoints.
func (t *Table) ValueAt(x int) float64 {
	s := t.samples
	if x <= s[0].X {
		return s[0].Y
	}
	if x >= s[len(s)-1].X {
		return s[len(s)-1].Y
	}
	for i := 1; i < len(s); i++ {
		if x <= s[i].X {
			lo, hi := s[i-1], s[i]
			frac := float64(x-lo.X) / float64(hi.X-lo.X)
			return lo.Y + frac*(hi.Y-lo.Y)
		}
	}
	return s[len(s)-1].Y
}

// Resample returns the interpolated y values at each of xs.
func (t *Table) Resample(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = t.ValueAt(x)
	}
	return out
}

// Store writes the table back through the shape it was loaded with: inline
// tables rewrite the header value, external tables rewrite their file.
func (t *Table) Store(doc *inifile.Doc, gw datafolder.Gateway) error {
	if t.storage == StorageInline {
		if t.section == "" {
			return fmt.Errorf("lut: inline table has no header location")
		}
		doc.Set(t.section, t.key, inifile.Raw(t.serializeInline()))
		return nil
	}
	return gw.Write(t.filename, t.serializeFile())
}

// Inline renders the samples in inline "(x=y|...)" form regardless of the
// table's storage, for display and reporting.
func (t *Table) Inline() string { return t.serializeInline() }

func (t *Table) serializeInline() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, s := range t.samples {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(s.X))
		b.WriteByte('=')
		b.WriteString(util.FormatFloat(s.Y))
	}
	b.WriteByte(')')
	return b.String()
}

func (t *Table) serializeFile() []byte {
	var b strings.Builder
	for _, s := range t.samples {
		b.WriteString(strconv.Itoa(s.X))
		b.WriteByte('|')
		b.WriteString(util.FormatFloat(s.Y))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func parseInline(raw string) ([]Sample, error) {
	if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
		return nil, fmt.Errorf("inline table must be wrapped in parentheses: %q", raw)
	}
	body := raw[1 : len(raw)-1]
	var samples []Sample
	for _, part := range strings.Split(body, "|") {
		s, err := parsePair(part, "=")
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func parseFile(b []byte) ([]Sample, error) {
	var samples []Sample
	for _, ln := range strings.Split(string(util.NormalizeNewlines(b)), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, ";") || strings.HasPrefix(ln, "#") {
			continue
		}
		sep := "|"
		if !strings.Contains(ln, "|") {
			sep = ","
		}
		s, err := parsePair(ln, sep)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func parsePair(part, sep string) (Sample, error) {
	halves := strings.SplitN(part, sep, 2)
	if len(halves) != 2 {
		return Sample{}, fmt.Errorf("malformed pair %q", part)
	}
	x, err := util.ParseIntLoose(strings.TrimSpace(halves[0]))
	if err != nil {
		return Sample{}, fmt.Errorf("bad x in pair %q: %w", part, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(halves[1]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("bad y in pair %q: %w", part, err)
	}
	return Sample{X: int(x), Y: y}, nil
}

func checkSamples(samples []Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("lut: need at least two samples, got %d", len(samples))
	}
	if samples[0].X < 0 {
		return fmt.Errorf("lut: negative x value %d", samples[0].X)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].X <= samples[i-1].X {
			return fmt.Errorf("lut: x values must be strictly increasing (%d after %d)", samples[i].X, samples[i-1].X)
		}
	}
	return nil
}

func cloneSamples(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}
