package inifile

import (
	"strconv"
	"strings"

	"github.com/enginecrane/enginecrane/internal/util"
)

// Value is a typed write value. Reads return raw strings; coercion happens
// on the typed getters. A float Value built with an explicit precision
// renders with exactly that many fractional digits.
type Value struct {
	raw string
}

// Raw wraps an already-rendered string.
func Raw(s string) Value { return Value{raw: s} }

// Int renders without a decimal point.
func Int(n int) Value { return Value{raw: strconv.Itoa(n)} }

// Float renders with minimal decimal digits.
func Float(f float64) Value { return Value{raw: util.FormatFloat(f)} }

// FloatPrec renders with exactly prec fractional digits.
func FloatPrec(f float64, prec int) Value { return Value{raw: util.FormatFixed(f, prec)} }

// String renders a bare string value.
func String(s string) Value { return Value{raw: s} }

// Vector renders a comma-separated list of reals.
func Vector(fs []float64) Value {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = util.FormatFloat(f)
	}
	return Value{raw: strings.Join(parts, ",")}
}

func (v Value) String() string { return v.raw }

// parseFloat is the single coercion point for real values.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
