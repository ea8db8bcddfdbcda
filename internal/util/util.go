// Package util provides common utility functions used across the engine-crane core.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntLoose parses a string that may be an integer ("7200") or a
// float-formatted integer ("7200.0") into int64. Some of the simulator's
// data files serialize whole numbers with a trailing fraction.
func ParseIntLoose(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("ParseIntLoose: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// FormatFloat renders a float with minimal decimal digits; whole numbers
// render without a fractional part.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatFixed renders a float with exactly prec fractional digits.
func FormatFixed(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(b []byte) []byte {
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return []byte(s)
}
