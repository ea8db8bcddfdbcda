package util

import "testing"

func TestParseIntLoose(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{"plain integer", "7200", 7200, false},
		{"float formatted", "7200.0", 7200, false},
		{"float with two decimals", "32.00", 32, false},
		{"negative", "-15", -15, false},
		{"true fraction", "12.5", 0, true},
		{"not a number", "limiter", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseIntLoose(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseIntLoose(%q) expected error, got %d", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIntLoose(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParseIntLoose(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"whole number", 275, "275"},
		{"single decimal", 1.25, "1.25"},
		{"trailing zeros dropped", 92.150000, "92.15"},
		{"zero", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFloat(tt.input); got != tt.expected {
				t.Errorf("FormatFloat(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		prec     int
		expected string
	}{
		{"pad to three", 1.2, 3, "1.200"},
		{"round to two", 92.156, 2, "92.16"},
		{"zero precision", 7.8, 0, "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFixed(tt.input, tt.prec); got != tt.expected {
				t.Errorf("FormatFixed(%v, %d) = %q, want %q", tt.input, tt.prec, got, tt.expected)
			}
		})
	}
}

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"crlf", "a\r\nb\r\n", "a\nb\n"},
		{"lone cr", "a\rb", "a\nb"},
		{"already lf", "a\nb\n", "a\nb\n"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(NormalizeNewlines([]byte(tt.input))); got != tt.expected {
				t.Errorf("NormalizeNewlines(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
