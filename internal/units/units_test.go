package units

import (
	"math"
	"testing"
)

func TestConvertDistance(t *testing.T) {
	tests := []struct {
		name       string
		distanceCM float64
		units      string
		expected   float64
	}{
		{"50 cm to in", 50.0, IN, 19.685},
		{"50 cm to m", 50.0, M, 0.5},
		{"50 cm to cm", 50.0, CM, 50.0},
		{"unknown units default to cm", 50.0, "unknown", 50.0},
		{"0 cm to in", 0.0, IN, 0.0},
		{"arm's length 61 cm to in", 61.0, IN, 24.0157},
		{"across the room 250 cm to m", 250.0, M, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertDistance(tt.distanceCM, tt.units)
			if math.Abs(result-tt.expected) > 0.01 { // Allow small floating point differences
				t.Errorf("ConvertDistance(%f, %s) = %f, want %f", tt.distanceCM, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid cm", CM, true},
		{"valid in", IN, true},
		{"valid m", M, true},
		{"invalid unit", "ft", false},
		{"empty string", "", false},
		{"case sensitive", "CM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.unit); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got := GetValidUnitsString(); got != "cm, in, m" {
		t.Errorf("GetValidUnitsString() = %q", got)
	}
}
