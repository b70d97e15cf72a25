package mathutil

import (
	"math"
	"testing"
)

func TestAbsInt32(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int64
	}{
		{"positive", 65535, 65535},
		{"negative", -65536, 65536},
		{"zero", 0, 0},
		{"max", math.MaxInt32, math.MaxInt32},
		{"min does not overflow", math.MinInt32, 2147483648},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AbsInt32(tt.input)
			if result != tt.expected {
				t.Errorf("AbsInt32(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestAbsInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected int64
	}{
		{"positive", 301, 301},
		{"negative", -301, 301},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AbsInt64(tt.input)
			if result != tt.expected {
				t.Errorf("AbsInt64(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
