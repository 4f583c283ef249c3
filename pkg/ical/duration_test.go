package ical

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"P1D", 24 * time.Hour},
		{"P2W", 14 * 24 * time.Hour},
		{"PT30M", 30 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
		{"P1DT12H", 36 * time.Hour},
		{"-PT15M", -15 * time.Minute},
		{"+PT10S", 10 * time.Second},
		{"P0D", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if err != nil {
				t.Fatalf("ParseDuration(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"", "1D", "Pfoo", "P1X2D"} {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) should fail", in)
		}
	}
}

func TestIsDuration(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"-PT15M", true},
		{"P1D", true},
		{"+P2W", true},
		{"20250101T090000Z", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDuration(tt.in); got != tt.want {
			t.Errorf("IsDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
