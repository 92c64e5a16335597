package upstream

import (
	"math"
	"testing"
)

// -----------------------------------------------------------------------------

func TestAverageMidWindow(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   *float64
	}{
		{
			name:   "fewer than five offers",
			prices: []float64{41.5, 41.6, 41.7, 41.8},
			want:   nil,
		},
		{
			name:   "empty book",
			prices: nil,
			want:   nil,
		},
		{
			name:   "exactly five offers",
			prices: []float64{41.0, 41.1, 41.2, 41.3, 41.4},
			want:   f(41.3),
		},
		{
			name:   "extra offers beyond the window are ignored",
			prices: []float64{41.0, 41.1, 41.2, 41.3, 41.4, 99.0, 100.0},
			want:   f(41.3),
		},
		{
			name:   "rounded to six decimals",
			prices: []float64{1, 1, 1.0000001, 1.0000002, 1.0000003},
			want:   f(1.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := averageMidWindow(tt.prices)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("averageMidWindow(%v) = %v, want %v", tt.prices, got, tt.want)
			}
			if got != nil && math.Abs(*got-*tt.want) > 1e-9 {
				t.Errorf("averageMidWindow(%v) = %v, want %v", tt.prices, *got, *tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------

func TestAverageMidWindowSkipsTopTwo(t *testing.T) {
	// The two cheapest rows must never influence the quote.
	prices := []float64{1.0, 2.0, 40.0, 41.0, 42.0}
	got := averageMidWindow(prices)
	if got == nil || *got != 41.0 {
		t.Fatalf("averageMidWindow(%v) = %v, want 41.0", prices, got)
	}
}

// -----------------------------------------------------------------------------

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"42100.50", 42100.50, true},
		{"42100,50", 42100.50, true},
		{" 17.25 ", 17.25, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := parsePrice(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parsePrice(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

// -----------------------------------------------------------------------------

func f(v float64) *float64 { return &v }
