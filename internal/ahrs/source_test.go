package ahrs

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestHalfAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{180, 180},
		{181, -179},
		{-180, 180},
		{-181, 179},
		{360, 0},
		{540, 180},
		{720, 0},
		{-90, -90},
		{-360, 0},
		{1000, -80},
		{-1000, 80},
	}

	for _, tc := range cases {
		got := HalfAngle(tc.in)
		if !floatEquals(got, tc.want) {
			t.Errorf("HalfAngle(%v): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestHalfAngle_RangeInvariant(t *testing.T) {
	for deg := -3600.0; deg <= 3600.0; deg += 13.7 {
		got := HalfAngle(deg)
		if got <= -180 || got > 180 {
			t.Fatalf("HalfAngle(%v) = %v, outside (-180, 180]", deg, got)
		}
	}
}
