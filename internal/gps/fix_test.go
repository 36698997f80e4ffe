package gps

import (
	"math"
	"testing"
)

func TestKnotsToMPS(t *testing.T) {
	cases := []struct {
		knots, want float64
	}{
		{0, 0},
		{1, 0.514444},
		{10, 5.14444},
		{-3, -1.543332},
	}

	for _, tc := range cases {
		got := KnotsToMPS(tc.knots)
		if math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("KnotsToMPS(%v): got %v, want %v", tc.knots, got, tc.want)
		}
	}
}
