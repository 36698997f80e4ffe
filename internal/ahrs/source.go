package ahrs

import "math"

// Source is anything that can report the vehicle heading in degrees. The
// convention and zero reference are owned by the source; the drive core only
// ever works with the half-angle form.
type Source interface {
	CurrentHeading() (float64, error)
}

// HalfAngle collapses any angle in degrees into the half range (-180, 180].
func HalfAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	switch {
	case a > 180:
		a -= 360
	case a <= -180:
		a += 360
	}
	return a
}
