package kinematics

import "math"

// ToWheelVelocities converts a vehicle-frame (linear, angular) pair into
// per-side wheel velocities. The mixing is unit vehicle-frame math and does
// not depend on geometry.
func ToWheelVelocities(linear, angular float64) (left, right float64) {
	return linear - angular, linear + angular
}

// ToDriveVelocity converts measured wheel velocities back into vehicle-frame
// (linear, angular) velocity for a differential drivetrain with the given
// track width and wheel radius. Zero geometry is a caller configuration
// error, not a runtime fault.
func ToDriveVelocity(left, right, trackWidth, wheelRadius float64) (linear, angular float64) {
	linear = wheelRadius * (left + right) / 2.0
	angular = wheelRadius * (right - left) / trackWidth
	return linear, angular
}

// ScaleToTopSpeed uniformly rescales a desired wheel velocity pair so that
// neither side exceeds topSpeed in magnitude. The left/right ratio, and
// therefore the commanded curvature, is preserved exactly; pairs already
// inside the envelope pass through unchanged.
func ScaleToTopSpeed(left, right, topSpeed float64) (float64, float64) {
	maxDesired := math.Max(math.Abs(left), math.Abs(right))
	if maxDesired > topSpeed {
		scale := topSpeed / maxDesired
		return left * scale, right * scale
	}
	return left, right
}
