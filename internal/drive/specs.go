package drive

import (
	"fmt"
	"math"
)

// Specifications is the sole configuration surface of the drive core:
// vehicle geometry, motion limits, and controller gains. All values are
// load-time constants for a session; derived quantities are computed once in
// NewSpecifications and never mutated afterwards.
type Specifications struct {
	TrackWidth    float64 // m, between wheel centers
	WheelBase     float64 // m, axle to axle
	WheelDiameter float64 // m

	MaxVelocity     float64 // m/s
	MaxAcceleration float64 // m/s^2
	MaxJerk         float64 // m/s^3

	// Curvature-drive tuning.
	QuickstopThreshold float64 // linear power below which quick-turn charges the accumulator
	TurnSensitivity    float64
	Alpha              float64 // accumulator decay factor, [0, 1)

	// Heading-hold gains.
	KPRotational  float64
	KFFRotational float64

	wheelRadius         float64
	wheelCircumference  float64
	velocityFeedforward float64
}

// NewSpecifications validates the tunables and computes the derived values.
func NewSpecifications(s Specifications) (*Specifications, error) {
	if s.TrackWidth <= 0 {
		return nil, fmt.Errorf("drive: track width must be positive, got %g", s.TrackWidth)
	}
	if s.WheelDiameter <= 0 {
		return nil, fmt.Errorf("drive: wheel diameter must be positive, got %g", s.WheelDiameter)
	}
	if s.MaxVelocity <= 0 {
		return nil, fmt.Errorf("drive: max velocity must be positive, got %g", s.MaxVelocity)
	}
	if s.Alpha < 0 || s.Alpha >= 1 {
		return nil, fmt.Errorf("drive: alpha must be in [0, 1), got %g", s.Alpha)
	}
	if s.QuickstopThreshold < 0 {
		return nil, fmt.Errorf("drive: quickstop threshold must not be negative, got %g", s.QuickstopThreshold)
	}

	s.wheelRadius = s.WheelDiameter / 2.0
	s.wheelCircumference = math.Pi * s.WheelDiameter
	s.velocityFeedforward = 1.0 / s.MaxVelocity

	return &s, nil
}

// WheelRadius returns half the wheel diameter, in meters.
func (s *Specifications) WheelRadius() float64 {
	return s.wheelRadius
}

// WheelCircumference returns the wheel circumference, in meters.
func (s *Specifications) WheelCircumference() float64 {
	return s.wheelCircumference
}

// VelocityFeedforward returns the open-loop gain mapping a velocity in m/s
// onto a unit power command, 1/MaxVelocity.
func (s *Specifications) VelocityFeedforward() float64 {
	return s.velocityFeedforward
}
