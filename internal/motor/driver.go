package motor

import "fmt"

// Side identifies one side of the drivetrain. Each side carries the sign
// applied to its encoder readings so that forward vehicle motion reads
// positive on both sides regardless of how the motors are mounted.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both drivetrain sides in a stable order.
var Sides = []Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// EncoderSign returns the multiplier applied to raw encoder readings for
// this side. The right-side gearbox spins mirrored, so its encoder counts
// backwards relative to vehicle-forward.
func (s Side) EncoderSign() float64 {
	if s == Right {
		return -1.0
	}
	return 1.0
}

// Driver is the motor-controller boundary consumed by the drive core.
// Open-loop powers are in [-1, 1]; velocity setpoints and readings are in
// meters per second, positions in meters, pre-scaled from encoder rotations
// by the caller-supplied conversion factor.
type Driver interface {
	SetOpenLoopPower(side Side, power float64) error
	SetVelocitySetpoint(side Side, metersPerSecond float64, pidSlot int) error
	Stop(side Side) error
	Velocity(side Side) (float64, error)
	Position(side Side) (float64, error)
}
