package drive

import "math"

// Mixer converts a (linear, rotation) power pair into per-side wheel powers,
// the curvature-drive scheme. It owns a single scalar of state: a turn-bias
// accumulator charged during quick-turn and bled off in unit steps per
// normal-mode tick, which suppresses over-rotation right after a quick-turn
// is released. One instance per vehicle; Mix is expected once per Tick.
type Mixer struct {
	specs       *Specifications
	accumulator float64
}

// NewMixer returns a mixer with a zero accumulator.
func NewMixer(specs *Specifications) *Mixer {
	return &Mixer{specs: specs}
}

// Mix computes the wheel command for one tick. linearPower and rotationPower
// are clamped to [-1, 1] on entry; the output is always within [-1, 1] on
// both sides. quickTurn trades straight-line power fidelity for full turning
// authority and allows rotation in place.
func (m *Mixer) Mix(linearPower, rotationPower float64, quickTurn bool) WheelCommand {
	linearPower = constrain(-1, linearPower, 1)
	rotationPower = constrain(-1, rotationPower, 1)

	var overPower, angularPower float64

	if quickTurn {
		if math.Abs(linearPower) < m.specs.QuickstopThreshold {
			m.accumulator = (1-m.specs.Alpha)*m.accumulator + m.specs.Alpha*clampUnit(rotationPower)*2
		}

		overPower = 1.0
		angularPower = -rotationPower
	} else {
		overPower = 0.0

		// Rotation is vehicle-relative, not field-relative, when reversing.
		rotationPower *= -sign(linearPower)
		angularPower = math.Abs(linearPower)*rotationPower*m.specs.TurnSensitivity - m.accumulator

		switch {
		case m.accumulator > 1:
			m.accumulator -= 1
		case m.accumulator < -1:
			m.accumulator += 1
		default:
			m.accumulator = 0
		}
	}

	leftPower := linearPower - angularPower
	rightPower := linearPower + angularPower

	// Clip to the unit range. With overPower set the excess is pushed onto
	// the other wheel so turning in place is not silently attenuated.
	switch {
	case leftPower > 1.0:
		rightPower -= overPower * (leftPower - 1.0)
		leftPower = 1.0
	case rightPower > 1.0:
		leftPower -= overPower * (rightPower - 1.0)
		rightPower = 1.0
	case leftPower < -1.0:
		rightPower += overPower * (-1.0 - leftPower)
		leftPower = -1.0
	case rightPower < -1.0:
		leftPower += overPower * (-1.0 - rightPower)
		rightPower = -1.0
	}

	return WheelCommand{Left: clampUnit(leftPower), Right: clampUnit(rightPower)}
}
