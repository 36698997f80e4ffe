package drive

import "math"

// headingToleranceDeg is the fixed at-goal tolerance of the heading hold.
const headingToleranceDeg = 3.5

// HeadingController drives angular error to zero with a proportional term
// plus a constant feed-forward kick, rotating in place through the mixer's
// quick-turn mode. It holds no state of its own between calls.
type HeadingController struct {
	specs *Specifications
	mixer *Mixer
}

// NewHeadingController wires the controller to the shared mixer instance.
func NewHeadingController(specs *Specifications, mixer *Mixer) *HeadingController {
	return &HeadingController{specs: specs, mixer: mixer}
}

// Step computes one tick of heading hold. Both angles are in degrees,
// current already collapsed to the half-angle range. When the goal is
// reached within tolerance it reports atGoal and issues no command.
func (h *HeadingController) Step(current, goal float64) (atGoal bool, cmd WheelCommand) {
	err := headingError(current, goal)

	if math.Abs(err) < headingToleranceDeg {
		return true, WheelCommand{}
	}

	angularPower := err*h.specs.KPRotational + math.Copysign(h.specs.KFFRotational, err)
	return false, h.mixer.Mix(0, constrain(-1, angularPower, 1), true)
}

// headingError returns the signed rotation command error for the goal.
// The >180 remap does not treat all sign combinations of current and goal
// alike; the exact behavior is pinned by tests and kept as deployed.
func headingError(current, goal float64) float64 {
	err := -(current - goal)

	if math.Abs(err) > 180 {
		err = 360 - err

		if current < 0 && goal > 0 {
			err = -err
		}
	}

	return err
}
