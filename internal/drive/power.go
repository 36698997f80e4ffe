package drive

import (
	"math"
	"time"
)

// Tick is the fixed control-loop period. The core performs no timing of its
// own; the embedding loop is expected to call into it once per Tick.
const Tick = 20 * time.Millisecond

// DrivePower is a vehicle-frame (linear, angular) command or measured
// velocity. It is a pure value type.
type DrivePower struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// Left is the left wheel share of the pair.
func (p DrivePower) Left() float64 {
	return p.Linear - p.Angular
}

// Right is the right wheel share of the pair.
func (p DrivePower) Right() float64 {
	return p.Linear + p.Angular
}

// WheelCommand is a per-side command pair. As an open-loop power both fields
// are in [-1, 1]; as a velocity setpoint they are in m/s.
type WheelCommand struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// clampUnit limits v to [-1, 1].
func clampUnit(v float64) float64 {
	if math.Abs(v) < 1.0 {
		return v
	}
	return math.Copysign(1.0, v)
}

func constrain(bot, val, top float64) float64 {
	return math.Max(bot, math.Min(val, top))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
