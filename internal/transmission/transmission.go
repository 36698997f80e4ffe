package transmission

import (
	"fmt"
	"sync"
)

// Transmission exposes the gearing state the drive core reads each tick.
// The core only ever queries it; shifting is owned by an external scheduler.
type Transmission interface {
	// TopSpeed is the highest achievable wheel speed in meters per second
	// for the currently engaged gear.
	TopSpeed() float64
	// EncoderFactor converts motor rotations to meters of wheel travel for
	// the currently engaged gear.
	EncoderFactor() float64
}

// GearName identifies one of the two gears of a dual transmission.
type GearName string

const (
	Low  GearName = "low"
	High GearName = "high"
)

// Gear holds the per-gear constants.
type Gear struct {
	TopSpeed      float64 // m/s
	EncoderFactor float64 // motor rotations -> meters
}

// Dual is a two-speed transmission. The engaged gear may be changed at any
// time by the shift scheduler, so reads are guarded.
type Dual struct {
	mu      sync.RWMutex
	low     Gear
	high    Gear
	engaged GearName
}

// NewDual builds a dual transmission starting in the given gear.
func NewDual(low, high Gear, start GearName) (*Dual, error) {
	if low.TopSpeed <= 0 || high.TopSpeed <= 0 {
		return nil, fmt.Errorf("transmission: gear top speeds must be positive")
	}
	if low.EncoderFactor <= 0 || high.EncoderFactor <= 0 {
		return nil, fmt.Errorf("transmission: gear encoder factors must be positive")
	}
	if start != Low && start != High {
		return nil, fmt.Errorf("transmission: unknown start gear %q", start)
	}
	return &Dual{low: low, high: high, engaged: start}, nil
}

// Engage shifts into the named gear. Unknown names are ignored.
func (d *Dual) Engage(name GearName) {
	if name != Low && name != High {
		return
	}
	d.mu.Lock()
	d.engaged = name
	d.mu.Unlock()
}

// Engaged reports the current gear.
func (d *Dual) Engaged() GearName {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.engaged
}

func (d *Dual) current() Gear {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.engaged == High {
		return d.high
	}
	return d.low
}

func (d *Dual) TopSpeed() float64 {
	return d.current().TopSpeed
}

func (d *Dual) EncoderFactor() float64 {
	return d.current().EncoderFactor
}
