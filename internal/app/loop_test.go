package app

import (
	"testing"

	"github.com/relabs-tech/drive_computer/internal/telemetry"
)

func TestCommandState_StartsIdle(t *testing.T) {
	s := newCommandState()

	mode, _, _, _ := s.snapshot()
	if mode != modeIdle {
		t.Errorf("mode: got %q, want %q", mode, modeIdle)
	}
}

func TestCommandState_LatestCommandWins(t *testing.T) {
	s := newCommandState()

	s.setPower(telemetry.PowerCommand{Linear: 0.5})
	if mode, power, _, _ := s.snapshot(); mode != modePower || power.Linear != 0.5 {
		t.Errorf("after power: mode %q, linear %v", mode, power.Linear)
	}

	s.setVelocity(telemetry.VelocityCommand{Left: 1.0, Right: 2.0})
	if mode, _, vel, _ := s.snapshot(); mode != modeVelocity || vel.Right != 2.0 {
		t.Errorf("after velocity: mode %q, right %v", mode, vel.Right)
	}

	s.setHeading(telemetry.HeadingCommand{Goal: 90})
	if mode, _, _, hdg := s.snapshot(); mode != modeHeading || hdg.Goal != 90 {
		t.Errorf("after heading: mode %q, goal %v", mode, hdg.Goal)
	}
}

func TestCommandState_IdleKeepsLastCommands(t *testing.T) {
	s := newCommandState()

	s.setPower(telemetry.PowerCommand{Linear: 0.5, Rotation: 0.1})
	s.idle()

	mode, power, _, _ := s.snapshot()
	if mode != modeIdle {
		t.Errorf("mode: got %q, want %q", mode, modeIdle)
	}
	// The stored command survives; only the mode resets, so a later
	// subscriber replay cannot resurrect stale motion.
	if power.Linear != 0.5 {
		t.Errorf("power retained: got %v, want 0.5", power.Linear)
	}
}
