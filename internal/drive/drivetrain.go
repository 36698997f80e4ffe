// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package drive

import (
	"fmt"

	"github.com/relabs-tech/drive_computer/internal/ahrs"
	"github.com/relabs-tech/drive_computer/internal/kinematics"
	"github.com/relabs-tech/drive_computer/internal/motor"
	"github.com/relabs-tech/drive_computer/internal/telemetry"
	"github.com/relabs-tech/drive_computer/internal/transmission"
)

// Drivetrain is the composition root of the motion-control core. It owns no
// control-theoretic state of its own; it wires the mixer, heading controller,
// velocity scaling, and kinematic conversions to the motor driver,
// transmission, and heading source. All methods are called from the single
// control-loop goroutine, once per Tick.
type Drivetrain struct {
	specs   *Specifications
	motors  motor.Driver
	trans   transmission.Transmission
	heading ahrs.Source

	mixer      *Mixer
	headingCtl *HeadingController

	// Last values handed to the motor driver, per side, for telemetry.
	lastSetpoint map[motor.Side]float64
}

// New validates the wiring and builds the drivetrain. A missing collaborator
// is a fatal configuration error.
func New(
	specs *Specifications,
	motors motor.Driver,
	trans transmission.Transmission,
	heading ahrs.Source,
) (*Drivetrain, error) {
	if specs == nil {
		return nil, fmt.Errorf("drive: specifications are required")
	}
	if motors == nil {
		return nil, fmt.Errorf("drive: a motor driver binding is required")
	}
	if trans == nil {
		return nil, fmt.Errorf("drive: a transmission binding is required")
	}
	if heading == nil {
		return nil, fmt.Errorf("drive: a heading source binding is required")
	}

	mixer := NewMixer(specs)

	return &Drivetrain{
		specs:        specs,
		motors:       motors,
		trans:        trans,
		heading:      heading,
		mixer:        mixer,
		headingCtl:   NewHeadingController(specs, mixer),
		lastSetpoint: make(map[motor.Side]float64),
	}, nil
}

// Drive mixes an open-loop (linear, rotation) pair in normal curvature mode
// and sends the result to the motors.
func (d *Drivetrain) Drive(linearPower, rotationPower float64) error {
	return d.apply(d.mixer.Mix(linearPower, rotationPower, false))
}

// DriveQuickTurn mixes with quick-turn engaged, allowing rotation in place
// at full turning authority.
func (d *Drivetrain) DriveQuickTurn(linearPower, rotationPower float64) error {
	return d.apply(d.mixer.Mix(linearPower, rotationPower, true))
}

// apply forwards a wheel command to the motor driver. The right side is
// sign-inverted to match the physical motor mounting.
func (d *Drivetrain) apply(cmd WheelCommand) error {
	d.lastSetpoint[motor.Left] = cmd.Left
	d.lastSetpoint[motor.Right] = -cmd.Right

	if err := d.motors.SetOpenLoopPower(motor.Left, cmd.Left); err != nil {
		return fmt.Errorf("drive: left power: %w", err)
	}
	if err := d.motors.SetOpenLoopPower(motor.Right, -cmd.Right); err != nil {
		return fmt.Errorf("drive: right power: %w", err)
	}
	return nil
}

// SetVelocitySetpoints forwards closed-loop wheel velocity targets, first
// scaled onto the achievable range of the engaged gear so the commanded
// curvature is preserved.
func (d *Drivetrain) SetVelocitySetpoints(left, right float64) error {
	l, r := kinematics.ScaleToTopSpeed(left, right, d.trans.TopSpeed())

	d.lastSetpoint[motor.Left] = l
	d.lastSetpoint[motor.Right] = r

	if err := d.motors.SetVelocitySetpoint(motor.Left, l, 0); err != nil {
		return fmt.Errorf("drive: left setpoint: %w", err)
	}
	if err := d.motors.SetVelocitySetpoint(motor.Right, r, 0); err != nil {
		return fmt.Errorf("drive: right setpoint: %w", err)
	}
	return nil
}

// TurnToHeading runs one tick of heading hold toward goal (degrees). It
// reports whether the vehicle is within tolerance; while it is not, a
// quick-turn rotation command goes out to the motors. At the goal no command
// is issued.
func (d *Drivetrain) TurnToHeading(goal float64) (bool, error) {
	current, err := d.heading.CurrentHeading()
	if err != nil {
		return false, fmt.Errorf("drive: heading read: %w", err)
	}

	atGoal, cmd := d.headingCtl.Step(ahrs.HalfAngle(current), goal)
	if atGoal {
		return true, nil
	}
	return false, d.apply(cmd)
}

// Heading reads the current heading from the source, collapsed to the half
// range (-180, 180].
func (d *Drivetrain) Heading() (float64, error) {
	current, err := d.heading.CurrentHeading()
	if err != nil {
		return 0, fmt.Errorf("drive: heading read: %w", err)
	}
	return ahrs.HalfAngle(current), nil
}

// Stop cuts output on both sides.
func (d *Drivetrain) Stop() error {
	if err := d.motors.Stop(motor.Left); err != nil {
		return fmt.Errorf("drive: left stop: %w", err)
	}
	if err := d.motors.Stop(motor.Right); err != nil {
		return fmt.Errorf("drive: right stop: %w", err)
	}
	return nil
}

// WheelVelocities returns the measured per-side wheel speeds in m/s.
func (d *Drivetrain) WheelVelocities() (left, right float64, err error) {
	left, err = d.motors.Velocity(motor.Left)
	if err != nil {
		return 0, 0, fmt.Errorf("drive: left velocity: %w", err)
	}
	right, err = d.motors.Velocity(motor.Right)
	if err != nil {
		return 0, 0, fmt.Errorf("drive: right velocity: %w", err)
	}
	return left, right, nil
}

// MeasuredDriveVelocity converts the measured wheel speeds into a
// vehicle-frame (linear, angular) velocity.
func (d *Drivetrain) MeasuredDriveVelocity() (DrivePower, error) {
	left, right, err := d.WheelVelocities()
	if err != nil {
		return DrivePower{}, err
	}

	// The driver reports m/s; the inverse kinematics takes wheel rad/s.
	radius := d.specs.WheelRadius()
	linear, angular := kinematics.ToDriveVelocity(left/radius, right/radius, d.specs.TrackWidth, radius)
	return DrivePower{Linear: linear, Angular: angular}, nil
}

// Status reads back both sides for the per-tick telemetry snapshot.
func (d *Drivetrain) Status() (left, right telemetry.MotorStatus, err error) {
	for _, side := range motor.Sides {
		velocity, verr := d.motors.Velocity(side)
		if verr != nil {
			return left, right, fmt.Errorf("drive: %s velocity: %w", side, verr)
		}
		position, perr := d.motors.Position(side)
		if perr != nil {
			return left, right, fmt.Errorf("drive: %s position: %w", side, perr)
		}

		status := telemetry.MotorStatus{
			Setpoint: d.lastSetpoint[side],
			Velocity: velocity,
			Position: position,
		}
		if side == motor.Left {
			left = status
		} else {
			right = status
		}
	}
	return left, right, nil
}

// Specifications returns the configuration record the drivetrain was built
// with.
func (d *Drivetrain) Specifications() *Specifications {
	return d.specs
}
