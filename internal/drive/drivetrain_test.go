package drive

import (
	"testing"

	"github.com/relabs-tech/drive_computer/internal/motor"
	"github.com/relabs-tech/drive_computer/internal/transmission"
)

// fixedHeading is a heading source stuck at one angle.
type fixedHeading struct {
	deg float64
}

func (f *fixedHeading) CurrentHeading() (float64, error) {
	return f.deg, nil
}

func testTransmission(t *testing.T) *transmission.Dual {
	t.Helper()
	trans, err := transmission.NewDual(
		transmission.Gear{TopSpeed: 2.0, EncoderFactor: 0.3},
		transmission.Gear{TopSpeed: 4.0, EncoderFactor: 0.6},
		transmission.Low,
	)
	if err != nil {
		t.Fatalf("NewDual: %v", err)
	}
	return trans
}

func testDrivetrain(t *testing.T, heading float64) (*Drivetrain, *motor.Mock, *transmission.Dual) {
	t.Helper()
	mock := motor.NewMock()
	trans := testTransmission(t)
	train, err := New(testSpecs(t), mock, trans, &fixedHeading{deg: heading})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return train, mock, trans
}

func TestNew_RequiresAllCollaborators(t *testing.T) {
	specs := testSpecs(t)
	mock := motor.NewMock()
	trans := testTransmission(t)
	source := &fixedHeading{}

	if _, err := New(nil, mock, trans, source); err == nil {
		t.Error("expected error for nil specifications")
	}
	if _, err := New(specs, nil, trans, source); err == nil {
		t.Error("expected error for nil motor driver")
	}
	if _, err := New(specs, mock, nil, source); err == nil {
		t.Error("expected error for nil transmission")
	}
	if _, err := New(specs, mock, trans, nil); err == nil {
		t.Error("expected error for nil heading source")
	}
}

func TestDrive_InvertsRightSide(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	if err := train.Drive(0.5, 0); err != nil {
		t.Fatalf("Drive: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Op != "power" || calls[0].Side != motor.Left || !floatEquals(calls[0].Value, 0.5) {
		t.Errorf("left call: %+v", calls[0])
	}
	if calls[1].Op != "power" || calls[1].Side != motor.Right || !floatEquals(calls[1].Value, -0.5) {
		t.Errorf("right call: %+v", calls[1])
	}
}

func TestDriveQuickTurn_RotatesInPlace(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	if err := train.DriveQuickTurn(0, 0.5); err != nil {
		t.Fatalf("DriveQuickTurn: %v", err)
	}

	calls := mock.Calls()
	// Mixed command is (0.5, -0.5); the right side is inverted on the way
	// out, so both motors spin the same direction.
	if !floatEquals(calls[0].Value, 0.5) {
		t.Errorf("left: got %v, want 0.5", calls[0].Value)
	}
	if !floatEquals(calls[1].Value, 0.5) {
		t.Errorf("right: got %v, want 0.5", calls[1].Value)
	}
}

func TestSetVelocitySetpoints_ScalesToEngagedGear(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	// Low gear tops out at 2.0 m/s; (4.0, 2.0) must come out as (2.0, 1.0).
	if err := train.SetVelocitySetpoints(4.0, 2.0); err != nil {
		t.Fatalf("SetVelocitySetpoints: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Op != "velocity" || !floatEquals(calls[0].Value, 2.0) || calls[0].PIDSlot != 0 {
		t.Errorf("left call: %+v", calls[0])
	}
	if calls[1].Op != "velocity" || !floatEquals(calls[1].Value, 1.0) || calls[1].PIDSlot != 0 {
		t.Errorf("right call: %+v", calls[1])
	}
}

func TestSetVelocitySetpoints_GearChangeWidensEnvelope(t *testing.T) {
	train, mock, trans := testDrivetrain(t, 0)

	trans.Engage(transmission.High)
	if err := train.SetVelocitySetpoints(4.0, 2.0); err != nil {
		t.Fatalf("SetVelocitySetpoints: %v", err)
	}

	// High gear tops out at 4.0 m/s, so the pair passes through unchanged.
	calls := mock.Calls()
	if !floatEquals(calls[0].Value, 4.0) || !floatEquals(calls[1].Value, 2.0) {
		t.Errorf("got (%v, %v), want (4.0, 2.0)", calls[0].Value, calls[1].Value)
	}
}

func TestTurnToHeading_AtGoalIssuesNoCommand(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 45)

	atGoal, err := train.TurnToHeading(45)
	if err != nil {
		t.Fatalf("TurnToHeading: %v", err)
	}
	if !atGoal {
		t.Fatal("expected atGoal")
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("expected no motor commands at goal, got %v", mock.Calls())
	}
}

func TestTurnToHeading_CommandsRotation(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	atGoal, err := train.TurnToHeading(90)
	if err != nil {
		t.Fatalf("TurnToHeading: %v", err)
	}
	if atGoal {
		t.Fatal("unexpected atGoal")
	}

	// err = 90 saturates the rotation command; after the right-side
	// inversion both motors get +1.
	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if !floatEquals(calls[0].Value, 1.0) || !floatEquals(calls[1].Value, 1.0) {
		t.Errorf("got (%v, %v), want (1.0, 1.0)", calls[0].Value, calls[1].Value)
	}
}

func TestStop_StopsBothSides(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	if err := train.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 2 || calls[0].Op != "stop" || calls[1].Op != "stop" {
		t.Errorf("got %+v, want two stop calls", calls)
	}
}

func TestMeasuredDriveVelocity(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	mock.SetReading(motor.Left, 1.0, 0)
	mock.SetReading(motor.Right, 1.0, 0)

	v, err := train.MeasuredDriveVelocity()
	if err != nil {
		t.Fatalf("MeasuredDriveVelocity: %v", err)
	}
	if !floatEquals(v.Linear, 1.0) {
		t.Errorf("linear: got %v, want 1.0", v.Linear)
	}
	if !floatEquals(v.Angular, 0) {
		t.Errorf("angular: got %v, want 0", v.Angular)
	}
}

func TestStatus_ReportsLastSetpoints(t *testing.T) {
	train, mock, _ := testDrivetrain(t, 0)

	mock.SetReading(motor.Left, 0.4, 10.0)
	mock.SetReading(motor.Right, -0.4, 12.0)

	if err := train.Drive(0.5, 0); err != nil {
		t.Fatalf("Drive: %v", err)
	}

	left, right, err := train.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !floatEquals(left.Setpoint, 0.5) || !floatEquals(right.Setpoint, -0.5) {
		t.Errorf("setpoints: got (%v, %v), want (0.5, -0.5)", left.Setpoint, right.Setpoint)
	}
	if !floatEquals(left.Velocity, 0.4) || !floatEquals(right.Velocity, -0.4) {
		t.Errorf("velocities: got (%v, %v)", left.Velocity, right.Velocity)
	}
	if !floatEquals(left.Position, 10.0) || !floatEquals(right.Position, 12.0) {
		t.Errorf("positions: got (%v, %v)", left.Position, right.Position)
	}
}
