package telemetry

// MotorStatus is the per-side slice of a telemetry snapshot: the last
// commanded setpoint (unit power or m/s depending on mode) and the measured
// velocity and position.
type MotorStatus struct {
	Setpoint float64 `json:"setpoint"`
	Velocity float64 `json:"velocity_mps"`
	Position float64 `json:"position_m"`
}

// Snapshot is published once per control tick.
type Snapshot struct {
	Time       string      `json:"time"` // RFC3339
	HeadingDeg float64     `json:"heading_deg"`
	Gear       string      `json:"gear"`
	Left       MotorStatus `json:"left"`
	Right      MotorStatus `json:"right"`
	AtGoal     bool        `json:"at_goal"`
}

// PowerCommand is an open-loop curvature-drive request.
type PowerCommand struct {
	Linear    float64 `json:"linear"`
	Rotation  float64 `json:"rotation"`
	QuickTurn bool    `json:"quick_turn"`
}

// VelocityCommand is a closed-loop wheel velocity request.
type VelocityCommand struct {
	Left  float64 `json:"left_mps"`
	Right float64 `json:"right_mps"`
}

// HeadingCommand asks the vehicle to rotate in place to a goal heading.
type HeadingCommand struct {
	Goal float64 `json:"goal_deg"`
}
