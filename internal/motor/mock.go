package motor

import "sync"

// MockCall records a single command sent to the mock driver.
type MockCall struct {
	Op      string // "power", "velocity", "stop"
	Side    Side
	Value   float64
	PIDSlot int
}

// Mock is an in-memory Driver for tests and the simulator. It records every
// command and plays back whatever velocities and positions were loaded into
// it.
type Mock struct {
	mu         sync.Mutex
	calls      []MockCall
	velocities map[Side]float64
	positions  map[Side]float64
}

// NewMock returns an empty mock driver reading zero on both sides.
func NewMock() *Mock {
	return &Mock{
		velocities: make(map[Side]float64),
		positions:  make(map[Side]float64),
	}
}

func (m *Mock) SetOpenLoopPower(side Side, power float64) error {
	m.record(MockCall{Op: "power", Side: side, Value: power})
	return nil
}

func (m *Mock) SetVelocitySetpoint(side Side, metersPerSecond float64, pidSlot int) error {
	m.record(MockCall{Op: "velocity", Side: side, Value: metersPerSecond, PIDSlot: pidSlot})
	return nil
}

func (m *Mock) Stop(side Side) error {
	m.record(MockCall{Op: "stop", Side: side})
	return nil
}

func (m *Mock) Velocity(side Side) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocities[side], nil
}

func (m *Mock) Position(side Side) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[side], nil
}

// SetReading loads the velocity and position returned for one side.
func (m *Mock) SetReading(side Side, velocity, position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.velocities[side] = velocity
	m.positions[side] = position
}

// Calls returns a copy of every command recorded so far.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent command, or a zero MockCall when none
// was recorded.
func (m *Mock) LastCall() MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MockCall{}
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears the recorded command list.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Mock) record(c MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}
