package motor

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dgryski/go-cobs"
)

const floatTolerance = 1e-6

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// fakePort captures written frames and plays back reader-side bytes.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	reader  *io.PipeReader
	writer  *io.PipeWriter
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{reader: r, writer: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.reader.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.writer.Close()
	return p.reader.Close()
}

func (p *fakePort) writtenBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func testDriver(port io.ReadWriteCloser) *SerialDriver {
	return &SerialDriver{
		cfg: SerialConfig{
			LeftID:        3,
			RightID:       4,
			EncoderFactor: func() float64 { return 0.5 },
		},
		port:     port,
		feedback: make(map[uint8]feedbackFrame),
	}
}

func TestOpenSerial_Validation(t *testing.T) {
	factor := func() float64 { return 0.5 }

	if _, err := OpenSerial(SerialConfig{BaudRate: 115200, LeftID: 3, RightID: 4, EncoderFactor: factor}); err == nil {
		t.Error("expected error for empty port")
	}
	if _, err := OpenSerial(SerialConfig{Port: "/dev/null", LeftID: 3, RightID: 3, EncoderFactor: factor}); err == nil {
		t.Error("expected error for duplicate motor IDs")
	}
	if _, err := OpenSerial(SerialConfig{Port: "/dev/null", LeftID: 3, RightID: 4}); err == nil {
		t.Error("expected error for missing encoder factor")
	}
}

func TestSetOpenLoopPower_FrameFormat(t *testing.T) {
	port := newFakePort()
	d := testDriver(port)

	if err := d.SetOpenLoopPower(Right, -0.75); err != nil {
		t.Fatalf("SetOpenLoopPower: %v", err)
	}

	raw := port.writtenBytes()
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		t.Fatalf("frame not zero-delimited: % x", raw)
	}

	decoded, err := cobs.Decode(raw)
	if err != nil {
		t.Fatalf("cobs decode: %v", err)
	}

	var cmd powerCommand
	if err := binary.Read(bytes.NewReader(decoded), binary.LittleEndian, &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.ID != cmdPower {
		t.Errorf("command id: got %d, want %d", cmd.ID, cmdPower)
	}
	if cmd.Motor != 4 {
		t.Errorf("motor id: got %d, want 4 (right)", cmd.Motor)
	}
	if !floatEquals(float64(cmd.Power), -0.75) {
		t.Errorf("power: got %v, want -0.75", cmd.Power)
	}
}

func TestSetVelocitySetpoint_DividesByEncoderFactor(t *testing.T) {
	port := newFakePort()
	d := testDriver(port)

	// 1.5 m/s at 0.5 m per rotation is 3 rotations per second.
	if err := d.SetVelocitySetpoint(Left, 1.5, 1); err != nil {
		t.Fatalf("SetVelocitySetpoint: %v", err)
	}

	decoded, err := cobs.Decode(port.writtenBytes())
	if err != nil {
		t.Fatalf("cobs decode: %v", err)
	}

	var cmd velocityCommand
	if err := binary.Read(bytes.NewReader(decoded), binary.LittleEndian, &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.ID != cmdVelocity || cmd.Motor != 3 || cmd.Slot != 1 {
		t.Errorf("frame header: %+v", cmd)
	}
	if !floatEquals(float64(cmd.Setpoint), 3.0) {
		t.Errorf("setpoint: got %v, want 3.0", cmd.Setpoint)
	}
}

func TestReadLoop_FeedbackScalesAndSigns(t *testing.T) {
	port := newFakePort()
	d := testDriver(port)
	go d.readLoop()

	// Right motor (id 4) reporting 2 rot/s, 10 rotations.
	var payload bytes.Buffer
	payload.WriteByte(cmdFeedback)
	if err := binary.Write(&payload, binary.LittleEndian, feedbackFrame{
		Motor:    4,
		Velocity: 2.0,
		Position: 10.0,
	}); err != nil {
		t.Fatal(err)
	}
	frame := append(cobs.Encode(payload.Bytes()), '\x00')
	if _, err := port.writer.Write(frame); err != nil {
		t.Fatal(err)
	}

	// The read loop is asynchronous; poll until the frame lands.
	deadline := time.Now().Add(time.Second)
	for {
		v, err := d.Velocity(Right)
		if err != nil {
			t.Fatalf("Velocity: %v", err)
		}
		// 2 rot/s * 0.5 m/rot * right encoder sign = -1.0 m/s
		if floatEquals(v, -1.0) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("feedback never arrived, velocity %v", v)
		}
		time.Sleep(time.Millisecond)
	}

	p, err := d.Position(Right)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !floatEquals(p, -5.0) {
		t.Errorf("position: got %v, want -5.0", p)
	}

	// The left motor never reported; it reads zero.
	v, err := d.Velocity(Left)
	if err != nil {
		t.Fatalf("Velocity: %v", err)
	}
	if v != 0 {
		t.Errorf("left velocity: got %v, want 0", v)
	}
}

func TestSide(t *testing.T) {
	if Left.String() != "left" || Right.String() != "right" {
		t.Errorf("side names: %s, %s", Left, Right)
	}
	if Left.EncoderSign() != 1.0 {
		t.Errorf("left sign: got %v", Left.EncoderSign())
	}
	if Right.EncoderSign() != -1.0 {
		t.Errorf("right sign: got %v", Right.EncoderSign())
	}
}
