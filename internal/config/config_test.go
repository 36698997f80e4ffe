package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `# drive computer test config
MQTT_BROKER=tcp://localhost:1883
MQTT_CLIENT_ID_DRIVE=drive-test

TOPIC_TELEMETRY=drive/telemetry
TOPIC_POWER_COMMAND=drive/cmd/power
TOPIC_VELOCITY_COMMAND=drive/cmd/velocity
TOPIC_HEADING_COMMAND=drive/cmd/heading
TOPIC_GROUND_SPEED=drive/gps/speed

TRACK_WIDTH_M=0.6
WHEEL_BASE_M=0.5
WHEEL_DIAMETER_M=0.15
MAX_VELOCITY_MPS=3.0

QUICKSTOP_THRESHOLD=0.2
TURN_SENSITIVITY=1.0
ACCUMULATOR_ALPHA=0.1

HEADING_KP=0.01
HEADING_KFF=0.1

MOTOR_SERIAL_PORT=/dev/ttyUSB0
MOTOR_BAUD_RATE=115200
MOTOR_LEFT_ID=3
MOTOR_RIGHT_ID=4

GEAR_LOW_TOP_SPEED_MPS=2.0
GEAR_HIGH_TOP_SPEED_MPS=4.5
GEAR_LOW_METERS_PER_ROTATION=0.3
GEAR_HIGH_METERS_PER_ROTATION=0.6
START_GEAR=low

HEADING_SOURCE=mock

TICK_INTERVAL=20
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drive_config.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("broker: got %q", cfg.MQTTBroker)
	}
	if cfg.TrackWidthM != 0.6 || cfg.WheelDiameterM != 0.15 {
		t.Errorf("geometry: got %v, %v", cfg.TrackWidthM, cfg.WheelDiameterM)
	}
	if cfg.MotorLeftID != 3 || cfg.MotorRightID != 4 {
		t.Errorf("motor IDs: got %d, %d", cfg.MotorLeftID, cfg.MotorRightID)
	}
	if cfg.GearHighTopSpeedMPS != 4.5 {
		t.Errorf("high gear top speed: got %v", cfg.GearHighTopSpeedMPS)
	}
	if cfg.StartGear != "low" {
		t.Errorf("start gear: got %q", cfg.StartGear)
	}
	if cfg.HeadingSource != "mock" {
		t.Errorf("heading source: got %q", cfg.HeadingSource)
	}
	if cfg.TickInterval != 20 {
		t.Errorf("tick interval: got %d", cfg.TickInterval)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, validConfig+"\nBOGUS_KEY=1\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoad_MalformedLineRejected(t *testing.T) {
	path := writeConfig(t, validConfig+"\nno equals sign here\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	required := []string{
		"MQTT_BROKER",
		"TRACK_WIDTH_M",
		"WHEEL_DIAMETER_M",
		"MAX_VELOCITY_MPS",
		"GEAR_LOW_TOP_SPEED_MPS",
		"GEAR_LOW_METERS_PER_ROTATION",
		"TICK_INTERVAL",
	}

	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			var stripped []string
			for _, line := range strings.Split(validConfig, "\n") {
				if strings.HasPrefix(line, key+"=") {
					continue
				}
				stripped = append(stripped, line)
			}
			if _, err := Load(writeConfig(t, strings.Join(stripped, "\n"))); err == nil {
				t.Errorf("expected error without %s", key)
			}
		})
	}
}

func TestLoad_DuplicateMotorIDsRejected(t *testing.T) {
	dup := strings.Replace(validConfig, "MOTOR_RIGHT_ID=4", "MOTOR_RIGHT_ID=3", 1)
	if _, err := Load(writeConfig(t, dup)); err == nil {
		t.Error("expected error for duplicate motor IDs")
	}
}

func TestLoad_BadNumberRejected(t *testing.T) {
	bad := strings.Replace(validConfig, "TRACK_WIDTH_M=0.6", "TRACK_WIDTH_M=wide", 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestLoad_NegativeTrackWidthRejected(t *testing.T) {
	bad := strings.Replace(validConfig, "TRACK_WIDTH_M=0.6", "TRACK_WIDTH_M=-0.6", 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("expected error for negative track width")
	}
}
