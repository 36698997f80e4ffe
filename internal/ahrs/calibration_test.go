package ahrs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGyroCalibration_MissingFileIsZero(t *testing.T) {
	cal, err := LoadGyroCalibration(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cal.BiasZ != 0 || cal.Samples != 0 {
		t.Errorf("expected zero calibration, got %+v", cal)
	}
}

func TestGyroCalibration_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro_cal.json")

	want := GyroCalibration{
		Version:   1,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		BiasZ:     -0.4321,
		StdDevZ:   0.012,
		Samples:   500,
	}
	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadGyroCalibration(path)
	if err != nil {
		t.Fatalf("LoadGyroCalibration: %v", err)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, want.Timestamp)
	}
	if !floatEquals(got.BiasZ, want.BiasZ) || !floatEquals(got.StdDevZ, want.StdDevZ) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.Samples != want.Samples {
		t.Errorf("samples: got %d, want %d", got.Samples, want.Samples)
	}
}

func TestLoadGyroCalibration_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadGyroCalibration(path); err == nil {
		t.Error("expected parse error")
	}
}
