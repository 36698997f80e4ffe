package ahrs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// GyroCalibration is the zero-rate calibration written by the gyro_cal tool
// and consumed by the gyro source at startup.
type GyroCalibration struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	BiasZ   float64 `json:"bias_z_dps"`   // zero-rate offset, deg/s
	StdDevZ float64 `json:"stddev_z_dps"` // static noise, deg/s
	Samples int     `json:"samples"`
}

// LoadGyroCalibration reads a calibration file. A missing file is not an
// error; it returns a zero calibration so the gyro runs uncorrected.
func LoadGyroCalibration(path string) (GyroCalibration, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GyroCalibration{}, nil
	}
	if err != nil {
		return GyroCalibration{}, fmt.Errorf("ahrs: read calibration: %w", err)
	}

	var cal GyroCalibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return GyroCalibration{}, fmt.Errorf("ahrs: parse calibration: %w", err)
	}
	return cal, nil
}

// SaveGyroCalibration writes the calibration file.
func (c GyroCalibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("ahrs: marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ahrs: write calibration: %w", err)
	}
	return nil
}
