package app

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/drive_computer/internal/ahrs"
	"github.com/relabs-tech/drive_computer/internal/config"
)

const calibrationSamples = 500

// RunGyroCalibration samples the yaw gyro at rest, computes the zero-rate
// bias and static noise, and writes the calibration file the drive computer
// loads at startup. The vehicle must not move while this runs.
func RunGyroCalibration() error {
	cfg := config.Get()

	// No calibration file here: the bias must be measured raw.
	gyro, err := ahrs.NewGyroSource(ahrs.GyroConfig{
		SPIDevice: cfg.GyroSPIDevice,
		Range:     cfg.GyroRange,
		DLPF:      cfg.GyroDLPFConfig,
		RateDiv:   cfg.GyroRateDiv,
	})
	if err != nil {
		return err
	}
	defer gyro.Close()

	log.Printf("gyro_cal: collecting %d samples, keep the vehicle still", calibrationSamples)

	samples := make([]float64, 0, calibrationSamples)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		rate, err := gyro.Rate()
		if err != nil {
			return err
		}
		samples = append(samples, rate)
		if len(samples)%100 == 0 {
			log.Printf("gyro_cal: %d/%d samples", len(samples), calibrationSamples)
		}
		if len(samples) == calibrationSamples {
			break
		}
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	bias := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		diff := s - bias
		variance += diff * diff
	}
	variance /= float64(len(samples))
	stddev := math.Sqrt(variance)

	// A large spread means the vehicle moved during sampling; the bias
	// would poison every heading turn afterwards.
	if stddev > 1.0 {
		return fmt.Errorf("gyro_cal: rate stddev %.3f°/s is too high, was the vehicle moving?", stddev)
	}

	cal := ahrs.GyroCalibration{
		Version:   1,
		Timestamp: time.Now(),
		BiasZ:     bias,
		StdDevZ:   stddev,
		Samples:   len(samples),
	}

	path := cfg.GyroCalFile
	if path == "" {
		path = "gyro_cal.json"
	}
	if err := cal.Save(path); err != nil {
		return err
	}

	log.Printf("gyro_cal: bias %.4f°/s stddev %.4f°/s written to %s", bias, stddev, path)
	return nil
}
