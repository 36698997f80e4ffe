// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// MPU-9250 registers used by the yaw gyro. The full register map is in the
// datasheet; only the Z-axis rate path is configured here.
const (
	regSampleRateDiv = 0x19 // SMPLRT_DIV
	regConfig        = 0x1A // CONFIG (DLPF_CFG in bits 2:0)
	regGyroConfig    = 0x1B // GYRO_CONFIG (GYRO_FS_SEL in bits 4:3)
	regGyroZOutH     = 0x47 // GYRO_ZOUT_H, low byte follows
	regPwrMgmt1      = 0x6B // PWR_MGMT_1
	regWhoAmI        = 0x75

	whoAmIValue = 0x71
	readFlag    = 0x80
)

// gyroFullScale maps GYRO_FS_SEL codes to full-scale range in deg/s.
var gyroFullScale = []float64{250, 500, 1000, 2000}

// GyroConfig selects the SPI device and sensor configuration for the yaw
// gyro.
type GyroConfig struct {
	SPIDevice string
	Range     byte // GYRO_FS_SEL: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	DLPF      byte // DLPF_CFG, 0-7
	RateDiv   byte // sample rate divider

	// CalibrationFile is the zero-rate bias file written by gyro_cal.
	// Optional; without it the gyro integrates uncorrected.
	CalibrationFile string
}

// GyroSource integrates the Z-axis rate of an MPU-9250-class gyro into a
// yaw heading. Integration happens on each CurrentHeading call using the
// wall-clock interval since the previous call, so the caller's tick period
// sets the effective resolution.
type GyroSource struct {
	port  spi.PortCloser
	conn  spi.Conn
	scale float64 // LSB -> deg/s
	bias  float64 // deg/s

	heading float64
	last    time.Time
}

// NewGyroSource opens the SPI device, verifies the chip identity, and
// configures the rate path.
func NewGyroSource(cfg GyroConfig) (*GyroSource, error) {
	if int(cfg.Range) >= len(gyroFullScale) {
		return nil, fmt.Errorf("ahrs: gyro range must be 0-3, got %d", cfg.Range)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ahrs: periph host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIDevice)
	if err != nil {
		return nil, fmt.Errorf("ahrs: SPI open (%s): %w", cfg.SPIDevice, err)
	}

	conn, err := port.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: SPI connect: %w", err)
	}

	g := &GyroSource{
		port:  port,
		conn:  conn,
		scale: gyroFullScale[cfg.Range] / 32768.0,
	}

	id, err := g.readRegister(regWhoAmI)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: WHO_AM_I read: %w", err)
	}
	if id != whoAmIValue {
		port.Close()
		return nil, fmt.Errorf("ahrs: unexpected WHO_AM_I 0x%02X, want 0x%02X", id, whoAmIValue)
	}

	// Wake up with the auto-selected clock, then configure the rate path.
	if err := g.writeRegister(regPwrMgmt1, 0x01); err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: power management: %w", err)
	}
	if err := g.writeRegister(regConfig, cfg.DLPF&0x07); err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: DLPF config: %w", err)
	}
	if err := g.writeRegister(regSampleRateDiv, cfg.RateDiv); err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: sample rate divider: %w", err)
	}
	if err := g.writeRegister(regGyroConfig, (cfg.Range&0x03)<<3); err != nil {
		port.Close()
		return nil, fmt.Errorf("ahrs: gyro range: %w", err)
	}
	log.Printf("ahrs: gyro on %s, range ±%g°/s", cfg.SPIDevice, gyroFullScale[cfg.Range])

	if cfg.CalibrationFile != "" {
		cal, err := LoadGyroCalibration(cfg.CalibrationFile)
		if err != nil {
			port.Close()
			return nil, err
		}
		g.bias = cal.BiasZ
		if cal.Samples > 0 {
			log.Printf("ahrs: zero-rate bias %.4f°/s from %s (%d samples)", cal.BiasZ, cfg.CalibrationFile, cal.Samples)
		}
	}

	return g, nil
}

// Rate reads the instantaneous Z-axis rate in deg/s, bias corrected.
func (g *GyroSource) Rate() (float64, error) {
	raw, err := g.readRegister16(regGyroZOutH)
	if err != nil {
		return 0, fmt.Errorf("ahrs: gyro rate read: %w", err)
	}
	return float64(raw)*g.scale - g.bias, nil
}

// CurrentHeading integrates the yaw rate since the previous call and returns
// the heading collapsed to (-180, 180].
func (g *GyroSource) CurrentHeading() (float64, error) {
	rate, err := g.Rate()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	if !g.last.IsZero() {
		g.heading += rate * now.Sub(g.last).Seconds()
	}
	g.last = now

	return HalfAngle(g.heading), nil
}

// ZeroHeading resets the integrated yaw to zero.
func (g *GyroSource) ZeroHeading() {
	g.heading = 0
	g.last = time.Time{}
}

// Close releases the SPI port.
func (g *GyroSource) Close() error {
	return g.port.Close()
}

func (g *GyroSource) readRegister(reg byte) (byte, error) {
	w := []byte{reg | readFlag, 0}
	r := make([]byte, len(w))
	if err := g.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (g *GyroSource) readRegister16(reg byte) (int16, error) {
	w := []byte{reg | readFlag, 0, 0}
	r := make([]byte, len(w))
	if err := g.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return int16(uint16(r[1])<<8 | uint16(r[2])), nil
}

func (g *GyroSource) writeRegister(reg, value byte) error {
	w := []byte{reg, value}
	r := make([]byte, len(w))
	return g.conn.Tx(w, r)
}
