// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/dgryski/go-cobs"
	serial "github.com/jacobsa/go-serial/serial"
)

// Command bytes of the motor controller protocol. Frames are COBS encoded
// and delimited by a zero byte; multi-byte fields are little endian.
// Responses from the controller have the response bit set.
const (
	cmdResponse = 128

	cmdPower    = 1
	cmdVelocity = 2
	cmdStop     = 3

	cmdFeedback = 0 | cmdResponse
)

type powerCommand struct {
	ID    byte
	Motor uint8
	Power float32
}

type velocityCommand struct {
	ID       byte
	Motor    uint8
	Setpoint float32
	Slot     uint8
}

type stopCommand struct {
	ID    byte
	Motor uint8
}

// feedbackFrame is pushed by the controller for each motor. Velocity is in
// motor rotations per second, position in motor rotations.
type feedbackFrame struct {
	Motor    uint8
	Velocity float32
	Position float32
}

// SerialConfig describes the serial link to the motor controller board.
// Exactly two distinct motor IDs must be bound, one per side.
type SerialConfig struct {
	Port     string
	BaudRate uint

	LeftID  uint8
	RightID uint8

	// EncoderFactor converts motor rotations to meters for the currently
	// engaged gear. Queried on every read so gear changes take effect
	// immediately.
	EncoderFactor func() float64
}

// SerialDriver talks to the motor controller over a COBS-framed serial
// protocol. Commands are written synchronously; feedback frames are consumed
// by a background reader that keeps the latest reading per motor.
type SerialDriver struct {
	cfg  SerialConfig
	port io.ReadWriteCloser

	writeMu sync.Mutex

	mu       sync.RWMutex
	feedback map[uint8]feedbackFrame
}

// OpenSerial opens the motor controller link and starts the feedback reader.
func OpenSerial(cfg SerialConfig) (*SerialDriver, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("motor: serial port is required")
	}
	if cfg.LeftID == cfg.RightID {
		return nil, fmt.Errorf("motor: left and right motor IDs must differ, both are %d", cfg.LeftID)
	}
	if cfg.EncoderFactor == nil {
		return nil, fmt.Errorf("motor: encoder conversion factor is required")
	}

	options := serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 4,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("motor: serial open (%s): %w", cfg.Port, err)
	}

	d := &SerialDriver{
		cfg:      cfg,
		port:     port,
		feedback: make(map[uint8]feedbackFrame),
	}
	go d.readLoop()

	log.Printf("motor: serial link opened on %s at %d baud", cfg.Port, cfg.BaudRate)
	return d, nil
}

// readLoop consumes feedback frames until the port is closed.
func (d *SerialDriver) readLoop() {
	reader := bufio.NewReader(d.port)

	for {
		frame, err := reader.ReadBytes('\x00')
		if err != nil {
			log.Printf("motor: feedback read error: %v", err)
			return
		}

		decoded, err := cobs.Decode(frame)
		if err != nil {
			log.Printf("motor: frame decode error: %v", err)
			continue
		}
		if len(decoded) == 0 {
			continue
		}

		if decoded[0] != cmdFeedback {
			continue
		}

		var fb feedbackFrame
		if err := binary.Read(bytes.NewReader(decoded[1:]), binary.LittleEndian, &fb); err != nil {
			log.Printf("motor: feedback unmarshal error: %v", err)
			continue
		}

		d.mu.Lock()
		d.feedback[fb.Motor] = fb
		d.mu.Unlock()
	}
}

// write serializes a command struct into a COBS frame and sends it.
func (d *SerialDriver) write(cmd interface{}) error {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, cmd); err != nil {
		return fmt.Errorf("motor: command marshal: %w", err)
	}

	encoded := cobs.Encode(buffer.Bytes())
	encoded = append(encoded, '\x00')

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.port.Write(encoded); err != nil {
		return fmt.Errorf("motor: command write: %w", err)
	}
	return nil
}

func (d *SerialDriver) motorID(side Side) uint8 {
	if side == Right {
		return d.cfg.RightID
	}
	return d.cfg.LeftID
}

// SetOpenLoopPower commands raw power in [-1, 1] on one side.
func (d *SerialDriver) SetOpenLoopPower(side Side, power float64) error {
	return d.write(powerCommand{ID: cmdPower, Motor: d.motorID(side), Power: float32(power)})
}

// SetVelocitySetpoint commands a closed-loop velocity in meters per second.
// The controller PID works in rotations per second, so the setpoint is
// divided back out by the current encoder factor.
func (d *SerialDriver) SetVelocitySetpoint(side Side, metersPerSecond float64, pidSlot int) error {
	factor := d.cfg.EncoderFactor()
	return d.write(velocityCommand{
		ID:       cmdVelocity,
		Motor:    d.motorID(side),
		Setpoint: float32(metersPerSecond / factor),
		Slot:     uint8(pidSlot),
	})
}

// Stop cuts output on one side.
func (d *SerialDriver) Stop(side Side) error {
	return d.write(stopCommand{ID: cmdStop, Motor: d.motorID(side)})
}

// Velocity returns the latest measured velocity in meters per second.
// Before the first feedback frame arrives it reads as zero.
func (d *SerialDriver) Velocity(side Side) (float64, error) {
	d.mu.RLock()
	fb := d.feedback[d.motorID(side)]
	d.mu.RUnlock()
	return float64(fb.Velocity) * d.cfg.EncoderFactor() * side.EncoderSign(), nil
}

// Position returns the latest measured position in meters.
func (d *SerialDriver) Position(side Side) (float64, error) {
	d.mu.RLock()
	fb := d.feedback[d.motorID(side)]
	d.mu.RUnlock()
	return float64(fb.Position) * d.cfg.EncoderFactor() * side.EncoderSign(), nil
}

// Close shuts the serial link down.
func (d *SerialDriver) Close() error {
	return d.port.Close()
}
