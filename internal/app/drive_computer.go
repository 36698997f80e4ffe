// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/drive_computer/internal/ahrs"
	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/drive"
	"github.com/relabs-tech/drive_computer/internal/motor"
	"github.com/relabs-tech/drive_computer/internal/transmission"
)

// RunDriveComputer is the main control binary: it wires the drivetrain to
// the motor controller serial link and the heading gyro, then runs the
// fixed-period control loop against the MQTT command topics.
func RunDriveComputer() error {
	log.Println("starting drive-computer control loop")

	cfg := config.Get()

	specs, trans, err := buildVehicle(cfg)
	if err != nil {
		return fmt.Errorf("vehicle configuration: %w", err)
	}

	// --- motor controller link ---
	driver, err := motor.OpenSerial(motor.SerialConfig{
		Port:          cfg.MotorSerialPort,
		BaudRate:      uint(cfg.MotorBaudRate),
		LeftID:        uint8(cfg.MotorLeftID),
		RightID:       uint8(cfg.MotorRightID),
		EncoderFactor: trans.EncoderFactor,
	})
	if err != nil {
		return fmt.Errorf("motor link: %w", err)
	}
	defer driver.Close()

	// --- heading source (gyro or mock) ---
	source, err := buildHeadingSource(cfg)
	if err != nil {
		return fmt.Errorf("heading source: %w", err)
	}

	train, err := drive.New(specs, driver, trans, source)
	if err != nil {
		return fmt.Errorf("drivetrain wiring: %w", err)
	}

	// --- connect to MQTT ---
	clientID := cfg.MQTTClientIDDrive
	if clientID == "" {
		clientID = "drive-computer"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting command subscriptions")

	cmds := newCommandState()
	if err := subscribeCommands(client, cfg, cmds); err != nil {
		return err
	}

	runControlLoop(client, cfg, train, trans, cmds)
	return nil
}

// buildVehicle turns the raw config numbers into the drive specifications
// and the dual transmission.
func buildVehicle(cfg *config.Config) (*drive.Specifications, *transmission.Dual, error) {
	specs, err := drive.NewSpecifications(drive.Specifications{
		TrackWidth:         cfg.TrackWidthM,
		WheelBase:          cfg.WheelBaseM,
		WheelDiameter:      cfg.WheelDiameterM,
		MaxVelocity:        cfg.MaxVelocityMPS,
		MaxAcceleration:    cfg.MaxAccelerationMPS,
		MaxJerk:            cfg.MaxJerkMPS,
		QuickstopThreshold: cfg.QuickstopThreshold,
		TurnSensitivity:    cfg.TurnSensitivity,
		Alpha:              cfg.AccumulatorAlpha,
		KPRotational:       cfg.HeadingKP,
		KFFRotational:      cfg.HeadingKFF,
	})
	if err != nil {
		return nil, nil, err
	}

	startGear := transmission.GearName(cfg.StartGear)
	if cfg.StartGear == "" {
		startGear = transmission.Low
	}

	trans, err := transmission.NewDual(
		transmission.Gear{TopSpeed: cfg.GearLowTopSpeedMPS, EncoderFactor: cfg.GearLowMetersPerRot},
		transmission.Gear{TopSpeed: cfg.GearHighTopSpeedMPS, EncoderFactor: cfg.GearHighMetersPerRot},
		startGear,
	)
	if err != nil {
		return nil, nil, err
	}

	return specs, trans, nil
}

// buildHeadingSource picks the configured heading source.
func buildHeadingSource(cfg *config.Config) (ahrs.Source, error) {
	switch cfg.HeadingSource {
	case "mock":
		log.Println("using mock heading source")
		return ahrs.NewMockSource(30), nil
	case "gyro", "":
		return ahrs.NewGyroSource(ahrs.GyroConfig{
			SPIDevice:       cfg.GyroSPIDevice,
			Range:           cfg.GyroRange,
			DLPF:            cfg.GyroDLPFConfig,
			RateDiv:         cfg.GyroRateDiv,
			CalibrationFile: cfg.GyroCalFile,
		})
	default:
		return nil, fmt.Errorf("unknown heading source %q", cfg.HeadingSource)
	}
}
