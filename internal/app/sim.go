package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/drive_computer/internal/ahrs"
	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/drive"
	"github.com/relabs-tech/drive_computer/internal/motor"
)

// RunSim runs the same control loop as the drive computer but against a
// mock motor driver and a mock heading source, so the command and
// telemetry plumbing can be exercised without hardware.
func RunSim() error {
	log.Println("starting drive simulator")

	cfg := config.Get()

	specs, trans, err := buildVehicle(cfg)
	if err != nil {
		return fmt.Errorf("vehicle configuration: %w", err)
	}

	driver := motor.NewMock()
	// Give the mock encoders a plausible standstill reading.
	for _, side := range motor.Sides {
		driver.SetReading(side, 0, 0)
	}

	source := ahrs.NewMockSource(15)

	train, err := drive.New(specs, driver, trans, source)
	if err != nil {
		return fmt.Errorf("drivetrain wiring: %w", err)
	}

	clientID := cfg.MQTTClientIDSim
	if clientID == "" {
		clientID = "drive-sim"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("simulator connected to MQTT")

	cmds := newCommandState()
	if err := subscribeCommands(client, cfg, cmds); err != nil {
		return err
	}

	runControlLoop(client, cfg, train, trans, cmds)
	return nil
}
