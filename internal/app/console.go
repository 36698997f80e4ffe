package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/gps"
	"github.com/relabs-tech/drive_computer/internal/telemetry"
)

// RunConsole subscribes to the telemetry, command and ground speed topics
// and prints every message as a one-line record.
func RunConsole() error {
	cfg := config.Get()

	clientID := cfg.MQTTClientIDConsole
	if clientID == "" {
		clientID = "drive-console-subscriber"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to telemetry snapshots
	telToken := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: telemetry unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[DRIVE] heading=%7.2f° gear=%-4s  L set=%6.2f v=%6.2f p=%8.2f  R set=%6.2f v=%6.2f p=%8.2f  at_goal=%t\n",
			s.HeadingDeg, s.Gear,
			s.Left.Setpoint, s.Left.Velocity, s.Left.Position,
			s.Right.Setpoint, s.Right.Velocity, s.Right.Position,
			s.AtGoal,
		)
	})
	telToken.Wait()
	if telToken.Error() != nil {
		return telToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTelemetry)

	// Subscribe to power commands
	powerToken := client.Subscribe(cfg.TopicPowerCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.PowerCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("console: power command unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[PWR  ] linear=%6.2f rotation=%6.2f quick_turn=%t\n",
			c.Linear, c.Rotation, c.QuickTurn,
		)
	})
	powerToken.Wait()
	if powerToken.Error() != nil {
		return powerToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPowerCommand)

	// Subscribe to velocity commands
	velToken := client.Subscribe(cfg.TopicVelocityCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.VelocityCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("console: velocity command unmarshal error: %v", err)
			return
		}

		fmt.Printf("[VEL  ] left=%6.2fm/s right=%6.2fm/s\n", c.Left, c.Right)
	})
	velToken.Wait()
	if velToken.Error() != nil {
		return velToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicVelocityCommand)

	// Subscribe to heading commands
	hdgToken := client.Subscribe(cfg.TopicHeadingCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.HeadingCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("console: heading command unmarshal error: %v", err)
			return
		}

		fmt.Printf("[HDG  ] goal=%7.2f°\n", c.Goal)
	})
	hdgToken.Wait()
	if hdgToken.Error() != nil {
		return hdgToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicHeadingCommand)

	// Subscribe to GPS ground speed
	speedToken := client.Subscribe(cfg.TopicGroundSpeed, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.SpeedFix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: ground speed unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS  ] time=%s speed=%5.2fm/s course=%6.1f° validity=%s\n",
			f.Time, f.SpeedMPS, f.CourseDeg, f.Validity,
		)
	})
	speedToken.Wait()
	if speedToken.Error() != nil {
		return speedToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGroundSpeed)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
