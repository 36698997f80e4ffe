package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/drive"
	"github.com/relabs-tech/drive_computer/internal/telemetry"
	"github.com/relabs-tech/drive_computer/internal/transmission"
)

// Command topics carry latest-wins intent: every tick the loop applies
// whatever arrived most recently. Modes are mutually exclusive.
const (
	modeIdle     = "idle"
	modePower    = "power"
	modeVelocity = "velocity"
	modeHeading  = "heading"
)

// commandState holds the most recent command from each topic plus the mode
// selected by whichever arrived last. MQTT handlers write it, the control
// loop reads it once per tick.
type commandState struct {
	mu       sync.Mutex
	mode     string
	power    telemetry.PowerCommand
	velocity telemetry.VelocityCommand
	heading  telemetry.HeadingCommand
}

func newCommandState() *commandState {
	return &commandState{mode: modeIdle}
}

func (s *commandState) setPower(c telemetry.PowerCommand) {
	s.mu.Lock()
	s.mode = modePower
	s.power = c
	s.mu.Unlock()
}

func (s *commandState) setVelocity(c telemetry.VelocityCommand) {
	s.mu.Lock()
	s.mode = modeVelocity
	s.velocity = c
	s.mu.Unlock()
}

func (s *commandState) setHeading(c telemetry.HeadingCommand) {
	s.mu.Lock()
	s.mode = modeHeading
	s.heading = c
	s.mu.Unlock()
}

func (s *commandState) idle() {
	s.mu.Lock()
	s.mode = modeIdle
	s.mu.Unlock()
}

func (s *commandState) snapshot() (string, telemetry.PowerCommand, telemetry.VelocityCommand, telemetry.HeadingCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.power, s.velocity, s.heading
}

// subscribeCommands wires the three command topics into the shared state.
func subscribeCommands(client mqtt.Client, cfg *config.Config, cmds *commandState) error {
	powerToken := client.Subscribe(cfg.TopicPowerCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.PowerCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("drive: power command unmarshal error: %v", err)
			return
		}
		cmds.setPower(c)
	})
	powerToken.Wait()
	if powerToken.Error() != nil {
		return powerToken.Error()
	}
	log.Printf("drive: subscribed to %s", cfg.TopicPowerCommand)

	velocityToken := client.Subscribe(cfg.TopicVelocityCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.VelocityCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("drive: velocity command unmarshal error: %v", err)
			return
		}
		cmds.setVelocity(c)
	})
	velocityToken.Wait()
	if velocityToken.Error() != nil {
		return velocityToken.Error()
	}
	log.Printf("drive: subscribed to %s", cfg.TopicVelocityCommand)

	headingToken := client.Subscribe(cfg.TopicHeadingCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var c telemetry.HeadingCommand
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("drive: heading command unmarshal error: %v", err)
			return
		}
		cmds.setHeading(c)
	})
	headingToken.Wait()
	if headingToken.Error() != nil {
		return headingToken.Error()
	}
	log.Printf("drive: subscribed to %s", cfg.TopicHeadingCommand)

	return nil
}

// runControlLoop runs the fixed-period tick loop until the ticker stops:
// apply the latest command, then publish a telemetry snapshot. A tick is
// never refused; per-tick errors are logged and the loop moves on.
func runControlLoop(
	client mqtt.Client,
	cfg *config.Config,
	train *drive.Drivetrain,
	trans *transmission.Dual,
	cmds *commandState,
) {
	ticker := time.NewTicker(time.Duration(cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Printf("drive: control loop started, tick %dms", cfg.TickInterval)

	atGoal := true

	for t := range ticker.C {
		mode, power, velocity, heading := cmds.snapshot()

		switch mode {
		case modePower:
			atGoal = true
			var err error
			if power.QuickTurn {
				err = train.DriveQuickTurn(power.Linear, power.Rotation)
			} else {
				err = train.Drive(power.Linear, power.Rotation)
			}
			if err != nil {
				log.Printf("drive: power tick error: %v", err)
			}

		case modeVelocity:
			atGoal = true
			if err := train.SetVelocitySetpoints(velocity.Left, velocity.Right); err != nil {
				log.Printf("drive: velocity tick error: %v", err)
			}

		case modeHeading:
			done, err := train.TurnToHeading(heading.Goal)
			if err != nil {
				log.Printf("drive: heading tick error: %v", err)
				continue
			}
			atGoal = done
			if done {
				if err := train.Stop(); err != nil {
					log.Printf("drive: stop error: %v", err)
				}
				cmds.idle()
			}
		}

		publishSnapshot(client, cfg, train, trans, t, atGoal)
	}
}

// publishSnapshot reads back both sides and the heading and publishes the
// per-tick snapshot, retained so late subscribers see the latest state.
func publishSnapshot(
	client mqtt.Client,
	cfg *config.Config,
	train *drive.Drivetrain,
	trans *transmission.Dual,
	t time.Time,
	atGoal bool,
) {
	left, right, err := train.Status()
	if err != nil {
		log.Printf("drive: status read error: %v", err)
		return
	}

	heading, err := train.Heading()
	if err != nil {
		log.Printf("drive: heading read error: %v", err)
	}

	snap := telemetry.Snapshot{
		Time:       t.UTC().Format(time.RFC3339Nano),
		HeadingDeg: heading,
		Gear:       string(trans.Engaged()),
		Left:       left,
		Right:      right,
		AtGoal:     atGoal,
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("drive: snapshot marshal error: %v", err)
		return
	}

	token := client.Publish(cfg.TopicTelemetry, 0, true, payload)
	token.Wait()
}
