package app

import (
	"bufio"
	"encoding/json"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/gps"
)

// RunSpeedMonitor opens the GPS serial port, parses NMEA sentences, and
// publishes ground speed fixes as JSON so telemetry consumers can compare
// measured vehicle speed against the wheel encoders.
func RunSpeedMonitor() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	clientID := cfg.MQTTClientIDSpeed
	if clientID == "" {
		clientID = "drive-speed-monitor"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("speed monitor connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	var current gps.SpeedFix

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// NMEA sentences usually start with '$'
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)

			current.Time = m.Time.String()
			current.SpeedMPS = gps.KnotsToMPS(m.Speed)
			current.CourseDeg = m.Course
			current.Validity = string(m.Validity)

		case nmea.TypeVTG:
			m := sentence.(nmea.VTG)

			// VTG carries speed in both knots and km/h; prefer the
			// ground speed in knots for consistency with RMC.
			current.SpeedMPS = gps.KnotsToMPS(m.GroundSpeedKnots)
			current.CourseDeg = m.TrueTrack

		default:
			continue
		}

		payload, err := json.Marshal(current)
		if err != nil {
			log.Printf("ground speed JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicGroundSpeed, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("ground speed publish error: %v", token.Error())
			continue
		}
	}
}
