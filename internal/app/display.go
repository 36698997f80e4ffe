package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/gps"
	"github.com/relabs-tech/drive_computer/internal/telemetry"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	snapshot     telemetry.Snapshot
	haveSnapshot bool

	speed     gps.SpeedFix
	haveSpeed bool
}

// RunDisplay drives the cockpit OLED: heading, gear and wheel velocities
// from the telemetry topic, plus GPS ground speed when available.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: OLED initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	// Data storage
	data := &DisplayData{}

	// Connect to MQTT
	clientID := cfg.MQTTClientIDDisplay
	if clientID == "" {
		clientID = "drive-display"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to telemetry snapshots
	telToken := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: telemetry unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.snapshot = s
		data.haveSnapshot = true
		data.mu.Unlock()
	})
	telToken.Wait()
	if telToken.Error() != nil {
		return telToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicTelemetry)

	// Subscribe to GPS ground speed
	speedToken := client.Subscribe(cfg.TopicGroundSpeed, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.SpeedFix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: ground speed unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.speed = f
		data.haveSpeed = true
		data.mu.Unlock()
	})
	speedToken.Wait()
	if speedToken.Error() != nil {
		return speedToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicGroundSpeed)

	// Display update loop
	interval := cfg.DisplayUpdateInterval
	if interval <= 0 {
		interval = 250
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		// Read data without copying the mutex
		data.mu.RLock()
		snapshot := DisplayData{
			snapshot:     data.snapshot,
			haveSnapshot: data.haveSnapshot,
			speed:        data.speed,
			haveSpeed:    data.haveSpeed,
		}
		data.mu.RUnlock()

		if err := updateDriveDisplay(dev, &snapshot); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func updateDriveDisplay(dev *ssd1306.Dev, data *DisplayData) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !data.haveSnapshot {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Drive Computer"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	s := data.snapshot

	// Heading and gear
	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("HDG %7.1f %s", s.HeadingDeg, s.Gear)))

	// Wheel velocities
	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("L %6.2f m/s", s.Left.Velocity)))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("R %6.2f m/s", s.Right.Velocity)))

	// GPS ground speed, when a fix has arrived
	drawer.Dot = fixed.P(0, 52)
	if data.haveSpeed {
		drawer.DrawBytes([]byte(fmt.Sprintf("GPS %5.2f m/s", data.speed.SpeedMPS)))
	} else {
		drawer.DrawBytes([]byte("GPS --.-- m/s"))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Drive Pi"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("commands"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
