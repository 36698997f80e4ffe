package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDDrive   string
	MQTTClientIDSim     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string
	MQTTClientIDSpeed   string

	// Topics
	TopicTelemetry       string
	TopicPowerCommand    string
	TopicVelocityCommand string
	TopicHeadingCommand  string
	TopicGroundSpeed     string

	// Vehicle geometry and limits
	TrackWidthM        float64
	WheelBaseM         float64
	WheelDiameterM     float64
	MaxVelocityMPS     float64
	MaxAccelerationMPS float64
	MaxJerkMPS         float64

	// Curvature-drive tuning
	QuickstopThreshold float64
	TurnSensitivity    float64
	AccumulatorAlpha   float64

	// Heading hold
	HeadingKP  float64
	HeadingKFF float64

	// Motor controller serial link
	MotorSerialPort string
	MotorBaudRate   int
	MotorLeftID     int
	MotorRightID    int

	// Transmission gears
	GearLowTopSpeedMPS   float64
	GearHighTopSpeedMPS  float64
	GearLowMetersPerRot  float64
	GearHighMetersPerRot float64
	StartGear            string

	// Heading sensor
	HeadingSource  string // what to read heading from: "gyro" or "mock"
	GyroSPIDevice  string
	GyroRange      byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroDLPFConfig byte // Digital Low Pass Filter configuration (0-7)
	GyroRateDiv    byte // Sample rate divider (output rate = internal rate / (1 + div))
	GyroCalFile    string

	// GPS speed monitor
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	TickInterval       int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DRIVE":
		c.MQTTClientIDDrive = value
	case "MQTT_CLIENT_ID_SIM":
		c.MQTTClientIDSim = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_SPEED":
		c.MQTTClientIDSpeed = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value
	case "TOPIC_POWER_COMMAND":
		c.TopicPowerCommand = value
	case "TOPIC_VELOCITY_COMMAND":
		c.TopicVelocityCommand = value
	case "TOPIC_HEADING_COMMAND":
		c.TopicHeadingCommand = value
	case "TOPIC_GROUND_SPEED":
		c.TopicGroundSpeed = value

	// Vehicle geometry and limits
	case "TRACK_WIDTH_M":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACK_WIDTH_M %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("TRACK_WIDTH_M must be positive, got %g", v)
		}
		c.TrackWidthM = v
	case "WHEEL_BASE_M":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid WHEEL_BASE_M %q: %w", value, err)
		}
		c.WheelBaseM = v
	case "WHEEL_DIAMETER_M":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid WHEEL_DIAMETER_M %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("WHEEL_DIAMETER_M must be positive, got %g", v)
		}
		c.WheelDiameterM = v
	case "MAX_VELOCITY_MPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_VELOCITY_MPS %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("MAX_VELOCITY_MPS must be positive, got %g", v)
		}
		c.MaxVelocityMPS = v
	case "MAX_ACCELERATION_MPS2":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_ACCELERATION_MPS2 %q: %w", value, err)
		}
		c.MaxAccelerationMPS = v
	case "MAX_JERK_MPS3":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_JERK_MPS3 %q: %w", value, err)
		}
		c.MaxJerkMPS = v

	// Curvature-drive tuning
	case "QUICKSTOP_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid QUICKSTOP_THRESHOLD %q: %w", value, err)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("QUICKSTOP_THRESHOLD must be in [0, 1], got %g", v)
		}
		c.QuickstopThreshold = v
	case "TURN_SENSITIVITY":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid TURN_SENSITIVITY %q: %w", value, err)
		}
		c.TurnSensitivity = v
	case "ACCUMULATOR_ALPHA":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCUMULATOR_ALPHA %q: %w", value, err)
		}
		if v < 0 || v >= 1 {
			return fmt.Errorf("ACCUMULATOR_ALPHA must be in [0, 1), got %g", v)
		}
		c.AccumulatorAlpha = v

	// Heading hold
	case "HEADING_KP":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid HEADING_KP %q: %w", value, err)
		}
		c.HeadingKP = v
	case "HEADING_KFF":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid HEADING_KFF %q: %w", value, err)
		}
		c.HeadingKFF = v

	// Motor controller serial link
	case "MOTOR_SERIAL_PORT":
		c.MotorSerialPort = value
	case "MOTOR_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_BAUD_RATE %q: %w", value, err)
		}
		c.MotorBaudRate = rate
	case "MOTOR_LEFT_ID":
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_LEFT_ID %q: %w", value, err)
		}
		if id < 0 || id > 255 {
			return fmt.Errorf("MOTOR_LEFT_ID must be 0-255, got %d", id)
		}
		c.MotorLeftID = id
	case "MOTOR_RIGHT_ID":
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_RIGHT_ID %q: %w", value, err)
		}
		if id < 0 || id > 255 {
			return fmt.Errorf("MOTOR_RIGHT_ID must be 0-255, got %d", id)
		}
		c.MotorRightID = id

	// Transmission gears
	case "GEAR_LOW_TOP_SPEED_MPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GEAR_LOW_TOP_SPEED_MPS %q: %w", value, err)
		}
		c.GearLowTopSpeedMPS = v
	case "GEAR_HIGH_TOP_SPEED_MPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GEAR_HIGH_TOP_SPEED_MPS %q: %w", value, err)
		}
		c.GearHighTopSpeedMPS = v
	case "GEAR_LOW_METERS_PER_ROTATION":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GEAR_LOW_METERS_PER_ROTATION %q: %w", value, err)
		}
		c.GearLowMetersPerRot = v
	case "GEAR_HIGH_METERS_PER_ROTATION":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GEAR_HIGH_METERS_PER_ROTATION %q: %w", value, err)
		}
		c.GearHighMetersPerRot = v
	case "START_GEAR":
		if value != "low" && value != "high" {
			return fmt.Errorf("START_GEAR must be \"low\" or \"high\", got %q", value)
		}
		c.StartGear = value

	// Heading sensor
	case "HEADING_SOURCE":
		if value != "gyro" && value != "mock" {
			return fmt.Errorf("HEADING_SOURCE must be \"gyro\" or \"mock\", got %q", value)
		}
		c.HeadingSource = value
	case "GYRO_SPI_DEVICE":
		c.GyroSPIDevice = value
	case "GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.GyroRange = byte(rangeVal)
	case "GYRO_DLPF_CFG":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_DLPF_CFG %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("GYRO_DLPF_CFG must be 0-7, got %d", val)
		}
		c.GyroDLPFConfig = byte(val)
	case "GYRO_SMPLRT_DIV":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_SMPLRT_DIV %q: %w", value, err)
		}
		if val < 0 || val > 255 {
			return fmt.Errorf("GYRO_SMPLRT_DIV must be 0-255, got %d", val)
		}
		c.GyroRateDiv = byte(val)
	case "GYRO_CAL_FILE":
		c.GyroCalFile = value

	// GPS speed monitor
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "TICK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL %q: %w", value, err)
		}
		c.TickInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TrackWidthM == 0 {
		return fmt.Errorf("TRACK_WIDTH_M is required")
	}
	if c.WheelDiameterM == 0 {
		return fmt.Errorf("WHEEL_DIAMETER_M is required")
	}
	if c.MaxVelocityMPS == 0 {
		return fmt.Errorf("MAX_VELOCITY_MPS is required")
	}
	if c.MotorLeftID == c.MotorRightID {
		return fmt.Errorf("MOTOR_LEFT_ID and MOTOR_RIGHT_ID must differ")
	}
	if c.GearLowTopSpeedMPS == 0 || c.GearHighTopSpeedMPS == 0 {
		return fmt.Errorf("GEAR_LOW_TOP_SPEED_MPS and GEAR_HIGH_TOP_SPEED_MPS are required")
	}
	if c.GearLowMetersPerRot == 0 || c.GearHighMetersPerRot == 0 {
		return fmt.Errorf("GEAR_LOW_METERS_PER_ROTATION and GEAR_HIGH_METERS_PER_ROTATION are required")
	}
	if c.TickInterval == 0 {
		return fmt.Errorf("TICK_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
