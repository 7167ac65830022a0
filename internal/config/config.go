// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/panorama_capture/internal/capture"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/photo"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDWeb      string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicOrientation string
	TopicScreen      string
	TopicStatus      string
	TopicCapture     string
	TopicGPS         string

	// Marker layout
	SphereCount       int
	SphereRadius      float64
	MarkerRadius      float64
	AimDistance       float64
	MatchRadiusFactor float64

	// Capture
	CapturePolicy string // "instant" or "dwell"
	DwellMs       int

	// Orientation filter
	FilterMode                string // "kalman" or "exponential"
	KalmanProcessVariance     float64
	KalmanMeasurementVariance float64
	SmoothingFactor           float64

	// Timing
	FrameInterval             int // milliseconds
	OrientationSampleInterval int // milliseconds

	// Orientation producer
	OrientationSource string // "mock" or "imu"
	IMUSPIDevice      string
	IMUCSPin          string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Photos
	PhotoFormat string // "png" or "webp"
	ArchiveName string

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs the web service against a local
// broker with a mock orientation source.
func Default() *Config {
	filter := orientation.DefaultFilterConfig()
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDWeb:      "panorama-web",
		MQTTClientIDProducer: "panorama-orientation-producer",
		MQTTClientIDGPS:      "panorama-gps-producer",
		MQTTClientIDConsole:  "panorama-console",
		MQTTClientIDDisplay:  "panorama-display",

		TopicOrientation: "panorama/orientation",
		TopicScreen:      "panorama/screen",
		TopicStatus:      "panorama/status",
		TopicCapture:     "panorama/capture",
		TopicGPS:         "panorama/gps",

		SphereCount:       16,
		SphereRadius:      25,
		MarkerRadius:      1,
		AimDistance:       25,
		MatchRadiusFactor: capture.DefaultMatchFactor,

		CapturePolicy: string(capture.PolicyInstant),
		DwellMs:       int(capture.DefaultDwell / time.Millisecond),

		FilterMode:                string(filter.Mode),
		KalmanProcessVariance:     filter.ProcessVariance,
		KalmanMeasurementVariance: filter.MeasurementVariance,
		SmoothingFactor:           filter.SmoothingFactor,

		FrameInterval:             33,
		OrientationSampleInterval: 50,

		OrientationSource: "mock",
		IMUSPIDevice:      "/dev/spidev0.0",
		IMUCSPin:          "GPIO8",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		PhotoFormat: string(photo.FormatPNG),
		ArchiveName: "photos.zip",

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default(). Blank lines and lines
// starting with '#' are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func atoi(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func atof(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_SCREEN":
		c.TopicScreen = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_CAPTURE":
		c.TopicCapture = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Marker layout
	case "SPHERE_COUNT":
		c.SphereCount, err = atoi(key, value)
	case "SPHERE_RADIUS":
		c.SphereRadius, err = atof(key, value)
	case "MARKER_RADIUS":
		c.MarkerRadius, err = atof(key, value)
	case "AIM_DISTANCE":
		c.AimDistance, err = atof(key, value)
	case "MATCH_RADIUS_FACTOR":
		c.MatchRadiusFactor, err = atof(key, value)

	// Capture
	case "CAPTURE_POLICY":
		if _, perr := capture.ParsePolicy(value); perr != nil {
			return fmt.Errorf("CAPTURE_POLICY must be instant or dwell, got %q", value)
		}
		c.CapturePolicy = value
	case "DWELL_MS":
		c.DwellMs, err = atoi(key, value)

	// Orientation filter
	case "FILTER_MODE":
		c.FilterMode = value
	case "KALMAN_PROCESS_VARIANCE":
		c.KalmanProcessVariance, err = atof(key, value)
	case "KALMAN_MEASUREMENT_VARIANCE":
		c.KalmanMeasurementVariance, err = atof(key, value)
	case "SMOOTHING_FACTOR":
		c.SmoothingFactor, err = atof(key, value)

	// Timing
	case "FRAME_INTERVAL":
		c.FrameInterval, err = atoi(key, value)
	case "ORIENTATION_SAMPLE_INTERVAL":
		c.OrientationSampleInterval, err = atoi(key, value)

	// Orientation producer
	case "ORIENTATION_SOURCE":
		if value != "mock" && value != "imu" {
			return fmt.Errorf("ORIENTATION_SOURCE must be mock or imu, got %q", value)
		}
		c.OrientationSource = value
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = atoi(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = atoi(key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Photos
	case "PHOTO_FORMAT":
		if _, perr := photo.ParseFormat(value); perr != nil {
			return fmt.Errorf("PHOTO_FORMAT must be png or webp, got %q", value)
		}
		c.PhotoFormat = value
	case "ARCHIVE_NAME":
		c.ArchiveName = value

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = atoi(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks required fields and ranges.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.SphereCount < 0 {
		return fmt.Errorf("SPHERE_COUNT must be >= 0, got %d", c.SphereCount)
	}
	if c.SphereRadius <= 0 {
		return fmt.Errorf("SPHERE_RADIUS must be > 0, got %v", c.SphereRadius)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be > 0, got %d", c.FrameInterval)
	}
	if c.OrientationSampleInterval <= 0 {
		return fmt.Errorf("ORIENTATION_SAMPLE_INTERVAL must be > 0, got %d", c.OrientationSampleInterval)
	}
	if c.OrientationSource == "imu" && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required when ORIENTATION_SOURCE=imu")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be > 0, got %d", c.GPSBaudRate)
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if c.ArchiveName == "" {
		return fmt.Errorf("ARCHIVE_NAME is required")
	}
	// Marker geometry is checked by session.New.
	return c.Filter().Validate()
}

// Filter returns the orientation filter settings.
func (c *Config) Filter() orientation.FilterConfig {
	return orientation.FilterConfig{
		Mode:                orientation.Mode(c.FilterMode),
		ProcessVariance:     c.KalmanProcessVariance,
		MeasurementVariance: c.KalmanMeasurementVariance,
		SmoothingFactor:     c.SmoothingFactor,
	}
}

// Session returns the capture session settings.
func (c *Config) Session() session.Config {
	return session.Config{
		Radius:       c.SphereRadius,
		Count:        c.SphereCount,
		MarkerRadius: c.MarkerRadius,
		AimDistance:  c.AimDistance,
		MatchFactor:  c.MatchRadiusFactor,
		Policy:       capture.Policy(c.CapturePolicy),
		Dwell:        time.Duration(c.DwellMs) * time.Millisecond,
		Filter:       c.Filter(),
	}
}

// Interval converts a millisecond setting to a duration.
func Interval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
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
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
