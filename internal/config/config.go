// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Control loop timing
	ControlPeriodMS int     // scheduler period in milliseconds
	FilterDT        float64 // integration step in seconds, must equal ControlPeriodMS

	// Kalman filter
	QAngle float64
	QGyro  float64
	RAngle float64
	C0     float64

	// Complementary filter blend constant (secondary axis)
	K1 float64

	// PD gains. KI is parsed for completeness but the integral term is always zero.
	KP float64
	KI float64
	KD float64

	// Motor command mapping
	MaxDuty      int
	FallAngleDeg float64

	// Calibration
	CalSamples    int
	CalIntervalMS int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Motor driver (TB6612) pins
	MotorLeftIN1   string
	MotorLeftIN2   string
	MotorLeftPWM   string
	MotorRightIN1  string
	MotorRightIN2  string
	MotorRightPWM  string
	MotorPWMFreqHz int

	// MQTT
	MQTTBroker          string
	MQTTClientIDBalance string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicState string
	TopicCSV   string
	TopicEnv   string

	// Serial telemetry link
	TelemetrySerialPort string
	TelemetryBaudRate   int

	// Telemetry timing
	DebugIntervalMS int // human readable line, milliseconds
	CSVIntervalMS   int // machine readable record, milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Board environment sensor, empty disables it
	BMPSPIDevice string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the reference tuning of the robot. Every key in the
// config file overrides one of these values.
func Default() *Config {
	return &Config{
		ControlPeriodMS: 5,
		FilterDT:        0.005,

		QAngle: 0.001,
		QGyro:  0.003,
		RAngle: 0.5,
		C0:     1,
		K1:     0.05,

		KP: 34,
		KI: 0,
		KD: 0.62,

		MaxDuty:      255,
		FallAngleDeg: 80,

		CalSamples:    400,
		CalIntervalMS: 5,

		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "8",
		IMUAccelRange: 0,
		IMUGyroRange:  0,

		MotorLeftIN1:   "GPIO5",
		MotorLeftIN2:   "GPIO6",
		MotorLeftPWM:   "GPIO13",
		MotorRightIN1:  "GPIO20",
		MotorRightIN2:  "GPIO21",
		MotorRightPWM:  "GPIO12",
		MotorPWMFreqHz: 490,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDBalance: "balance-controller",
		MQTTClientIDWeb:     "balance-web-subscriber",
		MQTTClientIDConsole: "balance-console-subscriber",
		MQTTClientIDDisplay: "balance-display-subscriber",

		TopicState: "balance/state",
		TopicCSV:   "balance/csv",
		TopicEnv:   "balance/env",

		TelemetryBaudRate: 9600,

		DebugIntervalMS: 100,
		CSVIntervalMS:   20,

		WebServerPort: 8080,

		DisplayUpdateInterval: 200,
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

// Parse reads KEY=VALUE lines on top of Default and validates the result.
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

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Control loop timing
	case "CONTROL_PERIOD_MS":
		c.ControlPeriodMS, err = parseInt(key, value, 1, 1000)
	case "FILTER_DT":
		c.FilterDT, err = parseFloat(key, value)

	// Filters
	case "Q_ANGLE":
		c.QAngle, err = parseFloat(key, value)
	case "Q_GYRO":
		c.QGyro, err = parseFloat(key, value)
	case "R_ANGLE":
		c.RAngle, err = parseFloat(key, value)
	case "C_0":
		c.C0, err = parseFloat(key, value)
	case "K1":
		c.K1, err = parseFloat(key, value)

	// Gains
	case "KP":
		c.KP, err = parseFloat(key, value)
	case "KI":
		c.KI, err = parseFloat(key, value)
	case "KD":
		c.KD, err = parseFloat(key, value)

	// Motor command mapping
	case "MAX_DUTY":
		c.MaxDuty, err = parseInt(key, value, 1, 255)
	case "FALL_ANGLE_DEG":
		c.FallAngleDeg, err = parseFloat(key, value)

	// Calibration
	case "CAL_SAMPLES":
		c.CalSamples, err = parseInt(key, value, 1, 100000)
	case "CAL_INTERVAL_MS":
		c.CalIntervalMS, err = parseInt(key, value, 0, 1000)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, perr)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, perr)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Motor pins
	case "MOTOR_LEFT_IN1":
		c.MotorLeftIN1 = value
	case "MOTOR_LEFT_IN2":
		c.MotorLeftIN2 = value
	case "MOTOR_LEFT_PWM":
		c.MotorLeftPWM = value
	case "MOTOR_RIGHT_IN1":
		c.MotorRightIN1 = value
	case "MOTOR_RIGHT_IN2":
		c.MotorRightIN2 = value
	case "MOTOR_RIGHT_PWM":
		c.MotorRightPWM = value
	case "MOTOR_PWM_FREQ_HZ":
		c.MotorPWMFreqHz, err = parseInt(key, value, 1, 100000)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BALANCE":
		c.MQTTClientIDBalance = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_CSV":
		c.TopicCSV = value
	case "TOPIC_ENV":
		c.TopicEnv = value

	// Serial telemetry
	case "TELEMETRY_SERIAL_PORT":
		c.TelemetrySerialPort = value
	case "TELEMETRY_BAUD_RATE":
		c.TelemetryBaudRate, err = parseInt(key, value, 1, 4000000)

	// Telemetry timing
	case "DEBUG_INTERVAL_MS":
		c.DebugIntervalMS, err = parseInt(key, value, 1, 60000)
	case "CSV_INTERVAL_MS":
		c.CSVIntervalMS, err = parseInt(key, value, 1, 60000)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 60000)

	// Board environment
	case "BMP_SPI_DEVICE":
		c.BMPSPIDevice = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be finite, got %q", key, value)
	}
	return v, nil
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	// The Kalman filter is tuned for a fixed step; a mismatch with the
	// scheduler period silently detunes it.
	if math.Abs(c.ControlPeriod().Seconds()-c.FilterDT) > 1e-9 {
		return fmt.Errorf("FILTER_DT (%gs) must match CONTROL_PERIOD_MS (%dms)", c.FilterDT, c.ControlPeriodMS)
	}
	if c.RAngle <= 0 {
		return fmt.Errorf("R_ANGLE must be > 0, got %g", c.RAngle)
	}
	if c.QAngle < 0 || c.QGyro < 0 {
		return fmt.Errorf("Q_ANGLE and Q_GYRO must be >= 0")
	}
	if c.K1 < 0 || c.K1 > 1 {
		return fmt.Errorf("K1 must be within [0, 1], got %g", c.K1)
	}
	if c.FallAngleDeg <= 0 {
		return fmt.Errorf("FALL_ANGLE_DEG must be > 0, got %g", c.FallAngleDeg)
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// ControlPeriod returns the scheduler period.
func (c *Config) ControlPeriod() time.Duration {
	return time.Duration(c.ControlPeriodMS) * time.Millisecond
}

// CalInterval returns the spacing between calibration samples.
func (c *Config) CalInterval() time.Duration {
	return time.Duration(c.CalIntervalMS) * time.Millisecond
}

// GyroScale returns the gyroscope sensitivity in LSB per deg/s for the
// configured full scale range.
func (c *Config) GyroScale() float64 {
	return []float64{131.0, 65.5, 32.8, 16.4}[c.IMUGyroRange]
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
