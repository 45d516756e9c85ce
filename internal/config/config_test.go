// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesReferenceTuning(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, cfg.ControlPeriod())
	assert.InDelta(t, 0.005, cfg.FilterDT, 1e-12)
	assert.InDelta(t, 0.001, cfg.QAngle, 1e-12)
	assert.InDelta(t, 0.003, cfg.QGyro, 1e-12)
	assert.InDelta(t, 0.5, cfg.RAngle, 1e-12)
	assert.InDelta(t, 34.0, cfg.KP, 1e-12)
	assert.InDelta(t, 0.62, cfg.KD, 1e-12)
	assert.Equal(t, 255, cfg.MaxDuty)
	assert.Equal(t, 400, cfg.CalSamples)
	assert.Equal(t, 5*time.Millisecond, cfg.CalInterval())
	assert.InDelta(t, 131.0, cfg.GyroScale(), 1e-12)
}

func TestParseOverrides(t *testing.T) {
	input := `
# tuning
KP = 40
KD=0.8
CONTROL_PERIOD_MS=10
FILTER_DT=0.01
IMU_GYRO_RANGE=1
DISPLAY_I2C_BUS=/dev/i2c-3
TELEMETRY_SERIAL_PORT=/dev/ttyAMA0
`
	cfg, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.InDelta(t, 40.0, cfg.KP, 1e-12)
	assert.InDelta(t, 0.8, cfg.KD, 1e-12)
	assert.Equal(t, 10*time.Millisecond, cfg.ControlPeriod())
	assert.InDelta(t, 65.5, cfg.GyroScale(), 1e-12)
	assert.Equal(t, "/dev/i2c-3", cfg.DisplayI2CBus)
	assert.Equal(t, "/dev/ttyAMA0", cfg.TelemetrySerialPort)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"malformed line":      "KP 34",
		"unknown key":         "SPEED=3",
		"display address":     "DISPLAY_I2C_ADDR=0x3D",
		"bad float":           "KP=abc",
		"gyro range":          "IMU_GYRO_RANGE=4",
		"dt mismatch":         "FILTER_DT=0.01",
		"non positive R":      "R_ANGLE=0",
		"blend out of range":  "K1=1.5",
		"duty out of range":   "MAX_DUTY=300",
		"infinite parameter":  "Q_GYRO=Inf",
		"missing mqtt broker": "MQTT_BROKER=",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("KP=30\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, cfg.KP, 1e-12)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "balance_config.txt"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
