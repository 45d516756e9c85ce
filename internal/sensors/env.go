// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_controller/internal/env"
)

// envSensor is the part of *bmxx80.Dev the board environment reader needs.
type envSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// BoardEnv reads the optional BMP280 on the controller board.
type BoardEnv struct {
	dev envSensor
	now func() time.Time
}

// NewBoardEnv opens the BMP280 on spiDev.
func NewBoardEnv(spiDev string) (*BoardEnv, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("BMP SPI open (%s): %w", spiDev, err)
	}

	dev, err := bmxx80.NewSPI(bus, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("BMP init: %w", err)
	}

	log.Printf("BMP sensor initialized on %s", spiDev)
	return &BoardEnv{dev: dev, now: time.Now}, nil
}

// Read takes one temperature and pressure measurement.
func (b *BoardEnv) Read() (env.Sample, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("BMP sense: %w", err)
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return env.Sample{
		Time:         b.now(),
		Temperature:  e.Temperature.Celsius(),
		Pressure:     pressurePa,
		PressureMbar: pressurePa / 100.0, // 1 mbar = 100 Pa
	}, nil
}

// Close halts the sensor.
func (b *BoardEnv) Close() error {
	return b.dev.Halt()
}
