// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_controller/internal/balance"
	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/telemetry"
)

// screen is the part of *ssd1306.Dev the renderer draws on.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

func drawLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// renderState lays out the balance state on a 128x64 screen.
func renderState(s balance.Snapshot, have bool) *image1bit.VerticalLSB {
	if !have {
		return drawLines("", "Balance", "Waiting...")
	}

	status := "BALANCING"
	switch {
	case s.Fault:
		status = "IMU FAULT"
	case s.Cutoff:
		status = "FALLEN"
	}
	return drawLines(
		fmt.Sprintf("A: %6.2f", s.Angle),
		fmt.Sprintf("W: %6.1f", s.AngleSpeed),
		fmt.Sprintf("PWM:%4d %4d", s.Left, s.Right),
		status,
	)
}

func showSplash(dev screen) error {
	img := drawLines("", " Balance Bot", "  calibrating")
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// RunDisplay shows the controller state on the SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on %s at 0x3C", bus)

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	state := &latestState{}
	if err := subscribeState(client, "display", cfg.TopicState, state); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		if err := updateDisplay(dev, state); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

func updateDisplay(dev screen, state *latestState) error {
	snap, have := state.get()
	return dev.Draw(dev.Bounds(), renderState(snap, have), image.Point{})
}
