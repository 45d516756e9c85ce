// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/control"
)

// Driver actuates a motor command on the hardware.
type Driver interface {
	Drive(cmd control.Command) error
	Stop() error
}

// Wheel is one TB6612 channel: two direction inputs and a PWM input.
type Wheel struct {
	Name string
	IN1  gpio.PinOut
	IN2  gpio.PinOut
	PWM  gpio.PinOut
	Freq physic.Frequency
}

// Set applies a signed duty cycle in [-255, 255]. Direction pins are
// always written before the PWM magnitude so the bridge never sees the
// new magnitude with the old direction.
func (w *Wheel) Set(duty int) error {
	forward, mag := control.Magnitude(duty)

	in1, in2 := gpio.Low, gpio.High
	if !forward {
		in1, in2 = gpio.High, gpio.Low
	}
	if err := w.IN1.Out(in1); err != nil {
		return fmt.Errorf("%s wheel IN1: %w", w.Name, err)
	}
	if err := w.IN2.Out(in2); err != nil {
		return fmt.Errorf("%s wheel IN2: %w", w.Name, err)
	}
	if err := w.PWM.PWM(DutyFor(mag), w.Freq); err != nil {
		return fmt.Errorf("%s wheel PWM: %w", w.Name, err)
	}
	return nil
}

// DutyFor scales an 8-bit magnitude to the periph duty range.
func DutyFor(mag uint8) gpio.Duty {
	return gpio.Duty(int64(mag) * int64(gpio.DutyMax) / 255)
}

// TB6612 drives two wheels through a TB6612FNG dual H-bridge.
type TB6612 struct {
	Left  *Wheel
	Right *Wheel
}

// NewTB6612 resolves the configured pins through periph.
func NewTB6612(cfg *config.Config) (*TB6612, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("motor: periph host init: %w", err)
	}

	freq := physic.Frequency(cfg.MotorPWMFreqHz) * physic.Hertz
	left, err := newWheel("left", cfg.MotorLeftIN1, cfg.MotorLeftIN2, cfg.MotorLeftPWM, freq)
	if err != nil {
		return nil, err
	}
	right, err := newWheel("right", cfg.MotorRightIN1, cfg.MotorRightIN2, cfg.MotorRightPWM, freq)
	if err != nil {
		return nil, err
	}

	d := &TB6612{Left: left, Right: right}
	if err := d.Stop(); err != nil {
		return nil, fmt.Errorf("motor: initial stop: %w", err)
	}
	log.Printf("motor: TB6612 ready (left %s/%s/%s, right %s/%s/%s, %d Hz)",
		cfg.MotorLeftIN1, cfg.MotorLeftIN2, cfg.MotorLeftPWM,
		cfg.MotorRightIN1, cfg.MotorRightIN2, cfg.MotorRightPWM, cfg.MotorPWMFreqHz)
	return d, nil
}

func newWheel(name, in1, in2, pwm string, freq physic.Frequency) (*Wheel, error) {
	w := &Wheel{Name: name, Freq: freq}
	for _, p := range []struct {
		dst  *gpio.PinOut
		name string
	}{{&w.IN1, in1}, {&w.IN2, in2}, {&w.PWM, pwm}} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, fmt.Errorf("motor: %s wheel pin %q not found", name, p.name)
		}
		*p.dst = pin
	}
	return w, nil
}

// Drive writes the left wheel, then the right wheel.
func (d *TB6612) Drive(cmd control.Command) error {
	errL := d.Left.Set(cmd.Left)
	errR := d.Right.Set(cmd.Right)
	if errL != nil || errR != nil {
		return errors.Join(errL, errR)
	}
	return nil
}

// Stop zeroes both wheels.
func (d *TB6612) Stop() error {
	return d.Drive(control.Command{})
}

// Dry is a Driver with no hardware behind it. It remembers the last
// command and logs when the fall cutoff engages or releases.
type Dry struct {
	mu     sync.Mutex
	last   control.Command
	drives int
}

// Drive implements Driver.
func (d *Dry) Drive(cmd control.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cmd.Cutoff != d.last.Cutoff {
		if cmd.Cutoff {
			log.Println("motor: fall cutoff engaged")
		} else {
			log.Println("motor: fall cutoff released")
		}
	}
	d.last = cmd
	d.drives++
	return nil
}

// Stop implements Driver.
func (d *Dry) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = control.Command{}
	return nil
}

// Last returns the most recent command and how many were driven.
func (d *Dry) Last() (control.Command, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.drives
}
