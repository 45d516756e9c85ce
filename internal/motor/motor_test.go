// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/balance_controller/internal/control"
)

// recPin records every write in a shared journal so ordering across pins
// can be asserted.
type recPin struct {
	gpiotest.Pin
	journal *[]string
	fail    error
}

func (p *recPin) Out(l gpio.Level) error {
	if p.fail != nil {
		return p.fail
	}
	*p.journal = append(*p.journal, p.N+"="+l.String())
	return p.Pin.Out(l)
}

func (p *recPin) PWM(d gpio.Duty, f physic.Frequency) error {
	if p.fail != nil {
		return p.fail
	}
	*p.journal = append(*p.journal, p.N+"=pwm")
	return p.Pin.PWM(d, f)
}

func newTestWheel(name string, journal *[]string) (*Wheel, *recPin, *recPin, *recPin) {
	in1 := &recPin{Pin: gpiotest.Pin{N: name + "1"}, journal: journal}
	in2 := &recPin{Pin: gpiotest.Pin{N: name + "2"}, journal: journal}
	pwm := &recPin{Pin: gpiotest.Pin{N: name + "P"}, journal: journal}
	return &Wheel{Name: name, IN1: in1, IN2: in2, PWM: pwm, Freq: 490 * physic.Hertz}, in1, in2, pwm
}

func TestWheelForward(t *testing.T) {
	var journal []string
	w, in1, in2, pwm := newTestWheel("L", &journal)

	require.NoError(t, w.Set(128))
	assert.Equal(t, gpio.Low, in1.L)
	assert.Equal(t, gpio.High, in2.L)
	assert.Equal(t, DutyFor(128), pwm.D)
	assert.Equal(t, 490*physic.Hertz, pwm.F)
}

func TestWheelReverseUsesMagnitude(t *testing.T) {
	var journal []string
	w, in1, in2, pwm := newTestWheel("L", &journal)

	require.NoError(t, w.Set(-255))
	assert.Equal(t, gpio.High, in1.L)
	assert.Equal(t, gpio.Low, in2.L)
	assert.Equal(t, gpio.DutyMax, pwm.D)
}

func TestWheelZeroIsForwardAndIdle(t *testing.T) {
	var journal []string
	w, in1, in2, pwm := newTestWheel("L", &journal)

	require.NoError(t, w.Set(0))
	assert.Equal(t, gpio.Low, in1.L)
	assert.Equal(t, gpio.High, in2.L)
	assert.Equal(t, gpio.Duty(0), pwm.D)
}

func TestDirectionIsWrittenBeforeMagnitude(t *testing.T) {
	var journal []string
	left, _, _, _ := newTestWheel("L", &journal)
	right, _, _, _ := newTestWheel("R", &journal)
	d := &TB6612{Left: left, Right: right}

	require.NoError(t, d.Drive(control.Command{Left: -40, Right: -40}))
	assert.Equal(t, []string{
		"L1=High", "L2=Low", "LP=pwm",
		"R1=High", "R2=Low", "RP=pwm",
	}, journal)
}

func TestDriveReportsBothWheelErrors(t *testing.T) {
	var journal []string
	left, in1, _, _ := newTestWheel("L", &journal)
	right, _, _, rpwm := newTestWheel("R", &journal)
	in1.fail = errors.New("left broken")
	rpwm.fail = errors.New("right broken")
	d := &TB6612{Left: left, Right: right}

	err := d.Drive(control.Command{Left: 10, Right: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, in1.fail)
	assert.ErrorIs(t, err, rpwm.fail)
}

func TestStopZeroesBothWheels(t *testing.T) {
	var journal []string
	left, _, _, lpwm := newTestWheel("L", &journal)
	right, _, _, rpwm := newTestWheel("R", &journal)
	d := &TB6612{Left: left, Right: right}

	require.NoError(t, d.Drive(control.Command{Left: 200, Right: 200}))
	require.NoError(t, d.Stop())
	assert.Equal(t, gpio.Duty(0), lpwm.D)
	assert.Equal(t, gpio.Duty(0), rpwm.D)
}

func TestDutyForScale(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), DutyFor(0))
	assert.Equal(t, gpio.DutyMax, DutyFor(255))
	assert.InDelta(t, float64(gpio.DutyHalf), float64(DutyFor(128)), float64(gpio.DutyMax)/255)
}

func TestDryDriver(t *testing.T) {
	d := &Dry{}
	require.NoError(t, d.Drive(control.Command{Left: 5, Right: 5}))
	require.NoError(t, d.Drive(control.Command{Cutoff: true}))

	last, n := d.Last()
	assert.True(t, last.Cutoff)
	assert.Equal(t, 2, n)

	require.NoError(t, d.Stop())
	last, _ = d.Last()
	assert.Equal(t, control.Command{}, last)
}
