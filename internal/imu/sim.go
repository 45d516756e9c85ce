// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"math/rand"
)

// OneG is the accelerometer reading for 1 g at the ±2g range.
const OneG = 16384

// Synthesize builds the raw sample a sensor would report when tilted by
// pitchDeg about the x axis and rotating at rateDegS, with gyroScale in
// LSB per deg/s. The secondary axis is level and still.
func Synthesize(pitchDeg, rateDegS, gyroScale float64) Sample {
	rad := pitchDeg * math.Pi / 180.0
	return Sample{
		Ay: clamp16(-OneG * math.Sin(rad)),
		Az: clamp16(OneG * math.Cos(rad)),
		Gx: clamp16(-rateDegS * gyroScale),
	}
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Sim generates a smoothly swaying tilt with sensor noise and a constant
// gyro bias, one sample per call.
type Sim struct {
	DT        float64 // seconds per sample
	GyroScale float64 // LSB per deg/s
	Amplitude float64 // degrees
	Period    float64 // seconds
	BiasDegS  float64 // gyro bias, deg/s
	NoiseDeg  float64 // accelerometer tilt noise, degrees

	step int
	rnd  *rand.Rand
}

// NewSim creates a simulated source with a gentle ±3° sway.
func NewSim(dt, gyroScale float64) *Sim {
	return &Sim{
		DT:        dt,
		GyroScale: gyroScale,
		Amplitude: 3,
		Period:    4,
		BiasDegS:  1.5,
		NoiseDeg:  0.3,
		rnd:       rand.New(rand.NewSource(1)),
	}
}

// ReadRaw implements Reader.
func (s *Sim) ReadRaw() (Sample, error) {
	t := float64(s.step) * s.DT
	s.step++

	w := 2 * math.Pi / s.Period
	pitch := s.Amplitude * math.Sin(w*t)
	rate := s.Amplitude * w * math.Cos(w*t)

	noisy := pitch + s.rnd.NormFloat64()*s.NoiseDeg
	return Synthesize(noisy, rate+s.BiasDegS, s.GyroScale), nil
}
