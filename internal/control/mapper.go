// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import "math"

// Limits bounds the motor command.
type Limits struct {
	MaxDuty   int     // largest duty-cycle magnitude, 255 for 8-bit PWM
	FallAngle float64 // tilt beyond which the robot is considered fallen, degrees
}

// DefaultLimits returns the 8-bit PWM range and an 80° fall cutoff.
func DefaultLimits() Limits {
	return Limits{MaxDuty: 255, FallAngle: 80}
}

// Command is a signed duty cycle per wheel.
type Command struct {
	Left   int  `json:"pwm_left"`
	Right  int  `json:"pwm_right"`
	Cutoff bool `json:"cutoff"`
}

// MapCommand mirrors the negated control output to both wheels, clamps it
// to ±MaxDuty and zeroes it while |angle| exceeds FallAngle.
//
// The cutoff keeps no state: once the angle is back within range the next
// call drives again. There is no hysteresis band, so a robot hovering at
// the limit can toggle between driving and stopped on consecutive cycles.
func MapCommand(output, angle float64, l Limits) Command {
	duty := clamp(-output, float64(l.MaxDuty))

	if angle > l.FallAngle || angle < -l.FallAngle {
		return Command{Cutoff: true}
	}

	d := int(duty)
	return Command{Left: d, Right: d}
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// Magnitude splits a signed duty into a forward flag and an unsigned
// magnitude. Zero counts as forward.
func Magnitude(duty int) (forward bool, mag uint8) {
	if duty >= 0 {
		return true, uint8(min(duty, math.MaxUint8))
	}
	return false, uint8(min(-duty, math.MaxUint8))
}
