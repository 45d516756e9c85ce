// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import "math"

// Gains holds the controller gains. Ki is accepted for configuration
// symmetry, but the controller keeps no integral so it never contributes.
type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// DefaultGains returns the reference tuning.
func DefaultGains() Gains {
	return Gains{Kp: 34, Ki: 0, Kd: 0.62}
}

// PD maps the estimated tilt and tilt rate to a signed drive command.
// It is a pure function of its inputs.
type PD struct {
	Gains Gains
	Trim  float64 // zero-tilt offset from calibration, degrees
}

// Output returns Kp*(angle+Trim) + Kd*angleSpeed, truncated toward zero to
// whole duty-cycle steps. Positive output means forward tilt past vertical.
func (c PD) Output(angle, angleSpeed float64) float64 {
	const integral = 0.0
	u := c.Gains.Kp*(angle+c.Trim) + c.Gains.Ki*integral + c.Gains.Kd*angleSpeed
	return math.Trunc(u)
}
