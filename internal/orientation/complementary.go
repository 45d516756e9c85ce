// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// Complementary is a first-order blend of an accelerometer tilt and the
// integrated gyro rate.
type Complementary struct {
	K     float64
	Angle float64
}

// Update blends angleM (deg) with rate (deg/s) integrated over dt.
func (c *Complementary) Update(angleM, rate, dt float64) float64 {
	c.Angle = c.K*angleM + (1-c.K)*(c.Angle+rate*dt)
	return c.Angle
}
