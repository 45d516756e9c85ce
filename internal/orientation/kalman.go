// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// Params is the fixed filter configuration. It is set once at startup.
type Params struct {
	QAngle    float64 // process noise variance, angle
	QGyro     float64 // process noise variance, gyro bias
	RAngle    float64 // measurement noise variance
	C0        float64 // observation coefficient, nominally 1
	DT        float64 // integration step, seconds
	K1        float64 // complementary filter blend constant
	GyroScale float64 // gyro LSB per deg/s
}

// DefaultParams returns the reference tuning for a 200 Hz loop with the
// gyro at ±250°/s.
func DefaultParams() Params {
	return Params{
		QAngle:    0.001,
		QGyro:     0.003,
		RAngle:    0.5,
		C0:        1,
		DT:        0.005,
		K1:        0.05,
		GyroScale: 131.0,
	}
}

// State is the persistent state of the primary-axis filter.
type State struct {
	Angle      float64 // degrees
	AngleSpeed float64 // bias-corrected rate, deg/s
	GyroBias   float64 // deg/s
	P          Mat2    // error covariance
}

// Kalman is a two-state (tilt angle, gyro bias) filter. The covariance is
// propagated by forward-Euler integration of its continuous derivative,
// not through a discretized transition matrix.
type Kalman struct {
	p     Params
	state State
	gain  Vec2
}

// NewKalman returns a filter at rest with P = I.
func NewKalman(p Params) *Kalman {
	return &Kalman{
		p:     p,
		state: State{P: Identity2()},
	}
}

// Update runs one predict/correct step with an accelerometer tilt
// measurement angleM (deg) and a gyro rate (deg/s).
func (k *Kalman) Update(angleM, gyroRate float64) {
	s := &k.state
	dt := k.p.DT

	s.Angle += (gyroRate - s.GyroBias) * dt
	angleErr := angleM - s.Angle

	pdot := Mat2{
		{k.p.QAngle - s.P[0][1] - s.P[1][0], -s.P[1][1]},
		{-s.P[1][1], k.p.QGyro},
	}
	s.P = s.P.Add(pdot.Scale(dt))

	pct := Vec2{k.p.C0 * s.P[0][0], k.p.C0 * s.P[1][0]}
	e := k.p.RAngle + k.p.C0*pct[0]
	k.gain = Vec2{pct[0] / e, pct[1] / e}

	t := Vec2{pct[0], k.p.C0 * s.P[0][1]}
	s.P = s.P.Sub(Outer(k.gain, t))

	s.GyroBias += k.gain[1] * angleErr
	s.AngleSpeed = gyroRate - s.GyroBias
	s.Angle += k.gain[0] * angleErr
}

// State returns a copy of the filter state.
func (k *Kalman) State() State {
	return k.state
}

// Gains returns the Kalman gains (K_0 for angle, K_1 for bias) computed by
// the last Update.
func (k *Kalman) Gains() Vec2 {
	return k.gain
}
