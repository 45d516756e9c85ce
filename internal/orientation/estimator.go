// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/relabs-tech/balance_controller/internal/imu"
)

// Reading is everything one Estimator update produced.
type Reading struct {
	Angle      float64 // filtered pitch, degrees
	AngleSpeed float64 // bias-corrected pitch rate, deg/s
	GyroBias   float64 // deg/s
	GyroRate   float64 // raw pitch rate, deg/s
	AccelAngle float64 // accelerometer pitch, degrees
	AngleY     float64 // secondary axis, diagnostics only
}

// Estimator turns raw samples into a pitch estimate. The Kalman filter
// tracks the primary axis; the complementary filter tracks a secondary
// axis that is never fed to the controller.
type Estimator struct {
	params    Params
	kalman    *Kalman
	secondary Complementary
	last      Reading
}

// NewEstimator creates an estimator at rest.
func NewEstimator(p Params) *Estimator {
	return &Estimator{
		params:    p,
		kalman:    NewKalman(p),
		secondary: Complementary{K: p.K1},
	}
}

// Update consumes one sample. It assumes it is called exactly every
// Params.DT seconds.
func (e *Estimator) Update(s imu.Sample) (angle, angleSpeed float64) {
	angleM := AccelPitch(s)
	rateX, rateY := GyroRates(s, e.params.GyroScale)
	e.kalman.Update(angleM, rateX)

	angleY := e.secondary.Update(AccelRoll(s), rateY, e.params.DT)

	st := e.kalman.State()
	e.last = Reading{
		Angle:      st.Angle,
		AngleSpeed: st.AngleSpeed,
		GyroBias:   st.GyroBias,
		GyroRate:   rateX,
		AccelAngle: angleM,
		AngleY:     angleY,
	}
	return st.Angle, st.AngleSpeed
}

// Last returns the result of the most recent Update.
func (e *Estimator) Last() Reading {
	return e.last
}

// Kalman exposes the primary-axis filter for inspection.
func (e *Estimator) Kalman() *Kalman {
	return e.kalman
}
