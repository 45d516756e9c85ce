// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/balance_controller/internal/imu"
)

const radToDeg = 180.0 / math.Pi

// AccelPitch returns the primary-axis tilt measured by the accelerometer,
// in degrees: -atan2(ay, az). Raw units cancel out, only ratios matter.
func AccelPitch(s imu.Sample) float64 {
	return -math.Atan2(float64(s.Ay), float64(s.Az)) * radToDeg
}

// AccelRoll returns the secondary-axis tilt measured by the accelerometer,
// in degrees: -atan2(ax, az).
func AccelRoll(s imu.Sample) float64 {
	return -math.Atan2(float64(s.Ax), float64(s.Az)) * radToDeg
}

// GyroRates converts raw gyro x/y readings into deg/s, sign-inverted to
// match the accelerometer convention.
func GyroRates(s imu.Sample, gyroScale float64) (x, y float64) {
	return -float64(s.Gx) / gyroScale, -float64(s.Gy) / gyroScale
}
