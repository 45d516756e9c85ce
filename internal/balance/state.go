// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package balance

import (
	"encoding/json"
	"math"
	"time"
)

// Snapshot is a value copy of the controller state after one cycle. It is
// the only view of the control loop that other goroutines get.
type Snapshot struct {
	Time  time.Time `json:"time"`
	Cycle uint64    `json:"cycle"`

	Angle      float64 `json:"angle"`       // degrees
	AngleSpeed float64 `json:"angle_speed"` // deg/s
	GyroBias   float64 `json:"gyro_bias"`   // deg/s
	GyroRate   float64 `json:"gyro_rate"`   // deg/s
	AccelAngle float64 `json:"accel_angle"` // degrees
	AngleY     float64 `json:"angle_y"`     // secondary axis, degrees
	Trim       float64 `json:"trim"`        // degrees

	Output float64 `json:"output"`
	Left   int     `json:"pwm_left"`
	Right  int     `json:"pwm_right"`
	Cutoff bool    `json:"cutoff"`

	Fault       bool   `json:"fault"` // last IMU read failed, motors held at zero
	Faults      uint64 `json:"faults"`
	DriveErrors uint64 `json:"drive_errors"`
	Overruns    uint64 `json:"overruns"`
}

// MarshalJSON writes non-finite floats as null. A diverged filter keeps
// producing NaN and the state must still reach the dashboards.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		Angle      *float64 `json:"angle"`
		AngleSpeed *float64 `json:"angle_speed"`
		GyroBias   *float64 `json:"gyro_bias"`
		GyroRate   *float64 `json:"gyro_rate"`
		AccelAngle *float64 `json:"accel_angle"`
		AngleY     *float64 `json:"angle_y"`
		Trim       *float64 `json:"trim"`
		Output     *float64 `json:"output"`
	}{
		plain:      plain(s),
		Angle:      finite(s.Angle),
		AngleSpeed: finite(s.AngleSpeed),
		GyroBias:   finite(s.GyroBias),
		GyroRate:   finite(s.GyroRate),
		AccelAngle: finite(s.AccelAngle),
		AngleY:     finite(s.AngleY),
		Trim:       finite(s.Trim),
		Output:     finite(s.Output),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
