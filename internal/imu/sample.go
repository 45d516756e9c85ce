// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Sample is a single raw 6-axis reading in sensor-native units.
type Sample struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Reader is anything that can deliver raw samples on demand.
// Implementations block until a sample is available.
type Reader interface {
	ReadRaw() (Sample, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func() (Sample, error)

// ReadRaw calls f.
func (f ReaderFunc) ReadRaw() (Sample, error) { return f() }
