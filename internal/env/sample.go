// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "time"

// Sample is one board environment reading (BMP280). Diagnostics only.
type Sample struct {
	Time time.Time `json:"time"`

	Temperature  float64 `json:"temp_c"`        // °C
	Pressure     float64 `json:"pressure_pa"`   // Pa
	PressureMbar float64 `json:"pressure_mbar"` // mbar
}
