// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// Vec2 is a fixed-size 2-vector.
type Vec2 [2]float64

// Mat2 is a fixed-size row-major 2x2 matrix. Values are copied, never
// allocated, so the control cycle stays allocation-free.
type Mat2 [2][2]float64

// Identity2 returns the 2x2 identity.
func Identity2() Mat2 {
	return Mat2{{1, 0}, {0, 1}}
}

// Add returns m + o.
func (m Mat2) Add(o Mat2) Mat2 {
	return Mat2{
		{m[0][0] + o[0][0], m[0][1] + o[0][1]},
		{m[1][0] + o[1][0], m[1][1] + o[1][1]},
	}
}

// Sub returns m - o.
func (m Mat2) Sub(o Mat2) Mat2 {
	return Mat2{
		{m[0][0] - o[0][0], m[0][1] - o[0][1]},
		{m[1][0] - o[1][0], m[1][1] - o[1][1]},
	}
}

// Scale returns m * s.
func (m Mat2) Scale(s float64) Mat2 {
	return Mat2{
		{m[0][0] * s, m[0][1] * s},
		{m[1][0] * s, m[1][1] * s},
	}
}

// Outer returns the outer product a * bᵀ.
func Outer(a, b Vec2) Mat2 {
	return Mat2{
		{a[0] * b[0], a[0] * b[1]},
		{a[1] * b[0], a[1] * b[1]},
	}
}
