// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeLevel(t *testing.T) {
	s := Synthesize(0, 0, 131)
	assert.Equal(t, Sample{Az: OneG}, s)
}

func TestSynthesizeTiltRoundTrip(t *testing.T) {
	s := Synthesize(10, 20, 131)

	pitch := -math.Atan2(float64(s.Ay), float64(s.Az)) * 180 / math.Pi
	rate := -float64(s.Gx) / 131
	assert.InDelta(t, 10.0, pitch, 0.01)
	assert.InDelta(t, 20.0, rate, 0.01)
}

func TestSynthesizeSaturates(t *testing.T) {
	s := Synthesize(0, -1000, 131)
	assert.Equal(t, int16(math.MaxInt16), s.Gx)
}

func TestSimIsDeterministic(t *testing.T) {
	a := NewSim(0.005, 131)
	b := NewSim(0.005, 131)
	for i := 0; i < 50; i++ {
		sa, err := a.ReadRaw()
		require.NoError(t, err)
		sb, err := b.ReadRaw()
		require.NoError(t, err)
		require.Equal(t, sa, sb)
	}
}

func TestReaderFunc(t *testing.T) {
	var r Reader = ReaderFunc(func() (Sample, error) { return Sample{Ax: 7}, nil })
	s, err := r.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, int16(7), s.Ax)
}
