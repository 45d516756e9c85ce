// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/balance_controller/internal/balance"
)

func sampleSnapshot() balance.Snapshot {
	return balance.Snapshot{
		Cycle:      42,
		Angle:      1.234,
		AngleSpeed: -0.5,
		GyroRate:   3.333,
		Output:     41,
		Left:       -41,
		Right:      -41,
	}
}

func TestFormatDebug(t *testing.T) {
	assert.Equal(t, "angle=1.23 speed=-0.50 pwm=41", FormatDebug(sampleSnapshot()))
}

func TestFormatCSV(t *testing.T) {
	assert.Equal(t, "1.23,-0.50,3.33,41,-41,-41", FormatCSV(sampleSnapshot()))
}

func TestFormatDivergedOutput(t *testing.T) {
	snap := balance.Snapshot{Angle: math.NaN(), Output: math.NaN()}
	assert.Equal(t, "angle=NaN speed=0.00 pwm=NaN", FormatDebug(snap))

	snap.Output = math.Inf(-1)
	assert.Equal(t, "NaN,0.00,0.00,-Inf,0,0", FormatCSV(snap))
}

func TestParseCSVAcceptsFloatDuties(t *testing.T) {
	rec, err := ParseCSV("1.00,2.00,3.00,68,-68.00,-68.00")
	require.NoError(t, err)
	v, ok := rec.Get(ColPWM1)
	assert.True(t, ok)
	assert.InDelta(t, -68.0, v, 1e-9)
}

func TestParseCSVRoundTripsFormat(t *testing.T) {
	rec, err := ParseCSV(FormatCSV(sampleSnapshot()))
	require.NoError(t, err)

	for i := 0; i < NumColumns; i++ {
		assert.True(t, rec.Has[i], "column %d", i)
	}
	v, _ := rec.Get(ColAngle)
	assert.InDelta(t, 1.23, v, 1e-9)
	v, _ = rec.Get(ColPWM2)
	assert.InDelta(t, -41.0, v, 1e-9)
}

func TestParseCSVPrefixAndWhitespace(t *testing.T) {
	rec, err := ParseCSV("  t: -0.01 , 0.36,6.02,2.00,2.00\r\n")
	require.NoError(t, err)

	v, ok := rec.Get(ColAngle)
	assert.True(t, ok)
	assert.InDelta(t, -0.01, v, 1e-12)
	v, ok = rec.Get(ColPWM1)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-12)

	_, ok = rec.Get(ColPWM2)
	assert.False(t, ok, "missing trailing column is absent")
}

func TestParseCSVBadFieldIsAbsent(t *testing.T) {
	rec, err := ParseCSV("1.0,nan-ish,3")
	require.NoError(t, err)
	assert.True(t, rec.Has[ColAngle])
	assert.False(t, rec.Has[ColAngleSpeed])
	assert.True(t, rec.Has[ColGyroRate])
}

func TestParseCSVTooShort(t *testing.T) {
	_, err := ParseCSV("T:1.0,2.0")
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestRecordGetOutOfRange(t *testing.T) {
	_, ok := Record{}.Get(NumColumns)
	assert.False(t, ok)
	_, ok = Record{}.Get(-1)
	assert.False(t, ok)
}

func TestRecordString(t *testing.T) {
	rec, err := ParseCSV("1,2,3")
	require.NoError(t, err)
	assert.Equal(t, "angle=1.00 angle_speed=2.00 gyro_rate=3.00 output=- pwm1=- pwm2=-", rec.String())
}

func TestIsCSV(t *testing.T) {
	assert.True(t, IsCSV("T:1,2,3"))
	assert.True(t, IsCSV("1.00,2.00,3.00,4.00,5,6"))
	assert.False(t, IsCSV("angle=1.00 speed=2.00 pwm=3"))
	assert.False(t, IsCSV("hello"))
}

func TestParseKeyValues(t *testing.T) {
	kv := ParseKeyValues("angle=1.25 Speed = -3.0 pwm=12 ANGLE=2")
	assert.Equal(t, map[string]string{
		"angle": "1.25,2",
		"speed": "-3.0",
		"pwm":   "12",
	}, kv)
}

func TestParseKeyValuesEmpty(t *testing.T) {
	assert.Empty(t, ParseKeyValues("booting..."))
}
