// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration measures the zero-tilt trim offset of the robot
// while it is held at its balance point.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/balance_controller/internal/imu"
	"github.com/relabs-tech/balance_controller/internal/orientation"
)

// Options configures a trim measurement.
type Options struct {
	Samples  int
	Interval time.Duration

	// Sleep waits between samples. Nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns 400 samples at 5 ms spacing (about 2 s).
func DefaultOptions() Options {
	return Options{Samples: 400, Interval: 5 * time.Millisecond}
}

// Result is the outcome of a trim measurement. Offset is a straight
// arithmetic mean; the other fields are informational only.
type Result struct {
	Offset  float64 `json:"offset"` // degrees
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Trim samples the accelerometer pitch opts.Samples times and averages
// the readings. No gyro bias is estimated and no sample is rejected. A
// read error aborts the measurement.
func Trim(ctx context.Context, r imu.Reader, opts Options) (Result, error) {
	if opts.Samples <= 0 {
		return Result{}, errors.New("calibration: sample count must be positive")
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	angles := make([]float64, 0, opts.Samples)
	for i := 0; i < opts.Samples; i++ {
		s, err := r.ReadRaw()
		if err != nil {
			return Result{}, fmt.Errorf("calibration: sample %d: %w", i, err)
		}
		angles = append(angles, orientation.AccelPitch(s))

		if err := sleep(ctx, opts.Interval); err != nil {
			return Result{}, fmt.Errorf("calibration: interrupted after %d samples: %w", i+1, err)
		}
	}

	res := Result{
		Offset:  floats.Sum(angles) / float64(len(angles)),
		Min:     floats.Min(angles),
		Max:     floats.Max(angles),
		Samples: len(angles),
	}
	if len(angles) > 1 {
		res.StdDev = stat.StdDev(angles, nil)
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
