// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package balance runs the estimate, control and drive cycle at a fixed
// period.
package balance

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/balance_controller/internal/calibration"
	"github.com/relabs-tech/balance_controller/internal/control"
	"github.com/relabs-tech/balance_controller/internal/imu"
	"github.com/relabs-tech/balance_controller/internal/motor"
	"github.com/relabs-tech/balance_controller/internal/orientation"
)

// Options configures a Controller.
type Options struct {
	Period time.Duration
	Filter orientation.Params
	Gains  control.Gains
	Limits control.Limits
}

// Controller owns the estimator, the PD law and the motor driver. Only the
// goroutine running Run (or a test calling Step) mutates it; everybody else
// reads Snapshot.
type Controller struct {
	period    time.Duration
	reader    imu.Reader
	driver    motor.Driver
	estimator *orientation.Estimator
	pd        control.PD
	limits    control.Limits
	now       func() time.Time

	state Snapshot // written only by the cycle

	mu        sync.RWMutex
	published Snapshot

	lastDriveLog   time.Time
	lastFaultLog   time.Time
	lastOverrunLog time.Time
}

// New builds a controller. It takes the calibration result by value so a
// controller cannot exist before the trim offset has been measured.
func New(opts Options, trim calibration.Result, r imu.Reader, d motor.Driver) *Controller {
	c := &Controller{
		period:    opts.Period,
		reader:    r,
		driver:    d,
		estimator: orientation.NewEstimator(opts.Filter),
		pd:        control.PD{Gains: opts.Gains, Trim: trim.Offset},
		limits:    opts.Limits,
		now:       time.Now,
	}
	c.state.Trim = trim.Offset
	c.published = c.state
	return c
}

// Cycle reads one sample and runs Step on it. A failed read holds both
// motors at zero until a good sample arrives; the estimator is left
// untouched.
func (c *Controller) Cycle() Snapshot {
	s, err := c.reader.ReadRaw()
	if err != nil {
		c.state.Faults++
		if c.now().Sub(c.lastFaultLog) >= time.Second {
			c.lastFaultLog = c.now()
			log.Printf("balance: IMU read failed, motors held at zero: %v", err)
		}
		c.state.Fault = true
		c.state.Output = 0
		c.state.Left, c.state.Right, c.state.Cutoff = 0, 0, false
		c.drive(control.Command{})
		c.publish()
		return c.state
	}
	return c.Step(s)
}

// Step runs estimate, control and drive on one sample.
func (c *Controller) Step(s imu.Sample) Snapshot {
	angle, speed := c.estimator.Update(s)
	out := c.pd.Output(angle, speed)
	cmd := control.MapCommand(out, angle, c.limits)
	c.drive(cmd)

	r := c.estimator.Last()
	st := &c.state
	st.Angle = angle
	st.AngleSpeed = speed
	st.GyroBias = r.GyroBias
	st.GyroRate = r.GyroRate
	st.AccelAngle = r.AccelAngle
	st.AngleY = r.AngleY
	st.Output = out
	st.Left, st.Right, st.Cutoff = cmd.Left, cmd.Right, cmd.Cutoff
	st.Fault = false

	c.publish()
	return c.state
}

func (c *Controller) drive(cmd control.Command) {
	if err := c.driver.Drive(cmd); err != nil {
		c.state.DriveErrors++
		if c.now().Sub(c.lastDriveLog) >= time.Second {
			c.lastDriveLog = c.now()
			log.Printf("balance: motor drive error: %v", err)
		}
	}
}

func (c *Controller) publish() {
	c.state.Cycle++
	c.state.Time = c.now()

	c.mu.Lock()
	c.published = c.state
	c.mu.Unlock()
}

// Snapshot returns a copy of the state published by the last cycle.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}

// Run cycles at the configured period until ctx is done, then stops the
// motors. All cycles run on the calling goroutine, so a cycle never starts
// before the previous one returned. Ticks missed while a cycle overran are
// dropped and counted.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	log.Printf("balance: control loop armed (period %v, trim %.2f°)", c.period, c.pd.Trim)

	last := c.now()
	for {
		select {
		case <-ctx.Done():
			if err := c.driver.Stop(); err != nil {
				log.Printf("balance: stop motors: %v", err)
			}
			log.Printf("balance: control loop stopped after %d cycles", c.state.Cycle)
			return ctx.Err()
		case t := <-ticker.C:
			if gap := t.Sub(last); gap >= 2*c.period {
				c.state.Overruns += uint64(gap/c.period) - 1
				if c.now().Sub(c.lastOverrunLog) >= time.Second {
					c.lastOverrunLog = c.now()
					log.Printf("balance: cycle overran its period, %d ticks dropped so far", c.state.Overruns)
				}
			}
			last = t
			c.Cycle()
		}
	}
}
