// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/balance_controller/internal/balance"
	"github.com/relabs-tech/balance_controller/internal/calibration"
	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/control"
	"github.com/relabs-tech/balance_controller/internal/env"
	"github.com/relabs-tech/balance_controller/internal/imu"
	"github.com/relabs-tech/balance_controller/internal/motor"
	"github.com/relabs-tech/balance_controller/internal/orientation"
	"github.com/relabs-tech/balance_controller/internal/sensors"
	"github.com/relabs-tech/balance_controller/internal/telemetry"
)

// BalanceOptions selects hardware for RunBalance.
type BalanceOptions struct {
	Sim    bool // simulated IMU, no motors
	DryRun bool // real IMU, motors never energized
}

func filterParams(cfg *config.Config) orientation.Params {
	return orientation.Params{
		QAngle:    cfg.QAngle,
		QGyro:     cfg.QGyro,
		RAngle:    cfg.RAngle,
		C0:        cfg.C0,
		DT:        cfg.FilterDT,
		K1:        cfg.K1,
		GyroScale: cfg.GyroScale(),
	}
}

func controllerOptions(cfg *config.Config) balance.Options {
	return balance.Options{
		Period: cfg.ControlPeriod(),
		Filter: filterParams(cfg),
		Gains:  control.Gains{Kp: cfg.KP, Ki: cfg.KI, Kd: cfg.KD},
		Limits: control.Limits{MaxDuty: cfg.MaxDuty, FallAngle: cfg.FallAngleDeg},
	}
}

func calibrationOptions(cfg *config.Config) calibration.Options {
	return calibration.Options{Samples: cfg.CalSamples, Interval: cfg.CalInterval()}
}

func openReader(cfg *config.Config, sim bool) (imu.Reader, error) {
	if sim {
		log.Println("using simulated IMU source")
		return imu.NewSim(cfg.FilterDT, cfg.GyroScale()), nil
	}
	return sensors.NewMPU9250(cfg)
}

func logTrim(res calibration.Result) {
	log.Printf("calibration: trim offset %.3f° over %d samples (stddev %.3f°, min %.3f°, max %.3f°)",
		res.Offset, res.Samples, res.StdDev, res.Min, res.Max)
}

// RunBalance calibrates, arms the control loop and streams telemetry until
// SIGINT or SIGTERM, then stops the motors.
func RunBalance(opts BalanceOptions) error {
	log.Println("starting balance controller")
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := openReader(cfg, opts.Sim)
	if err != nil {
		return err
	}

	var driver motor.Driver
	if opts.Sim || opts.DryRun {
		log.Println("motors disabled, commands are logged only")
		driver = &motor.Dry{}
	} else {
		tb, err := motor.NewTB6612(cfg)
		if err != nil {
			return err
		}
		driver = tb
	}

	log.Printf("calibration: hold the robot upright, sampling %d readings every %v",
		cfg.CalSamples, cfg.CalInterval())
	trim, err := calibration.Trim(ctx, reader, calibrationOptions(cfg))
	if err != nil {
		return err
	}
	logTrim(trim)

	ctrl := balance.New(controllerOptions(cfg), trim, reader, driver)

	sinks, mqttSink := openSinks(cfg)
	emitter := &telemetry.Emitter{
		Source:        ctrl.Snapshot,
		Sinks:         sinks,
		DebugInterval: time.Duration(cfg.DebugIntervalMS) * time.Millisecond,
		CSVInterval:   time.Duration(cfg.CSVIntervalMS) * time.Millisecond,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return emitter.Run(gctx) })

	if cfg.BMPSPIDevice != "" && mqttSink != nil {
		board, err := sensors.NewBoardEnv(cfg.BMPSPIDevice)
		if err != nil {
			log.Printf("WARNING: board environment sensor unavailable: %v", err)
		} else {
			defer board.Close()
			g.Go(func() error { return publishEnv(gctx, board.Read, mqttSink, time.Second) })
		}
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Println("balance controller shut down")
		return nil
	}
	return err
}

// openSinks connects the telemetry outputs that are configured. A sink that
// cannot be opened is skipped: telemetry never prevents balancing.
func openSinks(cfg *config.Config) ([]telemetry.Sink, *telemetry.MQTTSink) {
	var sinks []telemetry.Sink

	if cfg.TelemetrySerialPort != "" {
		s, err := telemetry.OpenSerialSink(cfg.TelemetrySerialPort, uint(cfg.TelemetryBaudRate))
		if err != nil {
			log.Printf("WARNING: serial telemetry disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}

	var mqttSink *telemetry.MQTTSink
	client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBalance)
	if err != nil {
		log.Printf("WARNING: MQTT telemetry disabled: %v", err)
	} else {
		log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)
		mqttSink = telemetry.NewMQTTSink(client, cfg.TopicState, cfg.TopicCSV, cfg.TopicEnv)
		sinks = append(sinks, mqttSink)
	}
	return sinks, mqttSink
}

type envPublisher interface {
	PublishEnv(e env.Sample) error
}

func publishEnv(ctx context.Context, read func() (env.Sample, error), pub envPublisher, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s, err := read()
			if err != nil {
				log.Printf("env read error: %v", err)
				continue
			}
			if err := pub.PublishEnv(s); err != nil {
				log.Printf("env publish error: %v", err)
			}
		}
	}
}

// RunCalibrate measures and prints the trim offset without arming the
// motors.
func RunCalibrate(sim bool) (calibration.Result, error) {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := openReader(cfg, sim)
	if err != nil {
		return calibration.Result{}, err
	}

	res, err := calibration.Trim(ctx, reader, calibrationOptions(cfg))
	if err != nil {
		return calibration.Result{}, fmt.Errorf("trim measurement: %w", err)
	}
	logTrim(res)
	return res, nil
}
