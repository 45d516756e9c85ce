// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/balance_controller/internal/balance"
	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/env"
	"github.com/relabs-tech/balance_controller/internal/telemetry"
)

func formatStateLine(s balance.Snapshot) string {
	status := "OK"
	switch {
	case s.Fault:
		status = "FAULT"
	case s.Cutoff:
		status = "FALLEN"
	}
	return fmt.Sprintf(
		"[BAL ] #%-8d ANGLE=%7.2f  SPEED=%8.2f  BIAS=%6.2f  OUT=%7.1f  PWM=%4d/%4d  %s",
		s.Cycle, s.Angle, s.AngleSpeed, s.GyroBias, s.Output, s.Left, s.Right, status,
	)
}

func formatEnvLine(e env.Sample) string {
	return fmt.Sprintf("[ENV ] T=%.1f°C  P=%.1f mbar", e.Temperature, e.PressureMbar)
}

// RunConsoleMQTT prints controller state and board environment from MQTT
// until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribe(client, "console", cfg.TopicState, func(payload []byte) {
		var s balance.Snapshot
		if err := json.Unmarshal(payload, &s); err != nil {
			log.Printf("console: state unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStateLine(s))
	}); err != nil {
		return err
	}

	if err := subscribe(client, "console", cfg.TopicEnv, func(payload []byte) {
		var e env.Sample
		if err := json.Unmarshal(payload, &e); err != nil {
			log.Printf("console: env unmarshal error: %v", err)
			return
		}
		fmt.Println(formatEnvLine(e))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
