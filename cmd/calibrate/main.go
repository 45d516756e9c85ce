// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Measures the upright trim offset the balance controller would use, without
// arming the motors. Optionally writes the result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/balance_controller/internal/app"
	"github.com/relabs-tech/balance_controller/internal/calibration"
	"github.com/relabs-tech/balance_controller/internal/config"
)

type report struct {
	Timestamp time.Time          `json:"timestamp"`
	Result    calibration.Result `json:"result"`
}

func main() {
	configPath := flag.String("config", "./balance_config.txt", "path to configuration file")
	sim := flag.Bool("sim", false, "use a simulated IMU")
	out := flag.String("out", "", "write the result as JSON to this file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	res, err := app.RunCalibrate(*sim)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if *out == "" {
		return
	}
	data, err := json.MarshalIndent(report{Timestamp: time.Now(), Result: res}, "", "  ")
	if err != nil {
		log.Fatalf("marshal result: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("calibration written to %s", *out)
}
