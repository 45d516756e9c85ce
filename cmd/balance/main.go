// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance_controller/internal/app"
	"github.com/relabs-tech/balance_controller/internal/config"
)

func main() {
	configPath := flag.String("config", "./balance_config.txt", "path to configuration file")
	sim := flag.Bool("sim", false, "use a simulated IMU and leave the motors off")
	dryRun := flag.Bool("dry-run", false, "read the real IMU but never energize the motors")
	flag.Parse()

	log.Println("starting balance controller (IMU → Kalman → PD → motors)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBalance(app.BalanceOptions{Sim: *sim, DryRun: *dryRun}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
