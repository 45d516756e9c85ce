// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/balance_controller/internal/balance"
)

// Emitter polls snapshots at two rates: the debug line for the log and the
// CSV record for the sinks. It runs outside the control goroutine, so a slow
// sink delays telemetry but never a control cycle.
type Emitter struct {
	Source        func() balance.Snapshot
	Sinks         []Sink
	DebugInterval time.Duration
	CSVInterval   time.Duration
	// Debug receives each debug line; defaults to log.Println.
	Debug func(line string)

	lastErrLog map[int]time.Time
}

// Run emits until ctx is done and then closes all sinks.
func (e *Emitter) Run(ctx context.Context) error {
	debug := e.Debug
	if debug == nil {
		debug = func(line string) { log.Println(line) }
	}
	e.lastErrLog = make(map[int]time.Time)

	debugTicker := time.NewTicker(e.DebugInterval)
	defer debugTicker.Stop()
	csvTicker := time.NewTicker(e.CSVInterval)
	defer csvTicker.Stop()

	var lastCSVCycle uint64
	for {
		select {
		case <-ctx.Done():
			for _, s := range e.Sinks {
				if err := s.Close(); err != nil {
					log.Printf("telemetry: close sink: %v", err)
				}
			}
			return ctx.Err()
		case <-debugTicker.C:
			snap := e.Source()
			if snap.Cycle == 0 {
				continue
			}
			debug(FormatDebug(snap))
		case <-csvTicker.C:
			snap := e.Source()
			// Nothing new since the last record.
			if snap.Cycle == 0 || snap.Cycle == lastCSVCycle {
				continue
			}
			lastCSVCycle = snap.Cycle
			e.emit(snap, FormatCSV(snap))
		}
	}
}

func (e *Emitter) emit(snap balance.Snapshot, csv string) {
	for i, s := range e.Sinks {
		if err := s.Emit(snap, csv); err != nil {
			if time.Since(e.lastErrLog[i]) >= time.Second {
				e.lastErrLog[i] = time.Now()
				log.Printf("telemetry: sink %d: %v", i, err)
			}
		}
	}
}
