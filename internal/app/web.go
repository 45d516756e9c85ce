// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/telemetry"
)

// newWebHandler serves the latest snapshot, the live CSV websocket and the
// static dashboard from ./web.
func newWebHandler(state *latestState, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := state.get()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/columns", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, telemetry.CSVHeader)
	})

	mux.Handle("/ws", hub)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb subscribes to the controller's MQTT telemetry and serves it over
// HTTP and websocket.
func RunWeb() error {
	cfg := config.Get()

	client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	state := &latestState{}
	hub := NewHub()

	if err := subscribeState(client, "web", cfg.TopicState, state); err != nil {
		return err
	}
	if err := subscribe(client, "web", cfg.TopicCSV, func(payload []byte) {
		// The payload buffer belongs to paho.
		hub.Broadcast(append([]byte("T:"), payload...))
	}); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, newWebHandler(state, hub))
}
