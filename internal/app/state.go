// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_controller/internal/balance"
)

// latestState keeps the most recent snapshot received over MQTT.
type latestState struct {
	mu   sync.RWMutex
	snap balance.Snapshot
	have bool
}

func (l *latestState) update(payload []byte) error {
	var s balance.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return err
	}
	l.mu.Lock()
	l.snap = s
	l.have = true
	l.mu.Unlock()
	return nil
}

func (l *latestState) get() (balance.Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap, l.have
}

// subscribe registers handler on topic and waits for the broker to confirm.
func subscribe(client mqtt.Client, component, topic string, handler func(payload []byte)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}

// subscribeState feeds TOPIC_STATE messages into l.
func subscribeState(client mqtt.Client, component, topic string, l *latestState) error {
	return subscribe(client, component, topic, func(payload []byte) {
		if err := l.update(payload); err != nil {
			log.Printf("%s: state unmarshal error: %v", component, err)
		}
	})
}
