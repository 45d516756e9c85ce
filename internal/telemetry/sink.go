// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/balance_controller/internal/balance"
	"github.com/relabs-tech/balance_controller/internal/env"
)

// Sink receives CSV-rate telemetry. Implementations must not block for long;
// the emitter calls them in sequence.
type Sink interface {
	Emit(s balance.Snapshot, csv string) error
	Close() error
}

// SerialSink writes CSV lines to a serial port (or any writer).
type SerialSink struct {
	w io.WriteCloser
}

// NewSerialSink wraps an already open writer.
func NewSerialSink(w io.WriteCloser) *SerialSink {
	return &SerialSink{w: w}
}

// OpenSerialSink opens portName at baud 8N1.
func OpenSerialSink(portName string, baud uint) (*SerialSink, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", portName, err)
	}
	log.Printf("telemetry: serial port opened on %s at %d baud", portName, baud)
	return NewSerialSink(port), nil
}

// Emit implements Sink.
func (s *SerialSink) Emit(_ balance.Snapshot, csv string) error {
	_, err := io.WriteString(s.w, csv+"\r\n")
	return err
}

// Close implements Sink.
func (s *SerialSink) Close() error {
	return s.w.Close()
}

// MQTTSink publishes the JSON snapshot and the CSV line as retained
// messages.
type MQTTSink struct {
	client     mqtt.Client
	topicState string
	topicCSV   string
	topicEnv   string
}

// NewMQTTSink wraps a connected client.
func NewMQTTSink(client mqtt.Client, topicState, topicCSV, topicEnv string) *MQTTSink {
	return &MQTTSink{client: client, topicState: topicState, topicCSV: topicCSV, topicEnv: topicEnv}
}

// ConnectMQTT connects to broker with the given client id.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func (m *MQTTSink) publish(topic string, payload []byte) error {
	if token := m.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

// Emit implements Sink. The CSV line is published even when the state
// topic fails.
func (m *MQTTSink) Emit(s balance.Snapshot, csv string) error {
	var stateErr error
	if payload, err := json.Marshal(s); err != nil {
		stateErr = fmt.Errorf("marshal snapshot: %w", err)
	} else {
		stateErr = m.publish(m.topicState, payload)
	}
	return errors.Join(stateErr, m.publish(m.topicCSV, []byte(csv)))
}

// PublishEnv publishes a board environment sample.
func (m *MQTTSink) PublishEnv(e env.Sample) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal env: %w", err)
	}
	return m.publish(m.topicEnv, payload)
}

// Close implements Sink.
func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}
