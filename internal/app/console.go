// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/balance_controller/internal/telemetry"
)

// Backoff doubles the reconnect delay from Min up to Max.
type Backoff struct {
	Min, Max time.Duration
	cur      time.Duration
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.cur == 0 {
		b.cur = b.Min
		return b.cur
	}
	b.cur *= 2
	if b.cur > b.Max {
		b.cur = b.Max
	}
	return b.cur
}

// Reset starts over from Min.
func (b *Backoff) Reset() { b.cur = 0 }

// Console prints telemetry received from the web server's websocket.
type Console struct {
	URL string
	Out io.Writer

	mu     sync.Mutex
	latest telemetry.Record
	have   bool
}

// Latest returns the last CSV record received.
func (c *Console) Latest() (telemetry.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.have
}

func (c *Console) handleFrame(text string) {
	if telemetry.IsCSV(text) {
		rec, err := telemetry.ParseCSV(text)
		if err != nil {
			fmt.Fprintf(c.Out, "[RAW ] %s\n", strings.TrimSpace(text))
			return
		}
		c.mu.Lock()
		c.latest, c.have = rec, true
		c.mu.Unlock()
		fmt.Fprintf(c.Out, "[TLM ] %s\n", rec)
		return
	}

	kv := telemetry.ParseKeyValues(text)
	if len(kv) == 0 {
		fmt.Fprintf(c.Out, "[RAW ] %s\n", strings.TrimSpace(text))
		return
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.Out, "[KV  ] %s = %s\n", k, kv[k])
	}
}

// session runs one connection until it fails or ctx is done. connected
// reports whether the dial succeeded.
func (c *Console) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer conn.Close()
	log.Printf("console: connected to %s", c.URL)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client done"),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, err
		}
		if kind != websocket.TextMessage {
			n := min(len(payload), 64)
			fmt.Fprintf(c.Out, "[BIN ] %x\n", payload[:n])
			continue
		}
		c.handleFrame(string(payload))
	}
}

// Run reconnects with exponential backoff until ctx is done. The delay
// resets after every session that got connected.
func (c *Console) Run(ctx context.Context, b *Backoff) error {
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			b.Reset()
		}

		delay := b.Next()
		log.Printf("console: connection lost (%v), retrying in %v", err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunConsole connects to url and prints telemetry until interrupted.
func RunConsole(ctx context.Context, url string) error {
	c := &Console{URL: url, Out: os.Stdout}
	return c.Run(ctx, &Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second})
}
