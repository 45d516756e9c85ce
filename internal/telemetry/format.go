// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry formats controller snapshots for the debug log and the
// CSV link, parses them back on the receiving side, and ships them to sinks.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/relabs-tech/balance_controller/internal/balance"
)

// CSVHeader names the columns written by FormatCSV.
const CSVHeader = "angle,angle_speed,gyro_rate,output,pwm1,pwm2"

// Column indexes of a CSV record.
const (
	ColAngle = iota
	ColAngleSpeed
	ColGyroRate
	ColOutput
	ColPWM1
	ColPWM2
	NumColumns
)

// FormatDebug renders the human-readable status line. pwm is the control
// output before the mapper negates and clamps it.
func FormatDebug(s balance.Snapshot) string {
	return fmt.Sprintf("angle=%.2f speed=%.2f pwm=%s", s.Angle, s.AngleSpeed, formatOutput(s.Output))
}

// FormatCSV renders one CSV record in CSVHeader column order. pwm1 and pwm2
// are integer wheel duties, not the two-decimal floats older firmware sent;
// ParseCSV reads both.
func FormatCSV(s balance.Snapshot) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%s,%d,%d",
		s.Angle, s.AngleSpeed, s.GyroRate, formatOutput(s.Output), s.Left, s.Right)
}

// formatOutput prints the truncated control output as an integer, or as
// NaN/+Inf/-Inf once the filter has diverged.
func formatOutput(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatInt(int64(v), 10)
}

// Record is a parsed CSV line. Columns that were missing or not numeric
// are absent: their Has flag is false and their value is zero.
type Record struct {
	Values [NumColumns]float64
	Has    [NumColumns]bool
	Raw    string
}

// Get returns column i and whether it was present.
func (r Record) Get(i int) (float64, bool) {
	if i < 0 || i >= NumColumns {
		return 0, false
	}
	return r.Values[i], r.Has[i]
}

func (r Record) String() string {
	var b strings.Builder
	names := strings.Split(CSVHeader, ",")
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		if r.Has[i] {
			fmt.Fprintf(&b, "%s=%.2f", name, r.Values[i])
		} else {
			fmt.Fprintf(&b, "%s=-", name)
		}
	}
	return b.String()
}

// ErrShortRecord is returned for lines with fewer than three fields.
var ErrShortRecord = errors.New("telemetry: csv record needs at least 3 fields")

// IsCSV reports whether a text frame carries a CSV record rather than a
// debug line.
func IsCSV(line string) bool {
	line = strings.TrimSpace(line)
	if hasTelemetryPrefix(line) {
		return true
	}
	return strings.Count(line, ",") >= 2 && !strings.Contains(line, "=")
}

func hasTelemetryPrefix(line string) bool {
	return len(line) >= 2 && strings.EqualFold(line[:2], "T:")
}

// ParseCSV parses a CSV record, optionally prefixed with "T:". Fields are
// trimmed; extra fields beyond the known columns are ignored.
func ParseCSV(line string) (Record, error) {
	rec := Record{Raw: line}
	body := strings.TrimSpace(line)
	if hasTelemetryPrefix(body) {
		body = strings.TrimSpace(body[2:])
	}

	parts := strings.Split(body, ",")
	if len(parts) < 3 {
		return rec, ErrShortRecord
	}
	for i := 0; i < NumColumns && i < len(parts); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			continue
		}
		rec.Values[i] = v
		rec.Has[i] = true
	}
	return rec, nil
}

var kvPattern = regexp.MustCompile(`([A-Za-z0-9_]+)\s*=\s*(\S+)`)

// ParseKeyValues extracts key=value pairs from a debug line. Keys are
// case-insensitive and returned lowercased; a repeated key collects its
// values comma-separated in order of appearance.
func ParseKeyValues(line string) map[string]string {
	out := make(map[string]string)
	for _, m := range kvPattern.FindAllStringSubmatch(line, -1) {
		k := strings.ToLower(m[1])
		if prev, ok := out[k]; ok {
			out[k] = prev + "," + m[2]
			continue
		}
		out[k] = m[2]
	}
	return out
}
