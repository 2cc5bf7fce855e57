// SPDX-License-Identifier: MIT
package report

import (
	"pitchscope/internal/log"
)

// LogTransport implements Transport by logging each reading with
// structured fields.
type LogTransport struct{}

// NewLogTransport creates a new LogTransport instance.
func NewLogTransport() *LogTransport {
	log.Debugf("Transport: Using LogTransport")
	return &LogTransport{}
}

// Send logs the reading at info level.
func (lt *LogTransport) Send(r Reading) error {
	fields := log.Fields{
		"seq":     r.Sequence,
		"state":   r.State,
		"status":  string(r.Status),
		"avg_db":  r.AveragePowerDB,
		"peak_db": r.PeakPowerDB,
	}
	if r.HasPitch() {
		fields["frequency"] = r.Frequency
		fields["raw_frequency"] = r.RawFrequency
		fields["note"] = r.Note.String()
	}
	log.WithFields(fields).Info("reading")
	return nil
}

// Close is a no-op for LogTransport.
func (lt *LogTransport) Close() error {
	return nil
}

// Ensure LogTransport satisfies the interface at compile time.
var _ Transport = (*LogTransport)(nil)
