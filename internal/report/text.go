// SPDX-License-Identifier: MIT
package report

import (
	"fmt"
	"io"
	"sync"
)

// TextTransport writes one human-readable line per reading.
type TextTransport struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextTransport writes readings to w.
func NewTextTransport(w io.Writer) *TextTransport {
	return &TextTransport{w: w}
}

// Send writes r as a single line.
func (t *TextTransport) Send(r Reading) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, FormatReading(r)+"\n")
	return err
}

// Close is a no-op; the writer belongs to the caller.
func (t *TextTransport) Close() error { return nil }

var _ Transport = (*TextTransport)(nil)

// FormatReading renders r the way TextTransport prints it.
func FormatReading(r Reading) string {
	pitch := fmt.Sprintf("%-26s", "--")
	switch r.Status {
	case StatusPitch:
		pitch = fmt.Sprintf("%9.2f Hz  %-12s", r.Frequency, r.Note)
	case StatusNoSignal:
		pitch = fmt.Sprintf("%-26s", "no signal")
	}
	return fmt.Sprintf("%-9s %s avg %7.1f dB  peak %7.1f dB", r.State, pitch, r.AveragePowerDB, r.PeakPowerDB)
}
