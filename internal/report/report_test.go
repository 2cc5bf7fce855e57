// SPDX-License-Identifier: MIT
package report

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchscope/internal/level"
	"pitchscope/internal/listener"
)

type fakeSource struct {
	mu     sync.Mutex
	state  listener.State
	est    listener.Estimate
	err    error
	levels level.Snapshot
}

func (f *fakeSource) State() listener.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) Pitch() (listener.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.est, f.err
}

func (f *fakeSource) Levels() level.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels
}

type recordingTransport struct {
	mu       sync.Mutex
	readings []Reading
	err      error
	closed   bool
}

func (r *recordingTransport) Send(reading Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.readings)
}

func TestNoteFor(t *testing.T) {
	tests := []struct {
		hz     float64
		name   string
		octave int
		midi   int
	}{
		{440, "A", 4, 69},
		{261.6256, "C", 4, 60},
		{27.5, "A", 0, 21},
		{4186.009, "C", 8, 108},
		{466.1638, "A#", 4, 70},
		{82.40689, "E", 2, 40},
		{8.175799, "C", -1, 0},
	}
	for _, tt := range tests {
		n, ok := NoteFor(tt.hz)
		require.True(t, ok, "%v Hz", tt.hz)
		assert.Equal(t, tt.name, n.Name, "%v Hz", tt.hz)
		assert.Equal(t, tt.octave, n.Octave, "%v Hz", tt.hz)
		assert.Equal(t, tt.midi, n.MIDI, "%v Hz", tt.hz)
		assert.InDelta(t, 0, n.Cents, 0.01, "%v Hz", tt.hz)
	}
}

func TestNoteForCents(t *testing.T) {
	// Deviations under half a semitone stay on the nearest note.
	n, ok := NoteFor(445)
	require.True(t, ok)
	assert.Equal(t, "A", n.Name)
	assert.InDelta(t, 19.56, n.Cents, 0.01)

	n, ok = NoteFor(435)
	require.True(t, ok)
	assert.Equal(t, "A", n.Name)
	assert.InDelta(t, -19.79, n.Cents, 0.01)
	assert.Equal(t, "A4 -20c", n.String())
}

func TestNoteForInvalid(t *testing.T) {
	for _, hz := range []float64{0, -440} {
		_, ok := NoteFor(hz)
		assert.False(t, ok, "%v Hz", hz)
	}
}

func TestSnapshotStatus(t *testing.T) {
	src := &fakeSource{
		state:  listener.Listening,
		est:    listener.Estimate{Frequency: 440, RawFrequency: 880},
		levels: level.Snapshot{AveragePowerDB: -12, PeakPowerDB: -3},
	}

	r := Snapshot(src, 7)
	assert.Equal(t, uint32(7), r.Sequence)
	assert.Equal(t, "listening", r.State)
	assert.Equal(t, StatusPitch, r.Status)
	assert.True(t, r.HasPitch())
	assert.Equal(t, 440.0, r.Frequency)
	assert.Equal(t, 880.0, r.RawFrequency)
	assert.Equal(t, "A", r.Note.Name)
	assert.Equal(t, float32(-12), r.AveragePowerDB)
	assert.Equal(t, float32(-3), r.PeakPowerDB)

	src.err = errors.Join(listener.ErrNoSignal, errors.New("below gate"))
	r = Snapshot(src, 8)
	assert.Equal(t, StatusNoSignal, r.Status)
	assert.False(t, r.HasPitch())
	assert.Zero(t, r.Frequency)

	src.err = listener.ErrInsufficientData
	r = Snapshot(src, 9)
	assert.Equal(t, StatusNotReady, r.Status)
}

func TestTextTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTextTransport(&buf)

	note, _ := NoteFor(440)
	require.NoError(t, tr.Send(Reading{State: "Listening", Status: StatusPitch, Frequency: 440, Note: note}))
	require.NoError(t, tr.Send(Reading{State: "Listening", Status: StatusNoSignal, AveragePowerDB: -160, PeakPowerDB: -160}))
	require.NoError(t, tr.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "440.00 Hz")
	assert.Contains(t, lines[0], "A4 +0c")
	assert.Contains(t, lines[1], "no signal")
	assert.Contains(t, lines[1], "-160.0 dB")
}

func TestLogTransport(t *testing.T) {
	tr := NewLogTransport()
	assert.NoError(t, tr.Send(Reading{Status: StatusPitch, Frequency: 440}))
	assert.NoError(t, tr.Close())
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewPublisher(time.Second, nil, &recordingTransport{})
	assert.Error(t, err)
	_, err = NewPublisher(time.Second, &fakeSource{}, nil)
	assert.Error(t, err)

	p, err := NewPublisher(0, &fakeSource{}, &recordingTransport{})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, p.interval)
}

func TestPublisherLifecycle(t *testing.T) {
	src := &fakeSource{state: listener.Listening, est: listener.Estimate{Frequency: 220}}
	tr := &recordingTransport{}
	p, err := NewPublisher(2*time.Millisecond, src, tr)
	require.NoError(t, err)

	assert.NoError(t, p.Stop(), "stop before start")

	p.Start()
	p.Start() // already running
	assert.Eventually(t, func() bool { return tr.count() >= 3 }, 5*time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
	sent := tr.count()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, sent, tr.count(), "no readings after stop")

	tr.mu.Lock()
	for i, r := range tr.readings {
		assert.Equal(t, uint32(i+1), r.Sequence)
		assert.Equal(t, 220.0, r.Frequency)
	}
	tr.mu.Unlock()

	// Restart continues the sequence.
	p.Start()
	assert.Eventually(t, func() bool { return tr.count() > sent }, 5*time.Second, time.Millisecond)
	require.NoError(t, p.Close())
	assert.True(t, tr.closed)

	tr.mu.Lock()
	assert.Equal(t, uint32(sent+1), tr.readings[sent].Sequence)
	tr.mu.Unlock()
}

func TestPublisherKeepsGoingOnSendError(t *testing.T) {
	tr := &recordingTransport{err: errors.New("closed pipe")}
	p, err := NewPublisher(time.Millisecond, &fakeSource{}, tr)
	require.NoError(t, err)

	p.Start()
	assert.Eventually(t, func() bool { return tr.count() >= 2 }, 5*time.Second, time.Millisecond)
	require.NoError(t, p.Close())

	assert.Error(t, p.Publish())
}

func TestPublishAfterStop(t *testing.T) {
	tr := &recordingTransport{}
	p, err := NewPublisher(time.Hour, &fakeSource{state: listener.Stopped}, tr)
	require.NoError(t, err)

	require.NoError(t, p.Publish())
	require.NoError(t, p.Publish())
	require.Equal(t, 2, tr.count())
	assert.Equal(t, uint32(2), tr.readings[1].Sequence)
	assert.Equal(t, "stopped", tr.readings[1].State)
}
