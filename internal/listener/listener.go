// SPDX-License-Identifier: MIT

/*
Package listener coordinates capture ingestion and pitch analysis.

A Listener owns the sample ring buffer, the level snapshot and the spectra of
the latest analysis pass. Capture sources push sample blocks with Ingest and
level readings with UpdateLevels; any number of goroutines query the results.

Thread Safety:
  - Ingest holds the buffer lock only while copying a block
  - Analysis runs on one worker goroutine per listening session
  - Results are published by atomic pointer swap, so queries never observe a
    partially updated spectrum
  - State transitions are serialised; queries read the state atomically
*/
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pitchscope/internal/analysis"
	"pitchscope/internal/level"
	"pitchscope/internal/log"
	"pitchscope/internal/ring"
)

var (
	// ErrInsufficientData is returned by Pitch before the first full analysis
	// window has been processed in the current session.
	ErrInsufficientData = ring.ErrInsufficientData
	// ErrNoSignal is returned by Pitch when the latest window was gated as
	// silence or had no bins in the search range.
	ErrNoSignal = errors.New("no signal")
	// ErrCaptureFailure wraps errors reported by the capture source.
	ErrCaptureFailure = errors.New("capture failure")
	// ErrNotListening is returned by Flush outside a listening session.
	ErrNotListening = errors.New("listener is not listening")
)

// Estimate is the pitch found by one analysis pass.
type Estimate struct {
	Frequency    float64   // Harmonic-reinforced estimate (Hz).
	RawFrequency float64   // Peak of the raw spectrum (Hz).
	Bin          int       // Harmonic peak bin.
	RawBin       int       // Raw peak bin.
	HarmonicDB   float64   // Harmonic spectrum value at Bin.
	RawDB        float64   // Raw spectrum value at RawBin.
	SampleRate   float64   // Sample rate of the analysed window (Hz).
	At           time.Time // When the pass completed.
}

// result is one published analysis pass. It is immutable once stored.
type result struct {
	raw      analysis.Spectrum
	harmonic analysis.Spectrum
	estimate Estimate
	err      error
}

// failure boxes a capture error for atomic publication.
type failure struct{ err error }

// Listener owns the sample ring, the level gate and the spectra of the latest
// analysis pass, and runs one analysis worker per listening session.
type Listener struct {
	opts  Options
	state atomic.Int32
	ctl   sync.Mutex // Serialises state transitions.

	// Ingestion state, guarded by mu.
	mu         sync.Mutex
	ring       *ring.Buffer
	sampleRate float64
	pending    int    // Samples appended since the last wake-up.
	epoch      uint64 // Bumped whenever the ring is reset.

	// Worker lifecycle, guarded by ctl.
	wake  chan struct{}
	flush chan chan struct{}
	quit  chan struct{}
	done  chan struct{}

	// Worker-owned analysis state.
	transformer *analysis.Transformer
	window      []int16

	gate    gate
	levels  *level.Adapter
	latest  atomic.Pointer[result]
	passes  atomic.Uint64
	failure atomic.Pointer[failure]
}

// Compile-time checks for interface implementations.
var _ analysis.SpectrumProvider = (*Listener)(nil)

// New creates an idle Listener.
func New(opts Options) (*Listener, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	buffer, err := ring.New(opts.BufferSize)
	if err != nil {
		return nil, err
	}
	transform, err := analysis.NewTransform(opts.Transform, opts.WindowSize)
	if err != nil {
		return nil, err
	}
	transformer, err := analysis.NewTransformer(opts.WindowSize, opts.Window, transform)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		opts:        opts,
		ring:        buffer,
		wake:        make(chan struct{}, 1),
		flush:       make(chan chan struct{}),
		transformer: transformer,
		window:      make([]int16, opts.WindowSize),
		levels:      level.NewAdapter(),
	}
	l.gate.set(opts.GateThreshold)
	l.state.Store(int32(Idle))

	log.Debugf("Listener: Initialized (Buffer: %d, Window: %d, Hop: %d, Taper: %v, Transform: %s, Harmonics: %d)",
		opts.BufferSize, opts.WindowSize, opts.HopSize, opts.Window, opts.Transform, opts.Harmonics)
	return l, nil
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// IsListening reports whether the listener is accepting samples.
func (l *Listener) IsListening() bool {
	return l.State() == Listening
}

// Listen starts or resumes listening. Resuming from Paused discards the
// samples buffered before the pause; listening after Stop starts a fresh
// session from Idle.
func (l *Listener) Listen() {
	l.ctl.Lock()
	defer l.ctl.Unlock()

	switch l.State() {
	case Listening:
		return
	case Paused:
		l.mu.Lock()
		l.resetLocked()
		l.mu.Unlock()
		l.state.Store(int32(Listening))
		log.Debugf("Listener: Resumed")
		return
	case Stopped:
		l.state.Store(int32(Idle))
	}

	l.failure.Store(nil)
	l.quit = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.quit, l.done)
	l.state.Store(int32(Listening))
	log.Debugf("Listener: Listening")
}

// Pause stops accepting samples. It is a no-op unless listening.
func (l *Listener) Pause() {
	l.ctl.Lock()
	defer l.ctl.Unlock()

	if l.State() != Listening {
		return
	}
	l.state.Store(int32(Paused))
	log.Debugf("Listener: Paused")
}

// Stop ends the session from any state. It waits for an in-flight analysis
// pass, then clears the buffer, the spectra, the estimate and the levels.
func (l *Listener) Stop() {
	l.ctl.Lock()
	defer l.ctl.Unlock()

	if l.State() == Stopped {
		return
	}
	l.state.Store(int32(Stopped))

	if l.quit != nil {
		close(l.quit)
		<-l.done
		l.quit, l.done = nil, nil
	}

	l.mu.Lock()
	l.resetLocked()
	l.sampleRate = 0
	l.mu.Unlock()

	l.latest.Store(nil)
	l.levels.Reset()
	log.Debugf("Listener: Stopped")
}

// Fail records a capture source error and stops the listener. The error is
// available from Err until the next Listen.
func (l *Listener) Fail(err error) {
	if err == nil {
		return
	}
	l.failure.Store(&failure{err: err})
	log.Errorf("Listener: Capture failed: %v", err)
	l.Stop()
}

// Err returns the capture failure that stopped the listener, wrapped with
// ErrCaptureFailure, or nil.
func (l *Listener) Err() error {
	f := l.failure.Load()
	if f == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCaptureFailure, f.err)
}

// Ingest appends a block of mono samples. Blocks are dropped unless the
// listener is Listening. A change of sample rate discards the buffered
// samples. Analysis never runs on the caller's goroutine.
func (l *Listener) Ingest(samples []int16, sampleRate float64) {
	if len(samples) == 0 || l.State() != Listening {
		return
	}

	l.mu.Lock()
	// Re-check under the lock so a block racing Pause or Stop is dropped.
	if l.State() != Listening {
		l.mu.Unlock()
		return
	}
	if sampleRate > 0 && sampleRate != l.sampleRate {
		if l.sampleRate != 0 {
			log.Debugf("Listener: Sample rate changed %.1f -> %.1f Hz, resetting buffer", l.sampleRate, sampleRate)
			l.resetLocked()
		}
		l.sampleRate = sampleRate
	}
	if l.sampleRate <= 0 {
		l.mu.Unlock()
		return
	}
	l.ring.Append(samples)
	l.pending += len(samples)
	trigger := l.pending >= l.opts.HopSize && l.ring.Len() >= l.opts.WindowSize
	if trigger {
		l.pending = 0
	}
	l.mu.Unlock()

	if trigger {
		select {
		case l.wake <- struct{}{}:
		default: // A pass is already pending.
		}
	}
}

// UpdateLevels stores the latest level reading. Readings are dropped unless
// the listener is Listening.
func (l *Listener) UpdateLevels(averagePowerDB, peakPowerDB float32) {
	if l.State() != Listening {
		return
	}
	l.levels.Update(averagePowerDB, peakPowerDB)
}

// resetLocked empties the ring. mu must be held.
func (l *Listener) resetLocked() {
	l.ring.Reset()
	l.pending = 0
	l.epoch++
}

func (l *Listener) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case <-l.wake:
			l.analyze()
		case ack := <-l.flush:
			l.analyze()
			close(ack)
		}
	}
}

// Flush runs an analysis pass over the buffered window and waits until it
// is published. File replay uses it to analyse the final window. It returns
// ErrInsufficientData when less than a window is buffered.
func (l *Listener) Flush(ctx context.Context) error {
	l.ctl.Lock()
	state, done := l.State(), l.done
	l.ctl.Unlock()
	if (state != Listening && state != Paused) || done == nil {
		return ErrNotListening
	}

	l.mu.Lock()
	ready := l.sampleRate > 0 && l.ring.Len() >= l.opts.WindowSize
	l.mu.Unlock()
	if !ready {
		return ErrInsufficientData
	}

	ack := make(chan struct{})
	select {
	case l.flush <- ack:
	case <-done:
		return ErrNotListening
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// analyze runs one pass over the most recent window and publishes it unless
// the ring was reset in the meantime.
func (l *Listener) analyze() {
	l.mu.Lock()
	err := l.ring.Window(l.window)
	rate := l.sampleRate
	epoch := l.epoch
	l.mu.Unlock()
	if err != nil {
		return
	}

	res, err := l.compute(rate)
	if err != nil {
		// Options are validated at construction, so this is a programming error.
		log.Errorf("Listener: Analysis pass failed: %v", err)
		return
	}

	l.mu.Lock()
	if epoch == l.epoch {
		l.latest.Store(res)
		l.passes.Add(1)
	}
	l.mu.Unlock()

	if log.Enabled(log.LevelDebug) {
		log.WithFields(log.Fields{
			"frequency": res.estimate.Frequency,
			"raw":       res.estimate.RawFrequency,
			"gated":     res.err != nil,
		}).Debug("Listener: Analysis pass")
	}
}

func (l *Listener) compute(rate float64) (*result, error) {
	raw, err := l.transformer.Spectrum(l.window, nil)
	if err != nil {
		return nil, err
	}
	harmonic := analysis.Harmonic(raw, l.opts.Harmonics, 1, nil)

	res := &result{
		raw:      raw,
		harmonic: harmonic,
		estimate: Estimate{SampleRate: rate, At: time.Now()},
	}
	if !l.gate.open(l.window) {
		res.err = ErrNoSignal
		return res, nil
	}

	size := l.opts.WindowSize
	lo := max(1, analysis.FrequencyBin(l.opts.MinFrequency, rate, size))
	hi := len(raw)
	if l.opts.MaxFrequency > 0 {
		hi = min(hi, analysis.FrequencyBin(l.opts.MaxFrequency, rate, size)+1)
	}

	rawBin, rawDB, err := analysis.FindPeak(raw, lo, hi)
	if err != nil {
		res.err = fmt.Errorf("%w: %v", ErrNoSignal, err)
		return res, nil
	}
	harmonicHi := min(hi, analysis.HarmonicLimit(len(harmonic), l.opts.Harmonics))
	bin, harmonicDB, err := analysis.FindHarmonicPeak(harmonic, raw, lo, harmonicHi, rawDB-analysis.DefaultCandidateMargin)
	if err != nil {
		// No candidate fundamental below the harmonic search limit.
		bin, harmonicDB = rawBin, harmonic[rawBin]
	}

	res.estimate.Bin, res.estimate.HarmonicDB = bin, harmonicDB
	res.estimate.RawBin, res.estimate.RawDB = rawBin, rawDB
	res.estimate.Frequency = l.frequency(harmonic, bin, rate)
	res.estimate.RawFrequency = l.frequency(raw, rawBin, rate)
	return res, nil
}

func (l *Listener) frequency(s analysis.Spectrum, bin int, rate float64) float64 {
	if !l.opts.Interpolate {
		return analysis.BinFrequency(bin, rate, l.opts.WindowSize)
	}
	return analysis.Interpolate(s, bin) * rate / float64(l.opts.WindowSize)
}

// Pitch returns the latest estimate. It fails with ErrInsufficientData
// before the first pass of the session and with ErrNoSignal when the latest
// window held no usable signal; the estimate still carries the sample rate
// and time of that pass.
func (l *Listener) Pitch() (Estimate, error) {
	r := l.latest.Load()
	if r == nil {
		return Estimate{}, ErrInsufficientData
	}
	return r.estimate, r.err
}

// Frequency returns the latest harmonic-reinforced pitch in Hz, or 0 when
// no pitch is available.
func (l *Listener) Frequency() float32 {
	est, err := l.Pitch()
	if err != nil {
		return 0
	}
	return float32(est.Frequency)
}

// Levels returns the latest level reading.
func (l *Listener) Levels() level.Snapshot {
	return l.levels.Load()
}

// AveragePower returns the latest average power in dBFS.
func (l *Listener) AveragePower() float32 {
	return l.levels.Load().AveragePowerDB
}

// PeakPower returns the latest peak power in dBFS.
func (l *Listener) PeakPower() float32 {
	return l.levels.Load().PeakPowerDB
}

// FreqDB returns a copy of the latest raw decibel spectrum. Before the first
// pass it returns WindowSize/2 zeros.
func (l *Listener) FreqDB() analysis.Spectrum {
	if r := l.latest.Load(); r != nil {
		return append(analysis.Spectrum(nil), r.raw...)
	}
	return make(analysis.Spectrum, l.opts.WindowSize/2)
}

// FreqDBHarmonic returns a copy of the latest harmonic-reinforced spectrum.
// Before the first pass it returns WindowSize/2 zeros.
func (l *Listener) FreqDBHarmonic() analysis.Spectrum {
	if r := l.latest.Load(); r != nil {
		return append(analysis.Spectrum(nil), r.harmonic...)
	}
	return make(analysis.Spectrum, l.opts.WindowSize/2)
}

// SampleRate returns the sample rate of the current session, 0 if no
// samples have arrived.
func (l *Listener) SampleRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sampleRate
}

// WindowSize returns the number of samples per analysis window.
func (l *Listener) WindowSize() int {
	return l.opts.WindowSize
}

// Options returns the effective options.
func (l *Listener) Options() Options {
	return l.opts
}

// Passes returns the number of analysis passes published since New.
func (l *Listener) Passes() uint64 {
	return l.passes.Load()
}

// SetGateThreshold adjusts the signal gate. The value is in the range of
// 0.0-1.0 of full scale.
func (l *Listener) SetGateThreshold(threshold float64) {
	l.gate.set(threshold)
}

// GateThreshold returns the current gate threshold (0.0-1.0).
func (l *Listener) GateThreshold() float64 {
	return l.gate.get()
}
