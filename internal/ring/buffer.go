// SPDX-License-Identifier: MIT

// Package ring implements the fixed-capacity sliding window that holds the
// most recent mono samples delivered by the capture source.
//
// The buffer has exactly one write cursor. Appending past capacity
// overwrites the oldest samples; the buffer never grows. A Buffer is not
// safe for concurrent use: the owner serialises the single writer and the
// single reader with its own lock.
package ring

import (
	"errors"
	"fmt"

	"pitchscope/pkg/bitint"
)

var (
	// ErrInsufficientData is returned when fewer samples than requested have
	// been appended since construction or the last Reset.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidCapacity is returned by New for non power-of-two capacities.
	ErrInvalidCapacity = errors.New("ring capacity must be a positive power of two")
	// ErrWindowTooLarge is returned when a window larger than the capacity
	// is requested.
	ErrWindowTooLarge = errors.New("window larger than ring capacity")
)

// Buffer is a power-of-two sized ring of int16 samples.
type Buffer struct {
	data    []int16
	mask    int
	write   int   // next write index
	length  int   // valid samples, <= len(data)
	written int64 // samples appended since the last Reset
}

// New allocates a Buffer holding capacity samples.
func New(capacity int) (*Buffer, error) {
	if !bitint.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{
		data: make([]int16, capacity),
		mask: capacity - 1,
	}, nil
}

// Append copies samples at the write cursor and returns how many were
// appended. When samples is longer than the capacity only its tail is
// kept, as if it had been appended one block at a time.
func (b *Buffer) Append(samples []int16) int {
	n := len(samples)
	if n == 0 {
		return 0
	}
	b.written += int64(n)

	capacity := len(b.data)
	if n >= capacity {
		copy(b.data, samples[n-capacity:])
		b.write = 0
		b.length = capacity
		return n
	}

	first := copy(b.data[b.write:], samples)
	if first < n {
		copy(b.data, samples[first:])
	}
	b.write = (b.write + n) & b.mask
	b.length = min(b.length+n, capacity)
	return n
}

// Window fills dst with the most recent len(dst) samples, oldest first.
func (b *Buffer) Window(dst []int16) error {
	size := len(dst)
	if size > len(b.data) {
		return fmt.Errorf("%w: %d > %d", ErrWindowTooLarge, size, len(b.data))
	}
	if size > b.length {
		return fmt.Errorf("%w: have %d of %d samples", ErrInsufficientData, b.length, size)
	}

	start := (b.write - size) & b.mask
	n := copy(dst, b.data[start:])
	if n < size {
		copy(dst[n:], b.data[:size-n])
	}
	return nil
}

// Snapshot returns a copy of the most recent size samples, oldest first.
func (b *Buffer) Snapshot(size int) ([]int16, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInsufficientData, size)
	}
	dst := make([]int16, size)
	if err := b.Window(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// Len returns the number of retrievable samples.
func (b *Buffer) Len() int { return b.length }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Written returns the number of samples appended since the last Reset,
// including those already overwritten.
func (b *Buffer) Written() int64 { return b.written }

// Reset discards all samples. The storage is zeroed so stale audio can never
// leak into a later window.
func (b *Buffer) Reset() {
	clear(b.data)
	b.write = 0
	b.length = 0
	b.written = 0
}
