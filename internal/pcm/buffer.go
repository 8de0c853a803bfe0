// Package pcm holds captured 16-bit interleaved audio and its stream format.
package pcm

import (
	"fmt"
	"sync"
)

// Format describes the sample layout negotiated with the capture device.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate rejects formats that cannot describe interleaved PCM.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0 (got %d)", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be > 0 (got %d)", f.Channels)
	}
	return nil
}

// Frames reports how many complete interleaved frames n samples hold.
func (f Format) Frames(n int) int {
	if f.Channels <= 0 {
		return 0
	}
	return n / f.Channels
}

// Sink is the write capability handed to a capture stream.
type Sink interface {
	Append([]int16)
}

// Buffer is an append-only store of interleaved samples shared between the
// capture callback (writer) and the session (reader, after capture stops).
type Buffer struct {
	format Format

	mu      sync.Mutex
	samples []int16
}

// NewBuffer allocates an empty buffer for one recording session.
func NewBuffer(format Format) *Buffer {
	return &Buffer{format: format}
}

// Format returns the immutable stream format the buffer was created with.
func (b *Buffer) Format() Format {
	return b.format
}

// Append copies samples onto the end of the buffer.
func (b *Buffer) Append(samples []int16) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Len returns the current sample count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Take moves the buffered samples out, leaving the buffer empty.
func (b *Buffer) Take() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.samples
	b.samples = nil
	return out
}
