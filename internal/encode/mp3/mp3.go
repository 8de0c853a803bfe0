// Package mp3 adapts libmp3lame to the encode.Encoder contract.
package mp3

import (
	"errors"
	"fmt"

	"github.com/viert/lame"

	"github.com/Astlaan/whisper-dictate/internal/encode"
	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// Settings are the LAME parameters applied to every session.
type Settings struct {
	BitrateKbps int
	Quality     int
}

// DefaultSettings is stereo 128 kbps at quality 2.
func DefaultSettings() Settings {
	return Settings{BitrateKbps: 128, Quality: 2}
}

// Factory returns an encode.Factory producing LAME encoders with s.
func Factory(s Settings) encode.Factory {
	return func(sampleRate int) (encode.Encoder, error) {
		return New(sampleRate, s)
	}
}

// Encoder wraps one LAME handle configured for two channels.
type Encoder struct {
	handle *lame.Encoder
	closed bool
}

// New initializes a LAME handle for two-channel input at sampleRate.
func New(sampleRate int, s Settings) (*Encoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	handle := lame.Init()
	if handle == nil {
		return nil, errors.New("lame init returned nil handle")
	}
	handle.SetNumChannels(2)
	handle.SetInSamplerate(sampleRate)
	handle.SetBitrate(s.BitrateKbps)
	handle.SetQuality(s.Quality)
	if rc := handle.InitParams(); rc < 0 {
		handle.Close()
		return nil, fmt.Errorf("lame init params failed (code %d)", rc)
	}
	return &Encoder{handle: handle}, nil
}

// Encode interleaves left/right and feeds them to LAME.
func (e *Encoder) Encode(left, right []int16) ([]byte, error) {
	if e.closed {
		return nil, errors.New("encoder closed")
	}
	if len(left) != len(right) {
		return nil, fmt.Errorf("channel length mismatch: left=%d right=%d", len(left), len(right))
	}

	interleaved := make([]int16, 0, len(left)*2)
	for i := range left {
		interleaved = append(interleaved, left[i], right[i])
	}
	return e.handle.Encode(pcm.EncodeLE(interleaved)), nil
}

// Flush drains frames LAME held back.
func (e *Encoder) Flush() ([]byte, error) {
	if e.closed {
		return nil, errors.New("encoder closed")
	}
	return e.handle.Flush(), nil
}

// Close releases the LAME handle.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.handle.Close()
	return nil
}
