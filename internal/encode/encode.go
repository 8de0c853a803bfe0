// Package encode turns captured PCM into a two-channel compressed payload.
package encode

import (
	"errors"
	"fmt"
	"math"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// ErrEncode marks encoder setup or encode-call failures.
var ErrEncode = errors.New("audio encode failed")

// FlushTailBytes is the capacity reserved for the encoder's final flush.
const FlushTailBytes = 7200

// Encoder is one configured two-channel compressor. Encode may hold samples
// back; Flush emits them once no more input follows.
type Encoder interface {
	Encode(left, right []int16) ([]byte, error)
	Flush() ([]byte, error)
	Close() error
}

// Factory builds an encoder for input at sampleRate.
type Factory func(sampleRate int) (Encoder, error)

// Stage encodes one session's samples.
type Stage struct {
	newEncoder Factory
}

// NewStage returns a stage that builds a fresh encoder per run.
func NewStage(factory Factory) *Stage {
	return &Stage{newEncoder: factory}
}

// Payload is the encoded output plus the figures logged with a session.
type Payload struct {
	Data   []byte
	Frames int
}

// Encode splits samples into left/right channels, encodes them, and appends
// the flush tail.
func (s *Stage) Encode(samples []int16, format pcm.Format) (Payload, error) {
	if s == nil || s.newEncoder == nil {
		return Payload{}, fmt.Errorf("%w: no encoder configured", ErrEncode)
	}
	if err := format.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	left, right := SplitChannels(samples, format.Channels)

	enc, err := s.newEncoder(format.SampleRate)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: init encoder: %v", ErrEncode, err)
	}
	defer func() { _ = enc.Close() }()

	body, err := enc.Encode(left, right)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	tail, err := enc.Flush()
	if err != nil {
		return Payload{}, fmt.Errorf("%w: flush: %v", ErrEncode, err)
	}

	out := make([]byte, 0, OutputCapacity(len(left)))
	out = append(out, body...)
	out = append(out, tail...)
	return Payload{Data: out, Frames: len(left)}, nil
}

// SplitChannels derives the stereo pair sent to the encoder. Mono input is
// duplicated onto both channels. For two or more channels the buffer is read
// as interleaved frames and only the first two channels of each frame are
// kept; any further channels are discarded rather than mixed in. A trailing
// partial frame is dropped.
func SplitChannels(samples []int16, channels int) (left, right []int16) {
	if channels <= 1 {
		left = make([]int16, len(samples))
		copy(left, samples)
		right = make([]int16, len(samples))
		copy(right, samples)
		return left, right
	}

	frames := len(samples) / channels
	left = make([]int16, frames)
	right = make([]int16, frames)
	for i := 0; i < frames; i++ {
		left[i] = samples[i*channels]
		right[i] = samples[i*channels+1]
	}
	return left, right
}

// OutputCapacity is the worst-case encoded size for frames samples per
// channel: 1.25x plus the flush tail.
func OutputCapacity(frames int) int {
	return int(math.Ceil(float64(frames)*1.25)) + FlushTailBytes
}
