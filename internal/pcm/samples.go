package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Samples is one frame batch delivered by a capture backend. It is either
// Int16Samples or Float32Samples; both normalize to interleaved int16.
type Samples interface {
	Int16() []int16
	Len() int
	sealed()
}

// Int16Samples are native signed 16-bit samples.
type Int16Samples []int16

// Int16 returns a copy so the caller's buffer can be reused by the backend.
func (s Int16Samples) Int16() []int16 {
	out := make([]int16, len(s))
	copy(out, s)
	return out
}

func (s Int16Samples) Len() int { return len(s) }

func (Int16Samples) sealed() {}

// Float32Samples are normalized floating-point samples in [-1, 1].
type Float32Samples []float32

// Int16 scales each sample by 32767 and truncates toward zero. Values outside
// [-1, 1] saturate at the int16 bounds.
func (s Float32Samples) Int16() []int16 {
	out := make([]int16, len(s))
	for i, v := range s {
		out[i] = floatToInt16(v)
	}
	return out
}

func (s Float32Samples) Len() int { return len(s) }

func (Float32Samples) sealed() {}

func floatToInt16(v float32) int16 {
	scaled := float64(v) * 32767.0
	switch {
	case math.IsNaN(scaled):
		return 0
	case scaled >= math.MaxInt16:
		return math.MaxInt16
	case scaled <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(scaled)
	}
}

// SampleFormat names the wire encoding a backend delivers.
type SampleFormat string

const (
	FormatS16 SampleFormat = "s16"
	FormatF32 SampleFormat = "f32"
)

// BytesPerSample returns the wire width of one sample.
func (f SampleFormat) BytesPerSample() int {
	if f == FormatF32 {
		return 4
	}
	return 2
}

// Decode interprets little-endian raw bytes as samples of format f. The byte
// count must be a whole multiple of the sample width.
func Decode(f SampleFormat, raw []byte) (Samples, error) {
	width := f.BytesPerSample()
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("decode %s: %d bytes is not a multiple of %d", f, len(raw), width)
	}

	switch f {
	case FormatS16:
		out := make(Int16Samples, len(raw)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case FormatF32:
		out := make(Float32Samples, len(raw)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported sample format %q", f)
	}
}

// EncodeLE renders interleaved samples as little-endian s16 bytes.
func EncodeLE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
