package encode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

type fakeEncoder struct {
	sampleRate int
	left       []int16
	right      []int16
	encodeErr  error
	flushErr   error
	closed     bool
}

func (f *fakeEncoder) Encode(left, right []int16) ([]byte, error) {
	f.left = left
	f.right = right
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	return []byte{0xff, 0xfb, byte(len(left))}, nil
}

func (f *fakeEncoder) Flush() ([]byte, error) {
	if f.flushErr != nil {
		return nil, f.flushErr
	}
	return []byte{0xaa}, nil
}

func (f *fakeEncoder) Close() error {
	f.closed = true
	return nil
}

func TestSplitChannelsMonoDuplicates(t *testing.T) {
	input := []int16{1, -2, 3, 4}
	left, right := SplitChannels(input, 1)
	require.Equal(t, input, left)
	require.Equal(t, input, right)

	left[0] = 42
	require.Equal(t, int16(1), input[0])
	require.Equal(t, int16(1), right[0])
}

func TestSplitChannelsStereoEvenOdd(t *testing.T) {
	const n = 64
	input := make([]int16, 2*n)
	for i := range input {
		input[i] = int16(i * 3)
	}

	left, right := SplitChannels(input, 2)
	require.Len(t, left, n)
	require.Len(t, right, n)
	for i := 0; i < n; i++ {
		require.Equal(t, input[2*i], left[i])
		require.Equal(t, input[2*i+1], right[i])
	}
}

func TestSplitChannelsDiscardsExtraChannelsAndPartialFrame(t *testing.T) {
	// three frames of four channels plus two stray samples
	input := []int16{
		10, 11, 12, 13,
		20, 21, 22, 23,
		30, 31, 32, 33,
		40, 41,
	}

	left, right := SplitChannels(input, 4)
	require.Equal(t, []int16{10, 20, 30}, left)
	require.Equal(t, []int16{11, 21, 31}, right)
}

func TestOutputCapacity(t *testing.T) {
	require.Equal(t, FlushTailBytes, OutputCapacity(0))
	require.Equal(t, 2+FlushTailBytes, OutputCapacity(1))
	require.Equal(t, 60000+FlushTailBytes, OutputCapacity(48000))
}

func TestStageEncodeAppendsFlushTail(t *testing.T) {
	enc := &fakeEncoder{}
	stage := NewStage(func(sampleRate int) (Encoder, error) {
		enc.sampleRate = sampleRate
		return enc, nil
	})

	payload, err := stage.Encode([]int16{1, 2, 3}, pcm.Format{SampleRate: 8000, Channels: 1})
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xfb, 3, 0xaa}, payload.Data)
	require.Equal(t, 3, payload.Frames)
	require.Equal(t, 8000, enc.sampleRate)
	require.Equal(t, []int16{1, 2, 3}, enc.right)
	require.True(t, enc.closed)
}

func TestStageEncodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		factory Factory
		format  pcm.Format
		wantErr string
	}{
		{
			name:    "init failure",
			factory: func(int) (Encoder, error) { return nil, errors.New("no lame") },
			format:  pcm.Format{SampleRate: 8000, Channels: 1},
			wantErr: "init encoder",
		},
		{
			name:    "encode failure",
			factory: func(int) (Encoder, error) { return &fakeEncoder{encodeErr: errors.New("boom")}, nil },
			format:  pcm.Format{SampleRate: 8000, Channels: 1},
			wantErr: "boom",
		},
		{
			name:    "flush failure",
			factory: func(int) (Encoder, error) { return &fakeEncoder{flushErr: errors.New("tail")}, nil },
			format:  pcm.Format{SampleRate: 8000, Channels: 2},
			wantErr: "flush",
		},
		{
			name:    "invalid format",
			factory: func(int) (Encoder, error) { return &fakeEncoder{}, nil },
			format:  pcm.Format{},
			wantErr: "sample rate",
		},
		{
			name:    "missing factory",
			format:  pcm.Format{SampleRate: 8000, Channels: 1},
			wantErr: "no encoder configured",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStage(tc.factory).Encode([]int16{1, 2}, tc.format)
			require.ErrorIs(t, err, ErrEncode)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
