//go:build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// PortAudioSource stub when the binary is built without PortAudio.
type PortAudioSource struct {
	SampleFormat pcm.SampleFormat
	Logger       *slog.Logger
}

func (PortAudioSource) Open(context.Context) (Capture, error) {
	return nil, fmt.Errorf("%w: portaudio backend not available: rebuild with -tags portaudio", ErrDeviceUnavailable)
}
