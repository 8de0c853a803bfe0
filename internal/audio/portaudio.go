//go:build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// PortAudioSource captures from the host's default input device.
type PortAudioSource struct {
	SampleFormat pcm.SampleFormat
	Logger       *slog.Logger
}

// Open initializes PortAudio and prepares a callback stream at the default
// input device's native rate and channel count.
func (s PortAudioSource) Open(_ context.Context) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %v", ErrDeviceUnavailable, err)
	}

	info, err := portaudio.DefaultInputDevice()
	if err != nil || info == nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
	}

	format := pcm.Format{SampleRate: int(info.DefaultSampleRate), Channels: info.MaxInputChannels}
	if err := format.Validate(); err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: device %q: %v", ErrDeviceUnavailable, info.Name, err)
	}

	capture := &PortAudioCapture{
		device: Device{ID: info.Name, Description: info.Name, Available: true, Default: true},
		format: format,
		gate:   &gate{logger: s.Logger},
	}

	var callback any
	switch s.SampleFormat {
	case pcm.FormatF32:
		callback = func(in []float32) { capture.gate.deliver(pcm.Float32Samples(in)) }
	default:
		callback = func(in []int16) { capture.gate.deliver(pcm.Int16Samples(in)) }
	}

	stream, err := portaudio.OpenDefaultStream(
		format.Channels,
		0,
		info.DefaultSampleRate,
		portaudio.FramesPerBufferUnspecified,
		callback,
	)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open portaudio stream: %v", ErrStreamFailure, err)
	}
	capture.stream = stream

	if s.Logger != nil {
		s.Logger.Info("portaudio input opened",
			"device", info.Name,
			"sample_rate", format.SampleRate,
			"channels", format.Channels,
		)
	}
	return capture, nil
}

// PortAudioCapture is one prepared PortAudio callback stream.
type PortAudioCapture struct {
	device Device
	format pcm.Format
	stream *portaudio.Stream
	gate   *gate

	stopOnce sync.Once
	stopErr  error
}

func (c *PortAudioCapture) Device() Device     { return c.device }
func (c *PortAudioCapture) Format() pcm.Format { return c.format }
func (c *PortAudioCapture) Err() error         { return c.gate.failure() }

// Start begins delivering samples into sink.
func (c *PortAudioCapture) Start(sink pcm.Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrStreamFailure)
	}
	c.gate.open(sink)
	if err := c.stream.Start(); err != nil {
		c.gate.close()
		_ = c.stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: start portaudio stream: %v", ErrStreamFailure, err)
	}
	return nil
}

// Stop closes the gate and stops the stream. PortAudio's Stop returns only
// after pending callbacks complete.
func (c *PortAudioCapture) Stop() error {
	c.stopOnce.Do(func() {
		c.gate.close()
		if err := c.stream.Stop(); err != nil {
			c.stopErr = fmt.Errorf("%w: stop portaudio stream: %v", ErrStreamFailure, err)
		}
		_ = c.stream.Close()
		_ = portaudio.Terminate()
	})
	return c.stopErr
}
