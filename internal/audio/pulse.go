package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

const pulseWatchInterval = 100 * time.Millisecond

// PulseSource opens record streams on a PulseAudio (or pipewire-pulse) source.
type PulseSource struct {
	Input        string
	Fallback     string
	SampleFormat pcm.SampleFormat
	Logger       *slog.Logger
}

// Open resolves the configured device and prepares a record stream at the
// source's native rate. Sources with more than two channels are requested as
// stereo and the server maps the remaining channels.
func (s PulseSource) Open(_ context.Context) (Capture, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	devices, err := listDevices(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	selection, err := selectDeviceFromList(devices, s.Input, s.Fallback)
	if err != nil {
		client.Close()
		return nil, err
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn(selection.Warning)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrDeviceUnavailable, selection.Device.ID, err)
	}

	format := pcm.Format{SampleRate: source.SampleRate(), Channels: len(source.Channels())}
	if format.Channels > 2 {
		format.Channels = 2
	}
	if err := format.Validate(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: source %q: %v", ErrDeviceUnavailable, selection.Device.ID, err)
	}

	sampleFormat := s.SampleFormat
	if sampleFormat == "" {
		sampleFormat = pcm.FormatS16
	}

	capture := &PulseCapture{
		device:       selection.Device,
		format:       format,
		sampleFormat: sampleFormat,
		client:       client,
		gate:         &gate{logger: s.Logger},
		done:         make(chan struct{}),
	}

	var wireFormat byte = pulseproto.FormatInt16LE
	if sampleFormat == pcm.FormatF32 {
		wireFormat = pulseproto.FormatFloat32LE
	}
	layout := pulse.RecordMono
	if format.Channels == 2 {
		layout = pulse.RecordStereo
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(capture.onPCM), wireFormat),
		pulse.RecordSource(source),
		layout,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordMediaName("whisper-dictate recording"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create pulse record stream: %v", ErrStreamFailure, err)
	}
	capture.stream = stream
	return capture, nil
}

// PulseCapture is one prepared Pulse record stream.
type PulseCapture struct {
	device       Device
	format       pcm.Format
	sampleFormat pcm.SampleFormat

	client *pulse.Client
	stream *pulse.RecordStream
	gate   *gate

	// pending carries a partial sample across writer calls.
	pending []byte

	stopOnce sync.Once
	done     chan struct{}
}

func (c *PulseCapture) Device() Device     { return c.device }
func (c *PulseCapture) Format() pcm.Format { return c.format }
func (c *PulseCapture) Err() error         { return c.gate.failure() }

// Start begins delivering samples into sink.
func (c *PulseCapture) Start(sink pcm.Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrStreamFailure)
	}
	c.gate.open(sink)
	c.stream.Start()
	go c.watch()
	return nil
}

// Stop closes the gate, waits for in-flight writer calls, then tears down
// the stream and client. It is safe to call more than once.
func (c *PulseCapture) Stop() error {
	c.stopOnce.Do(func() {
		close(c.done)
		c.gate.close()
		c.stream.Stop()
		c.stream.Close()
		c.client.Close()
	})
	return nil
}

// watch abandons capture when the server stops the stream underneath us.
func (c *PulseCapture) watch() {
	ticker := time.NewTicker(pulseWatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.stream.Running() {
				c.gate.fail(fmt.Errorf("%w: pulse record stream stopped unexpectedly", ErrStreamFailure))
				return
			}
		}
	}
}

// onPCM decodes whole samples from raw Pulse bytes and forwards them.
// Writer calls are serialized by the Pulse client.
func (c *PulseCapture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	width := c.sampleFormat.BytesPerSample()
	data := buffer
	if len(c.pending) > 0 {
		data = append(c.pending, buffer...)
		c.pending = nil
	}
	whole := len(data) - len(data)%width
	if whole < len(data) {
		c.pending = append([]byte(nil), data[whole:]...)
	}

	batch, err := pcm.Decode(c.sampleFormat, data[:whole])
	if err != nil {
		c.gate.fail(fmt.Errorf("%w: %v", ErrStreamFailure, err))
		return 0, io.EOF
	}
	if !c.gate.deliver(batch) {
		return 0, io.EOF
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
