package audio

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

var (
	// ErrDeviceUnavailable indicates no usable input device or format could be resolved.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	// ErrStreamFailure indicates the capture stream failed to open, run, or stop.
	ErrStreamFailure = errors.New("audio capture stream failure")
)

// Source opens capture streams on the configured input device.
type Source interface {
	Open(context.Context) (Capture, error)
}

// Capture is one opened input stream. Format is fixed once Open returns.
// Start hands the stream its write capability; Stop is a synchronous
// barrier after which the sink receives no further samples.
type Capture interface {
	Device() Device
	Format() pcm.Format
	Start(pcm.Sink) error
	Stop() error
	// Err reports a failure that abandoned capture mid-recording, if any.
	Err() error
}

// gate guards delivery from a backend callback into the session sink.
// The callback never blocks on the session: it checks an atomic flag and
// holds the sink's lock only for one append.
type gate struct {
	logger *slog.Logger

	sink     pcm.Sink
	active   atomic.Bool
	inflight atomic.Int32
	samples  atomic.Int64

	errOnce sync.Once
	errMu   sync.Mutex
	err     error
}

// open arms the gate for sink. It must be called before the backend starts.
func (g *gate) open(sink pcm.Sink) {
	g.sink = sink
	g.active.Store(true)
}

// deliver appends one converted batch. It reports false once the gate is closed.
func (g *gate) deliver(batch pcm.Samples) bool {
	g.inflight.Add(1)
	defer g.inflight.Add(-1)

	if !g.active.Load() {
		return false
	}
	if batch == nil || batch.Len() == 0 {
		return true
	}
	g.sink.Append(batch.Int16())
	g.samples.Add(int64(batch.Len()))
	return true
}

// close stops delivery and waits for callbacks already past the flag check.
func (g *gate) close() {
	g.active.Store(false)
	for g.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

// fail abandons capture after a backend error. Samples already appended stay.
func (g *gate) fail(err error) {
	if err == nil {
		return
	}
	g.errOnce.Do(func() {
		g.errMu.Lock()
		g.err = err
		g.errMu.Unlock()
		g.active.Store(false)
		if g.logger != nil {
			g.logger.Error("audio capture abandoned", "error", err.Error(), "samples_kept", g.samples.Load())
		}
	})
}

func (g *gate) failure() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.err
}

// delivered reports how many samples reached the sink.
func (g *gate) delivered() int64 {
	return g.samples.Load()
}
