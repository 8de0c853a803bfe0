// Package session coordinates the dictation lifecycle: capture, encode,
// transcribe, and inject, one session at a time.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/encode"
	"github.com/Astlaan/whisper-dictate/internal/fsm"
	"github.com/Astlaan/whisper-dictate/internal/indicator"
	"github.com/Astlaan/whisper-dictate/internal/ipc"
	"github.com/Astlaan/whisper-dictate/internal/pcm"
	"github.com/Astlaan/whisper-dictate/internal/transcribe"
	"github.com/Astlaan/whisper-dictate/internal/transcript"
)

// eventQueueSize bounds toggles waiting for the loop. Extra toggles are
// dropped at the sender.
const eventQueueSize = 16

// Notifier is the session-facing status surface.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
	Clear(ctx context.Context)
}

// Encoder turns captured samples into an upload payload.
type Encoder interface {
	Encode(samples []int16, format pcm.Format) (encode.Payload, error)
}

// Transcriber uploads a payload and returns recognized text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (transcribe.Result, error)
}

// Injector delivers text to the focused window.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Result is the outcome of one session, reported once it returns to idle.
type Result struct {
	ID              string
	Transcript      string
	Err             error
	Discarded       bool
	AudioDevice     string
	SamplesCaptured int
	Frames          int
	PayloadBytes    int
	UploadLatency   time.Duration
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Deps wires the controller to its stages. Nil stages are replaced with
// no-ops except Source, Encoder and Transcriber, which are required.
type Deps struct {
	Logger      *slog.Logger
	Source      audio.Source
	Encoder     Encoder
	Transcriber Transcriber
	Injector    Injector
	Notifier    Notifier
	Transcript  transcript.Options
	// DebugDir enables WAV/MP3 artifacts per session when non-empty.
	DebugDir string
	// OnResult observes every finished session.
	OnResult func(Result)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) {}
func (noopNotifier) Clear(context.Context)                  {}

type noopInjector struct{}

func (noopInjector) Inject(context.Context, string) error { return nil }

type event struct {
	seq uint64
}

// Controller owns the single Session and executes every transition on the
// goroutine running Run.
type Controller struct {
	logger      *slog.Logger
	source      audio.Source
	encoder     Encoder
	transcriber Transcriber
	injector    Injector
	notifier    Notifier
	transcript  transcript.Options
	debugDir    string
	onResult    func(Result)

	mu      sync.RWMutex
	session Session

	events chan event
	seq    atomic.Uint64
	// drainedThrough is the highest event seq discarded after a pipeline run.
	drainedThrough uint64
}

// NewController constructs a controller in the idle phase.
func NewController(deps Deps) (*Controller, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("session: audio source is required")
	}
	if deps.Encoder == nil {
		return nil, fmt.Errorf("session: encoder is required")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("session: transcriber is required")
	}
	if deps.Injector == nil {
		deps.Injector = noopInjector{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}

	return &Controller{
		logger:      deps.Logger,
		source:      deps.Source,
		encoder:     deps.Encoder,
		transcriber: deps.Transcriber,
		injector:    deps.Injector,
		notifier:    deps.Notifier,
		transcript:  deps.Transcript,
		debugDir:    deps.DebugDir,
		onResult:    deps.OnResult,
		session:     Session{Phase: fsm.StateIdle},
		events:      make(chan event, eventQueueSize),
	}, nil
}

// State returns the current phase snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Phase
}

// snapshot copies the session record for inspection.
func (c *Controller) snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Toggle requests the next transition. It never blocks. It reports false
// when the toggle was dropped, either because a pipeline is running or
// because the queue is full.
func (c *Controller) Toggle() bool {
	if c.State() == fsm.StateProcessing {
		c.logDebug("toggle dropped while processing")
		return false
	}

	ev := event{seq: c.seq.Add(1)}
	select {
	case c.events <- ev:
		return true
	default:
		c.logDebug("toggle dropped; queue full", "seq", ev.seq)
		return false
	}
}

// Run drains toggle events until ctx is cancelled. A pipeline already in
// progress finishes before Run observes cancellation; an active recording is
// stopped and discarded.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev := <-c.events:
			if ev.seq <= c.drainedThrough {
				c.logDebug("toggle discarded; queued during processing", "seq", ev.seq)
				continue
			}
			c.handleToggle(ctx)
		}
	}
}

// handleToggle applies one toggle to the current phase.
func (c *Controller) handleToggle(ctx context.Context) {
	ev, ok := fsm.ToggleEvent(c.State())
	if !ok {
		return
	}

	switch ev {
	case fsm.EventStart:
		c.start(ctx)
	case fsm.EventStop:
		c.stopAndProcess(ctx)
	}
}

// start opens capture and enters recording. Any failure leaves the phase
// idle and produces one notification.
func (c *Controller) start(ctx context.Context) {
	capture, err := c.source.Open(ctx)
	if err != nil {
		c.failStart(ctx, err)
		return
	}

	format := capture.Format()
	if err := format.Validate(); err != nil {
		_ = capture.Stop()
		c.failStart(ctx, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err))
		return
	}

	buffer := pcm.NewBuffer(format)
	if err := capture.Start(buffer); err != nil {
		_ = capture.Stop()
		c.failStart(ctx, err)
		return
	}

	c.mu.Lock()
	next, err := fsm.Transition(c.session.Phase, fsm.EventStart)
	if err != nil {
		c.mu.Unlock()
		_ = capture.Stop()
		c.failStart(ctx, err)
		return
	}
	c.session = Session{
		ID:        uuid.New().String(),
		Phase:     next,
		StartedAt: time.Now(),
		Format:    format,
		Capture:   capture,
		Buffer:    buffer,
	}
	id := c.session.ID
	c.mu.Unlock()

	c.logInfo("recording started",
		"session_id", id,
		"device", capture.Device().Label(),
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
	)
}

func (c *Controller) failStart(ctx context.Context, err error) {
	title, message := Describe(err)
	c.notifier.Notify(ctx, title, message)
	c.report(Result{Err: err, StartedAt: time.Now(), FinishedAt: time.Now()})
}

// stopAndProcess stops capture, takes the buffer, and runs the pipeline.
// The deferred reset restores idle on every path, panics included.
func (c *Controller) stopAndProcess(ctx context.Context) {
	c.mu.Lock()
	next, err := fsm.Transition(c.session.Phase, fsm.EventStop)
	if err != nil {
		c.mu.Unlock()
		c.logError("stop rejected", err)
		return
	}
	capture := c.session.Capture
	buffer := c.session.Buffer
	c.session.Phase = next
	c.session.Capture = nil
	c.session.Buffer = nil
	rec := c.session
	c.mu.Unlock()

	result := Result{
		ID:          rec.ID,
		AudioDevice: capture.Device().Label(),
		StartedAt:   rec.StartedAt,
	}
	defer func() {
		c.finish()
		result.FinishedAt = time.Now()
		c.report(result)
	}()

	// Exit signals must not cut a pipeline run short.
	runCtx := context.WithoutCancel(ctx)

	if err := capture.Stop(); err != nil {
		result.Err = err
		c.notifier.Notify(runCtx, indicator.TitleError, "Failed to stop audio: "+err.Error())
		return
	}
	samples := buffer.Take()
	result.SamplesCaptured = len(samples)

	if captureErr := capture.Err(); captureErr != nil {
		c.logWarn("capture ended early; continuing with partial audio",
			"session_id", rec.ID,
			"error", captureErr.Error(),
			"samples", len(samples),
		)
	}

	c.notifier.Notify(runCtx, indicator.TitleProcessing, indicator.MessageProcessing)

	text, err := c.runPipeline(runCtx, rec, samples, &result)
	if err != nil {
		result.Err = err
		title, message := Describe(err)
		c.notifier.Notify(runCtx, title, message)
		return
	}
	result.Transcript = text
	c.notifier.Clear(runCtx)
}

// runPipeline encodes, uploads, and injects. Injection errors are logged
// and never returned.
func (c *Controller) runPipeline(ctx context.Context, rec Session, samples []int16, result *Result) (string, error) {
	payload, err := c.encoder.Encode(samples, rec.Format)
	if err != nil {
		return "", err
	}
	result.Frames = payload.Frames
	result.PayloadBytes = len(payload.Data)

	if c.debugDir != "" {
		if err := writeDebugArtifacts(c.debugDir, rec.ID, samples, rec.Format, payload.Data); err != nil {
			c.logWarn("unable to write debug artifacts", "session_id", rec.ID, "error", err.Error())
		}
	}

	transcribed, err := c.transcriber.Transcribe(ctx, payload.Data)
	result.UploadLatency = transcribed.Latency
	if err != nil {
		return "", err
	}

	text := transcript.Normalize(transcribed.Text, c.transcript)
	if err := c.injector.Inject(ctx, text); err != nil {
		c.logDebug("text injection failed", "session_id", rec.ID, "error", err.Error())
	}
	return text, nil
}

// finish clears the session and discards toggles queued during processing.
func (c *Controller) finish() {
	c.mu.Lock()
	if next, err := fsm.Transition(c.session.Phase, fsm.EventFinish); err != nil {
		c.logError("finish transition rejected; forcing idle", err)
	} else {
		c.session.Phase = next
	}
	c.session.reset()
	c.mu.Unlock()

	c.drainedThrough = c.seq.Load()
}

// shutdown stops an active recording without processing it.
func (c *Controller) shutdown() {
	c.mu.Lock()
	rec := c.session
	c.session.reset()
	c.mu.Unlock()

	if rec.Phase != fsm.StateRecording || rec.Capture == nil {
		return
	}
	if err := rec.Capture.Stop(); err != nil {
		c.logWarn("stop capture during shutdown failed", "session_id", rec.ID, "error", err.Error())
	}
	discarded := 0
	if rec.Buffer != nil {
		discarded = len(rec.Buffer.Take())
	}
	c.report(Result{
		ID:              rec.ID,
		Discarded:       true,
		AudioDevice:     rec.Capture.Device().Label(),
		SamplesCaptured: discarded,
		StartedAt:       rec.StartedAt,
		FinishedAt:      time.Now(),
	})
}

// Handle serves IPC commands against the controller.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandToggle:
		state := c.State()
		if !c.Toggle() {
			return ipc.Response{OK: true, State: string(state), Message: "toggle dropped"}
		}
		return ipc.Response{OK: true, State: string(state), Message: "toggle queued"}
	default:
		resp := ipc.Failure("unknown command: %s", req.Command)
		resp.State = string(c.State())
		return resp
	}
}

func (c *Controller) report(result Result) {
	if c.onResult != nil {
		c.onResult(result)
	}
}

func (c *Controller) logDebug(message string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(message, attrs...)
}

func (c *Controller) logInfo(message string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(message, attrs...)
}

func (c *Controller) logWarn(message string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message, attrs...)
}

func (c *Controller) logError(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error(message, "error", err.Error())
}
