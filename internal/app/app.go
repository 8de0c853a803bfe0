// Package app wires the command line to the daemon, its IPC surface, and
// the one-shot client commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/cli"
	"github.com/Astlaan/whisper-dictate/internal/config"
	"github.com/Astlaan/whisper-dictate/internal/doctor"
	"github.com/Astlaan/whisper-dictate/internal/encode"
	"github.com/Astlaan/whisper-dictate/internal/encode/mp3"
	"github.com/Astlaan/whisper-dictate/internal/indicator"
	"github.com/Astlaan/whisper-dictate/internal/ipc"
	"github.com/Astlaan/whisper-dictate/internal/logging"
	"github.com/Astlaan/whisper-dictate/internal/output"
	"github.com/Astlaan/whisper-dictate/internal/pcm"
	"github.com/Astlaan/whisper-dictate/internal/session"
	"github.com/Astlaan/whisper-dictate/internal/transcribe"
	"github.com/Astlaan/whisper-dictate/internal/transcript"
	"github.com/Astlaan/whisper-dictate/internal/version"
)

const (
	binaryName = "whisper-dictate"

	forwardTimeout = 220 * time.Millisecond
	probeTimeout   = 180 * time.Millisecond
	acquireRetries = 8
)

// DepsBuilder assembles the session stages from configuration.
type DepsBuilder func(cfg config.Config, logger *slog.Logger) (session.Deps, error)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// BuildDeps overrides stage construction; nil uses the configured backends.
	BuildDeps DepsBuilder
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		return r.fail(err)
	}

	logOpts := logging.Options{Level: cfgLoaded.Config.Log.Level}
	if cfgLoaded.Config.Log.Console {
		logOpts.Console = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"version", version.Version,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandQuit:
		return r.forwardOrFail(ctx, ipc.CommandQuit)
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	case cli.CommandServe:
		return r.runDaemon(ctx, cfgLoaded.Config, logger, false)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	if cfg.Audio.Backend == "portaudio" {
		fmt.Fprintln(r.Stdout, "portaudio backend records from the host default input device")
		return 0
	}

	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return r.fail(err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	writeDeviceTable(r.Stdout, devices)
	return 0
}

// writeDeviceTable renders one row per Pulse source; `*` marks the default.
func writeDeviceTable(w io.Writer, devices []audio.Device) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "ID", "Description", "State", "Available", "Muted"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, device := range devices {
		defaultMark := ""
		if device.Default {
			defaultMark = "*"
		}
		table.Append([]string{
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		})
	}
	table.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// fail reports err on stderr and yields the runtime-failure exit code.
func (r Runner) fail(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			return r.fail(err)
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running %s daemon\n", binaryName)
		return 1
	}
	if err != nil {
		return r.fail(err)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandToggle forwards to a running daemon, or becomes the daemon and
// starts recording right away.
func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		if err != nil {
			return r.fail(err)
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	return r.runDaemon(ctx, cfg, logger, true)
}

// runDaemon owns the runtime socket and the session controller until ctx is
// cancelled or a quit request arrives. SIGUSR1 toggles recording.
func (r Runner) runDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger, toggleOnStart bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, probeTimeout, acquireRetries, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) && toggleOnStart {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.CommandToggle)
			if forwardErr != nil {
				return r.fail(forwardErr)
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		return r.fail(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	build := r.BuildDeps
	if build == nil {
		build = buildDeps
	}
	deps, err := build(cfg, logger)
	if err != nil {
		return r.fail(err)
	}
	deps.Logger = logger
	deps.OnResult = func(result session.Result) { logSessionResult(logger, result) }

	controller, err := session.NewController(deps)
	if err != nil {
		return r.fail(err)
	}

	daemonCtx, quit := context.WithCancel(ctx)
	defer quit()

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1)
	defer signal.Stop(toggles)

	// The server outlives daemonCtx so status and quit stay answerable
	// while a final pipeline run completes.
	var group errgroup.Group
	group.Go(func() error {
		if err := ipc.Serve(serverCtx, listener, daemonHandler(controller, quit, logger)); err != nil {
			quit()
			return fmt.Errorf("ipc server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		for {
			select {
			case <-daemonCtx.Done():
				return nil
			case <-toggles:
				controller.Toggle()
			}
		}
	})
	group.Go(func() error {
		defer serverCancel()
		defer quit()
		return controller.Run(daemonCtx)
	})

	logger.Info("daemon ready", "socket", socketPath, "toggle_on_start", toggleOnStart)
	if toggleOnStart {
		controller.Toggle()
	}

	err = group.Wait()
	logger.Info("daemon exiting")
	if err != nil {
		return r.fail(err)
	}
	return 0
}

// daemonHandler serves quit itself and hands every other command to the
// controller.
func daemonHandler(controller *session.Controller, quit context.CancelFunc, logger *slog.Logger) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		if req.Command == ipc.CommandQuit {
			logger.Info("quit requested over ipc")
			quit()
			return ipc.Response{OK: true, State: string(controller.State()), Message: "quitting"}
		}
		return controller.Handle(ctx, req)
	})
}

// buildDeps wires the configured capture, encode, upload, inject, and
// notification backends.
func buildDeps(cfg config.Config, logger *slog.Logger) (session.Deps, error) {
	sampleFormat := pcm.SampleFormat(cfg.Audio.SampleFormat)

	var source audio.Source
	switch cfg.Audio.Backend {
	case "portaudio":
		source = audio.PortAudioSource{SampleFormat: sampleFormat, Logger: logger}
	default:
		source = audio.PulseSource{
			Input:        cfg.Audio.Input,
			Fallback:     cfg.Audio.Fallback,
			SampleFormat: sampleFormat,
			Logger:       logger,
		}
	}

	debugDir := ""
	if cfg.Debug.EnableAudioDump {
		dir, err := session.DebugDir()
		if err != nil {
			return session.Deps{}, fmt.Errorf("resolve debug dir: %w", err)
		}
		debugDir = dir
	}

	return session.Deps{
		Source: source,
		Encoder: encode.NewStage(mp3.Factory(mp3.Settings{
			BitrateKbps: cfg.Encoder.BitrateKbps,
			Quality:     cfg.Encoder.Quality,
		})),
		Transcriber: transcribe.New(transcribe.Config{
			Endpoint:  cfg.Transcription.Endpoint,
			Model:     cfg.Transcription.Model,
			Language:  cfg.Transcription.Language,
			Prompt:    cfg.Transcription.Prompt,
			APIKeyEnv: cfg.Transcription.APIKeyEnv,
			UserAgent: version.UserAgent(),
			Timeout:   time.Duration(cfg.Transcription.TimeoutMS) * time.Millisecond,
		}),
		Injector:   output.NewInjector(cfg.Inject, logger),
		Notifier:   indicator.New(cfg.Indicator, logger),
		Transcript: transcript.Options{TrailingSpace: cfg.Transcript.TrailingSpace},
		DebugDir:   debugDir,
	}, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"session_id", result.ID,
		"discarded", result.Discarded,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.AudioDevice,
		"samples_captured", result.SamplesCaptured,
		"frames", result.Frames,
		"payload_bytes", result.PayloadBytes,
		"transcript_length", len(result.Transcript),
		"upload_latency_ms", result.UploadLatency.Milliseconds(),
	}

	switch {
	case result.Err != nil:
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
	case result.Discarded:
		logger.Info("session discarded", fields...)
	default:
		logger.Info("session complete", fields...)
	}
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNoDaemon(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
