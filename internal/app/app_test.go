package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/config"
	"github.com/Astlaan/whisper-dictate/internal/encode"
	"github.com/Astlaan/whisper-dictate/internal/ipc"
	"github.com/Astlaan/whisper-dictate/internal/pcm"
	"github.com/Astlaan/whisper-dictate/internal/session"
	"github.com/Astlaan/whisper-dictate/internal/transcribe"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "whisper-dictate")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteInvalidConfig(t *testing.T) {
	paths := setupRunnerEnv(t, "audio:\n  backend: alsa\n")

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "audio.backend")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerQuitReturnsNoRunningDaemon(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "quit"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no running whisper-dictate daemon")
}

func TestRunnerForwardsCommandsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	commands := make(chan string, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "whisper-dictate.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "recording"}
		case ipc.CommandQuit, ipc.CommandToggle:
			return ipc.Response{OK: true, Message: req.Command + " handled"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	for _, cmd := range []string{"status", "quit", "toggle"} {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: stderr}

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		require.Equal(t, 0, exitCode, cmd)
		require.Empty(t, stderr.String(), cmd)
	}

	got := []string{<-commands, <-commands, <-commands}
	require.ElementsMatch(t, []string{"status", "quit", "toggle"}, got)
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "whisper-dictate.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		require.Equal(t, ipc.CommandStatus, req.Command)
		return ipc.Response{OK: true, State: ""}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "whisper-dictate.sock")

	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		if req.Command == ipc.CommandStatus {
			return ipc.Response{OK: true, State: "recording"}
		}
		return ipc.Response{OK: false, Error: "unsupported"}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "recording", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, "cancel")
	require.True(t, handled)
	require.ErrorContains(t, err, "unsupported")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "whisper-dictate.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "whisper-dictate.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.ErrorContains(t, err, "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	paths := setupRunnerEnv(t, strings.Join([]string{
		"transcription:",
		"  endpoint: " + server.URL,
		"  api_key_env: DICTATE_DOCTOR_KEY",
		"inject:",
		"  backend: none",
		"indicator:",
		"  backend: none",
		"",
	}, "\n"))
	t.Setenv("DICTATE_DOCTOR_KEY", "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "[OK] config: loaded")
	require.Contains(t, stdout.String(), "[FAIL] DICTATE_DOCTOR_KEY: DICTATE_DOCTOR_KEY environment variable not set")
	require.Contains(t, stdout.String(), "[OK] transcription.endpoint: HTTP 405")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestRunnerDevicesPortAudioNeedsNoServer(t *testing.T) {
	paths := setupRunnerEnv(t, "audio:\n  backend: portaudio\n")

	var stdout, stderr bytes.Buffer
	exitCode := Runner{Stdout: &stdout, Stderr: &stderr}.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "host default input device")
}

func TestWriteDeviceTable(t *testing.T) {
	var out bytes.Buffer
	writeDeviceTable(&out, []audio.Device{
		{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3", State: "running", Available: true, Default: true},
		{ID: "bluez_input.headset", Description: "Headset", State: "suspended", Available: true, Muted: true},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "ID")
	require.Contains(t, lines[0], "AVAILABLE")
	require.Regexp(t, `\*\s+\|\s+alsa_input\.usb-elgato\s+\|\s+Elgato Wave 3\s+\|\s+running\s+\|\s+yes\s+\|\s+no`, lines[2])
	require.Regexp(t, `bluez_input\.headset\s+\|\s+Headset\s+\|\s+suspended\s+\|\s+yes\s+\|\s+yes`, lines[3])
}

type stubCapture struct{}

func (stubCapture) Device() audio.Device { return audio.Device{ID: "stub"} }
func (stubCapture) Format() pcm.Format   { return pcm.Format{SampleRate: 8000, Channels: 1} }
func (stubCapture) Start(sink pcm.Sink) error {
	sink.Append(make([]int16, 800))
	return nil
}
func (stubCapture) Stop() error { return nil }
func (stubCapture) Err() error  { return nil }

type stubSource struct{ openErr error }

func (s stubSource) Open(context.Context) (audio.Capture, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return stubCapture{}, nil
}

type stubEncoder struct{}

func (stubEncoder) Encode(samples []int16, format pcm.Format) (encode.Payload, error) {
	return encode.Payload{Data: []byte("mp3"), Frames: format.Frames(len(samples))}, nil
}

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(context.Context, []byte) (transcribe.Result, error) {
	return transcribe.Result{Text: s.text, Status: http.StatusOK}, nil
}

type collectingInjector struct {
	mu    sync.Mutex
	texts []string
}

func (c *collectingInjector) Inject(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *collectingInjector) injected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func stubDeps(source audio.Source, injector *collectingInjector) DepsBuilder {
	return func(config.Config, *slog.Logger) (session.Deps, error) {
		return session.Deps{
			Source:      source,
			Encoder:     stubEncoder{},
			Transcriber: stubTranscriber{text: "hello"},
			Injector:    injector,
		}, nil
	}
}

func TestRunnerServeToggleAndQuit(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	injector := &collectingInjector{}

	daemon := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, BuildDeps: stubDeps(stubSource{}, injector)}
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- daemon.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	}()

	socketPath := filepath.Join(paths.runtimeDir, "whisper-dictate.sock")
	waitForDaemonState(t, socketPath, "idle")

	client := func(cmd string) (int, string) {
		stdout := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: &bytes.Buffer{}}
		code := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		return code, stdout.String()
	}

	code, out := client("toggle")
	require.Equal(t, 0, code)
	require.Equal(t, "toggle queued\n", out)
	waitForDaemonState(t, socketPath, "recording")

	code, _ = client("toggle")
	require.Equal(t, 0, code)
	require.Eventually(t, func() bool { return len(injector.injected()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"hello"}, injector.injected())
	waitForDaemonState(t, socketPath, "idle")

	code, out = client("quit")
	require.Equal(t, 0, code)
	require.Equal(t, "quitting\n", out)

	select {
	case exitCode := <-exitCh:
		require.Equal(t, 0, exitCode)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not exit after quit")
	}

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerToggleBecomesOwnerAndSurvivesStartFailure(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := Runner{
		Stdout:    &bytes.Buffer{},
		Stderr:    &bytes.Buffer{},
		BuildDeps: stubDeps(stubSource{openErr: audio.ErrDeviceUnavailable}, &collectingInjector{}),
	}
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- runner.Execute(ctx, []string{"--config", paths.configPath, "toggle"})
	}()

	socketPath := filepath.Join(paths.runtimeDir, "whisper-dictate.sock")
	waitForDaemonState(t, socketPath, "idle")

	cancel()
	select {
	case exitCode := <-exitCh:
		require.Equal(t, 0, exitCode)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not exit after cancellation")
	}

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerServeRefusesSecondDaemon(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "whisper-dictate.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "idle"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, BuildDeps: stubDeps(stubSource{}, &collectingInjector{})}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestLogSessionResultWritesFailureDiscardAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logSessionResult(logger, session.Result{
		ID:              "abc",
		StartedAt:       started,
		FinishedAt:      finished,
		AudioDevice:     "Mic",
		SamplesCaptured: 48000,
		Transcript:      "hello",
		UploadLatency:   20 * time.Millisecond,
	})
	require.Contains(t, logBuf.String(), "session complete")
	require.Contains(t, logBuf.String(), "\"transcript_length\":5")
	require.Contains(t, logBuf.String(), "\"duration_ms\":1500")

	logBuf.Reset()
	logSessionResult(logger, session.Result{StartedAt: started, FinishedAt: finished, Discarded: true})
	require.Contains(t, logBuf.String(), "session discarded")

	logBuf.Reset()
	logSessionResult(logger, session.Result{
		StartedAt:  started,
		FinishedAt: finished,
		Err:        errors.New("boom"),
	})
	require.Contains(t, logBuf.String(), "session failed")
	require.Contains(t, logBuf.String(), "boom")

	logSessionResult(nil, session.Result{})
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T, content string) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content+"\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func waitForDaemonState(t *testing.T, socketPath string, desired string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	last := ""
	for time.Now().Before(deadline) {
		resp, err := ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, 200*time.Millisecond)
		if err == nil {
			last = resp.State
			if resp.State == desired {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for daemon state %s (last=%q)", desired, last)
}
