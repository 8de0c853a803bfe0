package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astlaan/whisper-dictate/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "wayland")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.EqualFold(v, "wayland") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCredential(t *testing.T) {
	t.Setenv("DICTATE_TEST_KEY", "")
	check := checkCredential("DICTATE_TEST_KEY")
	require.False(t, check.Pass)
	require.Equal(t, "DICTATE_TEST_KEY environment variable not set", check.Message)

	t.Setenv("DICTATE_TEST_KEY", "sk-secret")
	check = checkCredential("DICTATE_TEST_KEY")
	require.True(t, check.Pass)
	require.NotContains(t, check.Message, "sk-secret")

	t.Setenv("OPENAI_API_KEY", "")
	check = checkCredential("")
	require.Equal(t, "OPENAI_API_KEY", check.Name)
	require.False(t, check.Pass)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "inject.clipboard")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "inject.clipboard")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "inject.clipboard command is available")
}

func TestCheckEndpointAnyStatusIsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(server.Close)

	check := checkEndpoint(context.Background(), server.URL)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 405")
}

func TestCheckEndpointUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	check := checkEndpoint(context.Background(), url)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckAudioFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudio(context.Background(), config.Default().Audio)
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestCheckAudioPortAudioSkipsPulse(t *testing.T) {
	cfg := config.Default().Audio
	cfg.Backend = "portaudio"
	check := checkAudio(context.Background(), cfg)
	require.True(t, check.Pass)
}

func TestCheckInjectHyprUsesClipboardCommand(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "fake-copy"), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	cfg := config.Default().Inject
	cfg.Backend = "hypr"
	cfg.Clipboard = config.CommandConfig{Raw: "fake-copy", Argv: []string{"fake-copy"}}

	checks := checkInject(context.Background(), cfg)
	require.Len(t, checks, 2)
	require.Equal(t, "fake-copy", checks[0].Name)
	require.True(t, checks[0].Pass)
	require.Equal(t, "hyprland", checks[1].Name)
	require.False(t, checks[1].Pass)
}

func TestCheckInjectAndIndicatorDisabled(t *testing.T) {
	inject := checkInject(context.Background(), config.InjectConfig{Backend: "none"})
	require.Len(t, inject, 1)
	require.True(t, inject[0].Pass)

	ind := checkIndicator(context.Background(), config.IndicatorConfig{Backend: "none"})
	require.Len(t, ind, 1)
	require.True(t, ind[0].Pass)
}

func TestCheckIndicatorDesktopNeedsSessionBus(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+filepath.Join(t.TempDir(), "missing-bus"))
	checks := checkIndicator(context.Background(), config.IndicatorConfig{Backend: "desktop"})
	require.Len(t, checks, 1)
	require.Equal(t, "indicator.desktop", checks[0].Name)
	require.False(t, checks[0].Pass)
}

func TestRunReportsMissingCredentialAndConfigDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.Default()
	cfg.Transcription.Endpoint = server.URL
	cfg.Inject.Backend = "none"
	cfg.Indicator.Backend = "none"

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.False(t, report.OK())

	byName := map[string]Check{}
	for _, check := range report.Checks {
		byName[check.Name] = check
	}
	require.Contains(t, byName["config"].Message, "using defaults")
	require.False(t, byName["OPENAI_API_KEY"].Pass)
	require.True(t, byName["transcription.endpoint"].Pass)
	require.False(t, byName["audio.device"].Pass)
}
