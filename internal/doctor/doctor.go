// Package doctor runs runtime readiness diagnostics for config, credentials,
// audio, injection tools, notifications, and the transcription endpoint.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/godbus/dbus/v5"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/config"
	"github.com/Astlaan/whisper-dictate/internal/hypr"
	"github.com/Astlaan/whisper-dictate/internal/transcribe"
)

const endpointProbeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkCredential(cfg.Transcription.APIKeyEnv))
	checks = append(checks, checkAudio(ctx, cfg.Audio))
	checks = append(checks, checkInject(ctx, cfg.Inject)...)
	checks = append(checks, checkIndicator(ctx, cfg.Indicator)...)
	checks = append(checks, checkEndpoint(ctx, cfg.Transcription.Endpoint))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCredential reports whether the API key variable is set without
// printing its value.
func checkCredential(envName string) Check {
	if strings.TrimSpace(envName) == "" {
		envName = transcribe.DefaultAPIKeyEnv
	}
	return checkEnv(envName, func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "API key is set", fmt.Sprintf("%s environment variable not set", envName))
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudio resolves the capture device for the configured backend.
func checkAudio(ctx context.Context, cfg config.AudioConfig) Check {
	if cfg.Backend == "portaudio" {
		return Check{Name: "audio.device", Pass: true, Message: "portaudio uses the host default input device"}
	}

	selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkInject verifies the tools the configured injection backend shells out to.
func checkInject(ctx context.Context, cfg config.InjectConfig) []Check {
	switch cfg.Backend {
	case "none":
		return []Check{{Name: "inject", Pass: true, Message: "injection disabled"}}
	case "hypr":
		return []Check{
			checkCommand(cfg.Clipboard.Argv, "inject.clipboard"),
			checkHyprland(ctx),
		}
	default:
		if clipboard.Unsupported {
			return []Check{{Name: "inject.clipboard", Pass: false, Message: "no clipboard utility found (install wl-clipboard or xclip)"}}
		}
		return []Check{{Name: "inject.clipboard", Pass: true, Message: "system clipboard available"}}
	}
}

// checkIndicator verifies the tools the configured notification backend uses.
func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) []Check {
	switch cfg.Backend {
	case "none":
		return []Check{{Name: "indicator", Pass: true, Message: "notifications disabled"}}
	case "beeep":
		return []Check{{Name: "indicator", Pass: true, Message: "beeep notifications"}}
	case "hypr":
		return []Check{checkHyprland(ctx)}
	default:
		return []Check{checkNotificationServer(ctx)}
	}
}

// checkNotificationServer confirms a freedesktop notification server owns
// its well-known name on the session bus.
func checkNotificationServer(ctx context.Context) Check {
	const name = "indicator.desktop"

	conn, err := dbus.SessionBus()
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("session bus unavailable: %v", err)}
	}

	var owned bool
	call := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, "org.freedesktop.Notifications")
	if err := call.Store(&owned); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("query notification server: %v", err)}
	}
	if !owned {
		return Check{Name: name, Pass: false, Message: "no notification server on the session bus"}
	}
	return Check{Name: name, Pass: true, Message: "notification server available"}
}

func checkHyprland(ctx context.Context) Check {
	if err := hypr.Available(ctx); err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: "Hyprland session detected"}
}

// checkEndpoint confirms the transcription endpoint answers HTTP. Any status
// counts as reachable; no audio or credential is sent.
func checkEndpoint(ctx context.Context, endpoint string) Check {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = transcribe.DefaultEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, endpointProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Check{Name: "transcription.endpoint", Pass: false, Message: err.Error()}
	}
	resp, err := transcribe.NewHTTPClient(endpointProbeTimeout).Do(req)
	if err != nil {
		return Check{Name: "transcription.endpoint", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	_ = resp.Body.Close()

	return Check{Name: "transcription.endpoint", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
}
