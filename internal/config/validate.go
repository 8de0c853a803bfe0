package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	audioBackends     = []string{"pulse", "portaudio"}
	sampleFormats     = []string{"s16", "f32"}
	injectBackends    = []string{"keyboard", "hypr", "none"}
	indicatorBackends = []string{"desktop", "hypr", "beeep", "none"}
	logLevels         = []string{"debug", "info", "warn", "error"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := oneOf("audio.backend", cfg.Audio.Backend, audioBackends); err != nil {
		return nil, err
	}
	if err := oneOf("audio.sample_format", cfg.Audio.SampleFormat, sampleFormats); err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(cfg.Transcription.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("transcription.endpoint must not be empty")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("transcription.endpoint must be an absolute URL")
	}
	if strings.TrimSpace(cfg.Transcription.Model) == "" {
		return nil, fmt.Errorf("transcription.model must not be empty")
	}
	if strings.TrimSpace(cfg.Transcription.APIKeyEnv) == "" {
		return nil, fmt.Errorf("transcription.api_key_env must not be empty")
	}
	if cfg.Transcription.TimeoutMS < 0 {
		return nil, fmt.Errorf("transcription.timeout_ms must be >= 0")
	}

	if cfg.Encoder.BitrateKbps <= 0 {
		return nil, fmt.Errorf("encoder.bitrate_kbps must be > 0")
	}
	if cfg.Encoder.Quality < 0 || cfg.Encoder.Quality > 9 {
		return nil, fmt.Errorf("encoder.quality must be between 0 and 9")
	}

	if err := oneOf("inject.backend", cfg.Inject.Backend, injectBackends); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Inject.Backend, "hypr") {
		if len(cfg.Inject.Clipboard.Argv) == 0 {
			return nil, fmt.Errorf("inject.clipboard_cmd must not be empty when inject.backend=hypr")
		}
		if strings.TrimSpace(cfg.Inject.Shortcut) == "" {
			return nil, fmt.Errorf("inject.shortcut must not be empty when inject.backend=hypr")
		}
		if cfg.Inject.RestoreClipboard {
			warnings = append(warnings, Warning{Message: "inject.restore_clipboard is only honored by the keyboard backend"})
		}
	}

	if err := oneOf("indicator.backend", cfg.Indicator.Backend, indicatorBackends); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Indicator.Backend, "desktop") && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.TimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.timeout_ms must be >= 0")
	}

	if err := oneOf("log.level", cfg.Log.Level, logLevels); err != nil {
		return nil, err
	}

	return warnings, nil
}

func oneOf(key string, value string, allowed []string) error {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	for _, candidate := range allowed {
		if normalized == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}
