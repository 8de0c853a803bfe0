package config

import (
	"fmt"
	"strings"
)

// fileConfig is the on-disk shape shared by the JSONC and YAML decoders.
// Pointer fields distinguish "absent" from zero values.
type fileConfig struct {
	Audio         *fileAudio         `json:"audio" yaml:"audio"`
	Transcription *fileTranscription `json:"transcription" yaml:"transcription"`
	Encoder       *fileEncoder       `json:"encoder" yaml:"encoder"`
	Inject        *fileInject        `json:"inject" yaml:"inject"`
	Indicator     *fileIndicator     `json:"indicator" yaml:"indicator"`
	Transcript    *fileTranscript    `json:"transcript" yaml:"transcript"`
	Log           *fileLog           `json:"log" yaml:"log"`
	Debug         *fileDebug         `json:"debug" yaml:"debug"`
}

type fileAudio struct {
	Backend      *string `json:"backend" yaml:"backend"`
	Input        *string `json:"input" yaml:"input"`
	Fallback     *string `json:"fallback" yaml:"fallback"`
	SampleFormat *string `json:"sample_format" yaml:"sample_format"`
}

type fileTranscription struct {
	Endpoint  *string `json:"endpoint" yaml:"endpoint"`
	Model     *string `json:"model" yaml:"model"`
	Language  *string `json:"language" yaml:"language"`
	Prompt    *string `json:"prompt" yaml:"prompt"`
	APIKeyEnv *string `json:"api_key_env" yaml:"api_key_env"`
	TimeoutMS *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileEncoder struct {
	BitrateKbps *int `json:"bitrate_kbps" yaml:"bitrate_kbps"`
	Quality     *int `json:"quality" yaml:"quality"`
}

type fileInject struct {
	Backend          *string `json:"backend" yaml:"backend"`
	ClipboardCmd     *string `json:"clipboard_cmd" yaml:"clipboard_cmd"`
	Shortcut         *string `json:"shortcut" yaml:"shortcut"`
	RestoreClipboard *bool   `json:"restore_clipboard" yaml:"restore_clipboard"`
}

type fileIndicator struct {
	Backend   *string `json:"backend" yaml:"backend"`
	AppName   *string `json:"app_name" yaml:"app_name"`
	TimeoutMS *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileTranscript struct {
	TrailingSpace *bool `json:"trailing_space" yaml:"trailing_space"`
}

type fileLog struct {
	Level   *string `json:"level" yaml:"level"`
	Console *bool   `json:"console" yaml:"console"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Audio != nil {
		setKeyword(&cfg.Audio.Backend, payload.Audio.Backend)
		setString(&cfg.Audio.Input, payload.Audio.Input)
		setString(&cfg.Audio.Fallback, payload.Audio.Fallback)
		setKeyword(&cfg.Audio.SampleFormat, payload.Audio.SampleFormat)
	}

	if t := payload.Transcription; t != nil {
		setTrimmed(&cfg.Transcription.Endpoint, t.Endpoint)
		setTrimmed(&cfg.Transcription.Model, t.Model)
		setTrimmed(&cfg.Transcription.Language, t.Language)
		setString(&cfg.Transcription.Prompt, t.Prompt)
		setTrimmed(&cfg.Transcription.APIKeyEnv, t.APIKeyEnv)
		if t.TimeoutMS != nil {
			cfg.Transcription.TimeoutMS = *t.TimeoutMS
		}
	}

	if payload.Encoder != nil {
		if payload.Encoder.BitrateKbps != nil {
			cfg.Encoder.BitrateKbps = *payload.Encoder.BitrateKbps
		}
		if payload.Encoder.Quality != nil {
			cfg.Encoder.Quality = *payload.Encoder.Quality
		}
	}

	if inj := payload.Inject; inj != nil {
		setKeyword(&cfg.Inject.Backend, inj.Backend)
		setTrimmed(&cfg.Inject.Shortcut, inj.Shortcut)
		if inj.RestoreClipboard != nil {
			cfg.Inject.RestoreClipboard = *inj.RestoreClipboard
		}
		if inj.ClipboardCmd != nil {
			raw := *inj.ClipboardCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid inject.clipboard_cmd: %w", err)
			}
			cfg.Inject.Clipboard = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if ind := payload.Indicator; ind != nil {
		setKeyword(&cfg.Indicator.Backend, ind.Backend)
		setTrimmed(&cfg.Indicator.AppName, ind.AppName)
		if ind.TimeoutMS != nil {
			cfg.Indicator.TimeoutMS = *ind.TimeoutMS
		}
	}

	if payload.Transcript != nil && payload.Transcript.TrailingSpace != nil {
		cfg.Transcript.TrailingSpace = *payload.Transcript.TrailingSpace
	}

	if payload.Log != nil {
		setKeyword(&cfg.Log.Level, payload.Log.Level)
		if payload.Log.Console != nil {
			cfg.Log.Console = *payload.Log.Console
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	if cfg.Transcription.Endpoint != "" && !strings.HasPrefix(cfg.Transcription.Endpoint, "https://") {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("transcription.endpoint %q is not https; the API key is sent in clear text", cfg.Transcription.Endpoint)})
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// setKeyword stores enum-like values trimmed and lowercased.
func setKeyword(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}
