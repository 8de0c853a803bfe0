// Package config resolves, parses, validates, and defaults whisper-dictate configuration.
package config

// Config is the fully materialized runtime configuration used by whisper-dictate.
type Config struct {
	Audio         AudioConfig
	Transcription TranscriptionConfig
	Encoder       EncoderConfig
	Inject        InjectConfig
	Indicator     IndicatorConfig
	Transcript    TranscriptConfig
	Log           LogConfig
	Debug         DebugConfig
}

// AudioConfig controls the capture backend and input-source selection.
type AudioConfig struct {
	Backend      string
	Input        string
	Fallback     string
	SampleFormat string
}

// TranscriptionConfig controls the upload request and credential lookup.
type TranscriptionConfig struct {
	Endpoint  string
	Model     string
	Language  string
	Prompt    string
	APIKeyEnv string
	TimeoutMS int
}

// EncoderConfig holds the MP3 encoder parameters.
type EncoderConfig struct {
	BitrateKbps int
	Quality     int
}

// InjectConfig controls how transcript text reaches the focused window.
type InjectConfig struct {
	Backend          string
	Clipboard        CommandConfig
	Shortcut         string
	RestoreClipboard bool
}

// IndicatorConfig controls status notifications.
type IndicatorConfig struct {
	Backend   string
	AppName   string
	TimeoutMS int
}

// TranscriptConfig controls transcript normalization before injection.
type TranscriptConfig struct {
	TrailingSpace bool
}

// LogConfig controls the JSONL log level. Console mirrors records to stderr.
type LogConfig struct {
	Level   string
	Console bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
