package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Audio: AudioConfig{
			Backend:      "pulse",
			Input:        "default",
			Fallback:     "default",
			SampleFormat: "s16",
		},
		Transcription: TranscriptionConfig{
			Endpoint:  "https://api.openai.com/v1/audio/transcriptions",
			Model:     "whisper-1",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Encoder: EncoderConfig{BitrateKbps: 128, Quality: 2},
		Inject: InjectConfig{
			Backend:   "keyboard",
			Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
			Shortcut:  "CTRL,V",
		},
		Indicator: IndicatorConfig{
			Backend:   "desktop",
			AppName:   "whisper-dictate",
			TimeoutMS: 3000,
		},
		Log: LogConfig{Level: "info"},
	}
}
