package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// writeDebugArtifacts stores the captured PCM as WAV and the encoded payload
// as MP3 under dir, both named by session id.
func writeDebugArtifacts(dir string, id string, samples []int16, format pcm.Format, payload []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	wavPath := filepath.Join(dir, id+".wav")
	if err := writeWAV(wavPath, samples, format); err != nil {
		return err
	}

	if len(payload) > 0 {
		mp3Path := filepath.Join(dir, id+".mp3")
		if err := os.WriteFile(mp3Path, payload, 0o600); err != nil {
			return fmt.Errorf("write debug payload %q: %w", mp3Path, err)
		}
	}
	return nil
}

// writeWAV writes interleaved 16-bit samples as a PCM WAV file.
func writeWAV(path string, samples []int16, format pcm.Format) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open debug file %q: %w", path, err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, format.SampleRate, 16, format.Channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write debug wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize debug wav: %w", err)
	}
	return nil
}

// DebugDir returns the directory for debug artifacts under the XDG state home.
func DebugDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "whisper-dictate", "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", "whisper-dictate", "debug"), nil
}
