package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "whisper-dictate"
	configFileName = "config.jsonc"
	yamlFileName   = "config.yaml"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// yamlFallback returns the sibling config.yaml when an implicit config.jsonc
// path does not exist.
func yamlFallback(resolved string) (string, bool) {
	if filepath.Base(resolved) != configFileName {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(resolved), yamlFileName)
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}
