package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded is the outcome of Load: where the config came from, the merged
// values and any non-fatal warnings. Exists is false when defaults were used.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config file, overlays it on Default and validates the
// result. A missing file is not an error: defaults are returned with a
// warning naming the path that was tried.
func Load(explicitPath string) (Loaded, error) {
	path, err := locate(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Loaded{
			Path:     path,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}},
		}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

// locate picks the file Load reads. An explicit path is used as given;
// otherwise config.jsonc is preferred and config.yaml is the fallback.
func locate(explicitPath string) (string, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil || strings.TrimSpace(explicitPath) != "" {
		return path, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if fallback, ok := yamlFallback(path); ok {
			return fallback, nil
		}
	}
	return path, nil
}
