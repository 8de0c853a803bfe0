package config

import "strings"

type format string

const (
	formatJSONC format = "jsonc"
	formatYAML  format = "yaml"
)

// detectFormat picks JSONC when the first non-space byte opens an object and
// YAML for anything else. Empty content has no format.
func detectFormat(content string) (format, bool) {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return "", false
	case trimmed[0] == '{':
		return formatJSONC, true
	default:
		return formatYAML, true
	}
}

var decoders = map[format]func(string) (fileConfig, error){
	formatJSONC: decodeJSONC,
	formatYAML:  decodeYAML,
}

// Parse overlays content on base and validates the merged result. Warnings
// from applying the file come before validation warnings.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	var warnings []Warning

	if f, ok := detectFormat(content); ok {
		payload, err := decoders[f](content)
		if err != nil {
			return Config{}, nil, err
		}
		if warnings, err = payload.applyTo(&cfg); err != nil {
			return Config{}, nil, err
		}
	}

	validation, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validation...), nil
}
