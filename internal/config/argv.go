package config

import (
	"fmt"

	"github.com/google/shlex"
)

// parseArgv splits a command string with POSIX shell quoting. A leading `#`
// comments out the rest of the line.
func parseArgv(input string) ([]string, error) {
	argv, err := shlex.Split(input)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", input, err)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
