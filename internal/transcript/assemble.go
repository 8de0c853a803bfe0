// Package transcript normalizes recognized text before injection.
package transcript

import "strings"

// Options controls transcript formatting behavior.
type Options struct {
	TrailingSpace bool
}

// Normalize collapses whitespace runs and applies configured formatting.
// Text that is empty after collapsing stays empty.
func Normalize(text string, opts Options) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
