package indicator

import "strings"

// Titles and messages shown by the session.
const (
	TitleProcessing   = "Processing"
	TitleError        = "Error"
	TitleAPIError     = "API Error"
	MessageProcessing = "Processing audio transcription..."
)

// Format renders one status line as "title: message".
func Format(title, message string) string {
	return title + ": " + message
}

type severity int

const (
	severityInfo severity = iota
	severityError
)

func classify(title string) severity {
	if strings.Contains(strings.ToLower(title), "error") {
		return severityError
	}
	return severityInfo
}

// hyprStyle maps a severity to the hyprctl notify icon and color.
func hyprStyle(s severity) (icon int, color string) {
	if s == severityError {
		return 3, "rgb(f38ba8)"
	}
	return 1, "rgb(cba6f7)"
}
