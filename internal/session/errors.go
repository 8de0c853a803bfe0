package session

import (
	"errors"
	"strings"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/encode"
	"github.com/Astlaan/whisper-dictate/internal/indicator"
	"github.com/Astlaan/whisper-dictate/internal/transcribe"
)

// Failure kinds raised by the stages, re-exported as one taxonomy.
var (
	ErrDeviceUnavailable = audio.ErrDeviceUnavailable
	ErrStreamFailure     = audio.ErrStreamFailure
	ErrEncode            = encode.ErrEncode
	ErrMissingCredential = transcribe.ErrMissingCredential
	ErrTransport         = transcribe.ErrTransport
	ErrRemoteRejection   = transcribe.ErrRemoteRejection
	ErrMalformedResponse = transcribe.ErrMalformedResponse
)

// Describe maps an aborting failure to the notification shown for it.
// Local failures use the "Error" title; anything the transcription endpoint
// caused uses "API Error".
func Describe(err error) (title string, message string) {
	if err == nil {
		return "", ""
	}

	switch {
	case errors.Is(err, ErrMissingCredential):
		return indicator.TitleError, detail(err, ErrMissingCredential)
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrRemoteRejection),
		errors.Is(err, ErrMalformedResponse):
		return indicator.TitleAPIError, err.Error()
	default:
		return indicator.TitleError, err.Error()
	}
}

// detail strips the sentinel prefix from a "%w: detail" error.
func detail(err error, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}
