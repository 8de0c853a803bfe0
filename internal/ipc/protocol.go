// Package ipc carries newline-delimited JSON commands over the daemon's
// unix socket.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Commands understood by the daemon.
const (
	CommandToggle = "toggle"
	CommandStatus = "status"
	CommandQuit   = "quit"
)

// maxMessageBytes caps one request or response line.
const maxMessageBytes = 64 << 10

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure builds a rejected response with a formatted error message.
func Failure(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// writeMessage encodes v as one JSON line.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readMessage decodes the next JSON line from r into v. A line without a
// trailing newline is accepted when the peer closes after writing it.
func readMessage(r io.Reader, v any, what string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxMessageBytes)
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(scanner.Bytes(), v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
