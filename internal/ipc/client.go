package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Send dials path, writes req and waits for one response line. timeout
// bounds the dial and the whole exchange.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := writeMessage(conn, req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := readMessage(conn, &resp, "response"); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// IsNoDaemon reports whether err means nothing is listening on the socket:
// the file is gone or the kernel refused the connection.
func IsNoDaemon(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}

// Probe reports whether a live daemon answers a status request on path.
// A missing or refusing socket is not an error; a socket that accepts but
// never answers is.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case IsNoDaemon(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}
