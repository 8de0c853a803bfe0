// Package hypr drives Hyprland through hyprctl: window lookup, shortcut
// dispatch and on-screen notifications.
package hypr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	hyprctlBinary      = "hyprctl"
	defaultNotifyColor = "rgb(89b4fa)"
)

// Window is the part of `hyprctl -j activewindow` needed to aim a paste.
type Window struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
}

// Notification is one `dispatch notify` call. Icon follows Hyprland's
// numbering; an empty Color takes the default accent.
type Notification struct {
	Icon      int
	TimeoutMS int
	Color     string
	Text      string
}

// ActiveWindow returns the focused window. A window without an address
// cannot be targeted and is reported as an error.
func ActiveWindow(ctx context.Context) (Window, error) {
	var w Window
	if err := query(ctx, "activewindow", &w); err != nil {
		return Window{}, err
	}
	w.Address = strings.TrimSpace(w.Address)
	w.Class = strings.TrimSpace(w.Class)
	w.InitialClass = strings.TrimSpace(w.InitialClass)
	if w.Address == "" {
		return Window{}, errors.New("hyprctl activewindow returned empty address")
	}
	return w, nil
}

// Available reports whether a Hyprland instance answers hyprctl.
func Available(ctx context.Context) error {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return errors.New("HYPRLAND_INSTANCE_SIGNATURE is not set")
	}
	var version map[string]any
	return query(ctx, "version", &version)
}

// SendShortcut dispatches a literal sendshortcut payload such as
// "CTRL,V,address:0x1".
func SendShortcut(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return errors.New("sendshortcut requires a non-empty payload")
	}
	return dispatch(ctx, "sendshortcut", payload)
}

func Notify(ctx context.Context, n Notification) error {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = defaultNotifyColor
	}
	return dispatch(ctx, "notify", strconv.Itoa(n.Icon), strconv.Itoa(n.TimeoutMS), color, n.Text)
}

func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}

func dispatch(ctx context.Context, args ...string) error {
	_, err := run(ctx, append([]string{"--quiet", "dispatch"}, args...)...)
	return err
}

func query(ctx context.Context, target string, v any) error {
	out, err := run(ctx, "-j", target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("decode hyprctl %s json: %w", target, err)
	}
	return nil
}

// run executes hyprctl and folds its combined output into the error.
func run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, hyprctlBinary, args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := bytes.TrimSpace(out); len(detail) > 0 {
		return nil, fmt.Errorf("hyprctl %s: %w (%s)", strings.Join(args, " "), err, detail)
	}
	return nil, fmt.Errorf("hyprctl %s: %w", strings.Join(args, " "), err)
}
