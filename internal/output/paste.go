package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Astlaan/whisper-dictate/internal/hypr"
)

const (
	focusAttempts = 5
	focusDelay    = 10 * time.Millisecond
)

// hyprPaste aims shortcut at the focused window's address, so a focus
// change while the shortcut is in flight does not move the paste.
func hyprPaste(ctx context.Context, shortcut string) error {
	window, err := pasteTarget(ctx, focusAttempts, focusDelay)
	if err != nil {
		return err
	}
	payload, err := shortcutFor(shortcut, window)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

func shortcutFor(shortcut string, window hypr.Window) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", errors.New("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(window.Address)
	if address == "" {
		return "", errors.New("active window address is required")
	}
	return shortcut + ",address:" + address, nil
}

// pasteTarget asks Hyprland for the focused window, retrying while focus
// settles after the hotkey release.
func pasteTarget(ctx context.Context, attempts int, delay time.Duration) (hypr.Window, error) {
	attempts = max(attempts, 1)

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		window, err := hypr.ActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if attempt == attempts {
			return hypr.Window{}, fmt.Errorf("resolve active window: %w", lastErr)
		}

		select {
		case <-ctx.Done():
			return hypr.Window{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
