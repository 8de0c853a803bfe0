// Package output delivers transcript text to the focused window.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Astlaan/whisper-dictate/internal/config"
)

// Injector pastes transcript text through the configured backend. Callers
// treat every error as best-effort.
type Injector struct {
	cfg    config.InjectConfig
	logger *slog.Logger

	keyboard *keyboardPaster
}

// NewInjector constructs an injector from runtime config.
func NewInjector(cfg config.InjectConfig, logger *slog.Logger) *Injector {
	return &Injector{
		cfg:      cfg,
		logger:   logger,
		keyboard: newKeyboardPaster(systemClipboard{}, newCtrlVPresser()),
	}
}

// Inject places text into the focused window. Empty text is a no-op.
func (i *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(i.cfg.Backend)) {
	case "none":
		return nil
	case "hypr":
		return i.injectHypr(ctx, text)
	default:
		return i.keyboard.Paste(ctx, text, i.cfg.RestoreClipboard)
	}
}

// injectHypr writes text with the clipboard command and then dispatches the
// paste shortcut to the active Hyprland window.
func (i *Injector) injectHypr(ctx context.Context, text string) error {
	clipboardCtx, clipboardCancel := context.WithTimeout(ctx, 2*time.Second)
	defer clipboardCancel()
	if err := runCommandWithInput(clipboardCtx, i.cfg.Clipboard.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	pasteCtx, pasteCancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer pasteCancel()
	if err := hyprPaste(pasteCtx, i.cfg.Shortcut); err != nil {
		i.logPasteFailure(err)
		return fmt.Errorf("paste: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (i *Injector) logPasteFailure(err error) {
	if i.logger == nil || err == nil {
		return
	}
	i.logger.Debug("paste dispatch failed; clipboard remains set", "error", err.Error())
}
