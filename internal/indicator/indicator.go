// Package indicator renders session status lines on the desktop.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/Astlaan/whisper-dictate/internal/config"
	"github.com/Astlaan/whisper-dictate/internal/hypr"
)

// persistentTimeoutMS keeps informational lines visible until Clear.
const persistentTimeoutMS = 300000

// Notifier routes status lines to the configured backend. Failures are logged
// at debug level and never returned.
type Notifier struct {
	backend   string
	appName   string
	timeoutMS int
	logger    *slog.Logger

	beeepNotify func(title, message string, icon any) error
	desktop     desktopBus

	mu                    sync.Mutex
	desktopNotificationID uint32
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	appName := strings.TrimSpace(cfg.AppName)
	if appName == "" {
		appName = "whisper-dictate"
	}
	return &Notifier{
		backend:     strings.ToLower(strings.TrimSpace(cfg.Backend)),
		appName:     appName,
		timeoutMS:   cfg.TimeoutMS,
		logger:      logger,
		beeepNotify: beeep.Notify,
		desktop:     sessionBus{},
	}
}

// Notify shows "title: message".
func (n *Notifier) Notify(ctx context.Context, title, message string) {
	n.log("status", nil, "title", title, "message", message)

	sev := classify(title)
	timeout := persistentTimeoutMS
	if sev == severityError {
		timeout = n.errorTimeout()
	}

	n.run(ctx, func(ctx context.Context) error {
		switch n.backend {
		case "none":
			return nil
		case "hypr":
			icon, color := hyprStyle(sev)
			return hypr.Notify(ctx, hypr.Notification{
				Icon:      icon,
				TimeoutMS: timeout,
				Color:     color,
				Text:      Format(title, message),
			})
		case "beeep":
			beeep.AppName = n.appName
			return n.beeepNotify(title, message, "")
		default:
			desktopTimeout := timeout
			if sev == severityInfo {
				desktopTimeout = 0
			}
			return n.notifyDesktop(ctx, desktopTimeout, Format(title, message), sev == severityError)
		}
	})
}

// Clear dismisses the current status line.
func (n *Notifier) Clear(ctx context.Context) {
	n.run(ctx, func(ctx context.Context) error {
		switch n.backend {
		case "hypr":
			return hypr.DismissNotify(ctx)
		case "desktop", "":
			return n.dismissDesktop(ctx)
		default:
			return nil
		}
	})
}

func (n *Notifier) errorTimeout() int {
	if n.timeoutMS <= 0 {
		return 3000
	}
	return n.timeoutMS
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string, urgent bool) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	id, err := n.desktop.Notify(ctx, n.appName, replaceID, text, timeoutMS, urgent)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return n.desktop.CloseNotification(ctx, id)
}

// run executes a notifier operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err, "backend", n.backend)
	}
}

func (n *Notifier) log(message string, err error, attrs ...any) {
	if n.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	n.logger.Debug(message, attrs...)
}
