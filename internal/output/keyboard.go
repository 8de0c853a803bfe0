package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

const (
	clipboardSettleDelay = 80 * time.Millisecond
	restoreDelay         = 120 * time.Millisecond
)

type clipboardIO interface {
	ReadAll() (string, error)
	WriteAll(string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// keyboardPaster writes the clipboard and synthesizes Ctrl+V.
type keyboardPaster struct {
	clipboard clipboardIO
	press     func() error
	sleep     func(context.Context, time.Duration) error
}

func newKeyboardPaster(cb clipboardIO, press func() error) *keyboardPaster {
	return &keyboardPaster{clipboard: cb, press: press, sleep: sleepContext}
}

// Paste writes text, presses Ctrl+V, and restores the previous clipboard
// contents when restore is set and they could be read.
func (k *keyboardPaster) Paste(ctx context.Context, text string, restore bool) error {
	var (
		previous    string
		hadPrevious bool
	)
	if restore {
		if prev, err := k.clipboard.ReadAll(); err == nil {
			previous, hadPrevious = prev, true
		}
	}

	if err := k.clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if err := k.sleep(ctx, clipboardSettleDelay); err != nil {
		return err
	}

	if err := k.press(); err != nil {
		return fmt.Errorf("send ctrl+v: %w", err)
	}

	if !hadPrevious {
		return nil
	}
	if err := k.sleep(ctx, restoreDelay); err != nil {
		return err
	}
	if err := k.clipboard.WriteAll(previous); err != nil {
		return fmt.Errorf("restore clipboard: %w", err)
	}
	return nil
}

// newCtrlVPresser creates the virtual keyboard on first use. On Linux the
// uinput device needs a moment before the compositor accepts events from it.
func newCtrlVPresser() func() error {
	var (
		once    sync.Once
		bonding keybd_event.KeyBonding
		initErr error
	)
	return func() error {
		once.Do(func() {
			bonding, initErr = keybd_event.NewKeyBonding()
			if initErr == nil {
				time.Sleep(2 * time.Second)
			}
		})
		if initErr != nil {
			return fmt.Errorf("create virtual keyboard: %w", initErr)
		}
		bonding.Clear()
		bonding.HasCTRL(true)
		bonding.SetKeys(keybd_event.VK_V)
		return bonding.Launching()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
