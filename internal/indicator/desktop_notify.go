package indicator

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"

	urgencyCritical byte = 2
)

// desktopBus is the freedesktop notification surface.
type desktopBus interface {
	Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int, urgent bool) (uint32, error)
	CloseNotification(ctx context.Context, id uint32) error
}

// sessionBus talks to the notification server on the user's DBus session bus.
type sessionBus struct{}

// Notify returns the ID the server assigned, which replaces replaceID when
// that is non-zero. Urgent lines carry the critical urgency hint.
func (sessionBus) Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int, urgent bool) (uint32, error) {
	obj, err := notificationsObject()
	if err != nil {
		return 0, err
	}

	hints := map[string]dbus.Variant{}
	if urgent {
		hints["urgency"] = dbus.MakeVariant(urgencyCritical)
	}

	call := obj.CallWithContext(ctx, notificationsIface+".Notify", 0,
		appName, replaceID, "", summary, "", []string{}, hints, int32(timeoutMS))
	if call.Err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("desktop notify invalid response: %w", err)
	}
	return id, nil
}

// CloseNotification requests explicit close by notification ID.
func (sessionBus) CloseNotification(ctx context.Context, id uint32) error {
	obj, err := notificationsObject()
	if err != nil {
		return err
	}
	if call := obj.CallWithContext(ctx, notificationsIface+".CloseNotification", 0, id); call.Err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", call.Err)
	}
	return nil
}

func notificationsObject() (dbus.BusObject, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn.Object(notificationsDest, notificationsPath), nil
}
