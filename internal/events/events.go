// Package events publishes authentication events to a message broker so
// downstream systems (fraud review, audit trails) can consume them without
// coupling to this service. Publishing is best-effort: a broker outage must
// never fail or slow down a login.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Channel is the broker channel all auth events are published to.
const Channel = "auth.events"

// Event types.
const (
	TypeAdminLoginSucceeded = "admin.login_succeeded"
	TypeAdminLoginFailed    = "admin.login_failed"
	TypeAdminLockedOut      = "admin.locked_out"
	TypeUserProvisioned     = "user.provisioned"
)

const publishTimeout = 5 * time.Second

// Event is the JSON payload published to the channel.
type Event struct {
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Email   string    `json:"email,omitempty"`
	At      time.Time `json:"at"`
}

func AdminLoginSucceeded(adminID string) Event {
	return Event{Type: TypeAdminLoginSucceeded, Subject: adminID, At: time.Now()}
}

func AdminLoginFailed(adminID string) Event {
	return Event{Type: TypeAdminLoginFailed, Subject: adminID, At: time.Now()}
}

func AdminLockedOut(adminID string) Event {
	return Event{Type: TypeAdminLockedOut, Subject: adminID, At: time.Now()}
}

func UserProvisioned(subject, email string) Event {
	return Event{Type: TypeUserProvisioned, Subject: subject, Email: email, At: time.Now()}
}

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Events wraps a backend with a stable API. A nil *Events is a no-op, so
// callers need no "events enabled" branches.
type Events struct {
	backend Backend
	logger  *slog.Logger
}

// New constructs an Events wrapper for the provided backend.
func New(backend Backend, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{backend: backend, logger: logger}
}

// Emit publishes the event. Failures are logged and swallowed; the publish
// uses its own deadline detached from the request context so a disconnecting
// client does not abort it.
func (e *Events) Emit(ctx context.Context, event Event) {
	if e == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("marshal auth event", "type", event.Type, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := e.backend.Publish(ctx, Channel, data, map[string]string{"type": event.Type}); err != nil {
		e.logger.Error("publish auth event", "type", event.Type, "err", err)
	}
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	if e == nil {
		return nil
	}
	return e.backend.Close()
}
