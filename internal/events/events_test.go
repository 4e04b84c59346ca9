package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu        sync.Mutex
	published []publishCall
	err       error
}

type publishCall struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (b *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.published = append(b.published, publishCall{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (b *fakeBackend) Close() error { return nil }

func TestEmitPublishesJSON(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	ev := New(backend, nil)

	ev.Emit(context.Background(), AdminLockedOut("root"))

	if len(backend.published) != 1 {
		t.Fatalf("published %d messages", len(backend.published))
	}
	call := backend.published[0]
	if call.channel != Channel {
		t.Fatalf("channel: got %q", call.channel)
	}
	if call.attrs["type"] != TypeAdminLockedOut {
		t.Fatalf("type attr: got %q", call.attrs["type"])
	}

	var event Event
	if err := json.Unmarshal(call.data, &event); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if event.Type != TypeAdminLockedOut || event.Subject != "root" {
		t.Fatalf("payload: %+v", event)
	}
}

func TestEmitSwallowsBackendErrors(t *testing.T) {
	t.Parallel()

	ev := New(&fakeBackend{err: errors.New("broker down")}, nil)

	// Must not panic or surface the failure.
	ev.Emit(context.Background(), AdminLoginFailed("root"))
}

func TestNilEventsIsNoop(t *testing.T) {
	t.Parallel()

	var ev *Events
	ev.Emit(context.Background(), UserProvisioned("1", "a@x.com"))
	if err := ev.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
