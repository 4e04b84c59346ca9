// Package avatars mirrors identity-provider profile pictures into object
// storage so the storefront can serve them from our origin instead of
// hotlinking the provider.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	downloadTimeout = 10 * time.Second
	maxAvatarBytes  = 5 << 20
)

// ObjectStorage defines the object operations the mirror needs, implemented
// per backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// Mirror copies provider avatars into the configured bucket and serves them
// back. A nil *Mirror is a no-op for writes and reports every avatar absent.
type Mirror struct {
	backend ObjectStorage
	client  *http.Client
	logger  *slog.Logger
}

// NewMirror constructs a Mirror for the provided backend.
func NewMirror(backend ObjectStorage, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		backend: backend,
		client:  &http.Client{Timeout: downloadTimeout},
		logger:  logger,
	}
}

// EnsureBucket ensures the configured bucket exists.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.backend.EnsureBucket(ctx)
}

// MirrorProfilePicture downloads sourceURL and stores it under the user's
// key. Failures are logged and swallowed: the avatar is a nicety, the login
// flow that triggered the mirror must not notice.
func (m *Mirror) MirrorProfilePicture(ctx context.Context, userID int, sourceURL string) {
	if m == nil || sourceURL == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		m.logger.Warn("avatar download request", "user_id", userID, "err", err)
		return
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("avatar download", "user_id", userID, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("avatar download", "user_id", userID, "status", resp.StatusCode)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxAvatarBytes)); err != nil {
		m.logger.Warn("avatar read", "user_id", userID, "err", err)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(buf.Bytes())
	}

	if err := m.backend.Put(ctx, objectKey(userID), &buf, int64(buf.Len()), contentType); err != nil {
		m.logger.Warn("avatar store", "user_id", userID, "bucket", m.backend.Bucket(), "err", err)
	}
}

// Open returns a reader for the user's mirrored avatar.
func (m *Mirror) Open(ctx context.Context, userID int) (io.ReadCloser, error) {
	if m == nil {
		return nil, fmt.Errorf("avatar storage not configured")
	}
	return m.backend.Get(ctx, objectKey(userID))
}

func objectKey(userID int) string {
	return fmt.Sprintf("avatars/user-%d", userID)
}
