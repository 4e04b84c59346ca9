package avatars

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) EnsureBucket(context.Context) error { return nil }

func (s *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Bucket() string { return "test-bucket" }

func TestMirrorProfilePicture(t *testing.T) {
	t.Parallel()

	image := []byte("\x89PNG\r\n\x1a\nfake-image-bytes")
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(image)
	}))
	t.Cleanup(source.Close)

	storage := newFakeStorage()
	mirror := NewMirror(storage, nil)

	mirror.MirrorProfilePicture(context.Background(), 7, source.URL+"/a.png")

	reader, err := mirror.Open(context.Background(), 7)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read avatar: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Fatalf("avatar bytes differ: got %d bytes", len(got))
	}
}

func TestMirrorSwallowsDownloadFailure(t *testing.T) {
	t.Parallel()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(source.Close)

	storage := newFakeStorage()
	mirror := NewMirror(storage, nil)

	mirror.MirrorProfilePicture(context.Background(), 7, source.URL+"/a.png")

	if _, err := mirror.Open(context.Background(), 7); err == nil {
		t.Fatal("expected missing avatar after failed download")
	}
}

func TestNilMirrorIsNoop(t *testing.T) {
	t.Parallel()

	var mirror *Mirror
	mirror.MirrorProfilePicture(context.Background(), 1, "http://example.com/a.png")
	if err := mirror.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket error: %v", err)
	}
	if _, err := mirror.Open(context.Background(), 1); err == nil {
		t.Fatal("expected error from nil mirror Open")
	}
}
