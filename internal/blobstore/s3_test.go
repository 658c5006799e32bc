package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 is a minimal path-style object server.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	buckets      map[string]bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}, buckets: map[string]bool{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodPut:
			f.buckets[bucket] = true
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		f.contentTypes[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
	case http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T, fake *fakeS3) *S3Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), S3Config{
		Endpoint:  srv.URL,
		Bucket:    "media",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "/inkpost/",
		SpoolDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new s3 store: %v", err)
	}
	return store
}

func TestS3StorePutOpenDelete(t *testing.T) {
	fake := newFakeS3()
	store := newTestS3Store(t, fake)
	ctx := context.Background()

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	if !fake.buckets["media"] {
		t.Fatal("expected bucket created")
	}

	res, err := store.Put(ctx, "post/clip.mp4", bytes.NewBufferString("video-bytes"), "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if res.Key != "post/clip.mp4" || res.SizeBytes != int64(len("video-bytes")) || res.SHA256 == "" {
		t.Fatalf("unexpected put result %#v", res)
	}
	if got := string(fake.objects["media/inkpost/post/clip.mp4"]); got != "video-bytes" {
		t.Fatalf("expected prefixed object, got %q (objects=%v)", got, fake.objects)
	}
	if got := fake.contentTypes["media/inkpost/post/clip.mp4"]; got != "video/mp4" {
		t.Fatalf("expected content type, got %q", got)
	}

	rc, err := store.Open(ctx, "post/clip.mp4")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, "post/clip.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, "post/clip.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Backend() != "s3" {
		t.Fatalf("unexpected backend %s", store.Backend())
	}
}

func TestS3StoreRejectsInvalidKeys(t *testing.T) {
	store := newTestS3Store(t, newFakeS3())
	if _, err := store.Put(context.Background(), "../escape", bytes.NewBufferString("x"), ""); err == nil {
		t.Fatal("expected invalid key error")
	}
}
