package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorePutOpenDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	res, err := store.Put(context.Background(), "/post/abc.mp4", bytes.NewBufferString("hello"), "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if res.Key != "post/abc.mp4" || res.SizeBytes != 5 {
		t.Fatalf("unexpected put result: %#v", res)
	}
	if res.SHA256 != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected digest %s", res.SHA256)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "post", "abc.mp4")); err != nil {
		t.Fatalf("expected file laid out by key: %v", err)
	}

	rc, err := store.Open(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", string(data))
	}

	if err := store.Delete(context.Background(), res.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), res.Key); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
	if _, err := store.Open(context.Background(), res.Key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestLocalStoreFailedPutLeavesNothing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	if _, err := store.Put(context.Background(), "post/x.mp4", io.MultiReader(bytes.NewBufferString("part"), failingReader{}), ""); err == nil {
		t.Fatal("expected put error")
	}
	entries, err := os.ReadDir(filepath.Join(store.Root(), tmpDirName))
	if err != nil {
		t.Fatalf("read tmp: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp files removed, found %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "post", "x.mp4")); !os.IsNotExist(err) {
		t.Fatalf("expected no object, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"post/a.mp4", "avatar/b.png", " branding/c.svg "}
	for _, key := range valid {
		if err := ValidateKey(key); err != nil {
			t.Fatalf("expected %q valid, got %v", key, err)
		}
	}
	invalid := []string{"", "/etc/passwd", "../x", "post/../../x", "post//a", `post\a`, ".tmp/put-1", "post/./a"}
	for _, key := range invalid {
		if err := ValidateKey(key); err == nil {
			t.Fatalf("expected %q rejected", key)
		}
	}
}
