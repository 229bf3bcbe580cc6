package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tendant/image-slots/pkg/imageslots"
)

func TestMemoryBackend_BasicOps(t *testing.T) {
	backend := New()
	ctx := context.Background()
	key := "users/alice/0.png"

	if err := backend.Upload(ctx, key, bytes.NewReader([]byte("data"))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	ok, err := backend.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected blob to exist, ok=%v err=%v", ok, err)
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != "data" {
		t.Fatalf("download mismatch: %q", string(got))
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, _ = backend.Exists(ctx, key)
	if ok {
		t.Fatal("expected blob removed")
	}

	// Idempotent delete
	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryBackend_DownloadMissingKey(t *testing.T) {
	backend := New()

	_, err := backend.Download(context.Background(), "users/alice/9.png")
	if !errors.Is(err, imageslots.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestMemoryBackend_ReaderUnaffectedByOverwrite(t *testing.T) {
	backend := New()
	ctx := context.Background()
	key := "users/alice/0.png"

	if err := backend.Upload(ctx, key, bytes.NewReader([]byte("first"))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	if err := backend.Upload(ctx, key, bytes.NewReader([]byte("second"))); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, _ := io.ReadAll(rc)
	if string(got) != "first" {
		t.Fatalf("open reader saw later write: %q", string(got))
	}
}
