package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/image-slots/pkg/imageslots"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "users/alice/0.png"

	// Upload
	data := []byte("png bytes")
	if err := backend.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Exists
	ok, err := backend.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected blob to exist, ok=%v err=%v", ok, err)
	}

	// Download
	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	// Delete
	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "users", "alice", "0.png")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestFSBackend_DeleteMissingKey(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	// Idempotent: deleting a key that was never written succeeds.
	if err := backend.Delete(context.Background(), "users/alice/9.png"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestFSBackend_DownloadMissingKey(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	_, err = backend.Download(context.Background(), "users/alice/9.png")
	if !errors.Is(err, imageslots.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestFSBackend_OverwriteReplacesContent(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "users/alice/0.png"

	if err := backend.Upload(ctx, key, bytes.NewReader([]byte("old"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := backend.Upload(ctx, key, bytes.NewReader([]byte("new"))); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != "new" {
		t.Fatalf("expected overwritten content, got %q", string(got))
	}
}

func TestFSBackend_CompressedRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, Compress: true})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "users/alice/0.png"
	data := bytes.Repeat([]byte("compressible "), 1024)

	if err := backend.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// The on-disk file is zstd, not the raw payload.
	raw, err := os.ReadFile(filepath.Join(tmp, "users", "alice", "0.png"))
	if err != nil {
		t.Fatalf("read raw file: %v", err)
	}
	if len(raw) >= len(data) {
		t.Fatalf("expected compressed file smaller than payload: %d >= %d", len(raw), len(data))
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("compressed round trip mismatch: %d vs %d bytes", len(got), len(data))
	}
}

func TestFSBackend_DeleteKeepsUserDirectory(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	if err := backend.Upload(ctx, "users/alice/0.png", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := backend.Delete(ctx, "users/alice/0.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// users/alice doubles as the user namespace when blobs and the user
	// directory share a root. Removing the last blob must leave it behind.
	info, err := os.Stat(filepath.Join(tmp, "users", "alice"))
	if err != nil {
		t.Fatalf("expected user directory to survive, stat err=%v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be a directory", info.Name())
	}
}

func TestFSBackend_NoTempFilesLeftBehind(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	if err := backend.Upload(ctx, "users/alice/0.png", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(tmp, "users", "alice"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "0.png" {
		t.Fatalf("expected only committed file, got %v", entries)
	}
}
