// Package fs provides a filesystem implementation of the
// imageslots.BlobStore interface.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// Backend is a filesystem implementation of the imageslots.BlobStore
// interface. Writes go to a temporary file in the target directory and are
// renamed into place, so a blob is either fully present or absent; a
// cancelled upload never leaves a partial blob at the final key.
type Backend struct {
	baseDir  string
	compress bool
}

// Config options for the filesystem backend
type Config struct {
	BaseDir  string // Base directory for storing files
	Compress bool   // Compress blobs at rest with zstd
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:  config.BaseDir,
		compress: config.Compress,
	}, nil
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(key))
}

// Upload streams content to a temporary file and renames it over the final
// path once the write completed.
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader) error {
	filePath := b.path(key)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Same-directory temp file so the rename stays on one filesystem.
	tmpPath := filepath.Join(dir, ".tmp-"+uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := b.write(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit file: %w", err)
	}

	return nil
}

func (b *Backend) write(dst io.Writer, src io.Reader) error {
	if !b.compress {
		_, err := io.Copy(dst, src)
		return err
	}

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Download opens the blob at the given key.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(b.path(key))
	if os.IsNotExist(err) {
		return nil, imageslots.ErrBlobNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if !b.compress {
		return file, nil
	}

	dec, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open compressed file: %w", err)
	}
	return &decompressingReader{dec: dec, file: file}, nil
}

// Delete removes the blob. A missing key is not an error. The parent
// directory is left in place even when it becomes empty: with the key layout
// users/<id>/<index><ext> that directory doubles as the user namespace, and
// clearing a user's slots must not delete the user.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a blob is present at the key.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// decompressingReader closes both the zstd decoder and the underlying file.
type decompressingReader struct {
	dec  *zstd.Decoder
	file *os.File
}

func (r *decompressingReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *decompressingReader) Close() error {
	r.dec.Close()
	return r.file.Close()
}
