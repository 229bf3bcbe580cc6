// Package config builds a fully wired imageslots.Service from environment
// configuration: a slot repository (memory, SQLite or Postgres), a blob
// store (memory, filesystem or S3) and the matching user directory.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/image-slots/pkg/imageslots"
	"github.com/tendant/image-slots/pkg/imageslots/metrics"
	memoryrepo "github.com/tendant/image-slots/pkg/imageslots/repo/memory"
	postgresrepo "github.com/tendant/image-slots/pkg/imageslots/repo/postgres"
	sqliterepo "github.com/tendant/image-slots/pkg/imageslots/repo/sqlite"
	fsstorage "github.com/tendant/image-slots/pkg/imageslots/storage/fs"
	memorystorage "github.com/tendant/image-slots/pkg/imageslots/storage/memory"
	s3storage "github.com/tendant/image-slots/pkg/imageslots/storage/s3"
	"github.com/tendant/image-slots/pkg/imageslots/userdir"
)

// ServerConfig represents server configuration for the slot store service.
//
//	DATABASE_URL selects the slot repository:
//	  "" or "memory"            - in-memory repository
//	  "sqlite:///path/app.db"   - SQLite file
//	  "postgres://..."          - Postgres via pgx
//	STORAGE_URL selects the blob store:
//	  "memory://"                        - in-memory store (default)
//	  "file:///path/uploads"             - filesystem store
//	  "file:///path/uploads?compress=zstd" - filesystem store, zstd at rest
//	  "s3://bucket?region=us-east-1"     - S3-compatible store
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	StorageURL  string `env:"STORAGE_URL" env-default:"memory://"`

	// SlotCapacity is fixed for the lifetime of a given slot table.
	SlotCapacity int `env:"SLOT_CAPACITY" env-default:"10"`

	EnableMetrics bool `env:"ENABLE_METRICS" env-default:"true"`
}

// Load reads the server configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.SlotCapacity <= 0 {
		return errors.New("slot capacity must be positive")
	}
	if c.StorageURL == "" {
		return errors.New("storage url is required")
	}
	return nil
}

// BuildService wires repository, blob store and user directory into a
// Service. The returned cleanup function releases database handles.
func (c *ServerConfig) BuildService(ctx context.Context) (imageslots.Service, func(), error) {
	cleanup := func() {}

	repo, repoCleanup, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup = repoCleanup

	store, users, err := c.buildStorage(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	options := []imageslots.Option{
		imageslots.WithRepository(repo),
		imageslots.WithBlobStore(store),
		imageslots.WithUserDirectory(users),
		imageslots.WithCapacity(c.SlotCapacity),
		imageslots.WithLogger(slog.Default()),
	}
	if c.EnableMetrics {
		options = append(options, imageslots.WithEventSink(metrics.NewSink()))
	}

	svc, err := imageslots.New(options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

func (c *ServerConfig) buildRepository(ctx context.Context) (imageslots.SlotRepository, func(), error) {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		return memoryrepo.New(), func() {}, nil

	case strings.HasPrefix(c.DatabaseURL, "sqlite://"):
		path := strings.TrimPrefix(c.DatabaseURL, "sqlite://")
		repo, err := sqliterepo.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil

	case strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := postgresrepo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgresrepo.NewWithPool(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database url: %s", c.DatabaseURL)
	}
}

func (c *ServerConfig) buildStorage(ctx context.Context) (imageslots.BlobStore, imageslots.UserDirectory, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse storage url: %w", err)
	}

	switch u.Scheme {
	case "memory":
		return memorystorage.New(), userdir.NewMemory(), nil

	case "file":
		baseDir := u.Path
		if baseDir == "" {
			return nil, nil, errors.New("file storage url requires a path")
		}
		store, err := fsstorage.New(fsstorage.Config{
			BaseDir:  baseDir,
			Compress: u.Query().Get("compress") == "zstd",
		})
		if err != nil {
			return nil, nil, err
		}
		// Blob keys start with "users/<id>/", so the namespace directories
		// live directly under the same root the blobs land in.
		users, err := userdir.NewFS(filepath.Join(baseDir, "users"))
		if err != nil {
			return nil, nil, err
		}
		return store, users, nil

	case "s3":
		store, err := s3storage.New(ctx, s3storage.Config{
			Bucket:                 u.Host,
			Region:                 u.Query().Get("region"),
			Endpoint:               u.Query().Get("endpoint"),
			UsePathStyle:           u.Query().Get("path_style") == "true",
			CreateBucketIfNotExist: u.Query().Get("create_bucket") == "true",
		})
		if err != nil {
			return nil, nil, err
		}
		// S3 has no directories; user existence is a marker object.
		return store, userdir.NewMarker(store), nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage url scheme: %s", u.Scheme)
	}
}
