package imageslots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// uploadRetries bounds how often an upload restarts from a fresh snapshot
// after losing a metadata insert race to a concurrent writer.
const uploadRetries = 3

// service implements the Service interface
type service struct {
	repository SlotRepository
	blobStore  BlobStore
	users      UserDirectory
	eventSink  EventSink
	capacity   int
	logger     *slog.Logger

	locks *lockTable

	// created_at is the eviction ordering key, so it must advance even
	// when two inserts land in the same clock tick.
	tsMu   sync.Mutex
	lastTS time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the slot repository for the service
func WithRepository(repo SlotRepository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithUserDirectory sets the user-namespace predicate
func WithUserDirectory(users UserDirectory) Option {
	return func(s *service) {
		s.users = users
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithCapacity overrides the per-user slot count. The capacity is fixed for
// the lifetime of a given slot table; lowering it leaves existing higher
// indices retrievable but never reallocated.
func WithCapacity(capacity int) Option {
	return func(s *service) {
		s.capacity = capacity
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		capacity: DefaultCapacity,
		locks:    newLockTable(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if s.capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// now assigns a strictly increasing created_at per insert. Ties in the wall
// clock are bumped by a nanosecond so the eviction order matches insertion
// order even within one tick.
func (s *service) now() time.Time {
	s.tsMu.Lock()
	defer s.tsMu.Unlock()

	t := time.Now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = t
	return t
}

func (s *service) CreateUser(ctx context.Context, userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := s.users.Create(ctx, userID); err != nil {
		return fmt.Errorf("create user %s: %w", userID, err)
	}
	return nil
}

func (s *service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := ValidateUserID(req.UserID); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check user %s: %w", req.UserID, err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	// Media type is validated before any blob or metadata I/O.
	if !AllowedType(req.ContentType) {
		return nil, ErrUnsupportedMediaType
	}

	// Snapshot-read, allocate, evict and write form a read-modify-write
	// sequence that must serialize per user. Other users proceed in parallel.
	s.locks.lock(req.UserID)
	defer s.locks.unlock(req.UserID)

	var lastErr error
	for attempt := 0; attempt < uploadRetries; attempt++ {
		result, err := s.uploadOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err

		// Lost the insert race to a writer outside this process. The blob
		// write already consumed the reader, so a fresh attempt needs to
		// rewind it; a non-seekable stream surfaces the conflict for the
		// transport caller to retry.
		seeker, ok := req.Reader.(io.Seeker)
		if !ok {
			break
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload stream: %w", err)
		}
		s.logger.Warn("slot insert conflict, retrying",
			"user_id", req.UserID, "attempt", attempt+1)
	}
	return nil, lastErr
}

// uploadOnce runs one attempt of the upload transaction against a fresh
// snapshot. It returns ErrConflict when the metadata insert loses a race.
func (s *service) uploadOnce(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	occupied, err := s.repository.Snapshot(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("snapshot slots for %s: %w", req.UserID, err)
	}

	placement := Allocate(occupied, s.capacity)

	if placement.Evict != nil {
		evict := *placement.Evict

		// Blob first, record second: a crash in between leaves a record
		// whose blob is gone, which reads as not found. The reverse order
		// would leave an unreachable blob under a key about to be reused.
		if err := s.blobStore.Delete(ctx, evict.ObjectKey); err != nil {
			// A missing blob means the invariant was already broken by an
			// earlier partial failure. Not fatal here.
			s.logger.Warn("failed to delete evicted blob",
				"user_id", evict.UserID, "index", evict.Index,
				"key", evict.ObjectKey, "error", err)
		}
		if err := s.repository.Delete(ctx, evict.UserID, evict.Index); err != nil {
			return nil, &SlotError{UserID: evict.UserID, Index: evict.Index, Op: "evict", Err: err}
		}

		if err := s.eventSink.SlotEvicted(ctx, evict); err != nil {
			s.logger.Warn("event sink error", "event", "slot_evicted", "error", err)
		}
	}

	ext := InferExtension(req.Filename, req.ContentType)
	key := ObjectKey(req.UserID, placement.Index, ext)

	// New blob before new record: a crash here orphans the blob, which is
	// harmless and reclaimable, instead of dangling the metadata.
	if err := s.blobStore.Upload(ctx, key, req.Reader); err != nil {
		return nil, &StorageError{Key: key, Op: "upload", Err: err}
	}

	slot := Slot{
		UserID:    req.UserID,
		Index:     placement.Index,
		ObjectKey: key,
		CreatedAt: s.now(),
	}
	if err := s.repository.Insert(ctx, slot); err != nil {
		if errors.Is(err, ErrConflict) {
			s.cleanupConflict(ctx, slot)
			return nil, ErrConflict
		}
		return nil, &SlotError{UserID: slot.UserID, Index: slot.Index, Op: "insert", Err: err}
	}

	if err := s.eventSink.SlotStored(ctx, slot); err != nil {
		s.logger.Warn("event sink error", "event", "slot_stored", "error", err)
	}

	return &UploadResult{Index: slot.Index, URL: SlotURL(slot.UserID, slot.Index)}, nil
}

// cleanupConflict removes the blob written by a losing upload attempt,
// unless the winning record points at the very same key.
func (s *service) cleanupConflict(ctx context.Context, lost Slot) {
	winner, err := s.repository.Get(ctx, lost.UserID, lost.Index)
	if err == nil && winner.ObjectKey == lost.ObjectKey {
		return
	}
	if err := s.blobStore.Delete(ctx, lost.ObjectKey); err != nil {
		s.logger.Warn("failed to delete blob after insert conflict",
			"key", lost.ObjectKey, "error", err)
	}
}

func (s *service) Download(ctx context.Context, userID string, index int) (io.ReadCloser, string, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, "", err
	}

	slot, err := s.repository.Get(ctx, userID, index)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, "", ErrSlotNotFound
		}
		return nil, "", &SlotError{UserID: userID, Index: index, Op: "get", Err: err}
	}

	rc, err := s.blobStore.Download(ctx, slot.ObjectKey)
	if err != nil {
		// Record present but blob gone: a concurrent eviction or an earlier
		// partial failure. Indistinguishable from not found for callers.
		if errors.Is(err, ErrBlobNotFound) {
			return nil, "", ErrSlotNotFound
		}
		return nil, "", &StorageError{Key: slot.ObjectKey, Op: "download", Err: err}
	}

	return rc, ContentTypeForKey(slot.ObjectKey), nil
}

func (s *service) List(ctx context.Context, userID string) ([]SlotInfo, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user %s: %w", userID, err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	occupied, err := s.repository.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot slots for %s: %w", userID, err)
	}

	infos := make([]SlotInfo, 0, len(occupied))
	for _, slot := range occupied {
		infos = append(infos, SlotInfo{
			Index:     slot.Index,
			URL:       SlotURL(userID, slot.Index),
			CreatedAt: slot.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })

	return infos, nil
}

func (s *service) Clear(ctx context.Context, userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}

	// Metadata removal is the authoritative "cleared" signal; blob deletes
	// afterwards are best effort.
	removed, err := s.repository.DeleteAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("clear slots for %s: %w", userID, err)
	}

	for _, slot := range removed {
		if err := s.blobStore.Delete(ctx, slot.ObjectKey); err != nil {
			s.logger.Warn("failed to delete blob during clear",
				"user_id", userID, "key", slot.ObjectKey, "error", err)
		}
	}

	if err := s.eventSink.UserCleared(ctx, userID, len(removed)); err != nil {
		s.logger.Warn("event sink error", "event", "user_cleared", "error", err)
	}

	return nil
}
