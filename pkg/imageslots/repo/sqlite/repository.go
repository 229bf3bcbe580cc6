// Package sqlite provides an imageslots.SlotRepository backed by SQLite,
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tendant/image-slots/pkg/imageslots"
)

const schema = `
	CREATE TABLE IF NOT EXISTS image_slots (
		user_id    TEXT    NOT NULL,
		slot_index INTEGER NOT NULL,
		object_key TEXT    NOT NULL,
		created_at TEXT    NOT NULL,
		PRIMARY KEY (user_id, slot_index)
	);

	CREATE INDEX IF NOT EXISTS idx_image_slots_created_at
	ON image_slots(user_id, created_at);
`

// createdAtLayout keeps the fractional seconds fixed-width. RFC3339Nano trims
// trailing zeros, which breaks the lexicographic ORDER BY on the TEXT column
// ("...00.15Z" would sort before "...00.1Z"). Timestamps are stored in UTC so
// the zone suffix is always "Z".
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository implements imageslots.SlotRepository using SQLite
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// under concurrent uploads.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// New wraps an existing database handle. The image_slots schema must
// already be applied.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Snapshot(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, slot_index, object_key, created_at
		FROM image_slots
		WHERE user_id = ?
		ORDER BY created_at ASC, slot_index ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var result []imageslots.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, slot)
	}
	return result, rows.Err()
}

func (r *Repository) Insert(ctx context.Context, slot imageslots.Slot) error {
	// INSERT OR IGNORE turns the primary-key collision into zero rows
	// affected, so the conflict check works without driver error sniffing.
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO image_slots (user_id, slot_index, object_key, created_at)
		VALUES (?, ?, ?, ?)`,
		slot.UserID, slot.Index, slot.ObjectKey, slot.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	if affected == 0 {
		return imageslots.ErrConflict
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string, index int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM image_slots WHERE user_id = ? AND slot_index = ?`, userID, index)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string, index int) (imageslots.Slot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, slot_index, object_key, created_at
		FROM image_slots
		WHERE user_id = ? AND slot_index = ?`, userID, index)

	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return imageslots.Slot{}, imageslots.ErrSlotNotFound
	}
	return slot, err
}

func (r *Repository) DeleteAll(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, slot_index, object_key, created_at
		FROM image_slots
		WHERE user_id = ?
		ORDER BY slot_index ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}

	var removed []imageslots.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, slot)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_slots WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("delete slots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (imageslots.Slot, error) {
	var slot imageslots.Slot
	var createdAt string
	if err := row.Scan(&slot.UserID, &slot.Index, &slot.ObjectKey, &createdAt); err != nil {
		return imageslots.Slot{}, err
	}

	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return imageslots.Slot{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	slot.CreatedAt = ts
	return slot, nil
}
