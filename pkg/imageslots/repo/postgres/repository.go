// Package postgres provides an imageslots.SlotRepository backed by
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// Schema creates the image_slots table. Callers owning their migrations can
// run it once at deploy time instead.
const Schema = `
	CREATE TABLE IF NOT EXISTS image_slots (
		user_id    TEXT        NOT NULL,
		slot_index INTEGER     NOT NULL,
		object_key TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, slot_index)
	);

	CREATE INDEX IF NOT EXISTS idx_image_slots_created_at
	ON image_slots(user_id, created_at);
`

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements imageslots.SlotRepository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate applies the image_slots schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply image_slots schema: %w", err)
	}
	return nil
}

func (r *Repository) Snapshot(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, slot_index, object_key, created_at
		FROM image_slots
		WHERE user_id = $1
		ORDER BY created_at ASC, slot_index ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var result []imageslots.Slot
	for rows.Next() {
		var slot imageslots.Slot
		if err := rows.Scan(&slot.UserID, &slot.Index, &slot.ObjectKey, &slot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		result = append(result, slot)
	}
	return result, rows.Err()
}

func (r *Repository) Insert(ctx context.Context, slot imageslots.Slot) error {
	// ON CONFLICT DO NOTHING makes the insert the compare-and-swap: zero
	// rows affected means another writer holds the index.
	tag, err := r.db.Exec(ctx, `
		INSERT INTO image_slots (user_id, slot_index, object_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, slot_index) DO NOTHING`,
		slot.UserID, slot.Index, slot.ObjectKey, slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return imageslots.ErrConflict
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string, index int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM image_slots WHERE user_id = $1 AND slot_index = $2`, userID, index)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string, index int) (imageslots.Slot, error) {
	var slot imageslots.Slot
	err := r.db.QueryRow(ctx, `
		SELECT user_id, slot_index, object_key, created_at
		FROM image_slots
		WHERE user_id = $1 AND slot_index = $2`, userID, index).
		Scan(&slot.UserID, &slot.Index, &slot.ObjectKey, &slot.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return imageslots.Slot{}, imageslots.ErrSlotNotFound
	}
	if err != nil {
		return imageslots.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

func (r *Repository) DeleteAll(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM image_slots
		WHERE user_id = $1
		RETURNING user_id, slot_index, object_key, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("delete slots: %w", err)
	}
	defer rows.Close()

	var removed []imageslots.Slot
	for rows.Next() {
		var slot imageslots.Slot
		if err := rows.Scan(&slot.UserID, &slot.Index, &slot.ObjectKey, &slot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		removed = append(removed, slot)
	}
	return removed, rows.Err()
}
