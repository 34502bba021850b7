package history

import (
	"context"
	"fmt"
	"time"

	"github.com/Tutortoise/face-mask-service/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Entry is one recorded request.
type Entry struct {
	ID         int64        `json:"id"`
	Endpoint   string       `json:"endpoint"`
	Total      int          `json:"total"`
	Stats      models.Stats `json:"stats"`
	DurationMs int64        `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Totals aggregates every recorded request.
type Totals struct {
	Requests   int          `json:"requests"`
	Detections int          `json:"detections"`
	Stats      models.Stats `json:"stats"`
}

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Record inserts e and returns its row id. A zero CreatedAt is set to now.
func (r *Repository) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	result, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO requests (endpoint, total, with_mask, without_mask, mask_weared_incorrect, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Endpoint, e.Total, e.Stats.WithMask, e.Stats.WithoutMask, e.Stats.MaskWearedIncorrect, e.DurationMs, e.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert request: %w", err)
	}
	return result.LastInsertId()
}

// List returns the most recent entries, newest first. limit is clamped to
// [1, MaxListLimit]; zero or less means DefaultListLimit.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, endpoint, total, with_mask, without_mask, mask_weared_incorrect, duration_ms, created_at
		FROM requests ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Endpoint, &e.Total, &e.Stats.WithMask, &e.Stats.WithoutMask,
			&e.Stats.MaskWearedIncorrect, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats sums every recorded request.
func (r *Repository) Stats(ctx context.Context) (Totals, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var t Totals
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(with_mask), 0),
			COALESCE(SUM(without_mask), 0), COALESCE(SUM(mask_weared_incorrect), 0)
		FROM requests
	`).Scan(&t.Requests, &t.Detections, &t.Stats.WithMask, &t.Stats.WithoutMask, &t.Stats.MaskWearedIncorrect)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate requests: %w", err)
	}
	return t, nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
