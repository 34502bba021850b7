package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tutortoise/face-mask-service/models"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestRepository_RecordAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := repo.Record(ctx, Entry{
		Endpoint:   "/detect",
		Total:      3,
		Stats:      models.Stats{WithMask: 2, WithoutMask: 1},
		DurationMs: 42,
		CreatedAt:  created,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	_, err = repo.Record(ctx, Entry{Endpoint: "/crop_faces", Total: 1, Stats: models.Stats{MaskWearedIncorrect: 1}})
	require.NoError(t, err)

	entries, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "/crop_faces", entries[0].Endpoint)
	require.False(t, entries[0].CreatedAt.IsZero())

	first := entries[1]
	require.Equal(t, "/detect", first.Endpoint)
	require.Equal(t, 3, first.Total)
	require.Equal(t, models.Stats{WithMask: 2, WithoutMask: 1}, first.Stats)
	require.Equal(t, int64(42), first.DurationMs)
	require.True(t, created.Equal(first.CreatedAt))

	entries, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRepository_Stats(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	totals, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Totals{}, totals)

	for _, s := range []models.Stats{{WithMask: 1}, {WithoutMask: 2, MaskWearedIncorrect: 1}} {
		_, err := repo.Record(ctx, Entry{Endpoint: "/detect", Total: s.WithMask + s.WithoutMask + s.MaskWearedIncorrect, Stats: s})
		require.NoError(t, err)
	}

	totals, err = repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Totals{
		Requests:   2,
		Detections: 4,
		Stats:      models.Stats{WithMask: 1, WithoutMask: 2, MaskWearedIncorrect: 1},
	}, totals)
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, ClampLimit(0))
	require.Equal(t, DefaultListLimit, ClampLimit(-5))
	require.Equal(t, 7, ClampLimit(7))
	require.Equal(t, MaxListLimit, ClampLimit(10_000))
}
