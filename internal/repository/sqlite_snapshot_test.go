package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"subreminder/internal/model"
)

func openSQLiteStore(t *testing.T, path string) *TaskStore {
	t.Helper()
	backend, err := OpenSnapshotter("sqlite", path, zerolog.Nop())
	require.NoError(t, err)
	st := NewTaskStore(backend, zerolog.Nop())
	require.NoError(t, st.Load(context.Background()))
	return st
}

func TestSQLiteSnapshotBootstrapsFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tasks.db")
	ctx := context.Background()

	backend, err := OpenSnapshotter("sqlite", path, zerolog.Nop())
	require.NoError(t, err)
	tasks, exists, err := backend.Load(ctx)
	require.NoError(t, err)
	require.False(t, exists)
	require.Empty(t, tasks)

	st := NewTaskStore(backend, zerolog.Nop())
	require.NoError(t, st.Load(ctx))
	require.NoError(t, st.Close())

	backend, err = OpenSnapshotter("sqlite3", path, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()
	tasks, exists, err = backend.Load(ctx)
	require.NoError(t, err)
	require.True(t, exists)
	require.Empty(t, tasks)
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	at := time.Date(2025, 5, 1, 12, 34, 56, 789012345, time.FixedZone("JST", 9*60*60))
	want := newTask("1a2b3c4d", 42, at)
	want.Note = "ごはん 食べる"

	st := openSQLiteStore(t, path)
	require.NoError(t, st.Add(ctx, want))
	require.NoError(t, st.Add(ctx, newTask("5e6f7a8b", 43, at.Add(time.Hour))))
	require.NoError(t, st.Close())

	st = openSQLiteStore(t, path)
	got, ok := st.Get(want.ID)
	require.True(t, ok)
	want.ArriveAt = at.UTC()
	require.Equal(t, want, got)
	require.Equal(t, 2, st.Len())

	claimed, err := st.TakeDue(ctx, at.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	require.Equal(t, want.ID, claimed[0].ID)
	require.NoError(t, st.Close())

	st = openSQLiteStore(t, path)
	defer st.Close()
	require.Equal(t, 0, st.Len())
}

func TestSQLiteSnapshotSaveReplacesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	backend, err := OpenSnapshotter("sqlite", path, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Save(ctx, map[string]model.Task{
		"a": newTask("a", 1, at),
		"b": newTask("b", 1, at),
	}))
	require.NoError(t, backend.Save(ctx, map[string]model.Task{
		"c": newTask("c", 2, at),
	}))

	tasks, exists, err := backend.Load(ctx)
	require.NoError(t, err)
	require.True(t, exists)
	require.Len(t, tasks, 1)
	require.Contains(t, tasks, "c")
	require.Equal(t, int64(2), tasks["c"].GuildID)
}
