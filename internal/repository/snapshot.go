package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"subreminder/internal/model"
)

// Snapshotter persists the full task index as one unit.
type Snapshotter interface {
	// Load returns the stored tasks keyed by id. exists is false when nothing
	// has been written yet.
	Load(ctx context.Context) (tasks map[string]model.Task, exists bool, err error)
	// Save replaces the stored snapshot atomically.
	Save(ctx context.Context, tasks map[string]model.Task) error
	Close() error
}

// OpenSnapshotter opens the backend named by driver ("file" or "sqlite").
func OpenSnapshotter(driver, path string, log zerolog.Logger) (Snapshotter, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "file", "json":
		return NewFileSnapshot(path), nil
	case "sqlite", "sqlite3":
		db, err := NewDB(path, log)
		if err != nil {
			return nil, err
		}
		return NewSQLiteSnapshot(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
