package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"subreminder/internal/model"
)

// FileSnapshot keeps the task index as an indented JSON object keyed by id.
// Writes go to a temp file in the same directory which is then renamed over
// the snapshot, so a reader never sees a partial file.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	if path == "" {
		path = "submarine_tasks.json"
	}
	return &FileSnapshot{path: path}
}

func (s *FileSnapshot) Path() string { return s.path }

func (s *FileSnapshot) Load(ctx context.Context) (map[string]model.Task, bool, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]model.Task{}, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	raw := map[string]model.Task{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, true, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	tasks := make(map[string]model.Task, len(raw))
	for id, t := range raw {
		if t.ID == "" {
			t.ID = id
		}
		t.ArriveAt = t.ArriveAt.UTC()
		tasks[t.ID] = t
	}
	return tasks, true, nil
}

func (s *FileSnapshot) Save(ctx context.Context, tasks map[string]model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tasks == nil {
		tasks = map[string]model.Task{}
	}
	b, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		cleanup()
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *FileSnapshot) Close() error { return nil }
