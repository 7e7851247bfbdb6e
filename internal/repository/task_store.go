package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subreminder/internal/model"
)

// TaskStore is the in-memory task index backed by a durable snapshot.
//
// One mutex covers every read and every read-modify-flush sequence. A
// mutation is only visible once its flush succeeded; on flush failure the
// index is rolled back and the error wraps ErrPersistence.
type TaskStore struct {
	mu      sync.Mutex
	tasks   map[string]model.Task
	backend Snapshotter
	log     zerolog.Logger
}

func NewTaskStore(backend Snapshotter, log zerolog.Logger) *TaskStore {
	return &TaskStore{
		tasks:   map[string]model.Task{},
		backend: backend,
		log:     log.With().Str("component", "store").Logger(),
	}
}

// Load replaces the index with the persisted snapshot. A missing snapshot is
// treated as an empty store and an empty snapshot is written.
func (s *TaskStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, exists, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if tasks == nil {
		tasks = map[string]model.Task{}
	}
	s.tasks = tasks
	if !exists {
		s.log.Info().Msg("no snapshot found, writing an empty one")
		return s.flushLocked(ctx)
	}
	s.log.Info().Int("tasks", len(tasks)).Msg("snapshot loaded")
	return nil
}

// Flush writes the full index.
func (s *TaskStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *TaskStore) flushLocked(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.tasks); err != nil {
		s.log.Error().Err(err).Int("tasks", len(s.tasks)).Msg("flush failed")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// commitLocked flushes, restoring prev if the flush fails.
func (s *TaskStore) commitLocked(ctx context.Context, prev map[string]model.Task) error {
	if err := s.flushLocked(ctx); err != nil {
		s.tasks = prev
		return err
	}
	return nil
}

// Add inserts a new task. An existing id is never overwritten.
func (s *TaskStore) Add(ctx context.Context, t model.Task) error {
	if t.ID == "" {
		return fmt.Errorf("add task: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("add task %s: %w", t.ID, ErrDuplicateID)
	}
	prev := maps.Clone(s.tasks)
	t.ArriveAt = t.ArriveAt.UTC()
	s.tasks[t.ID] = t
	return s.commitLocked(ctx, prev)
}

// Remove deletes a task and returns it.
func (s *TaskStore) Remove(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	prev := maps.Clone(s.tasks)
	delete(s.tasks, id)
	if err := s.commitLocked(ctx, prev); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Mutate applies fn to a copy of the task and stores the result. If fn
// returns an error nothing changes. The id cannot be changed by fn.
func (s *TaskStore) Mutate(ctx context.Context, id string, fn func(t *model.Task) error) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	if err := fn(&t); err != nil {
		return model.Task{}, err
	}
	t.ID = id
	t.ArriveAt = t.ArriveAt.UTC()

	prev := maps.Clone(s.tasks)
	s.tasks[id] = t
	if err := s.commitLocked(ctx, prev); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ListByScope returns the pending tasks of a guild in no particular order.
func (s *TaskStore) ListByScope(guildID int64) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Task
	for _, t := range s.tasks {
		if t.GuildID == guildID && !t.Delivered {
			out = append(out, t)
		}
	}
	return out
}

// TakeDue claims every pending task due at now: it is flagged delivered and
// removed from the index, and the result is flushed once. Tasks already
// flagged delivered are dropped in the same pass. The claimed tasks are
// returned soonest first only after the flush succeeded.
func (s *TaskStore) TakeDue(ctx context.Context, now time.Time) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		claimed []model.Task
		changed bool
		prev    = maps.Clone(s.tasks)
	)
	for id, t := range s.tasks {
		switch {
		case t.Delivered:
			delete(s.tasks, id)
			changed = true
		case t.Due(now):
			t.Delivered = true
			claimed = append(claimed, t)
			delete(s.tasks, id)
			changed = true
		}
	}
	if !changed {
		return nil, nil
	}
	if err := s.commitLocked(ctx, prev); err != nil {
		return nil, err
	}
	sort.Slice(claimed, func(i, j int) bool {
		if claimed[i].ArriveAt.Equal(claimed[j].ArriveAt) {
			return claimed[i].ID < claimed[j].ID
		}
		return claimed[i].ArriveAt.Before(claimed[j].ArriveAt)
	})
	return claimed, nil
}

func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *TaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}
