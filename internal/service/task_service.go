package service

import (
	"context"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subreminder/internal/alias"
	"subreminder/internal/model"
	"subreminder/internal/repository"
	"subreminder/internal/timeparse"
)

const maxIDAttempts = 5

// DueSpec is either a relative duration or an absolute local timestamp.
// Duration wins when both are set.
type DueSpec struct {
	Duration string
	Arrive   string
}

func (d DueSpec) empty() bool {
	return strings.TrimSpace(d.Duration) == "" && strings.TrimSpace(d.Arrive) == ""
}

// CreateInput represents data required to create a task.
type CreateInput struct {
	GuildID   int64
	ChannelID int64 // invoking channel, used when the group has no route
	UserID    int64
	Group     string
	Slot      string
	Note      string
	Due       DueSpec
}

// EditInput carries optional overrides; nil fields are left untouched.
type EditInput struct {
	Group *string
	Slot  *string
	Note  *string
	Due   DueSpec
}

// Router maps a canonical group label to its delivery channel.
type Router interface {
	ChannelFor(group string) (int64, bool)
}

// TaskOptions holds the settings the lifecycle operations depend on.
type TaskOptions struct {
	Location    *time.Location
	DefaultFC   string
	DefaultBoat string
}

// TaskService wraps task lifecycle operations.
type TaskService struct {
	store    *repository.TaskStore
	resolver *alias.Resolver
	router   Router
	opts     TaskOptions
	now      func() time.Time
	newID    func() string
	log      zerolog.Logger
}

func NewTaskService(store *repository.TaskStore, resolver *alias.Resolver, router Router, opts TaskOptions, log zerolog.Logger) *TaskService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &TaskService{
		store:    store,
		resolver: resolver,
		router:   router,
		opts:     opts,
		now:      time.Now,
		newID:    newTaskID,
		log:      log.With().Str("component", "tasks").Logger(),
	}
}

// WithClock replaces the time source.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// newTaskID returns 8 hex digits taken from a random UUID.
func newTaskID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// Location is the zone absolute timestamps are read in.
func (s *TaskService) Location() *time.Location { return s.opts.Location }

func (s *TaskService) resolveDue(due DueSpec) (time.Time, error) {
	if d := strings.TrimSpace(due.Duration); d != "" {
		delta, err := timeparse.ParseDuration(d)
		if err != nil {
			return time.Time{}, err
		}
		return s.now().Add(delta).UTC(), nil
	}
	if a := strings.TrimSpace(due.Arrive); a != "" {
		return timeparse.ParseAbsolute(a, s.opts.Location)
	}
	return time.Time{}, &ValidationError{Field: "due", Reason: "duration or arrive is required"}
}

func (s *TaskService) Create(ctx context.Context, in CreateInput) (model.Task, error) {
	arrive, err := s.resolveDue(in.Due)
	if err != nil {
		return model.Task{}, err
	}

	group := strings.TrimSpace(in.Group)
	if group == "" {
		group = s.opts.DefaultFC
	}
	slot := strings.TrimSpace(in.Slot)
	if slot == "" {
		slot = s.opts.DefaultBoat
	}
	fc := s.resolver.ResolveGroup(group)
	boat := s.resolver.ResolveSlot(slot)

	channel := in.ChannelID
	if s.router != nil {
		if id, ok := s.router.ChannelFor(fc); ok {
			channel = id
		}
	}
	if channel == 0 {
		return model.Task{}, &ValidationError{Field: "channel", Reason: "no delivery channel"}
	}

	task := model.Task{
		GuildID:   in.GuildID,
		ChannelID: channel,
		UserID:    in.UserID,
		FC:        fc,
		Boat:      boat,
		Note:      strings.TrimSpace(in.Note),
		ArriveAt:  arrive,
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		task.ID = s.newID()
		err = s.store.Add(ctx, task)
		if errors.Is(err, repository.ErrDuplicateID) {
			s.log.Debug().Str("task", task.ID).Msg("id collision, retrying")
			continue
		}
		if err != nil {
			return model.Task{}, err
		}
		s.log.Info().Str("task", task.ID).Int64("guild", task.GuildID).Str("fc", fc).
			Time("arrive_at", task.ArriveAt).Msg("task created")
		return task, nil
	}
	return model.Task{}, errIDExhausted
}

func (s *TaskService) Get(id string) (model.Task, bool) {
	return s.store.Get(strings.TrimSpace(id))
}

// Cancel removes a task before it fires.
func (s *TaskService) Cancel(ctx context.Context, id string) (model.Task, error) {
	t, err := s.store.Remove(ctx, strings.TrimSpace(id))
	if err != nil {
		return model.Task{}, err
	}
	s.log.Info().Str("task", t.ID).Msg("task cancelled")
	return t, nil
}

// Defer moves the arrival by delta relative to the current schedule.
func (s *TaskService) Defer(ctx context.Context, id, delta string) (model.Task, error) {
	d, err := timeparse.ParseDuration(delta)
	if err != nil {
		return model.Task{}, err
	}
	t, err := s.store.Mutate(ctx, strings.TrimSpace(id), func(t *model.Task) error {
		t.ArriveAt = t.ArriveAt.Add(d)
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	s.log.Info().Str("task", t.ID).Dur("delta", d).Time("arrive_at", t.ArriveAt).Msg("task deferred")
	return t, nil
}

// Edit overwrites the given fields. A new duration is counted from now.
func (s *TaskService) Edit(ctx context.Context, id string, in EditInput) (model.Task, error) {
	var (
		arrive    time.Time
		hasArrive bool
	)
	if !in.Due.empty() {
		at, err := s.resolveDue(in.Due)
		if err != nil {
			return model.Task{}, err
		}
		arrive, hasArrive = at, true
	}

	t, err := s.store.Mutate(ctx, strings.TrimSpace(id), func(t *model.Task) error {
		if hasArrive {
			t.ArriveAt = arrive
		}
		if in.Group != nil {
			t.FC = s.resolver.ResolveGroup(*in.Group)
		}
		if in.Slot != nil {
			t.Boat = s.resolver.ResolveSlot(*in.Slot)
		}
		if in.Note != nil {
			t.Note = strings.TrimSpace(*in.Note)
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	s.log.Info().Str("task", t.ID).Msg("task edited")
	return t, nil
}

// List returns the pending tasks of a guild, soonest arrival first.
func (s *TaskService) List(guildID int64) []model.Task {
	tasks := s.store.ListByScope(guildID)
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].ArriveAt.Equal(tasks[j].ArriveAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].ArriveAt.Before(tasks[j].ArriveAt)
	})
	return tasks
}
