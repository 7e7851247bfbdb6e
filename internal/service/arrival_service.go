package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"subreminder/internal/model"
	"subreminder/internal/repository"
)

// Notifier delivers an arrival notice. The result is only logged.
type Notifier interface {
	Deliver(ctx context.Context, channelID int64, task model.Task) error
}

// TickReport summarizes one scheduler pass.
type TickReport struct {
	Claimed   int
	Delivered int
	Failed    int
}

// ArrivalService fires each due task at most once.
//
// A tick claims due tasks under the store lock (flag, remove, flush) and only
// then calls the notifier, outside the lock. Delivery is best effort: a failed
// or timed out notice is logged and never retried. Sends are paced by an
// optional rate limit; the delivery timeout only starts once a send is let
// through.
type ArrivalService struct {
	store    *repository.TaskStore
	notifier Notifier
	timeout  time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
	log      zerolog.Logger
}

func NewArrivalService(store *repository.TaskStore, notifier Notifier, timeout time.Duration, log zerolog.Logger) *ArrivalService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ArrivalService{
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
		log:      log.With().Str("component", "arrivals").Logger(),
	}
}

// WithClock replaces the time source.
func (s *ArrivalService) WithClock(now func() time.Time) *ArrivalService {
	s.now = now
	return s
}

// WithRateLimit caps sends at perSec. A non-positive value disables pacing.
func (s *ArrivalService) WithRateLimit(perSec float64) *ArrivalService {
	if perSec <= 0 {
		s.limiter = nil
		return s
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	return s
}

// Tick runs one pass. It returns an error only when claiming failed, in which
// case nothing was delivered and the tasks stay pending.
func (s *ArrivalService) Tick(ctx context.Context) (TickReport, error) {
	now := s.now()
	claimed, err := s.store.TakeDue(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("claim due tasks")
		return TickReport{}, fmt.Errorf("claim due tasks: %w", err)
	}
	if len(claimed) == 0 {
		return TickReport{}, nil
	}

	// The claim is durable, so deliveries outlive ctx.
	dctx := context.WithoutCancel(ctx)

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for _, t := range claimed {
		if s.limiter != nil {
			if err := s.limiter.Wait(dctx); err != nil {
				failed.Add(1)
				s.log.Warn().Err(err).Str("task", t.ID).Msg("arrival notice not paced")
				continue
			}
		}
		wg.Add(1)
		go func(t model.Task) {
			defer wg.Done()
			if err := s.deliver(dctx, t); err != nil {
				failed.Add(1)
				s.log.Warn().Err(err).Str("task", t.ID).Int64("channel", t.ChannelID).Msg("arrival notice failed")
				return
			}
			s.log.Info().Str("task", t.ID).Int64("channel", t.ChannelID).
				Dur("late", now.Sub(t.ArriveAt)).Msg("arrival notice sent")
		}(t)
	}
	wg.Wait()

	report := TickReport{Claimed: len(claimed), Failed: int(failed.Load())}
	report.Delivered = report.Claimed - report.Failed
	return report, nil
}

// deliver bounds a single notifier call by the delivery timeout. A notifier
// that ignores its context is abandoned once the timeout passes.
func (s *ArrivalService) deliver(ctx context.Context, t model.Task) (err error) {
	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panic: %v", r)
			}
		}()
		done <- s.notifier.Deliver(dctx, t.ChannelID, t)
	}()

	select {
	case err = <-done:
		return err
	case <-dctx.Done():
		return fmt.Errorf("deliver %s: %w", t.ID, dctx.Err())
	}
}

// Schedule registers Tick on sched every interval. Ticks use ctx.
func (s *ArrivalService) Schedule(ctx context.Context, sched *SchedulerService, interval time.Duration) (cron.EntryID, error) {
	return sched.ScheduleInterval(interval, func() {
		if ctx.Err() != nil {
			return
		}
		report, err := s.Tick(ctx)
		if err != nil {
			return
		}
		if report.Claimed > 0 {
			s.log.Debug().Int("claimed", report.Claimed).Int("failed", report.Failed).Msg("tick")
		}
	})
}
