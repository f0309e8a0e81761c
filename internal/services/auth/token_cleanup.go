package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/services/events"
)

const (
	sweepTimeout         = 3 * time.Minute
	defaultInactiveGrace = time.Minute
)

// SweepResult counts the records removed by each policy
type SweepResult struct {
	Expired  int64 `json:"expired"`
	Inactive int64 `json:"inactive"`
	Aged     int64 `json:"aged"`
}

// Total returns the number of deleted records
func (r SweepResult) Total() int64 {
	return r.Expired + r.Inactive + r.Aged
}

// CleanupConfig controls the reaper
type CleanupConfig struct {
	Schedule    string
	MaxAttempts int
	// MaxAge removes records by created_at regardless of state
	MaxAge  time.Duration
	Backoff time.Duration
	// InactiveGrace keeps freshly retired records long enough for a
	// concurrent rotation to observe its predecessor
	InactiveGrace time.Duration
}

// TokenCleanupService physically deletes refresh tokens whose retention has
// lapsed. It sweeps once on Start and then on the cron schedule.
type TokenCleanupService struct {
	store  repository.TokenStore
	events events.Publisher
	cfg    CleanupConfig
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	initial sync.WaitGroup
}

func NewTokenCleanupService(store repository.TokenStore, publisher events.Publisher, cfg CleanupConfig, now func() time.Time) *TokenCleanupService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.InactiveGrace <= 0 {
		cfg.InactiveGrace = defaultInactiveGrace
	}
	return &TokenCleanupService{
		store:  store,
		events: publisher,
		cfg:    cfg,
		now:    now,
	}
}

// Start runs an initial sweep and schedules the rest
func (s *TokenCleanupService) Start() error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(logrus.StandardLogger())),
		cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger())),
	))
	if _, err := c.AddFunc(s.cfg.Schedule, s.cleanup); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.cleanup()
	}()
	c.Start()

	logrus.WithField("schedule", s.cfg.Schedule).Info("Token cleanup service started")
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish
func (s *TokenCleanupService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.initial.Wait()
	logrus.Info("Token cleanup service stopped")
}

// cleanup performs one scheduled sweep
func (s *TokenCleanupService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	result, err := s.RunOnce(ctx)
	if err != nil {
		logrus.Errorf("Failed to cleanup tokens: %v", err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"expired":  result.Expired,
		"inactive": result.Inactive,
		"aged":     result.Aged,
	}).Info("Token cleanup completed")
}

// RunOnce applies every retention policy. Sweeps are idempotent deletes, so
// each one is retried on transient storage failures.
func (s *TokenCleanupService) RunOnce(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result SweepResult
	sweeps := []struct {
		name   string
		filter repository.TokenFilter
		count  *int64
	}{
		{"expired", repository.TokenFilter{ExpiredAt: now}, &result.Expired},
		{"inactive", repository.TokenFilter{InactiveOnly: true, UsedBefore: now.Add(-s.cfg.InactiveGrace)}, &result.Inactive},
		{"aged", repository.TokenFilter{CreatedBefore: now.Add(-s.cfg.MaxAge)}, &result.Aged},
	}

	var errs []error
	for _, sweep := range sweeps {
		if sweep.name == "aged" && s.cfg.MaxAge <= 0 {
			continue
		}
		n, err := s.deleteWithRetry(ctx, sweep.filter)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s sweep: %w", sweep.name, err))
			continue
		}
		*sweep.count = n
	}

	event := events.Event{
		Type:    events.ReaperSweep,
		Outcome: events.OutcomeSuccess,
		Count:   result.Total(),
		At:      now,
	}
	if len(errs) > 0 {
		event.Outcome = events.OutcomeFailure
		event.Kind = events.KindStorageUnavailable
	}
	s.events.Publish(ctx, event)
	return result, errors.Join(errs...)
}

func (s *TokenCleanupService) deleteWithRetry(ctx context.Context, filter repository.TokenFilter) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		n, err := s.store.DeleteMany(ctx, filter)
		if err == nil {
			return n, nil
		}
		lastErr = storageError("delete tokens", err)
		if !errors.Is(err, ErrStorageUnavailable) || attempt == s.cfg.MaxAttempts {
			break
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("Token cleanup sweep failed, retrying")
		select {
		case <-ctx.Done():
			return 0, storageError("delete tokens", ctx.Err())
		case <-time.After(time.Duration(attempt) * s.cfg.Backoff):
		}
	}
	return 0, lastErr
}
