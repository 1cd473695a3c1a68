// Package scheduler runs batch group formation on a recurring schedule.
//
// Each tick scans trips departing within the configured window and groups
// their checked-in riders. Ticks on different instances are kept apart by
// a non-blocking distributed lock; an instance that cannot take the lock
// skips the tick instead of waiting.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/grouping"
	"github.com/mmynk/splitpass/internal/lock"
	"github.com/mmynk/splitpass/internal/models"
)

const (
	SkipAlreadyRunning = "previous tick still running"
	SkipLockHeld       = "lock held by another instance"
)

// ErrAlreadyStarted is returned by Start when the cron loop is running.
var ErrAlreadyStarted = errors.New("scheduler already started")

// TripStore is the storage the scheduler reads trips from and writes run
// history to.
type TripStore interface {
	ListDepartingTrips(ctx context.Context, from, to int64) ([]*models.Trip, error)
	SaveRun(ctx context.Context, run *models.RunResult) error
}

// TripGrouper forms groups for a single trip.
type TripGrouper interface {
	FormGroups(ctx context.Context, trip *models.Trip) models.TripResult
}

// RunObserver records finished runs.
type RunObserver interface {
	ObserveRun(r models.RunResult)
}

// Config controls when ticks run and what they cover.
type Config struct {
	Enabled  bool
	Schedule string
	Window   time.Duration
	JobName  string
	Limits   calculator.Limits
}

// Status is a snapshot of the scheduler's configuration and last run.
type Status struct {
	Enabled  bool
	Schedule string
	Window   time.Duration
	Limits   calculator.Limits
	Running  bool
	LastRun  *models.RunResult
}

// Scheduler runs ticks on a cron schedule or on demand.
type Scheduler struct {
	cfg      Config
	store    TripStore
	grouper  TripGrouper
	locker   lock.Locker
	observer RunObserver
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	stop    chan struct{}
	lastRun *models.RunResult

	// watcherDone is closed when the goroutine started by Start exits.
	watcherDone chan struct{}
}

// New creates a Scheduler. The schedule is parsed up front so a bad
// expression fails at startup rather than on Start.
func New(cfg Config, store TripStore, grouper TripGrouper, locker lock.Locker, observer RunObserver, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", cfg.Window)
	}
	if cfg.JobName == "" {
		return nil, errors.New("job name is required")
	}

	return &Scheduler{
		cfg:      cfg,
		store:    store,
		grouper:  grouper,
		locker:   locker,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start runs Tick on the configured schedule until ctx is canceled or
// Stop is called. It does nothing when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New(cron.WithLogger(cronLogger{s.logger}))
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Tick(ctx, models.RunModeBatch); err != nil {
			s.logger.Error("Scheduled tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	c.Start()
	s.cron = c
	stop := make(chan struct{})
	s.stop = stop
	watcherDone := make(chan struct{})
	s.watcherDone = watcherDone

	s.logger.Info("Scheduler started",
		"schedule", s.cfg.Schedule,
		"window", s.cfg.Window,
		"job", s.cfg.JobName,
	)

	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, stop := s.cron, s.stop
	s.cron, s.stop = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	close(stop)
	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Tick runs one batch pass. A tick that overlaps a running one in this
// process, or that cannot take the distributed lock, is reported as
// skipped. Failures on individual trips are part of the result; only a
// failure to list trips is returned as an error.
func (s *Scheduler) Tick(ctx context.Context, mode models.RunMode) (models.RunResult, error) {
	start := s.now()
	agg := grouping.NewAggregator(mode, start)

	if !s.running.CompareAndSwap(false, true) {
		agg.Skip(SkipAlreadyRunning)
		return s.finish(ctx, agg), nil
	}
	defer s.running.Store(false)

	trips, err := s.store.ListDepartingTrips(ctx, start.Unix(), start.Add(s.cfg.Window).Unix())
	if err != nil {
		return models.RunResult{}, fmt.Errorf("failed to list departing trips: %w", err)
	}

	acquired, err := s.locker.TryAcquire(ctx, s.cfg.JobName)
	if err != nil {
		s.logger.Warn("Lock attempt failed, skipping tick", "job", s.cfg.JobName, "error", err)
		acquired = false
	}
	if !acquired {
		agg.Skip(SkipLockHeld)
		return s.finish(ctx, agg), nil
	}
	defer s.release(ctx)

	for _, trip := range trips {
		if ctx.Err() != nil {
			break
		}
		agg.Add(s.grouper.FormGroups(ctx, trip))
	}

	return s.finish(ctx, agg), nil
}

func (s *Scheduler) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.locker.Release(ctx, s.cfg.JobName); err != nil {
		s.logger.Error("Failed to release lock", "job", s.cfg.JobName, "error", err)
	}
}

func (s *Scheduler) finish(ctx context.Context, agg *grouping.Aggregator) models.RunResult {
	result := agg.Result(s.now())
	s.observer.ObserveRun(result)

	if result.Skipped {
		s.logger.Info("Tick skipped", "mode", result.Mode, "reason", result.SkipReason)
		return result
	}

	s.logger.Info("Tick complete",
		"mode", result.Mode,
		"trips", len(result.Trips),
		"groups", result.TotalGroups,
		"grouped", result.TotalGrouped,
		"ungrouped", result.TotalUngrouped,
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)

	// Empty scheduled ticks are not worth a history row.
	if len(result.Trips) == 0 && result.Mode == models.RunModeBatch {
		s.setLast(result)
		return result
	}
	if err := s.store.SaveRun(context.WithoutCancel(ctx), &result); err != nil {
		s.logger.Error("Failed to save run", "run_id", result.ID, "error", err)
	}
	s.setLast(result)
	return result
}

func (s *Scheduler) setLast(r models.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &r
}

// Status reports the configuration and the last completed run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Enabled:  s.cfg.Enabled,
		Schedule: s.cfg.Schedule,
		Window:   s.cfg.Window,
		Limits:   s.cfg.Limits,
		Running:  s.running.Load(),
		LastRun:  s.lastRun,
	}
}
