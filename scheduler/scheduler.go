// Package scheduler periodically fires due reminders.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/config"
	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/metrics"
	"git.0xdad.com/tblyler/medilens/reminder"
)

var (
	// ErrAlreadyStarted occurs when Start is called more than once
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrStopped occurs when Start is called after Stop
	ErrStopped = errors.New("scheduler stopped")
)

// Notifier surfaces a fired reminder to the user
type Notifier interface {
	Notify(ctx context.Context, dosage, medicineName string) error
}

// Clock supplies the current device-local time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock
type SystemClock struct{}

// Now in the local time zone
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces the system clock
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithInterval between ticks
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logging.OrNop(logger)
	}
}

// WithMetrics sets the metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler evaluates every reminder on a fixed interval. A reminder fires
// when its time equals the current HH:MM and it has not fired on the current
// calendar date, so it fires at most once per date however many ticks land
// inside the matching minute.
//
// The days of a reminder are stored but not consulted, every reminder recurs daily.
type Scheduler struct {
	store    *reminder.Store
	notifier Notifier
	clock    Clock
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	cron     *cron.Cron
	mu       sync.Mutex
	started  bool
	stopped  chan struct{}
	stopOnce sync.Once
	watcher  sync.WaitGroup
}

// New scheduler firing reminders from store through notifier
func New(store *reminder.Store, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    SystemClock{},
		interval: config.DefaultCheckInterval,
		logger:   zap.NewNop(),
		stopped:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger.Named("cron")))
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)

	return s
}

// Tick evaluates every reminder against the clock once and returns the fired ones.
// A reminder is stamped before delivery is attempted, a failed delivery does
// not make it fire again on the same date.
func (s *Scheduler) Tick(ctx context.Context) []db.Reminder {
	now := s.clock.Now()

	due := s.store.ClaimDue(reminder.ClockOf(now), reminder.DateStampOf(now))
	for _, r := range due {
		s.metrics.ReminderFired()

		err := s.notifier.Notify(ctx, r.Dosage, r.MedicineName)
		if err != nil {
			s.metrics.NotifyFailed()
			s.logger.Warn("reminder notification failed",
				zap.String("id", r.ID),
				zap.String("medicine", r.MedicineName),
				zap.Error(err))

			continue
		}

		s.logger.Info("reminder fired",
			zap.String("id", r.ID),
			zap.String("medicine", r.MedicineName),
			zap.String("date", r.LastNotified))
	}

	return due
}

// Start ticking every interval until ctx is done or Stop is called. A
// scheduler only starts once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder checks every %s: %w", s.interval, err)
	}

	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	s.watcher.Add(1)
	go func() {
		defer s.watcher.Done()

		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopped:
		}
	}()

	return nil
}

// Stop the scheduler and wait for a running tick. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	})
}
