package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/metrics"
)

const (
	TriggerScheduled = "scheduled"
	TriggerCatchUp   = "catch_up"
	TriggerManual    = "manual"
)

var ErrSchedulerStarted = errors.New("scheduler already started")

// Clock is the time source of the scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Sweeper interface {
	Run(ctx context.Context, now time.Time) (SweepResult, error)
}

// Job runs after every scheduled or catch-up sweep.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Scheduler owns the daily sweep timer. The first run happens at the next
// midnight in the configured location and then once per interval. It is
// created at startup and stopped at shutdown.
type Scheduler struct {
	sweeper Sweeper
	cfg     config.SweepConfig
	loc     *time.Location
	state   repository.SweepStateStore
	logger  *logger.Logger
	metrics *metrics.Metrics
	clock   Clock
	jobs    []Job

	runMu    sync.Mutex
	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type SchedulerOption func(*Scheduler)

func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

func WithJobs(jobs ...Job) SchedulerOption {
	return func(s *Scheduler) { s.jobs = append(s.jobs, jobs...) }
}

func NewScheduler(
	sweeper Sweeper,
	cfg config.SweepConfig,
	state repository.SweepStateStore,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	s := &Scheduler{
		sweeper: sweeper,
		cfg:     cfg,
		loc:     loc,
		state:   state,
		logger:  logger.With("component", "sweep_scheduler"),
		metrics: metrics,
		clock:   systemClock{},
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the timer goroutine. It returns once the goroutine is running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSchedulerStarted
	}
	s.started = true

	go s.loop(ctx)
	return nil
}

// Stop cancels the timer and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// RunNow sweeps immediately, serialised with scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context) (SweepResult, error) {
	return s.run(ctx, TriggerManual)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	if s.cfg.CatchUpOnStart && s.missedRun(ctx) {
		s.logger.Info("Last sweep predates today, running catch-up sweep")
		s.run(ctx, TriggerCatchUp)
	}

	next := cardpolicy.NextMidnight(s.clock.Now().In(s.loc))
	s.logger.Info("Card sweep scheduled", "next_run", next.Format(time.RFC3339))

	for {
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.clock.After(wait):
		}

		s.run(ctx, TriggerScheduled)

		now := s.clock.Now()
		for !next.After(now) {
			next = s.following(next)
		}
	}
}

// following returns the run after next. A daily interval stays on local
// midnight across DST changes.
func (s *Scheduler) following(next time.Time) time.Time {
	if s.cfg.Interval == 24*time.Hour {
		return cardpolicy.NextMidnight(next.In(s.loc))
	}
	return next.Add(s.cfg.Interval)
}

// missedRun reports whether no sweep completed since the most recent midnight.
// A missing marker counts as missed.
func (s *Scheduler) missedRun(ctx context.Context) bool {
	last, ok, err := s.state.LastRun(ctx)
	if err != nil {
		s.logger.Error(err, "Failed to read last sweep time")
		return false
	}
	if !ok {
		return true
	}
	return last.Before(cardpolicy.StartOfDay(s.clock.Now().In(s.loc)))
}

func (s *Scheduler) run(ctx context.Context, trigger string) (SweepResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.clock.Now().In(s.loc)
	result, err := s.sweeper.Run(ctx, now)
	if err != nil {
		s.metrics.SweepRuns.WithLabelValues(trigger, "error").Inc()
		s.logger.Error(err, "Card sweep failed", "trigger", trigger)
		return result, err
	}

	s.metrics.SweepRuns.WithLabelValues(trigger, "success").Inc()
	s.metrics.SweepLastRun.Set(float64(now.Unix()))
	if err := s.state.SetLastRun(ctx, now); err != nil {
		s.logger.Error(err, "Failed to record last sweep time", "trigger", trigger)
	}

	if trigger == TriggerManual {
		return result, nil
	}
	for _, job := range s.jobs {
		if err := job.Run(ctx, now); err != nil {
			s.logger.Error(err, "Post-sweep job failed", "job", job.Name())
		}
	}
	return result, nil
}
