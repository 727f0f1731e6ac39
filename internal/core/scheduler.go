package core

// scheduler.go runs the sync tasks once at startup, then daily at a fixed UTC
// wall-clock time.
//
// A run executes every task sequentially. Each task is isolated: an error or
// panic in one is recorded in the run report and the next task still runs.
// Only one run is in flight at a time; a trigger that arrives while a run is
// in flight is dropped, not queued.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/steamsync/internal/logging"
)

// State is the scheduler's run state.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	DailyAt    time.Duration // Offset from UTC midnight of the daily run; zero is midnight
	Interval   time.Duration // Period after the first daily run (default: 24h)
	RunOnStart bool          // Trigger one run when Start is called
}

// Validate rejects a daily offset outside [0, 24h).
func (c SchedulerConfig) Validate() error {
	if c.DailyAt < 0 || c.DailyAt >= 24*time.Hour {
		return fmt.Errorf("daily run offset %s must be in [0s, 24h)", c.DailyAt)
	}
	return nil
}

// Scheduler owns the run state and the timers.
type Scheduler struct {
	tasks []Task
	cfg   SchedulerConfig
	now   func() time.Time

	// Timer sources; replaced in tests.
	newTimer  func(time.Duration) (<-chan time.Time, func() bool)
	newTicker func(time.Duration) (<-chan time.Time, func())

	state atomic.Int32

	mu   sync.RWMutex
	done chan struct{} // closed when the current run ends
	last *RunReport
}

// NewScheduler creates a scheduler for tasks. Call cfg.Validate first; an
// out-of-range DailyAt is reduced modulo 24h.
func NewScheduler(tasks []Task, cfg SchedulerConfig) *Scheduler {
	const day = 24 * time.Hour
	cfg.DailyAt = (cfg.DailyAt%day + day) % day
	if cfg.Interval <= 0 {
		cfg.Interval = day
	}
	return &Scheduler{
		tasks:     tasks,
		cfg:       cfg,
		now:       time.Now,
		newTimer:  realTimer,
		newTicker: realTicker,
	}
}

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// State returns the current run state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// LastReport returns the report of the most recent finished run.
func (s *Scheduler) LastReport() (RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunReport{}, false
	}
	return *s.last, true
}

// Start triggers the startup run if configured, then triggers a run at the next
// daily time and every Interval after. It blocks until ctx is cancelled.
// Cancelling ctx stops the timers; a run already in flight finishes.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("sync scheduler started",
		"daily_at", s.cfg.DailyAt.String(),
		"interval", s.cfg.Interval.String(),
		"run_on_start", s.cfg.RunOnStart,
	)

	if s.cfg.RunOnStart {
		s.Trigger(ctx, TriggerStartup)
	}

	next := NextDailyRun(s.now(), s.cfg.DailyAt)
	slog.Info("next scheduled run", "at", next.Format(time.RFC3339))

	timerC, stopTimer := s.newTimer(next.Sub(s.now()))
	defer stopTimer()

	select {
	case <-ctx.Done():
		slog.Info("sync scheduler stopped")
		return
	case <-timerC:
		s.Trigger(ctx, TriggerSchedule)
	}

	tickC, stopTicker := s.newTicker(s.cfg.Interval)
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler stopped")
			return
		case <-tickC:
			s.Trigger(ctx, TriggerSchedule)
		}
	}
}

// Trigger starts a run in the background and reports whether it was accepted.
// The run does not inherit ctx's cancellation.
func (s *Scheduler) Trigger(ctx context.Context, trigger Trigger) bool {
	done, ok := s.acquire(ctx, trigger)
	if !ok {
		return false
	}
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.release(done)
		s.run(runCtx, trigger)
	}()
	return true
}

// RunNow runs every task and returns the report. It returns false without
// running anything when a run is already in flight.
func (s *Scheduler) RunNow(ctx context.Context, trigger Trigger) (RunReport, bool) {
	done, ok := s.acquire(ctx, trigger)
	if !ok {
		return RunReport{}, false
	}
	defer s.release(done)
	return s.run(ctx, trigger), true
}

// Wait blocks until the in-flight run, if any, has finished or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire moves Idle to Running. The done channel is published under mu in
// the same critical section, so Wait never sees Running with a stale channel.
func (s *Scheduler) acquire(ctx context.Context, trigger Trigger) (chan struct{}, bool) {
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		s.mu.Unlock()
		logging.FromContext(ctx).Warn("run already in progress, trigger dropped", "trigger", trigger)
		return nil, false
	}
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()
	return done, true
}

// release moves Running back to Idle and wakes Wait.
func (s *Scheduler) release(done chan struct{}) {
	s.state.Store(int32(StateIdle))
	close(done)
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) RunReport {
	report := RunReport{
		RunID:     uuid.New(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
		Tasks:     make([]TaskResult, 0, len(s.tasks)),
	}
	log := logging.WithFields(ctx, "run_id", report.RunID, "trigger", trigger)
	ctx = logging.WithLogger(ctx, log)
	log.Info("run started", "tasks", len(s.tasks))

	for _, task := range s.tasks {
		report.Tasks = append(report.Tasks, s.runTask(ctx, log, task))
	}

	report.FinishedAt = s.now().UTC()

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	log.Info("run finished",
		"inserted", report.Inserted(),
		"failed", report.Failed(),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report
}

// runTask runs one task, turning an error or panic into a failed TaskResult.
func (s *Scheduler) runTask(ctx context.Context, log *slog.Logger, task Task) (tr TaskResult) {
	tr = TaskResult{Name: task.Name, StartedAt: s.now().UTC()}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task %s panicked: %v", task.Name, r)
			tr.Err = err.Error()
			tr.Code = ClassifyError(err)
			log.Error("task panicked", "task", task.Name, "panic", r)
		}
		tr.FinishedAt = s.now().UTC()
		tr.Duration = tr.FinishedAt.Sub(tr.StartedAt)
	}()

	result, err := task.Run(ctx)
	tr.Result = result
	if err != nil {
		tr.Err = err.Error()
		tr.Code = ClassifyError(err)
		log.Error("task failed", "task", task.Name, "code", tr.Code, "error", err)
	}
	return tr
}

// NextDailyRun returns the first instant strictly after now whose offset from
// UTC midnight is at.
func NextDailyRun(now time.Time, at time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(at)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
