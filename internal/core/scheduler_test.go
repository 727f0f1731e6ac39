package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/steamsync/internal/logging"
)

func TestNextDailyRun(t *testing.T) {
	at := 12*time.Hour + 5*time.Minute

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the daily time",
			now:  time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC),
		},
		{
			name: "exactly at the daily time",
			now:  time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC),
			want: time.Date(2024, 3, 11, 12, 5, 0, 0, time.UTC),
		},
		{
			name: "after the daily time",
			now:  time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC),
			want: time.Date(2024, 3, 11, 12, 5, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input",
			now:  time.Date(2024, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600)),
			want: time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDailyRun(tt.now, at)
			if !got.Equal(tt.want) {
				t.Errorf("NextDailyRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDailyRun_Midnight(t *testing.T) {
	s := NewScheduler(nil, SchedulerConfig{DailyAt: 0})
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	got := NextDailyRun(now, s.cfg.DailyAt)
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("NextDailyRun() = %v, want %v", got, want)
	}
}

func TestSchedulerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		at      time.Duration
		wantErr bool
	}{
		{name: "midnight", at: 0},
		{name: "noon past five", at: 12*time.Hour + 5*time.Minute},
		{name: "last minute", at: 23*time.Hour + 59*time.Minute},
		{name: "a full day", at: 24 * time.Hour, wantErr: true},
		{name: "negative", at: -time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SchedulerConfig{DailyAt: tt.at}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchedulerConfigDefaults(t *testing.T) {
	s := NewScheduler(nil, SchedulerConfig{})
	if s.cfg.DailyAt != 0 {
		t.Errorf("DailyAt = %v, want midnight", s.cfg.DailyAt)
	}
	if got := NewScheduler(nil, SchedulerConfig{DailyAt: 25 * time.Hour}).cfg.DailyAt; got != time.Hour {
		t.Errorf("DailyAt 25h reduced to %v, want 1h", got)
	}
	if s.cfg.Interval != 24*time.Hour {
		t.Errorf("Interval = %v, want 24h", s.cfg.Interval)
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	if _, ok := s.LastReport(); ok {
		t.Error("LastReport() should be empty before any run")
	}
}

func TestScheduler_DropsOverlappingTrigger(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var runs atomic.Int32

	s := NewScheduler([]Task{{
		Name: "slow",
		Run: func(ctx context.Context) (SyncResult, error) {
			runs.Add(1)
			started <- struct{}{}
			<-release
			return SyncResult{Inserted: 1}, nil
		},
	}}, SchedulerConfig{})

	if !s.Trigger(context.Background(), TriggerManual) {
		t.Fatal("first Trigger() not accepted")
	}
	<-started

	if s.State() != StateRunning {
		t.Errorf("State() = %v, want running", s.State())
	}
	if s.Trigger(context.Background(), TriggerSchedule) {
		t.Error("Trigger() accepted while a run is in flight")
	}
	if _, ok := s.RunNow(context.Background(), TriggerManual); ok {
		t.Error("RunNow() accepted while a run is in flight")
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	report, ok := s.LastReport()
	if !ok || report.Trigger != TriggerManual || report.Inserted() != 1 {
		t.Errorf("LastReport() = %+v, %v", report, ok)
	}

	// Idle again: the next trigger runs.
	if _, ok := s.RunNow(context.Background(), TriggerManual); !ok {
		t.Error("RunNow() not accepted after the run finished")
	}
}

func TestScheduler_TaskIsolation(t *testing.T) {
	var ranLast bool
	s := NewScheduler([]Task{
		{Name: "fails", Run: func(context.Context) (SyncResult, error) {
			return SyncResult{}, errors.New("boom")
		}},
		{Name: "panics", Run: func(context.Context) (SyncResult, error) {
			panic("nil map")
		}},
		{Name: "ok", Run: func(context.Context) (SyncResult, error) {
			ranLast = true
			return SyncResult{Inserted: 3}, nil
		}},
	}, SchedulerConfig{})

	report, ok := s.RunNow(context.Background(), TriggerStartup)
	if !ok {
		t.Fatal("RunNow() not accepted")
	}
	if !ranLast {
		t.Error("task after a failing task did not run")
	}
	if len(report.Tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(report.Tasks))
	}
	if !report.Tasks[0].Failed() || report.Tasks[0].Code != "ERR000" {
		t.Errorf("failing task = %+v", report.Tasks[0])
	}
	if !report.Tasks[1].Failed() {
		t.Error("panicking task should be recorded as failed")
	}
	if report.Tasks[2].Failed() || report.Inserted() != 3 {
		t.Errorf("ok task = %+v", report.Tasks[2])
	}
	if report.RunID.String() == "" || report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("report metadata = %+v", report)
	}
	if s.State() != StateIdle {
		t.Error("scheduler should be idle after a panic")
	}
}

func TestScheduler_TriggerOutlivesCaller(t *testing.T) {
	done := make(chan error, 1)
	s := NewScheduler([]Task{{
		Name: "ctx",
		Run: func(ctx context.Context) (SyncResult, error) {
			time.Sleep(20 * time.Millisecond)
			done <- ctx.Err()
			return SyncResult{}, nil
		},
	}}, SchedulerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	if !s.Trigger(ctx, TriggerManual) {
		t.Fatal("Trigger() not accepted")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("task context error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestScheduler_WaitIdle(t *testing.T) {
	s := NewScheduler(nil, SchedulerConfig{})
	if err := s.Wait(context.Background()); err != nil {
		t.Errorf("Wait() with no run = %v, want nil", err)
	}
}

func TestScheduler_WaitTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := NewScheduler([]Task{{
		Name: "stuck",
		Run: func(context.Context) (SyncResult, error) {
			<-release
			return SyncResult{}, nil
		},
	}}, SchedulerConfig{})
	s.Trigger(context.Background(), TriggerManual)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestScheduler_StartRunsOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := NewScheduler([]Task{{
		Name: "once",
		Run: func(context.Context) (SyncResult, error) {
			ran <- struct{}{}
			return SyncResult{}, nil
		},
	}}, SchedulerConfig{RunOnStart: true})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run did not happen")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := s.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	report, ok := s.LastReport()
	if !ok || report.Trigger != TriggerStartup {
		t.Errorf("LastReport() = %+v, %v, want startup run", report, ok)
	}
}

// fakeClock hands Start channels the test fires by hand.
type fakeClock struct {
	timerC   chan time.Time
	tickC    chan time.Time
	timerFor chan time.Duration
	tickFor  chan time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		timerC:   make(chan time.Time),
		tickC:    make(chan time.Time),
		timerFor: make(chan time.Duration, 1),
		tickFor:  make(chan time.Duration, 1),
	}
}

func (c *fakeClock) install(s *Scheduler) {
	s.newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		c.timerFor <- d
		return c.timerC, func() bool { return true }
	}
	s.newTicker = func(d time.Duration) (<-chan time.Time, func()) {
		c.tickFor <- d
		return c.tickC, func() {}
	}
}

func recv[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestScheduler_DailyTimerThenInterval(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	var runs atomic.Int32

	s := NewScheduler([]Task{{
		Name: "sync",
		Run: func(context.Context) (SyncResult, error) {
			runs.Add(1)
			started <- struct{}{}
			<-release
			return SyncResult{}, nil
		},
	}}, SchedulerConfig{DailyAt: 6 * time.Hour, Interval: time.Hour})
	s.now = func() time.Time { return time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC) }
	clock := newFakeClock()
	clock.install(s)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	if d := recv(t, clock.timerFor, "daily timer"); d != time.Hour {
		t.Errorf("timer armed for %v, want 1h until 06:00", d)
	}
	if runs.Load() != 0 {
		t.Error("no run expected before the daily time")
	}

	clock.timerC <- time.Time{}
	recv(t, started, "scheduled run")
	if d := recv(t, clock.tickFor, "interval ticker"); d != time.Hour {
		t.Errorf("ticker period = %v, want 1h", d)
	}

	// Both ticks arrive while the scheduled run is in flight and are dropped.
	// The second send returns only after the first tick was handled.
	clock.tickC <- time.Time{}
	clock.tickC <- time.Time{}
	close(release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := s.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1 after overlapping ticks", got)
	}

	clock.tickC <- time.Time{}
	recv(t, started, "interval run")
	if err := s.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
	report, ok := s.LastReport()
	if !ok || report.Trigger != TriggerSchedule {
		t.Errorf("LastReport() = %+v, %v, want scheduled run", report, ok)
	}

	cancel()
	recv(t, stopped, "Start to return")
}

func TestScheduler_WaitSeesRunAfterStateFlip(t *testing.T) {
	for i := 0; i < 50; i++ {
		var finished atomic.Int32
		var release chan struct{}
		s := NewScheduler([]Task{{
			Name: "gated",
			Run: func(context.Context) (SyncResult, error) {
				if release != nil {
					<-release
				}
				finished.Add(1)
				return SyncResult{}, nil
			},
		}}, SchedulerConfig{})

		// Leave an already-closed done channel behind.
		s.RunNow(context.Background(), TriggerStartup)
		finished.Store(0)
		release = make(chan struct{})

		sawRunning := make(chan struct{}, 1)
		observed := make(chan int32, 1)
		go func() {
			for s.State() != StateRunning {
				time.Sleep(10 * time.Microsecond)
			}
			sawRunning <- struct{}{}
			if err := s.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
			observed <- finished.Load()
		}()

		s.Trigger(context.Background(), TriggerManual)
		recv(t, sawRunning, "running state")
		close(release)
		if got := recv(t, observed, "Wait to return"); got != 1 {
			t.Fatalf("iteration %d: Wait returned with the run still in flight", i)
		}
	}
}

func TestScheduler_TaskLogsCarryRunID(t *testing.T) {
	var buf strings.Builder
	prev := slog.Default()
	defer slog.SetDefault(prev)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	s := NewScheduler([]Task{{
		Name: "sales",
		Run: func(ctx context.Context) (SyncResult, error) {
			logging.WithFields(ctx, "task", "sales").Warn("row insert failed")
			return SyncResult{}, nil
		},
	}}, SchedulerConfig{})

	report, _ := s.RunNow(context.Background(), TriggerManual)

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "row insert failed") {
			if !strings.Contains(line, "run_id="+report.RunID.String()) {
				t.Errorf("task log line = %q, want run_id", line)
			}
			return
		}
	}
	t.Errorf("task log line not found in %q", buf.String())
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateRunning.String() != "running" {
		t.Error("unexpected state names")
	}
	if State(7).String() != "State(7)" {
		t.Errorf("State(7).String() = %q", State(7).String())
	}
}
