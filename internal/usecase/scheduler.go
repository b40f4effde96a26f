package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
)

// The poll period is independent of IntervalHours: the ticker fires
// frequently and the eligibility gate decides whether a run happens.
const defaultTickInterval = 30 * time.Minute

// Runner executes one automatic publish run. An error means the run was
// rejected (already in flight) and must not be recorded.
type Runner func(ctx context.Context) (domain.RunResult, error)

// Scheduler is the resident control loop deciding when automatic runs
// occur. It is an explicit instance constructed once at process start;
// run history is persisted through the status store so counters survive
// restarts.
type Scheduler struct {
	mu     sync.Mutex
	cfg    domain.ScheduleConfig
	status domain.ScheduleStatus
	store  ports.StatusStore
	runner Runner
	logger *slog.Logger
	stop   chan struct{}
	tick   time.Duration
	now    func() time.Time
}

// NewScheduler loads persisted status once and returns a stopped
// scheduler.
func NewScheduler(cfg domain.ScheduleConfig, store ports.StatusStore, runner Runner, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logger,
		tick:   defaultTickInterval,
		now:    time.Now,
	}

	if store != nil {
		status, err := store.Load(context.Background())
		if err != nil {
			s.warn("load schedule status failed", "error", err)
		} else {
			s.status = status
		}
	}
	s.status.IsActive = false
	s.rollover(s.now())
	return s
}

// Start moves the scheduler to running if the config enables it. One
// gating check runs immediately, then the fixed-period timer is armed.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.status.IsActive = true
	s.refreshNext(s.now())
	s.persist(ctx)
	s.mu.Unlock()

	go s.loop(ctx, stop)
}

// Stop clears the timer and returns to stopped.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	s.status.IsActive = false
	s.persist(ctx)
}

// UpdateConfig swaps the policy. An active loop is restarted so the new
// settings take effect on a fresh timer; flipping Enabled implicitly
// starts or stops the loop.
func (s *Scheduler) UpdateConfig(ctx context.Context, cfg domain.ScheduleConfig) {
	s.mu.Lock()
	wasRunning := s.stop != nil
	wasEnabled := s.cfg.Enabled
	s.cfg = cfg
	s.mu.Unlock()

	switch {
	case wasRunning && !cfg.Enabled:
		s.Stop(ctx)
	case wasRunning:
		s.Stop(ctx)
		s.Start(ctx)
	case cfg.Enabled && !wasEnabled:
		s.Start(ctx)
	}
}

// Config returns the current policy.
func (s *Scheduler) Config() domain.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() domain.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// TriggerManualRun bypasses the eligibility gate entirely but still
// updates the same counters. The busy flag still applies: a run already
// in flight surfaces as the runner's error.
func (s *Scheduler) TriggerManualRun(ctx context.Context) (domain.RunResult, error) {
	result, err := s.runner(ctx)
	if err != nil {
		return domain.RunResult{}, err
	}
	s.record(ctx, result)
	return result, nil
}

func (s *Scheduler) loop(ctx context.Context, stop chan struct{}) {
	s.checkAndRun(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.checkAndRun(ctx)
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// checkAndRun is the gated tick. It never lets an error escape: a
// failed run is recorded and the loop keeps ticking.
func (s *Scheduler) checkAndRun(ctx context.Context) {
	s.mu.Lock()
	now := s.now()
	if s.rollover(now) {
		s.persist(ctx)
	}
	eligible := s.shouldRunNow(now)
	if !eligible {
		s.refreshNext(now)
	}
	s.mu.Unlock()

	if !eligible {
		return
	}

	result, err := s.runner(ctx)
	if err != nil {
		s.debug("scheduled run rejected", "error", err)
		return
	}
	s.record(ctx, result)

	if !result.Success {
		s.warn("scheduled run failed", "runId", result.RunID, "errors", len(result.Errors))
	}
}

// shouldRunNow is the eligibility gate; the caller holds the lock and
// has already applied the daily rollover.
func (s *Scheduler) shouldRunNow(now time.Time) bool {
	local := now.In(s.cfg.Location())

	if s.status.RunsToday >= s.cfg.MaxRunsPerDay {
		return false
	}
	if !s.cfg.RunOnWeekends && isWeekend(local.Weekday()) {
		return false
	}
	if s.cfg.QuietHours.Contains(local.Hour()) {
		return false
	}
	if s.status.LastRunTime != nil {
		elapsed := now.Sub(*s.status.LastRunTime)
		if elapsed < time.Duration(s.cfg.IntervalHours)*time.Hour {
			return false
		}
	}
	return true
}

// record stores the outcome of a completed run, successful or not, so a
// failing run cannot trigger an immediate retry storm.
func (s *Scheduler) record(ctx context.Context, result domain.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// A run on a new local day must not inherit yesterday's counter;
	// manual triggers reach here without passing the gate's rollover.
	s.rollover(now)
	s.status.LastRunTime = &now
	s.status.LastRunResult = &result
	s.status.RunsToday++
	s.status.TotalRuns++
	s.refreshNext(now)
	s.persist(ctx)
}

// rollover resets runsToday when the stored lastRunTime is not "today"
// in the configured timezone. Reports whether state changed.
func (s *Scheduler) rollover(now time.Time) bool {
	if s.status.LastRunTime == nil || s.status.RunsToday == 0 {
		return false
	}
	loc := s.cfg.Location()
	last := s.status.LastRunTime.In(loc)
	local := now.In(loc)
	if last.Year() == local.Year() && last.YearDay() == local.YearDay() {
		return false
	}
	s.status.RunsToday = 0
	return true
}

// refreshNext projects the next run time forward from the last run,
// stepping over quiet hours and, when configured, weekends.
func (s *Scheduler) refreshNext(now time.Time) {
	from := now
	if s.status.LastRunTime != nil {
		from = *s.status.LastRunTime
	}

	candidate := from.Add(time.Duration(s.cfg.IntervalHours) * time.Hour)
	if candidate.Before(now) {
		candidate = now
	}

	loc := s.cfg.Location()
	for i := 0; i < 24*14; i++ {
		local := candidate.In(loc)
		if s.cfg.QuietHours.Contains(local.Hour()) || (!s.cfg.RunOnWeekends && isWeekend(local.Weekday())) {
			candidate = candidate.Add(time.Hour)
			continue
		}
		break
	}
	s.status.NextRunTime = &candidate
}

func (s *Scheduler) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.status); err != nil {
		s.warn("persist schedule status failed", "error", err)
	}
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

func (s *Scheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
