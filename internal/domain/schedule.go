package domain

import "time"

// QuietHours is an hour-of-day window during which automatic runs are
// suppressed. A window with Start > End wraps past midnight.
type QuietHours struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether the given local hour falls inside the window.
func (q QuietHours) Contains(hour int) bool {
	if q.Start == q.End {
		return false
	}
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

// ScheduleConfig is the process-wide automatic-run policy. Changes take
// effect on the next scheduler tick.
type ScheduleConfig struct {
	Enabled       bool       `json:"enabled"`
	IntervalHours int        `json:"intervalHours"`
	MaxRunsPerDay int        `json:"maxRunsPerDay"`
	RunOnWeekends bool       `json:"runOnWeekends"`
	QuietHours    QuietHours `json:"quietHours"`
	Timezone      string     `json:"timezone"`
}

// Location resolves the configured timezone, reverting to UTC when the
// name is empty or unknown.
func (c ScheduleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RunResult is the outcome of one generation or publish run. The latest
// one is retained as the schedule's lastRunResult.
type RunResult struct {
	RunID           string    `json:"runId"`
	ArticlesCreated int       `json:"articlesCreated"`
	EntriesCreated  int       `json:"entriesCreated"`
	Processed       []string  `json:"processed,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
	Success         bool      `json:"success"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// ScheduleStatus is the scheduler's observable state. The run counters
// and the last result are persisted so they survive a process restart.
type ScheduleStatus struct {
	IsActive      bool       `json:"isActive"`
	NextRunTime   *time.Time `json:"nextRunTime,omitempty"`
	LastRunTime   *time.Time `json:"lastRunTime,omitempty"`
	LastRunResult *RunResult `json:"lastRunResult,omitempty"`
	RunsToday     int        `json:"runsToday"`
	TotalRuns     int        `json:"totalRuns"`
}

// Topic is a synthetic signal produced by the language-model path.
type Topic struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}
