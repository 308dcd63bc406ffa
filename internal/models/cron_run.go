package models

import "time"

// Cron run status constants. A run moves running -> success | failed exactly
// once; the repository refuses any further transition.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Cron run trigger constants
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// CronRun is the run-level ledger row for one orchestrator invocation
type CronRun struct {
	ID               string
	OrgID            string
	Status           string
	Trigger          string
	StartedAt        time.Time
	FinishedAt       *time.Time
	EmailsProcessed  int
	EmailsDuplicates int
	EmailsFailed     int
	ErrorMessage     *string
	DurationMs       *int64
}

// RunStats summarizes the last N runs for the dashboard
type RunStats struct {
	TotalRuns     int
	SuccessRate   float64
	AvgDurationMs float64
}
