package domain

import "time"

// RunStatus enumerates the run record state machine: a run starts as
// running and ends in exactly one terminal state.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunRecord is the audit entry for one pipeline execution, unique per
// calendar date.
type RunRecord struct {
	ID             int64
	RunDate        time.Time
	Status         RunStatus
	FeedsProcessed int
	ItemsFetched   int
	ItemsRelevant  int
	APICallsMade   int
	StartedAt      time.Time
	CompletedAt    *time.Time
	ErrorMessage   string
}

// RunOptions caps a controlled or test run. Zero values mean no cap.
type RunOptions struct {
	MaxFeeds        int
	MaxItemsPerFeed int
}

// RunDay truncates a timestamp to its UTC calendar date, the unique key
// of a run record.
func RunDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
