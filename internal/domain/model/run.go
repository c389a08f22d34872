package model

import "time"

// ReviewRun is the ledger entry of one orchestrator run.
type ReviewRun struct {
	ID           string
	Pull         PullRef
	Action       Action
	Status       RunStatus
	ReviewEvent  ReviewEvent // Set once a review was submitted.
	FindingCount int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time // Zero while the run is in progress.
}

// Duration returns how long the run took, or zero while it is still running.
func (r ReviewRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
