package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// ErrRunNotFound is returned by Finish when no run with the given ID was begun.
var ErrRunNotFound = errors.New("review run not found")

// RunStore defines the driven port for the review run ledger.
type RunStore interface {
	// Begin records a run that has just started.
	Begin(ctx context.Context, run model.ReviewRun) error

	// Finish stores the outcome of a previously begun run. Returns ErrRunNotFound
	// if the run was never begun.
	Finish(ctx context.Context, run model.ReviewRun) error

	// ListRecent returns up to limit runs, most recently started first.
	ListRecent(ctx context.Context, limit int) ([]model.ReviewRun, error)

	// ListByPull returns all runs for one pull request, most recently started first.
	ListByPull(ctx context.Context, pull model.PullRef) ([]model.ReviewRun, error)
}
