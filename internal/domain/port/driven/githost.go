// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// GitHost defines the driven port for the Git hosting platform's REST API.
// Implementations wrap every transport or HTTP failure with model.ErrGitHost.
type GitHost interface {
	// CurrentUser returns the login of the account the client authenticates as.
	CurrentUser(ctx context.Context) (string, error)

	// ListReviews returns the reviews of a pull request in the order the host returns them.
	ListReviews(ctx context.Context, pull model.PullRef) ([]model.Review, error)

	// RequestReviewer asks the host to add login as a reviewer (no team reviewers)
	// and returns the review the host created for that request.
	RequestReviewer(ctx context.Context, pull model.PullRef, login string) (model.Review, error)

	// FetchDiff returns the unified diff of a pull request.
	FetchDiff(ctx context.Context, pull model.PullRef) (string, error)

	// SubmitReview posts a review with inline comments.
	SubmitReview(ctx context.Context, pull model.PullRef, review model.ReviewSubmission) error
}
