package gitea

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// createReviewRequest is Gitea's CreatePullReviewOptions.
type createReviewRequest struct {
	Body     string                `json:"body"`
	Comments []createReviewComment `json:"comments"`
	CommitID string                `json:"commit_id"`
	Event    string                `json:"event"`
}

// createReviewComment is Gitea's CreatePullReviewComment. A comment targets the
// new side of the diff when old_position is 0.
type createReviewComment struct {
	Body        string `json:"body"`
	NewPosition uint32 `json:"new_position"`
	OldPosition uint32 `json:"old_position"`
	Path        string `json:"path"`
}

// SubmitReview creates a review with inline comments on a pull request.
func (c *Client) SubmitReview(ctx context.Context, pull model.PullRef, review model.ReviewSubmission) error {
	payload := createReviewRequest{
		Body:     review.Body,
		Comments: make([]createReviewComment, 0, len(review.Comments)),
		CommitID: review.CommitID,
		Event:    string(review.Event),
	}
	for _, cm := range review.Comments {
		payload.Comments = append(payload.Comments, createReviewComment{
			Body:        cm.Body,
			NewPosition: cm.NewPosition,
			OldPosition: cm.OldPosition,
			Path:        cm.Path,
		})
	}

	req, err := c.gh.NewRequest(http.MethodPost, pullPath(pull)+"/reviews", payload)
	if err != nil {
		return fmt.Errorf("building review for %s: %w", pull, err)
	}

	resp, err := c.gh.Do(ctx, req, nil)
	if err != nil {
		return fmt.Errorf("creating review for %s: %w: %w", pull, model.ErrGitHost, err)
	}

	logRateLimit(resp, pull.String()+"/create-review", 0, len(payload.Comments))
	return nil
}
