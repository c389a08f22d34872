package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// BuildSubmission maps a parsed review onto the host's review payload. Every
// finding becomes an inline comment on the new side of its file, and the event
// follows from the bot's current review state.
func BuildSubmission(review model.ParsedReview, status model.ReviewerStatus) model.ReviewSubmission {
	comments := make([]model.InlineComment, 0, len(review.Findings))
	for _, f := range review.Findings {
		comments = append(comments, model.InlineComment{
			Path:        f.Location.AbsoluteFilePath,
			Body:        f.Body,
			NewPosition: f.Location.Line,
			OldPosition: 0,
		})
	}
	return model.ReviewSubmission{
		Body:     review.OverallExplanation,
		CommitID: status.CommitID,
		Event:    model.NextReviewEvent(status.State),
		Comments: comments,
	}
}

// SubmitReview posts the review and returns the event it was submitted with.
func SubmitReview(
	ctx context.Context,
	host driven.GitHost,
	pull model.PullRef,
	review model.ParsedReview,
	status model.ReviewerStatus,
) (model.ReviewEvent, error) {
	sub := BuildSubmission(review, status)
	if err := host.SubmitReview(ctx, pull, sub); err != nil {
		return "", fmt.Errorf("submit review on %s: %w", pull, err)
	}
	return sub.Event, nil
}
