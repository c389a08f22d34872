package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// ResolveReviewerStatus determines the bot's current review on a pull request,
// requesting itself as a reviewer when it has none yet.
//
// The first review in the host's listing whose reviewer is the bot wins. A
// review without commit_id or state fails with
// model.ErrMalformedUpstreamResponse. Host failures, and a user without a
// login, carry model.ErrGitHost.
func ResolveReviewerStatus(ctx context.Context, host driven.GitHost, pull model.PullRef) (model.ReviewerStatus, error) {
	login, err := host.CurrentUser(ctx)
	if err != nil {
		return model.ReviewerStatus{}, fmt.Errorf("get current user: %w", err)
	}
	if login == "" {
		return model.ReviewerStatus{}, fmt.Errorf("current user has no login: %w", model.ErrGitHost)
	}

	reviews, err := host.ListReviews(ctx, pull)
	if err != nil {
		return model.ReviewerStatus{}, fmt.Errorf("list reviews for %s: %w", pull, err)
	}

	for _, r := range reviews {
		if r.ReviewerLogin != login {
			continue
		}
		status, ok := r.Status()
		if !ok {
			return model.ReviewerStatus{}, fmt.Errorf("review by %s on %s lacks commit or state: %w",
				login, pull, model.ErrMalformedUpstreamResponse)
		}
		slog.Debug("existing review found", "pull", pull.String(), "reviewer", login, "state", status.State)
		return status, nil
	}

	created, err := host.RequestReviewer(ctx, pull, login)
	if err != nil {
		return model.ReviewerStatus{}, fmt.Errorf("request reviewer %s on %s: %w", login, pull, err)
	}
	status, ok := created.Status()
	if !ok {
		return model.ReviewerStatus{}, fmt.Errorf("requested review on %s lacks commit or state: %w",
			pull, model.ErrMalformedUpstreamResponse)
	}
	slog.Info("requested self as reviewer", "pull", pull.String(), "reviewer", login, "state", status.State)
	return status, nil
}
