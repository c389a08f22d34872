// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// ReviewService runs the review pipeline for pull request deliveries: resolve
// the bot's reviewer state, fetch the diff, ask the model, parse its answer and
// submit the review. It depends only on port interfaces.
type ReviewService struct {
	host       driven.GitHost
	chat       driven.ChatModel
	parser     ReviewParser
	runs       driven.RunStore
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewReviewService creates a new ReviewService with the required dependencies.
// runs may be nil, in which case no ledger is kept.
func NewReviewService(
	host driven.GitHost,
	chat driven.ChatModel,
	parser ReviewParser,
	runs driven.RunStore,
	dispatcher *Dispatcher,
) *ReviewService {
	return &ReviewService{
		host:       host,
		chat:       chat,
		parser:     parser,
		runs:       runs,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Enqueue schedules a run for a pull request delivery body and returns without
// waiting for it. Deliveries the bot does not review are logged and dropped.
// Runs for the same pull request queue behind each other without holding a
// dispatcher slot while they wait.
func (s *ReviewService) Enqueue(body []byte) error {
	ev, err := model.ParseWebhookEvent(model.EventPullRequest, body)
	if err != nil {
		if isIgnoredDelivery(err) {
			slog.Info("delivery ignored", "reason", err)
			return nil
		}
		return fmt.Errorf("parse webhook event: %w", err)
	}

	pull := ev.Pull()
	if err := s.dispatcher.SubmitKeyed("review "+pull.String(), pull.String(), func(ctx context.Context) error {
		return s.runPull(ctx, ev)
	}); err != nil {
		return fmt.Errorf("enqueue review: %w", err)
	}
	return nil
}

// Run executes the pipeline for one pull request delivery inline. Steps run
// strictly in order and the first failure ends the run; nothing is retried and
// no partial review is posted. Runs for the same pull request never overlap,
// including with runs scheduled by Enqueue.
func (s *ReviewService) Run(ctx context.Context, body []byte) error {
	ev, err := model.ParseWebhookEvent(model.EventPullRequest, body)
	if err != nil {
		return fmt.Errorf("parse webhook event: %w", err)
	}
	pull := ev.Pull()

	unlock, err := s.dispatcher.LockKey(ctx, pull.String())
	if err != nil {
		return fmt.Errorf("wait for %s: %w", pull, err)
	}
	defer unlock()

	return s.runPull(ctx, ev)
}

// runPull runs the pipeline for ev. The caller holds the pull request's key.
func (s *ReviewService) runPull(ctx context.Context, ev model.WebhookEvent) error {
	pull := ev.Pull()

	run := model.ReviewRun{
		ID:        uuid.NewString(),
		Pull:      pull,
		Action:    ev.Action,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	s.beginRun(ctx, run)

	slog.Info("review started", "run_id", run.ID, "pull", pull.String(), "action", ev.Action)

	review, event, err := s.review(ctx, pull)
	run.FinishedAt = s.now().UTC()
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunStatusSucceeded
		run.ReviewEvent = event
		run.FindingCount = len(review.Findings)
	}
	s.finishRun(ctx, run)

	if err != nil {
		return fmt.Errorf("review %s: %w", pull, err)
	}
	slog.Info("review submitted",
		"run_id", run.ID,
		"pull", pull.String(),
		"event", event,
		"findings", run.FindingCount,
	)
	return nil
}

func (s *ReviewService) review(ctx context.Context, pull model.PullRef) (model.ParsedReview, model.ReviewEvent, error) {
	status, err := ResolveReviewerStatus(ctx, s.host, pull)
	if err != nil {
		return model.ParsedReview{}, "", err
	}

	diff, err := s.host.FetchDiff(ctx, pull)
	if err != nil {
		return model.ParsedReview{}, "", fmt.Errorf("fetch diff: %w", err)
	}

	raw, err := InvokeReview(ctx, s.chat, diff)
	if err != nil {
		return model.ParsedReview{}, "", err
	}

	review, err := s.parser.Parse(raw)
	if err != nil {
		slog.Debug("unparseable model output", "pull", pull.String(), "output", raw)
		return model.ParsedReview{}, "", fmt.Errorf("parse model output: %w", err)
	}

	event, err := SubmitReview(ctx, s.host, pull, review, status)
	if err != nil {
		return model.ParsedReview{}, "", err
	}
	return review, event, nil
}

// beginRun and finishRun record the run in the ledger. Ledger failures never
// fail the run.
func (s *ReviewService) beginRun(ctx context.Context, run model.ReviewRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Begin(ctx, run); err != nil {
		slog.Warn("failed to record run start", "run_id", run.ID, "error", err)
	}
}

func (s *ReviewService) finishRun(ctx context.Context, run model.ReviewRun) {
	if s.runs == nil {
		return
	}
	// The run may have ended because ctx was canceled; the outcome is still recorded.
	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("failed to record run outcome", "run_id", run.ID, "error", err)
	}
}

// isIgnoredDelivery reports whether err stems from the delivery itself, such as
// an action the bot does not review, rather than from a remote service.
func isIgnoredDelivery(err error) bool {
	return errors.Is(err, model.ErrRequestBodyInvalid) || errors.Is(err, model.ErrNotSupported)
}
