package application

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// reviewPrompt is the instruction block sent ahead of every diff.
//
//go:embed prompts/review.md
var reviewPrompt string

// systemPrompt is the fixed system message of every review request.
const systemPrompt = "You are a helpful assistant."

// BuildReviewRequest assembles the chat request for a diff: the review prompt,
// a blank line, then the diff verbatim.
func BuildReviewRequest(diff string) driven.ChatRequest {
	return driven.ChatRequest{
		System: systemPrompt,
		User:   reviewPrompt + "\n\n" + diff,
	}
}

// InvokeReview asks the model to review diff and returns the text of the first
// choice that carries content. It fails with model.ErrNoResponse when no choice
// does. Model failures are returned unchanged and carry model.ErrModel.
func InvokeReview(ctx context.Context, chat driven.ChatModel, diff string) (string, error) {
	choices, err := chat.Complete(ctx, BuildReviewRequest(diff))
	if err != nil {
		return "", fmt.Errorf("complete review: %w", err)
	}
	for _, c := range choices {
		if c != "" {
			return c, nil
		}
	}
	return "", fmt.Errorf("%d choices without content: %w", len(choices), model.ErrNoResponse)
}
