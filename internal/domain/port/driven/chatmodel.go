package driven

import "context"

// ChatRequest is a two-message chat completion request.
type ChatRequest struct {
	System string
	User   string
}

// ChatModel defines the driven port for a chat-completion endpoint.
type ChatModel interface {
	// Complete returns the text of every choice in the order the endpoint returned
	// them. Failures are wrapped with model.ErrModel.
	Complete(ctx context.Context, req ChatRequest) ([]string, error)
}
