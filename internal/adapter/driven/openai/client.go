// Package openai implements the ChatModel port against any OpenAI-compatible
// chat completions endpoint using the go-openai library.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatModel = (*Client)(nil)

// Client implements the driven.ChatModel port for one model on one endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a client for baseURL (e.g. "https://api.openai.com/v1")
// authenticating with key.
func NewClient(baseURL, key, modelName string) *Client {
	return NewClientWithHTTPClient(http.DefaultClient, baseURL, key, modelName)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, key, modelName string) *Client {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = httpClient
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

// Complete sends a system and a user message and returns the text of every
// choice in the order the endpoint returned them.
func (c *Client) Complete(ctx context.Context, req driven.ChatRequest) ([]string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion with %s: %w: %w", c.model, model.ErrModel, err)
	}

	slog.Debug("chat completion",
		"model", resp.Model,
		"choices", len(resp.Choices),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	texts := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		texts = append(texts, choice.Message.Content)
	}
	return texts, nil
}
