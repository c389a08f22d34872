package model

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the webhook handler and the review pipeline.
// Callers wrap these with context and classify with errors.Is.
var (
	ErrUnauthorized   = errors.New("authorization failed")
	ErrHeaderDecoding = errors.New("header is not valid text")
	ErrNotSupported   = errors.New("event not support")

	ErrRequestBodyInvalid = errors.New("invalid request body")

	// ErrUpstream covers transport and HTTP failures of both remote services.
	ErrUpstream = errors.New("upstream error")
	ErrGitHost  = fmt.Errorf("gitea: %w", ErrUpstream)
	ErrModel    = fmt.Errorf("ai: %w", ErrUpstream)

	ErrNoResponse                = errors.New("no response from ai")
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
	ErrMalformedReview           = errors.New("malformed review")
)
