package model

import (
	"encoding/json"
	"fmt"
)

// WebhookEvent is the classified content of a pull request webhook delivery.
type WebhookEvent struct {
	Kind      EventKind
	Action    Action
	Owner     string
	Repo      string
	PullIndex int64
}

// Pull returns the pull request the event refers to.
func (e WebhookEvent) Pull() PullRef {
	return PullRef{Owner: e.Owner, Repo: e.Repo, Index: e.PullIndex}
}

// webhookPayload mirrors the subset of the delivery body we read. Pointers
// distinguish absent fields from zero values.
type webhookPayload struct {
	Action     *string `json:"action"`
	Repository struct {
		Owner struct {
			Username *string `json:"username"`
		} `json:"owner"`
		Name *string `json:"name"`
	} `json:"repository"`
	PullRequest struct {
		Number *int64 `json:"number"`
	} `json:"pull_request"`
}

// ParseWebhookEvent decodes a delivery body for an already classified event kind.
//
// Bodies that are not JSON, or whose fields have the wrong type, fail with
// ErrRequestBodyInvalid. A missing or unrecognized action and missing
// repository or pull request coordinates fail with ErrNotSupported.
func ParseWebhookEvent(kind EventKind, body []byte) (WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %w", ErrRequestBodyInvalid, err)
	}

	if p.Action == nil {
		return WebhookEvent{}, fmt.Errorf("missing action: %w", ErrNotSupported)
	}
	action := ParseAction(*p.Action)
	if action == ActionOther {
		return WebhookEvent{}, fmt.Errorf("action %q: %w", *p.Action, ErrNotSupported)
	}

	owner := p.Repository.Owner.Username
	repo := p.Repository.Name
	index := p.PullRequest.Number
	switch {
	case owner == nil:
		return WebhookEvent{}, fmt.Errorf("missing repository.owner.username: %w", ErrNotSupported)
	case repo == nil:
		return WebhookEvent{}, fmt.Errorf("missing repository.name: %w", ErrNotSupported)
	case index == nil:
		return WebhookEvent{}, fmt.Errorf("missing pull_request.number: %w", ErrNotSupported)
	}

	if *index < 0 {
		return WebhookEvent{}, fmt.Errorf("negative pull_request.number %d: %w", *index, ErrRequestBodyInvalid)
	}

	return WebhookEvent{
		Kind:      kind,
		Action:    action,
		Owner:     *owner,
		Repo:      *repo,
		PullIndex: *index,
	}, nil
}
