// Package model holds the domain types of the review bot.
package model

// EventKind classifies the X-GitHub-Event header of a webhook delivery.
type EventKind int

const (
	EventOther EventKind = iota
	EventPullRequest
)

// String returns the header label for recognized kinds.
func (k EventKind) String() string {
	if k == EventPullRequest {
		return "pull_request"
	}
	return "other"
}

// ParseEventKind maps the raw event header value to a closed EventKind.
func ParseEventKind(label string) EventKind {
	switch label {
	case "pull_request":
		return EventPullRequest
	default:
		return EventOther
	}
}

// Action classifies the "action" field of a pull_request webhook body.
type Action int

const (
	ActionOther Action = iota
	ActionOpened
	ActionSynchronized
)

// String returns the webhook label for recognized actions.
func (a Action) String() string {
	switch a {
	case ActionOpened:
		return "opened"
	case ActionSynchronized:
		return "synchronized"
	default:
		return "other"
	}
}

// MarshalText encodes the action as its webhook label.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAction maps the raw action label to a closed Action.
func ParseAction(label string) Action {
	switch label {
	case "opened":
		return ActionOpened
	case "synchronized":
		return ActionSynchronized
	default:
		return ActionOther
	}
}

// ReviewState is the host's lifecycle state of a pull request review.
// Values outside the constants below are kept verbatim.
type ReviewState string

const (
	ReviewStateApproved       ReviewState = "APPROVED"
	ReviewStatePending        ReviewState = "PENDING"
	ReviewStateComment        ReviewState = "COMMENT"
	ReviewStateRequestChanges ReviewState = "REQUEST_CHANGES"
	ReviewStateRequestReview  ReviewState = "REQUEST_REVIEW"
)

// ReviewEvent is the event submitted together with a new review.
type ReviewEvent string

const (
	ReviewEventApproved ReviewEvent = "APPROVED"
	ReviewEventComment  ReviewEvent = "COMMENT"
)

// NextReviewEvent returns the event to submit given the bot's current review state.
// Unknown states fall through to APPROVED.
func NextReviewEvent(state ReviewState) ReviewEvent {
	switch state {
	case ReviewStateApproved:
		return ReviewEventComment
	case ReviewStatePending:
		return ReviewEventApproved
	case ReviewStateComment:
		return ReviewEventComment
	case ReviewStateRequestChanges:
		return ReviewEventApproved
	case ReviewStateRequestReview:
		return ReviewEventApproved
	default:
		return ReviewEventApproved
	}
}

// RunStatus is the outcome of a single review run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)
