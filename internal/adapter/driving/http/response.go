package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body of the REST API.
type errorResponse struct {
	Error string `json:"error"`
}

// webhookResponse is the body of every webhook reply. Code 0 means success.
type webhookResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RunResponse is the JSON representation of a review run.
type RunResponse struct {
	ID           string `json:"id"`
	Repository   string `json:"repository"`
	PullIndex    int64  `json:"pull_index"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	ReviewEvent  string `json:"review_event,omitempty"`
	FindingCount int    `json:"finding_count"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

func toRunResponse(run model.ReviewRun) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		Repository:   run.Pull.FullName(),
		PullIndex:    run.Pull.Index,
		Action:       run.Action.String(),
		Status:       string(run.Status),
		ReviewEvent:  string(run.ReviewEvent),
		FindingCount: run.FindingCount,
		Error:        run.Error,
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:   run.Duration().Milliseconds(),
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toRunResponses(runs []model.ReviewRun) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	return out
}
