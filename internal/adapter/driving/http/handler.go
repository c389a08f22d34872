// Package httphandler is the HTTP driving adapter: the webhook endpoint, the
// health probe and the read-only run ledger API.
package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/revbot/internal/application"
	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// maxWebhookBody caps the size of a delivery body.
const maxWebhookBody = 10 << 20

// Run listing limits for GET /api/v1/runs.
const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// ReviewEnqueuer schedules a review run for an accepted pull request delivery.
type ReviewEnqueuer interface {
	Enqueue(body []byte) error
}

// Handler is the HTTP driving adapter that serves the webhook and the REST API.
type Handler struct {
	reviews ReviewEnqueuer
	runs    driven.RunStore
	secret  string
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	reviews ReviewEnqueuer,
	runs driven.RunStore,
	secret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reviews: reviews,
		runs:    runs,
		secret:  secret,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{$}", h.Webhook)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/pulls/{index}/runs", h.ListPullRuns)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Webhook accepts a Gitea delivery. Authorization and event classification
// happen before the body is read. Accepted pull request deliveries are queued
// and acknowledged at once; the review outcome is never reported to the sender.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := application.Authorize(r.Header, h.secret); err != nil {
		h.rejectWebhook(w, r, err)
		return
	}

	kind, err := application.ClassifyEvent(r.Header)
	if err != nil {
		h.rejectWebhook(w, r, err)
		return
	}
	if kind != model.EventPullRequest {
		h.rejectWebhook(w, r, fmt.Errorf("event %q: %w", r.Header.Get(application.HeaderEvent), model.ErrNotSupported))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.rejectWebhook(w, r, fmt.Errorf("read body: %w: %w", model.ErrRequestBodyInvalid, err))
		return
	}
	if !json.Valid(body) {
		h.rejectWebhook(w, r, fmt.Errorf("body is not JSON: %w", model.ErrRequestBodyInvalid))
		return
	}

	if err := h.reviews.Enqueue(body); err != nil {
		h.logger.Error("failed to enqueue review", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Code: 0, Message: "success"})
}

func (h *Handler) rejectWebhook(w http.ResponseWriter, r *http.Request, err error) {
	resp := toWebhookError(err)
	h.logger.Warn("webhook rejected",
		"code", resp.Code,
		"event", r.Header.Get(application.HeaderEvent),
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRuns returns the most recent review runs. The optional limit query
// parameter defaults to 20 and is capped at 200.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponses(runs))
}

// ListPullRuns returns every review run of one pull request.
func (h *Handler) ListPullRuns(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid pull request index")
		return
	}
	pull := model.PullRef{
		Owner: r.PathValue("owner"),
		Repo:  r.PathValue("repo"),
		Index: index,
	}

	runs, err := h.runs.ListByPull(r.Context(), pull)
	if err != nil {
		h.logger.Error("failed to list runs", "pull", pull.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponses(runs))
}

// toWebhookError maps a synchronous webhook failure to its wire code.
func toWebhookError(err error) webhookResponse {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return webhookResponse{Code: 20001, Message: "invalid request"}
	case errors.Is(err, model.ErrHeaderDecoding):
		return webhookResponse{Code: 20002, Message: "header to str error"}
	case errors.Is(err, model.ErrNoResponse), errors.Is(err, model.ErrModel):
		return webhookResponse{Code: 20003, Message: "ai error"}
	case errors.Is(err, model.ErrNotSupported):
		return webhookResponse{Code: 20004, Message: "event not support"}
	case errors.Is(err, model.ErrGitHost), errors.Is(err, model.ErrMalformedUpstreamResponse):
		return webhookResponse{Code: 20006, Message: "gitea error"}
	default:
		return webhookResponse{Code: 20005, Message: "invalid request"}
	}
}
