package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/revbot/internal/adapter/driving/http"
	"github.com/ericfisherdev/revbot/internal/domain/model"
)

const testSecret = "hook-secret"

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// --- Mock implementations ---

type mockEnqueuer struct {
	mu     sync.Mutex
	bodies [][]byte
	err    error
}

func (m *mockEnqueuer) Enqueue(body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *mockEnqueuer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bodies)
}

type mockRunStore struct {
	recent    []model.ReviewRun
	byPull    []model.ReviewRun
	err       error
	lastLimit int
	lastPull  model.PullRef
}

func (m *mockRunStore) Begin(_ context.Context, _ model.ReviewRun) error  { return nil }
func (m *mockRunStore) Finish(_ context.Context, _ model.ReviewRun) error { return nil }

func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]model.ReviewRun, error) {
	m.lastLimit = limit
	return m.recent, m.err
}

func (m *mockRunStore) ListByPull(_ context.Context, pull model.PullRef) ([]model.ReviewRun, error) {
	m.lastPull = pull
	return m.byPull, m.err
}

// failingBody fails the test if the handler reads it.
type failingBody struct {
	t *testing.T
}

func (b failingBody) Read(_ []byte) (int, error) {
	b.t.Error("body was read")
	return 0, errors.New("body must not be read")
}

func (b failingBody) Close() error { return nil }

// --- Helpers ---

func setupMux(enq *mockEnqueuer, runs *mockRunStore) http.Handler {
	h := httphandler.NewHandler(enq, runs, testSecret, slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func webhookRequest(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

type webhookReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const prBody = `{"action":"opened","repository":{"name":"widgets","owner":{"username":"acme"}},"pull_request":{"number":7}}`

// --- Tests ---

func TestWebhook_Accepted(t *testing.T) {
	enq := &mockEnqueuer{}
	mux := setupMux(enq, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, webhookRequest(prBody, map[string]string{
		"Authorization":  testSecret,
		"X-GitHub-Event": "pull_request",
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var reply webhookReply
	decodeJSON(t, rec, &reply)
	assert.Equal(t, webhookReply{Code: 0, Message: "success"}, reply)
	require.Equal(t, 1, enq.count())
	assert.JSONEq(t, prBody, string(enq.bodies[0]))
}

// TestWebhook_UnsupportedActionAccepted checks that the action is not
// inspected synchronously: the sender gets success either way.
func TestWebhook_UnsupportedActionAccepted(t *testing.T) {
	enq := &mockEnqueuer{}
	mux := setupMux(enq, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, webhookRequest(`{"action":"closed"}`, map[string]string{
		"Authorization":  testSecret,
		"X-GitHub-Event": "pull_request",
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, enq.count())
}

func TestWebhook_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		headers  map[string]string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing authorization",
			body:     prBody,
			headers:  map[string]string{"X-GitHub-Event": "pull_request"},
			wantCode: 20001,
			wantMsg:  "invalid request",
		},
		{
			name:     "wrong authorization",
			body:     prBody,
			headers:  map[string]string{"Authorization": "nope", "X-GitHub-Event": "pull_request"},
			wantCode: 20001,
			wantMsg:  "invalid request",
		},
		{
			name:     "authorization not utf-8",
			body:     prBody,
			headers:  map[string]string{"Authorization": "hook\xffsecret", "X-GitHub-Event": "pull_request"},
			wantCode: 20002,
			wantMsg:  "header to str error",
		},
		{
			name:     "event not utf-8",
			body:     prBody,
			headers:  map[string]string{"Authorization": testSecret, "X-GitHub-Event": "pull\xff"},
			wantCode: 20002,
			wantMsg:  "header to str error",
		},
		{
			name:     "push event",
			body:     `{"ref":"refs/heads/main"}`,
			headers:  map[string]string{"Authorization": testSecret, "X-GitHub-Event": "push"},
			wantCode: 20004,
			wantMsg:  "event not support",
		},
		{
			name:     "missing event header",
			body:     prBody,
			headers:  map[string]string{"Authorization": testSecret},
			wantCode: 20004,
			wantMsg:  "event not support",
		},
		{
			name:     "body not json",
			body:     `{"action":`,
			headers:  map[string]string{"Authorization": testSecret, "X-GitHub-Event": "pull_request"},
			wantCode: 20005,
			wantMsg:  "invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &mockEnqueuer{}
			mux := setupMux(enq, &mockRunStore{})

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, webhookRequest(tt.body, tt.headers))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var reply webhookReply
			decodeJSON(t, rec, &reply)
			assert.Equal(t, tt.wantCode, reply.Code)
			assert.Equal(t, tt.wantMsg, reply.Message)
			assert.Zero(t, enq.count())
		})
	}
}

func TestWebhook_UnauthorizedNeverReadsBody(t *testing.T) {
	enq := &mockEnqueuer{}
	mux := setupMux(enq, &mockRunStore{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = failingBody{t: t}
	req.Header.Set("Authorization", "wrong")
	req.Header.Set("X-GitHub-Event", "pull_request")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var reply webhookReply
	decodeJSON(t, rec, &reply)
	assert.Equal(t, 20001, reply.Code)
	assert.Zero(t, enq.count())
}

func TestWebhook_NonPullRequestNeverReadsBody(t *testing.T) {
	enq := &mockEnqueuer{}
	mux := setupMux(enq, &mockRunStore{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = failingBody{t: t}
	req.Header.Set("Authorization", testSecret)
	req.Header.Set("X-GitHub-Event", "issues")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var reply webhookReply
	decodeJSON(t, rec, &reply)
	assert.Equal(t, 20004, reply.Code)
	assert.Zero(t, enq.count())
}

func TestWebhook_EnqueueFails(t *testing.T) {
	enq := &mockEnqueuer{err: errors.New("dispatcher closed")}
	mux := setupMux(enq, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, webhookRequest(prBody, map[string]string{
		"Authorization":  testSecret,
		"X-GitHub-Event": "pull_request",
	}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	mux := setupMux(&mockEnqueuer{}, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	mux := setupMux(&mockEnqueuer{}, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	_, err := time.Parse(time.RFC3339, resp.Time)
	assert.NoError(t, err)
}

func TestListRuns(t *testing.T) {
	runs := &mockRunStore{recent: []model.ReviewRun{
		{
			ID:           "run-2",
			Pull:         model.PullRef{Owner: "acme", Repo: "widgets", Index: 7},
			Action:       model.ActionSynchronized,
			Status:       model.RunStatusSucceeded,
			ReviewEvent:  model.ReviewEventComment,
			FindingCount: 2,
			StartedAt:    testTime,
			FinishedAt:   testTime.Add(1500 * time.Millisecond),
		},
		{
			ID:        "run-1",
			Pull:      model.PullRef{Owner: "acme", Repo: "widgets", Index: 6},
			Action:    model.ActionOpened,
			Status:    model.RunStatusRunning,
			StartedAt: testTime,
		},
	}}
	mux := setupMux(&mockEnqueuer{}, runs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, runs.lastLimit)

	var resp []map[string]any
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "run-2", resp[0]["id"])
	assert.Equal(t, "acme/widgets", resp[0]["repository"])
	assert.Equal(t, float64(7), resp[0]["pull_index"])
	assert.Equal(t, "synchronized", resp[0]["action"])
	assert.Equal(t, "succeeded", resp[0]["status"])
	assert.Equal(t, "COMMENT", resp[0]["review_event"])
	assert.Equal(t, float64(2), resp[0]["finding_count"])
	assert.Equal(t, float64(1500), resp[0]["duration_ms"])
	assert.Equal(t, "2026-03-01T12:00:00Z", resp[0]["started_at"])

	_, hasFinished := resp[1]["finished_at"]
	assert.False(t, hasFinished)
	_, hasEvent := resp[1]["review_event"]
	assert.False(t, hasEvent)
}

func TestListRuns_Limit(t *testing.T) {
	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"?limit=5", http.StatusOK, 5},
		{"?limit=1000", http.StatusOK, 200},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			runs := &mockRunStore{}
			mux := setupMux(&mockEnqueuer{}, runs)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, runs.lastLimit)
		})
	}
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	mux := setupMux(&mockEnqueuer{}, &mockRunStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListRuns_StoreError(t *testing.T) {
	mux := setupMux(&mockEnqueuer{}, &mockRunStore{err: errors.New("disk I/O error")})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

func TestListPullRuns(t *testing.T) {
	runs := &mockRunStore{byPull: []model.ReviewRun{{ID: "run-1", Status: model.RunStatusFailed, Error: "gitea: upstream error"}}}
	mux := setupMux(&mockEnqueuer{}, runs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/repos/acme/widgets/pulls/7/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PullRef{Owner: "acme", Repo: "widgets", Index: 7}, runs.lastPull)
	var resp []map[string]any
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "gitea: upstream error", resp[0]["error"])
}

func TestListPullRuns_BadIndex(t *testing.T) {
	mux := setupMux(&mockEnqueuer{}, &mockRunStore{})

	for _, index := range []string{"x", "-1"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/repos/acme/widgets/pulls/"+index+"/runs", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, index)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := httphandler.NewHandler(panicEnqueuer{}, &mockRunStore{}, testSecret, slog.Default())
	mux := httphandler.NewServeMux(h, slog.Default())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, webhookRequest(prBody, map[string]string{
		"Authorization":  testSecret,
		"X-GitHub-Event": "pull_request",
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicEnqueuer struct{}

func (panicEnqueuer) Enqueue(_ []byte) error { panic("boom") }
