package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// --- Fake implementations shared by application tests ---

type fakeHost struct {
	mu sync.Mutex

	login      string
	loginErr   error
	reviews    []model.Review
	reviewsErr error
	requested  model.Review
	requestErr error
	diff       string
	diffErr    error
	submitErr  error

	calls       []string
	submissions []model.ReviewSubmission

	// onFetchDiff, when set, runs inside FetchDiff before it returns.
	onFetchDiff func(pull model.PullRef)
}

func (f *fakeHost) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeHost) CurrentUser(_ context.Context) (string, error) {
	f.record("CurrentUser")
	return f.login, f.loginErr
}

func (f *fakeHost) ListReviews(_ context.Context, _ model.PullRef) ([]model.Review, error) {
	f.record("ListReviews")
	return f.reviews, f.reviewsErr
}

func (f *fakeHost) RequestReviewer(_ context.Context, _ model.PullRef, _ string) (model.Review, error) {
	f.record("RequestReviewer")
	return f.requested, f.requestErr
}

func (f *fakeHost) FetchDiff(_ context.Context, pull model.PullRef) (string, error) {
	f.record("FetchDiff")
	if f.onFetchDiff != nil {
		f.onFetchDiff(pull)
	}
	return f.diff, f.diffErr
}

func (f *fakeHost) SubmitReview(_ context.Context, _ model.PullRef, review model.ReviewSubmission) error {
	f.record("SubmitReview")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submissions = append(f.submissions, review)
	return nil
}

func (f *fakeHost) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHost) Submissions() []model.ReviewSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ReviewSubmission(nil), f.submissions...)
}

type fakeChat struct {
	mu       sync.Mutex
	choices  []string
	err      error
	requests []string
}

func (f *fakeChat) Complete(_ context.Context, req driven.ChatRequest) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req.User)
	return f.choices, f.err
}

func (f *fakeChat) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeRunStore struct {
	mu       sync.Mutex
	begun    []model.ReviewRun
	finished []model.ReviewRun
	err      error
}

func (f *fakeRunStore) Begin(_ context.Context, run model.ReviewRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun = append(f.begun, run)
	return f.err
}

func (f *fakeRunStore) Finish(_ context.Context, run model.ReviewRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return f.err
}

func (f *fakeRunStore) ListRecent(_ context.Context, _ int) ([]model.ReviewRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ReviewRun(nil), f.finished...), nil
}

func (f *fakeRunStore) ListByPull(_ context.Context, pull model.PullRef) ([]model.ReviewRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReviewRun
	for _, r := range f.finished {
		if r.Pull == pull {
			out = append(out, r)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func statePtr(s model.ReviewState) *model.ReviewState { return &s }
