// Package gitea implements the GitHost port against the Gitea REST API using
// the go-github library, whose request plumbing Gitea's GitHub-compatible
// endpoints accept.
package gitea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHost = (*Client)(nil)

// Client implements the driven.GitHost port for one Gitea instance.
type Client struct {
	gh *gh.Client
}

// NewClient creates a Gitea API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (request building, token auth, pagination, error decoding)
//
// baseURL is the API root, e.g. "https://git.example.com/api/v1/".
func NewClient(baseURL, token string) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	return newClient(rateLimitClient, baseURL, token)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	return newClient(httpClient, baseURL, token)
}

func newClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	client := gh.NewClient(httpClient).WithAuthToken(token)
	client.BaseURL = u
	client.UserAgent = "revbot"

	return &Client{gh: client}, nil
}

// CurrentUser returns the login of the token's account.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("getting current user: %w: %w", model.ErrGitHost, err)
	}
	logRateLimit(resp, "user", 0, 1)
	return user.GetLogin(), nil
}

// ListReviews retrieves all reviews of a pull request in the host's order.
// It handles pagination automatically.
func (c *Client) ListReviews(ctx context.Context, pull model.PullRef) ([]model.Review, error) {
	opts := &gh.ListOptions{PerPage: 50}
	var all []model.Review

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, pull.Owner, pull.Repo, int(pull.Index), opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s (page %d): %w: %w", pull, opts.Page, model.ErrGitHost, err)
		}

		logRateLimit(resp, pull.String()+"/reviews", opts.Page, len(reviews))

		for _, r := range reviews {
			all = append(all, mapReview(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// reviewersRequest is Gitea's PullReviewRequestOptions. team_reviewers is
// always sent, even when empty.
type reviewersRequest struct {
	Reviewers     []string `json:"reviewers"`
	TeamReviewers []string `json:"team_reviewers"`
}

// RequestReviewer adds login as a reviewer. Gitea answers with the list of
// review requests it created; the first one is returned. A single review
// object is accepted as well.
func (c *Client) RequestReviewer(ctx context.Context, pull model.PullRef, login string) (model.Review, error) {
	path := pullPath(pull) + "/requested_reviewers"
	req, err := c.gh.NewRequest(http.MethodPost, path, reviewersRequest{
		Reviewers:     []string{login},
		TeamReviewers: []string{},
	})
	if err != nil {
		return model.Review{}, fmt.Errorf("building review request for %s: %w", pull, err)
	}

	var raw json.RawMessage
	resp, err := c.gh.Do(ctx, req, &raw)
	if err != nil {
		return model.Review{}, fmt.Errorf("requesting reviewer %s on %s: %w: %w", login, pull, model.ErrGitHost, err)
	}
	logRateLimit(resp, pull.String()+"/requested_reviewers", 0, 1)

	review, err := decodeRequestedReview(raw)
	if err != nil {
		return model.Review{}, fmt.Errorf("decoding review request for %s: %w", pull, err)
	}
	return review, nil
}

func decodeRequestedReview(raw json.RawMessage) (model.Review, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*gh.PullRequestReview
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return model.Review{}, fmt.Errorf("%w: %w", model.ErrMalformedUpstreamResponse, err)
		}
		if len(list) == 0 || list[0] == nil {
			return model.Review{}, fmt.Errorf("empty review list: %w", model.ErrMalformedUpstreamResponse)
		}
		return mapReview(list[0]), nil
	}

	var single gh.PullRequestReview
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return model.Review{}, fmt.Errorf("%w: %w", model.ErrMalformedUpstreamResponse, err)
	}
	return mapReview(&single), nil
}

// FetchDiff returns the unified diff of a pull request.
func (c *Client) FetchDiff(ctx context.Context, pull model.PullRef) (string, error) {
	req, err := c.gh.NewRequest(http.MethodGet, pullPath(pull)+".diff", nil)
	if err != nil {
		return "", fmt.Errorf("building diff request for %s: %w", pull, err)
	}
	req.Header.Set("Accept", "text/plain")

	var buf bytes.Buffer
	resp, err := c.gh.Do(ctx, req, &buf)
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s: %w: %w", pull, model.ErrGitHost, err)
	}
	logRateLimit(resp, pull.String()+".diff", 0, buf.Len())

	return buf.String(), nil
}

// mapReview converts a go-github PullRequestReview to a domain model Review.
// Missing commit_id and state stay nil.
func mapReview(r *gh.PullRequestReview) model.Review {
	review := model.Review{
		ReviewerLogin: r.GetUser().GetLogin(),
		CommitID:      r.CommitID,
	}
	if r.State != nil {
		state := model.ReviewState(*r.State)
		review.State = &state
	}
	return review
}

// pullPath returns the API path of a pull request relative to the base URL.
func pullPath(pull model.PullRef) string {
	return fmt.Sprintf("repos/%s/%s/pulls/%d", url.PathEscape(pull.Owner), url.PathEscape(pull.Repo), pull.Index)
}

// logRateLimit logs each API call, and warns when the host reports a low
// remaining quota. Gitea only sends rate headers when rate limiting is enabled.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("gitea api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"page", page,
		"count", count,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("gitea rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
