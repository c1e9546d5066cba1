// Package ckan talks to the CKAN action API.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rpattn/ckanbulk/internal/auth"
	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/logging"
	"github.com/rpattn/ckanbulk/internal/search"
)

const (
	ActionPackageSearch = "package_search"
	ActionPackageShow   = "package_show"

	maxErrorBody = 4096
)

// Client calls CKAN actions over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	apiToken   string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger

	anonymousFallback bool
}

type Option func(*Client)

func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = strings.TrimSpace(token)
	}
}

// WithHTTPClient replaces the default HTTP client. WithTimeout applies to a
// copy, never to client itself.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the overall timeout of the underlying HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit caps outbound calls at rps with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAnonymousFallback lets HTTP callers that send no token act with the
// configured service token. Off by default, so anonymous callers only see
// what CKAN shows to anonymous users.
func WithAnonymousFallback(enabled bool) Option {
	return func(c *Client) {
		c.anonymousFallback = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client for the CKAN site at rawURL.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid CKAN url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid CKAN url %q: scheme must be http or https", rawURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid CKAN url %q: missing host", rawURL)
	}

	client := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.timeout > 0 {
		httpClient := *client.httpClient
		httpClient.Timeout = client.timeout
		client.httpClient = &httpClient
	}
	client.logger = logging.Default(client.logger).With("component", "ckan")
	return client, nil
}

type actionEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *actionError    `json:"error"`
}

type actionError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (e *actionError) String() string {
	switch {
	case e == nil:
		return "unknown error"
	case e.Message != "" && e.Type != "":
		return e.Type + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Type != "":
		return e.Type
	default:
		return "unknown error"
	}
}

// Call posts payload to the named action and decodes the result into out.
// Every failure is returned as a *domain.BackendError.
func (c *Client) Call(ctx context.Context, action string, payload any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.BackendError{Op: action, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.BackendError{Op: action, Err: fmt.Errorf("encode payload: %w", err)}
	}

	endpoint := c.baseURL.JoinPath("api", "3", "action", action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return &domain.BackendError{Op: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.BackendError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.BackendError{Op: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("action call", "action", action, "status", resp.StatusCode, "duration", time.Since(started))

	var envelope actionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &domain.BackendError{Op: action, StatusCode: resp.StatusCode, Err: errors.New(truncate(string(raw)))}
		}
		return &domain.BackendError{Op: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		return &domain.BackendError{Op: action, StatusCode: resp.StatusCode, Err: errors.New(envelope.Error.String())}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &domain.BackendError{Op: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// tokenFor prefers the token of the caller on whose behalf ctx runs. The
// service token is used for non-HTTP work such as the CLI, and for anonymous
// HTTP callers only when the fallback is enabled.
func (c *Client) tokenFor(ctx context.Context) string {
	if token, ok := auth.APITokenFromContext(ctx); ok {
		return token
	}
	if auth.OnBehalfOfCaller(ctx) && !c.anonymousFallback {
		return ""
	}
	return c.apiToken
}

type searchPayload struct {
	Q              string `json:"q"`
	Rows           int    `json:"rows"`
	Start          int    `json:"start"`
	IncludePrivate bool   `json:"include_private"`
	IncludeDrafts  bool   `json:"include_drafts"`
}

type searchResult struct {
	Count   int                   `json:"count"`
	Results []domain.EntityRecord `json:"results"`
}

// Search runs package_search.
func (c *Client) Search(ctx context.Context, req search.Request) (search.Response, error) {
	return c.SearchWith(ActionPackageSearch)(ctx, req)
}

// SearchWith returns a backend that runs the given search action. Entity
// types other than datasets expose their own search actions.
func (c *Client) SearchWith(action string) search.BackendFunc {
	return func(ctx context.Context, req search.Request) (search.Response, error) {
		var result searchResult
		err := c.Call(ctx, action, searchPayload{
			Q:              req.Query,
			Rows:           req.Rows,
			Start:          req.Start,
			IncludePrivate: req.IncludePrivate,
			IncludeDrafts:  req.IncludeDrafts,
		}, &result)
		if err != nil {
			return search.Response{}, err
		}
		return search.Response{Results: result.Results, Count: result.Count}, nil
	}
}

// Show fetches one fully expanded entity by id.
func (c *Client) Show(ctx context.Context, action, id string) (domain.EntityRecord, error) {
	var record domain.EntityRecord
	if err := c.Call(ctx, action, map[string]string{"id": id}, &record); err != nil {
		return domain.EntityRecord{}, err
	}
	return record, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
