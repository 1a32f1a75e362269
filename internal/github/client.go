// Package github talks to the single issue thread used as the message board's
// remote datastore. Every call is independent: thread coordinates and the write
// token are fixed when the Client is built, and nothing is cached.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"
	"portfolio-messageboard/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint
	DefaultBaseURL = "https://api.github.com"
	// DefaultPerPage is the largest page GitHub serves for issue comments
	DefaultPerPage = 100
	// DefaultTimeout bounds every remote call
	DefaultTimeout = 10 * time.Second

	maxResponseBody = 1 << 20
)

// ErrMissingCredential is returned by write operations when no token is configured.
// No request is sent in that case.
var ErrMissingCredential = errors.New("github: write token not configured")

// StatusError reports a non-success response from the remote API
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the remote API
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Config identifies the fixed thread and the credential used for writes
type Config struct {
	BaseURL     string
	Owner       string
	Repo        string
	IssueNumber int
	Token       string
	PerPage     int
	Timeout     time.Duration
}

// Client wraps the issue-comments REST API of one thread
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger
}

// NewClient creates a client for the configured thread
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PerPage <= 0 || cfg.PerPage > DefaultPerPage {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("github")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultConfig("github-comments"), log),
		log:        log,
	}
}

// HasCredential reports whether write operations are possible
func (c *Client) HasCredential() bool {
	return c.cfg.Token != ""
}

// ThreadURL is the comment collection endpoint of the fixed thread
func (c *Client) ThreadURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), c.cfg.IssueNumber)
}

func (c *Client) commentURL(id string) string {
	return fmt.Sprintf("%s/repos/%s/%s/issues/comments/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), url.PathEscape(id))
}

// ListComments reads a single page of up to PerPage comments from the thread
func (c *Client) ListComments(ctx context.Context) ([]RawRecord, error) {
	endpoint := fmt.Sprintf("%s?per_page=%d", c.ThreadURL(), c.cfg.PerPage)

	body, err := c.do(ctx, "list", http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var comments []apiComment
	if err := json.Unmarshal(body, &comments); err != nil {
		return nil, fmt.Errorf("github list: decode response: %w", err)
	}

	records := make([]RawRecord, 0, len(comments))
	for _, cm := range comments {
		records = append(records, cm.raw())
	}
	return records, nil
}

// CreateComment posts body as a new comment on the thread
func (c *Client) CreateComment(ctx context.Context, body string) (RawRecord, error) {
	if !c.HasCredential() {
		return RawRecord{}, ErrMissingCredential
	}

	resp, err := c.do(ctx, "create", http.MethodPost, c.ThreadURL(), createRequest{Body: body}, http.StatusCreated)
	if err != nil {
		return RawRecord{}, err
	}

	var cm apiComment
	if err := json.Unmarshal(resp, &cm); err != nil {
		return RawRecord{}, fmt.Errorf("github create: decode response: %w", err)
	}
	return cm.raw(), nil
}

// DeleteComment removes one comment. It returns true only when the API answers
// 204 No Content; every other status comes back as a *StatusError (see IsNotFound).
func (c *Client) DeleteComment(ctx context.Context, id string) (bool, error) {
	if !c.HasCredential() {
		return false, ErrMissingCredential
	}

	if _, err := c.do(ctx, "delete", http.MethodDelete, c.commentURL(id), nil, http.StatusNoContent); err != nil {
		return false, err
	}
	return true, nil
}

// GetComment fetches one comment. A 404 is reported as found == false with a nil error.
func (c *Client) GetComment(ctx context.Context, id string) (RawRecord, bool, error) {
	body, err := c.do(ctx, "get", http.MethodGet, c.commentURL(id), nil, http.StatusOK)
	if err != nil {
		if IsNotFound(err) {
			return RawRecord{}, false, nil
		}
		return RawRecord{}, false, err
	}

	var cm apiComment
	if err := json.Unmarshal(body, &cm); err != nil {
		return RawRecord{}, false, fmt.Errorf("github get: decode response: %w", err)
	}
	return cm.raw(), true, nil
}

// Ping checks that the thread is reachable; used by the health checker
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s?per_page=1", c.ThreadURL())
	_, err := c.do(ctx, "ping", http.MethodGet, endpoint, nil, http.StatusOK)
	return err
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload any, want int) ([]byte, error) {
	ctx, span := otel.Tracer("portfolio-messageboard/github").Start(ctx, "github."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var respBody []byte
	err := c.breaker.Execute(func() error {
		var callErr error
		respBody, callErr = c.send(ctx, op, method, endpoint, payload, want)
		return callErr
	}, countsAsFailure)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("github %s: %w", op, err)
		}
		return nil, err
	}
	return respBody, nil
}

func (c *Client) send(ctx context.Context, op, method, endpoint string, payload any, want int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("github %s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("github %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "portfolio-messageboard")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRemote(op, 0, started)
		c.log.Warn("Remote call failed", "op", op, "error", err.Error())
		return nil, fmt.Errorf("github %s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveRemote(op, resp.StatusCode, started)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("github %s: read response: %w", op, err)
	}

	if resp.StatusCode != want {
		c.log.Debug("Unexpected remote status", "op", op, "status", resp.StatusCode)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// countsAsFailure keeps client-side statuses (4xx) from tripping the breaker
func countsAsFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
