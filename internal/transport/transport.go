// Package transport delivers built batches to the list service over HTTP
// and reports what the service said about each operation.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bulklist/bulklist/internal/batch"
	"github.com/bulklist/bulklist/internal/listops"
	"github.com/bulklist/bulklist/internal/logging"
)

// Client defaults applied when the corresponding Config field is zero.
const (
	// DefaultTimeout bounds one request round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the client to the list service.
	DefaultUserAgent = "bulklist"

	retryWaitTime    = 500 * time.Millisecond
	retryMaxWaitTime = 5 * time.Second

	// errorBodyLimit caps how much of a rejection body is quoted in errors.
	errorBodyLimit = 512
)

// Common transport configuration errors.
var (
	ErrBaseURLRequired = errors.New("service base URL is required")
	ErrBaseURLInvalid  = errors.New("service base URL is invalid")
	ErrListRequired    = errors.New("list name is required")
	ErrTimeoutInvalid  = errors.New("timeout must not be negative")
	ErrRetriesInvalid  = errors.New("retries must not be negative")
)

// Config describes how to reach one list on the service.
type Config struct {
	// BaseURL is the service root, e.g. "https://lists.example.com".
	BaseURL string

	// List names the list that batches are applied to.
	List string

	// Timeout bounds a single request round trip. Zero means DefaultTimeout.
	Timeout time.Duration

	// Retries is how many times a request is re-attempted after a
	// connection-level failure. Responses are never retried: once the
	// service has answered for a batch, that batch is spent.
	Retries int

	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string
}

// Validate checks the configuration for values the client cannot work with.
// The list name may stay empty: only Submit needs one, so an info-only
// client does not have to invent a list.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrBaseURLInvalid, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: got %s", ErrTimeoutInvalid, c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: got %d", ErrRetriesInvalid, c.Retries)
	}
	return nil
}

// HTTP talks to the list service's batch endpoint. It satisfies
// dispatch.Transport.
type HTTP struct {
	client *resty.Client
	list   string
}

// New builds an HTTP transport for the configured list.
func New(cfg Config) (*HTTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transport config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	if cfg.Retries > 0 {
		client.
			SetRetryCount(cfg.Retries).
			SetRetryWaitTime(retryWaitTime).
			SetRetryMaxWaitTime(retryMaxWaitTime).
			AddRetryCondition(func(_ *resty.Response, err error) bool {
				// Retry only when no response arrived. A batch the service
				// has answered is never re-sent.
				return err != nil
			})
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logging.FromContext(req.Context()).Debug().
			Str("component", "transport").
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("sending request")
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logging.FromContext(resp.Request.Context()).Debug().
			Str("component", "transport").
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("received response")
		return nil
	})

	return &HTTP{client: client, list: cfg.List}, nil
}

// batchEnvelope is the JSON document the batch endpoint accepts.
type batchEnvelope struct {
	Batch batchBody `json:"batch"`
}

type batchBody struct {
	Seq        int               `json:"seq"`
	OnError    batch.Directive   `json:"on_error"`
	Operations []json.RawMessage `json:"operations"`
}

func envelope(b batch.Batch) batchEnvelope {
	ops := make([]json.RawMessage, len(b.Ops))
	for i, d := range b.Ops {
		// Descriptors are already JSON and travel verbatim.
		ops[i] = json.RawMessage(d)
	}
	return batchEnvelope{Batch: batchBody{Seq: b.Seq, OnError: b.OnError, Operations: ops}}
}

// Submit delivers one batch and decodes the service's per-operation results.
// A non-nil error means the batch was refused or its outcome is unknown;
// operation failures reported inside a 2xx payload are not errors here.
func (h *HTTP) Submit(ctx context.Context, b batch.Batch) (*listops.BatchResponse, error) {
	if h.list == "" {
		return nil, ErrListRequired
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(envelope(b)).
		Post(fmt.Sprintf("/lists/%s/batches", url.PathEscape(h.list)))
	if err != nil {
		return nil, fmt.Errorf("submitting batch %d to list %q: %w", b.Seq, h.list, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("list service rejected batch %d: status %d: %s",
			b.Seq, resp.StatusCode(), bodySnippet(resp.Body()))
	}

	var payload listops.Payload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decoding batch %d response: %w", b.Seq, err)
	}
	return &listops.BatchResponse{Payload: payload, Raw: json.RawMessage(resp.Body())}, nil
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "(empty body)"
	}
	if len(s) > errorBodyLimit {
		s = s[:errorBodyLimit] + "..."
	}
	return s
}
