// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-gated, retrying JSON client used for
// every catalog request.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 800 * time.Millisecond

const defaultMaxRetries = 3

// Client issues GET requests through a Gate and decodes JSON bodies.
//
// Transient failures (429, 5xx, transport errors) are retried up to
// MaxRetries times with a delay of RetryBaseDelay × 2^attempt plus a random
// fraction of RetryBaseDelay. Every attempt passes through the Gate, so
// retries count against the budget. Fatal failures return immediately.
// After each success the client sleeps for Pace.
type Client struct {
	HTTP       *http.Client
	Gate       *Gate
	UserAgent  string
	MaxRetries int
	Pace       time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewClient builds a Client from HTTP settings. The Gate budget comes from
// RequestsPerMinute over Window.
func NewClient(cfg types.HTTPConfig) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		Gate:       NewGate(cfg.RequestsPerMinute, cfg.Window),
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Pace:       cfg.Pace,
	}
}

// GetJSON fetches rawURL with params and decodes the body into out.
// It returns *TransientError once retries are exhausted, *FatalError for
// non-retryable responses, or ctx.Err() when cancelled.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	reqURL := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		reqURL += sep + params.Encode()
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		err := c.once(ctx, reqURL, out)
		if err == nil {
			return c.pause(ctx, c.Pace)
		}
		if !IsTransient(err) || attempt >= maxRetries {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))*float64(RetryBaseDelay)) +
			time.Duration(c.random()*float64(RetryBaseDelay))
		if err := c.pause(ctx, backoff); err != nil {
			return err
		}
	}
}

// once performs a single gated attempt.
func (c *Client) once(ctx context.Context, reqURL string, out any) error {
	if err := c.Gate.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FatalError{URL: reqURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if retryableStatus(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return &TransientError{URL: reqURL, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &FatalError{URL: reqURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{URL: reqURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FatalError{URL: reqURL, Err: err}
	}
	return nil
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func (c *Client) random() float64 {
	if c.jitter != nil {
		return c.jitter()
	}
	return rand.Float64()
}
