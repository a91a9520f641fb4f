// Package generator triggers the external job that writes training plans.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

// SecretHeader carries the shared secret on both directions of the generation round trip.
const SecretHeader = "x-app-secret"

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryMax     = 3
	defaultRetryWaitMin = time.Second
	defaultRetryWaitMax = 10 * time.Second
)

// Client posts generation requests to the generator webhook. Connection
// errors, 429 and 5xx answers are retried with exponential backoff.
type Client struct {
	url        string
	secret     string
	httpClient *retryablehttp.Client
}

// Option tunes the retry behaviour of a Client.
type Option func(*retryablehttp.Client)

// WithRetryMax sets how many retries follow the first attempt.
func WithRetryMax(n int) Option {
	return func(c *retryablehttp.Client) {
		if n >= 0 {
			c.RetryMax = n
		}
	}
}

// WithRetryWait bounds the backoff between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *retryablehttp.Client) {
		if minWait > 0 {
			c.RetryWaitMin = minWait
		}
		if maxWait >= c.RetryWaitMin {
			c.RetryWaitMax = maxWait
		}
	}
}

// NewClient builds a client whose attempts each time out after timeout.
func NewClient(url, secret string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = retryLogger{entry: log.WithField("component", "generator")}
	// Hand back the last response so the caller sees the generator's status
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{url: url, secret: secret, httpClient: rc}
}

type request struct {
	Onboarding map[string]interface{} `json:"onboarding"`
}

// RequestPlan asks the generator to build a plan for userID from the onboarding
// answers. The plan arrives later through the ingest webhook.
func (c *Client) RequestPlan(ctx context.Context, userID string, onboarding map[string]interface{}) error {
	payload := make(map[string]interface{}, len(onboarding)+1)
	for k, v := range onboarding {
		payload[k] = v
	}
	payload["user_id"] = userID

	body, err := json.Marshal(request{Onboarding: payload})
	if err != nil {
		return fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SecretHeader, c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("generator responded %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

// retryLogger routes retryablehttp's leveled output through logrus.
type retryLogger struct {
	entry *log.Entry
}

func (l retryLogger) with(keysAndValues []interface{}) *log.Entry {
	fields := make(log.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.entry.WithFields(fields)
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Error(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}
