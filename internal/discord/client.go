package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://discord.com/api/v10"

// maxAttempts bounds retries for one logical request. Rate limits and
// transient transport failures are retried; after the ceiling the last error
// surfaces to the caller.
const maxAttempts = 3

// maxRetryAfter caps the wait honored from a 429 so a hostile or broken
// retry_after cannot stall a request indefinitely.
const maxRetryAfter = 10 * time.Second

// Known Discord JSON error codes this service reacts to.
const (
	codeUnknownGuild       = 10004
	codeMissingPermissions = 50013
)

// APIError is a non-2xx Discord response after retries are exhausted.
type APIError struct {
	Status  int
	Code    int
	Message string
	RawBody string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API request failed: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// IsUnknownGuild reports whether err is Discord's "unknown guild" (404 + 10004).
func IsUnknownGuild(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound && ae.Code == codeUnknownGuild
}

// IsMissingPermissions reports whether err is Discord's "missing permissions".
func IsMissingPermissions(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == codeMissingPermissions
}

// IsCategoryChannelLimit reports whether err is the per-category channel cap.
// Discord surfaces it as a 400 form error rather than a dedicated code.
func IsCategoryChannelLimit(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		return false
	}
	return strings.Contains(ae.RawBody, "Maximum number of channels")
}

// Client is a minimal Discord REST client authenticated with a bot token.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	log     *slog.Logger
	sleep   func(time.Duration)
}

// NewClient creates a Client for the given bot token.
func NewClient(token string, log *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
		token:   token,
		log:     log,
		sleep:   time.Sleep,
	}
}

// do performs one request with rate-limit handling and decodes a JSON
// response into out (out may be nil for responses the caller discards).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("discord API request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("discord API request failed: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp, raw)
			c.log.Warn("discord rate limited", "path", path, "retry_after", wait, "attempt", attempt)
			lastErr = newAPIError(resp.StatusCode, raw)
			c.sleep(wait)
			continue
		case resp.StatusCode >= 500:
			lastErr = newAPIError(resp.StatusCode, raw)
			continue
		case resp.StatusCode >= 400:
			return newAPIError(resp.StatusCode, raw)
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding discord response: %w", err)
		}
		return nil
	}
	return lastErr
}

func newAPIError(status int, raw []byte) *APIError {
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	// Best effort; some error bodies are plain text.
	_ = json.Unmarshal(raw, &body)
	return &APIError{Status: status, Code: body.Code, Message: body.Message, RawBody: string(raw)}
}

// retryAfter extracts the wait hint from a 429: the JSON retry_after field in
// seconds, or the Retry-After header as a fallback.
func retryAfter(resp *http.Response, raw []byte) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(raw, &body) == nil && body.RetryAfter > 0 {
		return clampRetry(time.Duration(body.RetryAfter * float64(time.Second)))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
			return clampRetry(time.Duration(secs * float64(time.Second)))
		}
	}
	return time.Second
}

func clampRetry(d time.Duration) time.Duration {
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
