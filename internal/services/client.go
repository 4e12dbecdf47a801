// Shared rate-limited, retrying HTTP request path for provider clients
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/ratelimit"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultRetryAfter  = 60 * time.Second
)

// requester performs authenticated HTTP calls for one provider, gated by the
// shared rate limiter, with bounded retry on transient failures.
type requester struct {
	provider    string
	limiter     *ratelimit.Limiter
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRequester(provider string, limiter *ratelimit.Limiter, client *http.Client) *requester {
	if client == nil {
		client = http.DefaultClient
	}
	return &requester{
		provider:    provider,
		limiter:     limiter,
		httpClient:  client,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// call is a deferred request build, re-invoked on each retry attempt so the
// request body can be re-sent.
type call struct {
	method  string
	url     string
	header  http.Header
	payload any
}

func (c *call) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if c.payload != nil {
		data, err := json.Marshal(c.payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do executes the call and decodes a JSON response into result when non-nil.
//
// Retry policy: transient failures back off exponentially for up to
// maxAttempts; a quota rejection honors the provider's retry-after (feeding
// the hold into the limiter) and retries exactly once; permanent and data
// errors return immediately.
func (r *requester) do(ctx context.Context, c *call, result any) error {
	var lastErr error
	quotaRetried := false

	for attempt := 0; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Acquire(ctx, r.provider); err != nil {
				return err
			}
		}

		req, err := c.build(ctx)
		if err != nil {
			return shared.NewProviderError(r.provider, shared.KindPermanent, 0, err)
		}

		lastErr = r.attempt(req, result)
		if lastErr == nil {
			return nil
		}

		switch shared.KindOf(lastErr) {
		case shared.KindTransient:
			if attempt+1 >= r.maxAttempts {
				return lastErr
			}
			if err := r.sleep(ctx, r.backoffBase<<attempt); err != nil {
				return err
			}
		case shared.KindQuotaExceeded:
			if quotaRetried {
				return lastErr
			}
			quotaRetried = true
			retryAfter := shared.RetryAfterOf(lastErr)
			if retryAfter <= 0 {
				retryAfter = defaultRetryAfter
			}
			if r.limiter != nil {
				r.limiter.Hold(r.provider, retryAfter)
			}
			if err := r.sleep(ctx, retryAfter); err != nil {
				return err
			}
		default:
			return lastErr
		}
	}
}

func (r *requester) attempt(req *http.Request, result any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return shared.NewProviderError(r.provider, shared.KindTransient, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.NewProviderError(r.provider, shared.KindTransient, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return r.classify(resp, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return shared.NewProviderError(r.provider, shared.KindDataError, resp.StatusCode,
				fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

func (r *requester) classify(resp *http.Response, body []byte) error {
	status := resp.StatusCode
	cause := fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, truncate(body, 200))

	switch {
	case status == http.StatusTooManyRequests:
		return &shared.ProviderError{
			Provider:   r.provider,
			Kind:       shared.KindQuotaExceeded,
			StatusCode: status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        cause,
		}
	case status == http.StatusUnauthorized:
		return shared.NewProviderError(r.provider, shared.KindPermanent, status,
			fmt.Errorf("%w: %v", shared.ErrTokenExpired, cause))
	case status == http.StatusForbidden, status == http.StatusNotFound, status == http.StatusBadRequest:
		return shared.NewProviderError(r.provider, shared.KindPermanent, status, cause)
	case status >= 500:
		return shared.NewProviderError(r.provider, shared.KindTransient, status, cause)
	default:
		return shared.NewProviderError(r.provider, shared.KindPermanent, status, cause)
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
