package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/forgepkg/forge/ferr"
)

// RetryPolicy configures the bounded exponential backoff applied to
// transport errors and 5xx responses. 4xx responses are never retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches spec's "bounded exponential backoff with
// jitter" guidance: a handful of attempts, each roughly doubling the
// previous wait, capped well below the total-deadline most callers set on
// ctx.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// HTTPClient is a Client backed by a registry's HTTP API.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryPolicy
}

// NewHTTPClient returns an HTTPClient with the given base URL, a
// connect/total timeout of connectTimeout, and the default retry policy.
func NewHTTPClient(baseURL string, connectTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: connectTimeout},
		Retry:      DefaultRetryPolicy,
	}
}

func (h *HTTPClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&limit=%d", h.BaseURL, url.QueryEscape(query), limit)
	var out []SearchResult
	err := h.getJSON(ctx, "search", endpoint, &out)
	return out, err
}

func (h *HTTPClient) Versions(ctx context.Context, name string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/packages/%s/versions", h.BaseURL, url.PathEscape(name))
	var out []string
	err := h.getJSON(ctx, "versions", endpoint, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &ferr.PackageNotFound{Name: name}
	}
	return out, nil
}

func (h *HTTPClient) Fetch(ctx context.Context, name, version string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/packages/%s/%s/archive", h.BaseURL, url.PathEscape(name), url.PathEscape(version))
	body, _, err := h.doWithRetry(ctx, "fetch", endpoint)
	return body, err
}

func (h *HTTPClient) getJSON(ctx context.Context, op, endpoint string, out interface{}) error {
	body, _, err := h.doWithRetry(ctx, op, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ferr.RegistryError{Op: op, Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// doWithRetry performs a GET against endpoint, retrying per h.Retry on
// transport errors and 5xx responses. 4xx responses are returned
// immediately, carrying the registry's diagnostic body.
func (h *HTTPClient) doWithRetry(ctx context.Context, op, endpoint string) ([]byte, int, error) {
	policy := h.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, jitter(delay)); err != nil {
				return nil, 0, err
			}
			delay *= 2
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}

		body, status, err := h.doOnce(ctx, endpoint)
		if err == nil {
			return body, status, nil
		}

		regErr := &ferr.RegistryError{Op: op, Endpoint: endpoint, Status: status, Err: err}
		lastErr = regErr
		if !regErr.Retryable() {
			return nil, status, regErr
		}
	}
	return nil, 0, lastErr
}

func (h *HTTPClient) doOnce(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, fmt.Errorf("not found")
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("status %s: %s", strconv.Itoa(resp.StatusCode), string(body))
	}
	return body, resp.StatusCode, nil
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
