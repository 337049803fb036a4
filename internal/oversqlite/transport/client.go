package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oversqlite/oversqlite/internal/debug"
)

// TokenSource supplies a bearer token for each request, mirroring the host
// RPC client's bearer-token field (internal/rpc/http_client.go) but as an
// injected capability rather than a mutable setter, since the engine never
// mints or refreshes tokens itself (§6).
type TokenSource func(ctx context.Context) (string, error)

// Client is the capability the engine uses to talk to the sync server. A
// concrete *HTTPClient is the production implementation; the engine's tests
// supply an in-process fake.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResponse, error)
	Download(ctx context.Context, after int64, limit int, includeSelf bool) (DownloadResponse, error)
	Snapshot(ctx context.Context, cursor string, limit int, includeSelf bool, windowed bool) (SnapshotPage, error)
}

// HTTPClient is the production Client, talking JSON over HTTP to the
// endpoints described in §6.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	backoff    func() backoff.BackOff
}

// NewHTTPClient constructs a Client against baseURL. timeout bounds each
// individual HTTP round trip; total retry duration is bounded by the
// exponential backoff policy (cenkalti/backoff/v4), not by the engine.
func NewHTTPClient(baseURL string, token TokenSource, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
	}
}

func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	var resp UploadResponse
	err := c.doRetrying(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/sync/upload", req, &resp)
	})
	return resp, err
}

func (c *HTTPClient) Download(ctx context.Context, after int64, limit int, includeSelf bool) (DownloadResponse, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("include_self", strconv.FormatBool(includeSelf))

	var resp DownloadResponse
	err := c.doRetrying(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/sync/download?"+q.Encode(), nil, &resp)
	})
	return resp, err
}

func (c *HTTPClient) Snapshot(ctx context.Context, cursor string, limit int, includeSelf, windowed bool) (SnapshotPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("include_self", strconv.FormatBool(includeSelf))
	q.Set("windowed", strconv.FormatBool(windowed))

	var page SnapshotPage
	err := c.doRetrying(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/sync/snapshot?"+q.Encode(), nil, &page)
	})
	return page, err
}

// doRetrying wraps a single attempt with exponential backoff, retrying only
// ErrNetwork failures (never auth or protocol errors, per §2.2's retry
// policy wiring).
func (c *HTTPClient) doRetrying(ctx context.Context, attempt func() error) error {
	op := func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(c.backoff(), ctx))
}

func isRetryable(err error) bool {
	return !IsAuthError(err) && !IsProtocolError(err) && !IsCancelledError(err)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrProtocol, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("%w: acquire token: %v", ErrAuth, err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	debug.Logf("oversqlite/transport: %s %s\n", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrProtocol, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrProtocol, err)
		}
	}
	return nil
}
