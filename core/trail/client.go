package trail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"watchtrail/model"
)

const maxResponseBytes = 1 << 20

// Client talks to the backend's sync endpoint. Transport-level failures
// and 5xx responses are retried a bounded number of times inside one
// call; anything that still fails is reported to the scheduler, which
// simply tries again next tick.
type Client struct {
	http *retryablehttp.Client
}

// NewClient creates a sync client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 1 * time.Second
	rc.Logger = nil // scheduler logs outcomes itself
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}
	return &Client{http: rc}
}

// PostSync delivers one batch of entries to {baseURL}/sync under the
// given bearer token (empty token sends no Authorization header). It
// returns the HTTP status and raw body; a non-nil error means no
// response was obtained at all.
func (c *Client) PostSync(ctx context.Context, baseURL, token string, items []model.ProgressEntry) (int, []byte, error) {
	payload, err := json.Marshal(model.SyncRequest{Items: items})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/sync"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read sync response: %w", err)
	}
	return resp.StatusCode, body, nil
}
