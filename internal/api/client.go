package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taskhive/trackd/internal/domain"
)

// Client is the Go client for the trackd HTTP API. It maps the wire error
// codes back onto the domain sentinels, so callers (the reconciliation
// agent, the CLI) can errors.Is against them exactly as server-side code
// does.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// NewClient creates a client acting as the given user.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Start begins tracking taskID, implicitly stopping any running timer.
func (c *Client) Start(ctx context.Context, taskID, note string) (*domain.ActiveTimer, error) {
	body := startRequest{TaskID: taskID, Note: note}
	var active domain.ActiveTimer
	if err := c.do(ctx, http.MethodPost, "/api/timer/start", body, &active); err != nil {
		return nil, err
	}
	return &active, nil
}

// Stop closes the running timer, if any.
func (c *Client) Stop(ctx context.Context) (int, error) {
	var resp struct {
		StoppedCount int `json:"stopped_count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/timer/stop", nil, &resp); err != nil {
		return 0, err
	}
	return resp.StoppedCount, nil
}

// StopByID closes one specific entry.
func (c *Client) StopByID(ctx context.Context, entryID string) (*domain.TimeEntry, error) {
	var resp struct {
		Entry *domain.TimeEntry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/timer/entries/"+entryID+"/stop", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// GetActive returns the running timer, or nil when idle.
func (c *Client) GetActive(ctx context.Context) (*domain.ActiveTimer, error) {
	var resp struct {
		Active *domain.ActiveTimer `json:"active"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/timer/active", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Active, nil
}

// History returns a task's entries, newest first.
func (c *Client) History(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	var resp struct {
		Entries []domain.TimeEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+taskID+"/entries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// TotalForTask returns a task's stored accumulated seconds.
func (c *Client) TotalForTask(ctx context.Context, taskID string) (int64, error) {
	var resp struct {
		AccumulatedSeconds int64 `json:"accumulated_seconds"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+taskID+"/total", nil, &resp); err != nil {
		return 0, err
	}
	return resp.AccumulatedSeconds, nil
}

// do performs one request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failure or timeout: the outcome is unknown, callers
		// resolve it by re-fetching GetActive.
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError maps a wire error onto the matching domain sentinel.
func decodeError(resp *http.Response) error {
	var wire struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&wire)

	switch wire.Error.Code {
	case "conflict":
		return domain.ErrTimerConflict
	case "not_found":
		return domain.ErrEntryNotFound
	case "forbidden":
		return domain.ErrEntryForbidden
	case "already_closed":
		return domain.ErrEntryClosed
	case "store_unavailable":
		return domain.ErrStoreUnavailable
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: server returned %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("api error %d: %s", resp.StatusCode, wire.Error.Message)
}
