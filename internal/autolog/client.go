package autolog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nutrilog/internal/core"
)

// Client talks to the meal API of a running server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MealsOn lists the entries logged on date.
func (c *Client) MealsOn(ctx context.Context, date core.Date) ([]core.MealEntry, error) {
	q := url.Values{"date": {date.String()}}
	var out []core.MealEntry
	if err := c.do(ctx, http.MethodGet, "/api/meals?"+q.Encode(), nil, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("list meals for %s: %w", date, err)
	}
	return out, nil
}

// CreateMeal posts one entry and returns the stored copy.
func (c *Client) CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error) {
	var out core.MealEntry
	if err := c.do(ctx, http.MethodPost, "/api/meals", e, http.StatusCreated, &out); err != nil {
		return core.MealEntry{}, fmt.Errorf("create meal %q: %w", e.Description, err)
	}
	return out, nil
}

// Summary fetches the daily summary for date.
func (c *Client) Summary(ctx context.Context, date core.Date) (core.DailySummary, error) {
	var out core.DailySummary
	if err := c.do(ctx, http.MethodGet, "/api/summary/"+date.String(), nil, http.StatusOK, &out); err != nil {
		return core.DailySummary{}, fmt.Errorf("summary for %s: %w", date, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
