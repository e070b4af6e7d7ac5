// Package health reads training and step data from the health API so daily
// summaries can account for workouts.
package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"nutrilog/internal/core"
	"nutrilog/internal/metrics"
)

const defaultTimeout = 2 * time.Second

// Energy values at or below this are assumed to be kcal rather than kJ.
const kjThreshold = 100

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "health"),
	}
}

// Workout returns the training and step data for date. Either endpoint
// failing only zeroes its part of the result; Workout never returns an
// error so a flaky health API cannot break a summary.
func (c *Client) Workout(ctx context.Context, date core.Date) core.Workout {
	var w core.Workout

	body, err := c.get(ctx, "/api/training/"+date.String())
	metrics.RecordHealthAPI("training", err)
	if err != nil {
		c.logger.WarnContext(ctx, "Training lookup failed", "date", date.String(), "error", err)
	} else {
		w = parseTraining(body)
	}

	body, err = c.get(ctx, "/api/steps/"+date.String())
	metrics.RecordHealthAPI("steps", err)
	if err != nil {
		c.logger.WarnContext(ctx, "Steps lookup failed", "date", date.String(), "error", err)
	} else {
		w.Steps = parseSteps(body)
	}
	return w
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s", path)
	}
	return body, nil
}

func parseTraining(body []byte) core.Workout {
	var w core.Workout
	t := gjson.GetBytes(body, "training")
	if !t.Exists() || !t.Get("done").Bool() {
		return w
	}

	w.HasWorkout = true
	w.DurationMin = t.Get("duration").Float()

	for _, key := range []string{"avg_hr", "hr_avg"} {
		if hr := t.Get(key).Float(); hr > 0 {
			w.AvgHR = core.Float(hr)
			break
		}
	}

	if kj := t.Get("active_energy").Float(); kj > 0 {
		if kj > kjThreshold {
			w.ActiveEnergyKJ = kj
		} else {
			w.ActiveEnergyKJ = kj * core.KJPerKcal
		}
	} else if kcal := t.Get("calories").Float(); kcal > 0 {
		w.ActiveEnergyKJ = kcal * core.KJPerKcal
	}
	return w
}

func parseSteps(body []byte) int {
	return int(gjson.GetBytes(body, "steps").Int())
}
