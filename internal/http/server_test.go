package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilog/internal/core"
	"nutrilog/internal/services"
	"nutrilog/internal/storage/memory"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	summaries := services.NewSummaryService(store, 2000, nil, 1971)
	meals := services.NewMealService(store, nil, summaries)
	srv := NewServer(":0", meals, summaries, Options{
		Location: time.UTC,
		Ready:    store,
	})
	srv.now = func() time.Time { return time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createMeal(t *testing.T, srv *Server, body string) core.MealEntry {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/meals", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[core.MealEntry](t, rr)
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>nutrilog</h1>")
	assert.Contains(t, rr.Body.String(), `value="2025-03-07"`)
	assert.Contains(t, rr.Body.String(), `<option value="supplement">`)
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr = do(t, srv, http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.ready = fakePinger{err: errors.New("database is locked")}

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "not_ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/healthz", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nutrilog_")
}

func TestCreateMeal(t *testing.T) {
	srv := newTestServer(t)

	m := createMeal(t, srv, `{"date":"2025-03-07","meal_type":"lunch","description":"  pasta al pomodoro ","calories":650,"protein_g":22}`)
	assert.NotZero(t, m.ID)
	assert.Equal(t, "pasta al pomodoro", m.Description)
	assert.Equal(t, core.SourceManual, m.Source)
	assert.Equal(t, 0.0, m.FatG)
	assert.Nil(t, m.ZincMg)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"date":`},
		{"empty body", ``},
		{"missing date", `{"meal_type":"lunch","description":"x"}`},
		{"bad date", `{"date":"2025-13-40","meal_type":"lunch","description":"x"}`},
		{"unknown meal type", `{"date":"2025-03-07","meal_type":"brunch","description":"x"}`},
		{"negative nutrient", `{"date":"2025-03-07","meal_type":"lunch","description":"x","calories":-5}`},
		{"empty description", `{"date":"2025-03-07","meal_type":"lunch","description":"   "}`},
		{"bad source", `{"date":"2025-03-07","meal_type":"lunch","description":"x","source":"fax"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/meals", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rr)["error"])
		})
	}
}

func TestListMeals(t *testing.T) {
	srv := newTestServer(t)
	createMeal(t, srv, `{"date":"2025-03-05","meal_type":"dinner","description":"soup","calories":300}`)
	createMeal(t, srv, `{"date":"2025-03-07","meal_type":"lunch","description":"pasta","calories":650}`)
	createMeal(t, srv, `{"date":"2025-03-07","meal_type":"breakfast","description":"muesli","calories":400}`)

	rr := do(t, srv, http.MethodGet, "/api/meals?date=2025-03-07", "")
	require.Equal(t, http.StatusOK, rr.Code)
	byDate := decode[[]core.MealEntry](t, rr)
	require.Len(t, byDate, 2)
	assert.Equal(t, "muesli", byDate[0].Description)

	rr = do(t, srv, http.MethodGet, "/api/meals?from=2025-03-04&to=2025-03-06", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.MealEntry](t, rr), 1)

	rr = do(t, srv, http.MethodGet, "/api/meals", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]core.MealEntry](t, rr)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03-07", all[0].Date.String())

	rr = do(t, srv, http.MethodGet, "/api/meals?date=2025-01-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))

	rr = do(t, srv, http.MethodGet, "/api/meals?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateMeal(t *testing.T) {
	srv := newTestServer(t)
	m := createMeal(t, srv, `{"date":"2025-03-07","meal_type":"supplement","description":"zinc","zinc_mg":15}`)
	path := fmt.Sprintf("/api/meals/%d", m.ID)

	rr := do(t, srv, http.MethodPut, path, `{"calories":5,"notes":"after lunch"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.MealEntry](t, rr)
	assert.Equal(t, 5.0, updated.Calories)
	assert.Equal(t, "after lunch", updated.Notes)
	assert.Equal(t, "zinc", updated.Description)
	require.NotNil(t, updated.ZincMg)

	rr = do(t, srv, http.MethodPut, path, `{"zinc_mg":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[core.MealEntry](t, rr).ZincMg)

	rr = do(t, srv, http.MethodPut, path, `{"colour":"green"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "no fields to update", decode[map[string]string](t, rr)["error"])

	rr = do(t, srv, http.MethodPut, path, `{"calories":null}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPut, path, `{"meal_type":"brunch"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/meals/9999", `{"calories":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/meals/abc", `{"calories":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteMeal(t *testing.T) {
	srv := newTestServer(t)
	m := createMeal(t, srv, `{"date":"2025-03-07","meal_type":"snack","description":"apple","calories":80}`)
	path := fmt.Sprintf("/api/meals/%d", m.ID)

	rr := do(t, srv, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]string{"status": "deleted"}, decode[map[string]string](t, rr))

	rr = do(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestComponents(t *testing.T) {
	srv := newTestServer(t)
	m := createMeal(t, srv, `{"date":"2025-03-07","meal_type":"breakfast","description":"muesli bowl","calories":615}`)
	base := fmt.Sprintf("/api/meals/%d/components", m.ID)

	rr := do(t, srv, http.MethodPost, base, `{"description":"oats","calories":150,"sort_order":1}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c := decode[core.Component](t, rr)
	assert.Equal(t, m.ID, c.MealID)

	rr = do(t, srv, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.Component](t, rr), 1)

	rr = do(t, srv, http.MethodPost, base, `{"description":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/meals/9999/components", `{"description":"orphan"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodDelete, fmt.Sprintf("%s/%d", base, c.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodDelete, fmt.Sprintf("%s/%d", base, c.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Components never change the summary.
	rr = do(t, srv, http.MethodGet, "/api/summary/2025-03-07", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 615.0, decode[core.DailySummary](t, rr).Totals.Calories)
}

func TestSummaries(t *testing.T) {
	srv := newTestServer(t)
	createMeal(t, srv, `{"date":"2025-03-03","meal_type":"lunch","description":"pasta","calories":650.5,"protein_g":20}`)
	createMeal(t, srv, `{"date":"2025-03-03","meal_type":"dinner","description":"fish","calories":349.5,"protein_g":40}`)
	createMeal(t, srv, `{"date":"2025-03-09","meal_type":"snack","description":"nuts","calories":200}`)

	rr := do(t, srv, http.MethodGet, "/api/summary/2025-03-03", "")
	require.Equal(t, http.StatusOK, rr.Code)
	daily := decode[core.DailySummary](t, rr)
	assert.Equal(t, 1000.0, daily.Totals.Calories)
	assert.Equal(t, 2, daily.MealCount)
	assert.Equal(t, 50.0, daily.Progress.Calories)

	rr = do(t, srv, http.MethodGet, "/api/summary/week/2025-03-03", "")
	require.Equal(t, http.StatusOK, rr.Code)
	weekly := decode[core.WeeklySummary](t, rr)
	assert.Equal(t, 1200.0, weekly.Totals.Calories)
	assert.Equal(t, "2025-03-09", weekly.End.String())

	// A new meal shows up immediately despite the summary cache.
	createMeal(t, srv, `{"date":"2025-03-03","meal_type":"snack","description":"apple","calories":80}`)
	rr = do(t, srv, http.MethodGet, "/api/summary/2025-03-03", "")
	assert.Equal(t, 1080.0, decode[core.DailySummary](t, rr).Totals.Calories)

	rr = do(t, srv, http.MethodGet, "/api/summary/03-03-2025", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/meals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	store := memory.New()
	summaries := services.NewSummaryService(store, 2000, nil, 1971)
	srv := NewServer(":0", services.NewMealService(store, nil, summaries), summaries, Options{RateLimitPerMinute: 2})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, srv, http.MethodGet, "/healthz", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitUsesForwardedClientBehindTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	get := func(srv *Server, client string) int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	newServer := func(proxies ...string) *Server {
		store := memory.New()
		summaries := services.NewSummaryService(store, 2000, nil, 1971)
		srv := NewServer(":0", services.NewMealService(store, nil, summaries), summaries, Options{
			RateLimitPerMinute: 1,
			TrustedProxies:     proxies,
		})
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
		return srv
	}

	direct := newServer()
	assert.Equal(t, http.StatusOK, get(direct, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, get(direct, "198.51.100.2"), "untrusted peer is limited as one client")

	proxied := newServer("192.0.2.0/24", "not-a-cidr")
	assert.Equal(t, http.StatusOK, get(proxied, "198.51.100.1"))
	assert.Equal(t, http.StatusOK, get(proxied, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, get(proxied, "198.51.100.1"))
}
