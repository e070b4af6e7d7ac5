package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/api/meals", "/api/meals"},
		{"/api/meals/42", "/api/meals/{id}"},
		{"/api/meals/42/components/7", "/api/meals/{id}/components/{id}"},
		{"/api/summary/2025-01-02", "/api/summary/{date}"},
		{"/api/summary/week/2025-01-02", "/api/summary/week/{date}"},
		{"/static/css/app.css", "/static"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalPath(tc.in), tc.in)
	}
}

func TestInstrumentHandlerCountsRequests(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/meals/{id}", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/meals/3", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/meals/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordersAndHandler(t *testing.T) {
	RecordMealWrite("create", nil)
	RecordMealWrite("create", errors.New("boom"))
	RecordPublish("meal_sync", nil)
	RecordCacheLookup("daily", true)
	RecordRateLimited()

	assert.GreaterOrEqual(t, testutil.ToFloat64(mealWrites.WithLabelValues("create", "error")), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "nutrilog_meals_writes_total"))
	assert.True(t, strings.Contains(body, "nutrilog_http_rate_limited_total"))
}
