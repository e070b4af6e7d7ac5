package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"nutrilog/internal/core"
)

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu      sync.Mutex
	rows    map[int][]any
	clears  int
	updates int
}

var rowRangeRE = regexp.MustCompile(`!A(\d+):P\d+`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!A:A"):
		maxRow := 0
		for n := range f.rows {
			maxRow = max(maxRow, n)
		}
		values := make([][]any, maxRow)
		for i := range values {
			if row, ok := f.rows[i+1]; ok && len(row) > 0 {
				values[i] = []any{row[0]}
			} else {
				values[i] = []any{}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Meals!A1:A", "values": values})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		delete(f.rows, rowOf(path))
		f.clears++
		_ = json.NewEncoder(w).Encode(map[string]any{})

	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.rows[rowOf(path)] = body.Values[0]
		f.updates++
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func rowOf(path string) int {
	m := rowRangeRE.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{rows: map[int][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c, fake
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.EqualError(t, err, "missing spreadsheet id")

	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	assert.EqualError(t, err, "missing service account credentials")
}

func TestUpsertAndDeleteMeal(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	lunch := core.MealEntry{ID: 1, Date: core.NewDate(2025, 3, 7), MealType: core.Lunch, Description: "pasta", Calories: 650}
	dinner := core.MealEntry{ID: 2, Date: core.NewDate(2025, 3, 7), MealType: core.Dinner, Description: "soup", Calories: 300}

	require.NoError(t, c.UpsertMeal(ctx, lunch, 1))
	assert.Equal(t, "ID", fake.rows[1][0], "header written on an empty sheet")
	assert.Equal(t, 1.0, fake.rows[2][0])

	require.NoError(t, c.UpsertMeal(ctx, dinner, 1))
	assert.Equal(t, 2.0, fake.rows[3][0])

	lunch.Calories = 700
	require.NoError(t, c.UpsertMeal(ctx, lunch, 2))
	require.Len(t, fake.rows[2], len(header))
	assert.Equal(t, 700.0, fake.rows[2][4])
	assert.Equal(t, 2.0, fake.rows[2][15], "version column")
	assert.Len(t, fake.rows, 3, "update reuses the row")

	require.NoError(t, c.DeleteMeal(ctx, 1))
	_, ok := fake.rows[2]
	assert.False(t, ok)

	require.NoError(t, c.DeleteMeal(ctx, 99))
	assert.Equal(t, 1, fake.clears, "missing id clears nothing")

	snack := core.MealEntry{ID: 3, Date: core.NewDate(2025, 3, 8), MealType: core.Snack, Description: "apple"}
	require.NoError(t, c.UpsertMeal(ctx, snack, 1))
	assert.Equal(t, 3.0, fake.rows[4][0], "appends after the last used row")
}
