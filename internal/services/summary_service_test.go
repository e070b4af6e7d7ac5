package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilog/internal/core"
	"nutrilog/internal/ports"
	"nutrilog/internal/storage/memory"
)

type stubWorkouts struct {
	w     core.Workout
	calls int
}

func (s *stubWorkouts) Workout(context.Context, core.Date) core.Workout {
	s.calls++
	return s.w
}

func TestSummaryServiceDailyCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := core.NewDate(2025, 3, 1)

	_, err := store.CreateMeal(ctx, core.MealEntry{Date: d, MealType: core.Lunch, Description: "pasta", Calories: 650})
	require.NoError(t, err)

	svc := NewSummaryService(store, 2000, nil, 1971)
	sum, err := svc.Daily(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 650.0, sum.Totals.Calories)
	assert.Equal(t, 32.5, sum.Progress.Calories)
	assert.Nil(t, sum.Workout)

	_, err = store.CreateMeal(ctx, core.MealEntry{Date: d, MealType: core.Snack, Description: "apple", Calories: 80})
	require.NoError(t, err)

	cached, err := svc.Daily(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 650.0, cached.Totals.Calories)

	svc.Invalidate()
	fresh, err := svc.Daily(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 730.0, fresh.Totals.Calories)
	assert.Equal(t, 2, fresh.MealCount)
}

// pausingReader blocks the first ListMeals call after it has read the store
// until resume is closed.
type pausingReader struct {
	ports.MealReader
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingReader) ListMeals(ctx context.Context, f core.MealFilter) ([]core.MealEntry, error) {
	entries, err := p.MealReader.ListMeals(ctx, f)
	p.once.Do(func() {
		close(p.read)
		<-p.resume
	})
	return entries, err
}

func TestSummaryServiceSkipsCachingAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := core.NewDate(2025, 3, 1)
	_, err := store.CreateMeal(ctx, core.MealEntry{Date: d, MealType: core.Lunch, Description: "pasta", Calories: 650})
	require.NoError(t, err)

	reader := &pausingReader{MealReader: store, read: make(chan struct{}), resume: make(chan struct{})}
	summaries := NewSummaryService(reader, 2000, nil, 1971)
	meals := NewMealService(store, nil, summaries)

	done := make(chan core.DailySummary)
	go func() {
		sum, err := summaries.Daily(ctx, d)
		assert.NoError(t, err)
		done <- sum
	}()

	<-reader.read
	_, err = meals.CreateMeal(ctx, core.MealEntry{Date: d, MealType: core.Snack, Description: "apple", Calories: 80})
	require.NoError(t, err)
	close(reader.resume)

	inFlight := <-done
	assert.Equal(t, 650.0, inFlight.Totals.Calories, "the in-flight read predates the write")

	sum, err := summaries.Daily(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 730.0, sum.Totals.Calories)
	assert.Equal(t, 2, sum.MealCount)
}

func TestSummaryServiceAppliesWorkout(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := core.NewDate(2025, 3, 1)
	_, err := store.CreateMeal(ctx, core.MealEntry{Date: d, MealType: core.Dinner, Description: "steak", Calories: 900})
	require.NoError(t, err)

	hr := 150.0
	workouts := &stubWorkouts{w: core.Workout{HasWorkout: true, ActiveEnergyKJ: 2092, AvgHR: &hr}}
	svc := NewSummaryService(store, 2000, workouts, 1971)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	sum, err := svc.Daily(ctx, d)
	require.NoError(t, err)
	require.NotNil(t, sum.Workout)
	assert.Equal(t, 500.0, sum.Workout.KcalBurned)
	assert.Equal(t, 166, sum.Workout.HRMax)
	assert.Equal(t, 2500.0, sum.Goals.Calories)
	assert.Equal(t, 2000.0, sum.BaseGoal)
	assert.Equal(t, 400.0, sum.NetCalories)

	_, err = svc.Daily(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1, workouts.calls, "second call is served from cache")
}

func TestSummaryServiceWeeklyMatchesDailySums(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	start := core.NewDate(2025, 3, 3)

	cals := []float64{410.1, 0, 333.3, 120.7, 0, 999.9, 55.5}
	for i, c := range cals {
		if c == 0 {
			continue
		}
		_, err := store.CreateMeal(ctx, core.MealEntry{Date: start.AddDays(i), MealType: core.Lunch, Description: "meal", Calories: c})
		require.NoError(t, err)
	}
	_, err := store.CreateMeal(ctx, core.MealEntry{Date: start.AddDays(7), MealType: core.Lunch, Description: "next week", Calories: 500})
	require.NoError(t, err)

	svc := NewSummaryService(store, 2000, nil, 1971)
	week, err := svc.Weekly(ctx, start)
	require.NoError(t, err)
	require.Len(t, week.Days, 7)

	var sum float64
	for i := range week.Days {
		daily, err := svc.Daily(ctx, start.AddDays(i))
		require.NoError(t, err)
		assert.Equal(t, daily.Totals.Calories, week.Days[i].Calories)
		sum += daily.Totals.Calories
	}
	assert.InDelta(t, sum, week.Totals.Calories, 1e-9)
	assert.Equal(t, 1919.5, week.Totals.Calories)
	assert.Equal(t, 5, week.MealCount)
}
