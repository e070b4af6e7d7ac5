package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nutrilog/internal/cache"
	"nutrilog/internal/core"
	"nutrilog/internal/ports"
)

// WorkoutFetcher returns the training data for a date. Implementations
// report failures as "no workout".
type WorkoutFetcher interface {
	Workout(ctx context.Context, date core.Date) core.Workout
}

const (
	summaryCacheSize = 64
	// Summaries include health API data that changes without a meal write.
	summaryCacheTTL = 5 * time.Minute
)

// SummaryService computes daily and weekly summaries from the store and
// caches them until the next meal write.
type SummaryService struct {
	store     ports.MealReader
	goals     core.Goals
	workouts  WorkoutFetcher
	birthYear int
	now       func() time.Time

	daily  *cache.LRUCache[core.DailySummary]
	weekly *cache.LRUCache[core.WeeklySummary]

	// generation counts invalidations. A summary computed from a read that
	// started before the last invalidation is returned but not cached.
	mu         sync.Mutex
	generation uint64
}

// NewSummaryService builds the service. workouts may be nil, in which case
// goals are never adjusted for training.
func NewSummaryService(store ports.MealReader, calorieGoal float64, workouts WorkoutFetcher, birthYear int) *SummaryService {
	return &SummaryService{
		store:     store,
		goals:     core.DefaultGoals(calorieGoal),
		workouts:  workouts,
		birthYear: birthYear,
		now:       time.Now,
		daily:     cache.NewLRUCache[core.DailySummary]("daily_summary", summaryCacheSize, summaryCacheTTL),
		weekly:    cache.NewLRUCache[core.WeeklySummary]("weekly_summary", summaryCacheSize, summaryCacheTTL),
	}
}

// Caches exposes the summary caches so a cache.Manager can expire them.
func (s *SummaryService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.daily, s.weekly}
}

// Invalidate drops every cached summary.
func (s *SummaryService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.daily.Clear()
	s.weekly.Clear()
}

func (s *SummaryService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// storeIfCurrent runs set unless an invalidation happened since gen.
func (s *SummaryService) storeIfCurrent(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		set()
	}
}

func (s *SummaryService) Daily(ctx context.Context, date core.Date) (core.DailySummary, error) {
	key := date.String()
	if sum, ok := s.daily.Get(key); ok {
		return sum, nil
	}

	gen := s.currentGeneration()
	entries, err := s.store.ListMeals(ctx, core.MealFilter{Date: &date})
	if err != nil {
		return core.DailySummary{}, fmt.Errorf("list meals for %s: %w", key, err)
	}

	sum := core.Daily(date, entries, s.goals)
	if s.workouts != nil {
		age := s.now().Year() - s.birthYear
		sum = core.ApplyWorkout(sum, core.CalcBurn(s.workouts.Workout(ctx, date), age))
	}

	s.storeIfCurrent(gen, func() { s.daily.Set(key, sum) })
	return sum, nil
}

func (s *SummaryService) Weekly(ctx context.Context, start core.Date) (core.WeeklySummary, error) {
	key := start.String()
	if sum, ok := s.weekly.Get(key); ok {
		return sum, nil
	}

	end := start.AddDays(core.WeekLength - 1)
	gen := s.currentGeneration()
	entries, err := s.store.ListMeals(ctx, core.MealFilter{From: &start, To: &end})
	if err != nil {
		return core.WeeklySummary{}, fmt.Errorf("list meals for week of %s: %w", key, err)
	}

	sum := core.Weekly(start, entries)
	s.storeIfCurrent(gen, func() { s.weekly.Set(key, sum) })
	return sum, nil
}
