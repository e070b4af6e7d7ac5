package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/ports"
)

// Store keeps meals in process memory. It backs tests and ephemeral runs.
type Store struct {
	mu       sync.Mutex
	meals    map[int64]core.MealEntry
	comps    map[int64][]core.Component
	nextMeal int64
	nextComp int64
	now      func() time.Time
}

var _ ports.MealStore = (*Store)(nil)

func New() *Store {
	return &Store{
		meals: make(map[int64]core.MealEntry),
		comps: make(map[int64][]core.Component),
		now:   time.Now,
	}
}

// NewFromFiles seeds the store from base/seed_meals.json when present. A
// missing or unreadable file yields an empty store.
func NewFromFiles(base string) *Store {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, "seed_meals.json"))
	if err != nil {
		return s
	}
	var seed []core.MealEntry
	if err := json.Unmarshal(b, &seed); err != nil {
		return s
	}
	for _, e := range seed {
		created, err := s.CreateMeal(context.Background(), e)
		if err != nil {
			continue
		}
		for i, c := range e.Components {
			c.MealID = created.ID
			if c.SortOrder == 0 {
				c.SortOrder = i
			}
			_, _ = s.CreateComponent(context.Background(), c)
		}
	}
	return s
}

func (s *Store) CreateMeal(_ context.Context, e core.MealEntry) (core.MealEntry, error) {
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	if err := e.Validate(); err != nil {
		return core.MealEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMeal++
	e.ID = s.nextMeal
	e.CreatedAt = s.now().UTC().Truncate(time.Second)
	e.Components = nil
	s.meals[e.ID] = e
	return s.withComponents(e), nil
}

func (s *Store) GetMeal(_ context.Context, id int64) (core.MealEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.meals[id]
	if !ok {
		return core.MealEntry{}, fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	return s.withComponents(e), nil
}

func (s *Store) UpdateMeal(_ context.Context, id int64, p core.MealPatch) (core.MealEntry, error) {
	if p.Empty() {
		return core.MealEntry{}, core.ErrNoFieldsToUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.meals[id]
	if !ok {
		return core.MealEntry{}, fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	updated := p.Apply(e)
	if err := updated.Validate(); err != nil {
		return core.MealEntry{}, err
	}
	s.meals[id] = updated
	return s.withComponents(updated), nil
}

func (s *Store) DeleteMeal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[id]; !ok {
		return fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	delete(s.meals, id)
	delete(s.comps, id)
	return nil
}

// ListMeals orders results the same way the SQLite store does.
func (s *Store) ListMeals(_ context.Context, f core.MealFilter) ([]core.MealEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MealEntry, 0, len(s.meals))
	for _, e := range s.meals {
		if f.Matches(e) {
			out = append(out, s.withComponents(e))
		}
	}
	newestFirst := f.Date == nil && (f.From == nil || f.To == nil)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			if newestFirst {
				return a.Date.After(b.Date.Time)
			}
			return a.Date.Before(b.Date.Time)
		}
		if a.MealType != b.MealType {
			return a.MealType < b.MealType
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) ListComponents(_ context.Context, mealID int64) ([]core.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[mealID]; !ok {
		return nil, fmt.Errorf("meal %d: %w", mealID, core.ErrNotFound)
	}
	return append([]core.Component{}, s.comps[mealID]...), nil
}

func (s *Store) CreateComponent(_ context.Context, c core.Component) (core.Component, error) {
	if err := c.Validate(); err != nil {
		return core.Component{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[c.MealID]; !ok {
		return core.Component{}, fmt.Errorf("meal %d: %w", c.MealID, core.ErrNotFound)
	}
	s.nextComp++
	c.ID = s.nextComp
	list := append(s.comps[c.MealID], c)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].ID < list[j].ID
	})
	s.comps[c.MealID] = list
	return c, nil
}

func (s *Store) DeleteComponent(_ context.Context, mealID, componentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.comps[mealID]
	for i, c := range list {
		if c.ID == componentID {
			s.comps[mealID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("component %d of meal %d: %w", componentID, mealID, core.ErrNotFound)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// withComponents must be called with s.mu held.
func (s *Store) withComponents(e core.MealEntry) core.MealEntry {
	e.Components = append([]core.Component{}, s.comps[e.ID]...)
	return e
}
