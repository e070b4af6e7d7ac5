package services

import (
	"context"
	"fmt"
	"log/slog"

	"nutrilog/internal/core"
	"nutrilog/internal/metrics"
	"nutrilog/internal/ports"
)

// Publisher announces meal changes to the sheets worker.
type Publisher interface {
	PublishMealSync(ctx context.Context, id, version int64) error
	PublishMealDelete(ctx context.Context, id int64) error
}

// Invalidator is told when stored meals change.
type Invalidator interface {
	Invalidate()
}

// versioner is implemented by stores that track a row version.
type versioner interface {
	MealVersion(ctx context.Context, id int64) (int64, error)
}

// MealService orchestrates meal writes across the store, cached summaries
// and the optional AMQP publisher.
type MealService struct {
	store       ports.MealStore
	publisher   Publisher
	invalidator Invalidator
}

// NewMealService wires a store. publisher and invalidator may be nil.
func NewMealService(store ports.MealStore, publisher Publisher, invalidator Invalidator) *MealService {
	return &MealService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
	}
}

func (s *MealService) CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error) {
	created, err := s.store.CreateMeal(ctx, e)
	metrics.RecordMealWrite("create", err)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("save meal: %w", err)
	}
	s.changed(ctx)
	s.publishSync(ctx, created.ID, 1)
	return created, nil
}

func (s *MealService) UpdateMeal(ctx context.Context, id int64, p core.MealPatch) (core.MealEntry, error) {
	updated, err := s.store.UpdateMeal(ctx, id, p)
	metrics.RecordMealWrite("update", err)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("update meal %d: %w", id, err)
	}
	s.changed(ctx)

	if v, ok := s.store.(versioner); ok && s.publisher != nil {
		version, err := v.MealVersion(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "Failed to read meal version", "component", "meal", "id", id, "error", err)
		} else {
			s.publishSync(ctx, id, version)
		}
	}
	return updated, nil
}

func (s *MealService) DeleteMeal(ctx context.Context, id int64) error {
	err := s.store.DeleteMeal(ctx, id)
	metrics.RecordMealWrite("delete", err)
	if err != nil {
		return fmt.Errorf("delete meal %d: %w", id, err)
	}
	s.changed(ctx)

	if s.publisher != nil {
		if err := s.publisher.PublishMealDelete(ctx, id); err != nil {
			// The meal is gone locally; the sheet row stays until the next delete.
			slog.ErrorContext(ctx, "Failed to publish delete message", "component", "meal", "id", id, "error", err)
		}
	}
	return nil
}

func (s *MealService) GetMeal(ctx context.Context, id int64) (core.MealEntry, error) {
	return s.store.GetMeal(ctx, id)
}

func (s *MealService) ListMeals(ctx context.Context, f core.MealFilter) ([]core.MealEntry, error) {
	return s.store.ListMeals(ctx, f)
}

func (s *MealService) ListComponents(ctx context.Context, mealID int64) ([]core.Component, error) {
	if _, err := s.store.GetMeal(ctx, mealID); err != nil {
		return nil, err
	}
	return s.store.ListComponents(ctx, mealID)
}

func (s *MealService) CreateComponent(ctx context.Context, c core.Component) (core.Component, error) {
	created, err := s.store.CreateComponent(ctx, c)
	metrics.RecordMealWrite("create_component", err)
	if err != nil {
		return core.Component{}, fmt.Errorf("save component: %w", err)
	}
	return created, nil
}

func (s *MealService) DeleteComponent(ctx context.Context, mealID, componentID int64) error {
	err := s.store.DeleteComponent(ctx, mealID, componentID)
	metrics.RecordMealWrite("delete_component", err)
	return err
}

func (s *MealService) changed(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
		slog.DebugContext(ctx, "Summary cache invalidated", "component", "meal")
	}
}

func (s *MealService) publishSync(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMealSync(ctx, id, version); err != nil {
		// The periodic sweep in the worker picks the meal up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"component", "meal", "id", id, "version", version, "error", err)
	}
}
