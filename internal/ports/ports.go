package ports

import (
	"context"

	"nutrilog/internal/core"
)

// Ports for the meal record store. Both the SQLite repository and the
// in-memory store implement MealStore.
type (
	MealWriter interface {
		CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error)
		// UpdateMeal applies a partial update and returns the stored entry.
		UpdateMeal(ctx context.Context, id int64, p core.MealPatch) (core.MealEntry, error)
		DeleteMeal(ctx context.Context, id int64) error
	}

	MealReader interface {
		GetMeal(ctx context.Context, id int64) (core.MealEntry, error)
		// ListMeals returns entries selected by the filter, with their
		// components attached.
		ListMeals(ctx context.Context, f core.MealFilter) ([]core.MealEntry, error)
	}

	ComponentStore interface {
		ListComponents(ctx context.Context, mealID int64) ([]core.Component, error)
		CreateComponent(ctx context.Context, c core.Component) (core.Component, error)
		DeleteComponent(ctx context.Context, mealID, componentID int64) error
	}

	MealStore interface {
		MealWriter
		MealReader
		ComponentStore
	}

	// SyncTracker records the mirror state of stored meals.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]PendingMeal, error)
		MarkSynced(ctx context.Context, id, version int64) error
		MarkSyncError(ctx context.Context, id int64) error
		MealVersion(ctx context.Context, id int64) (int64, error)
	}

	// SyncStore is what the sheets worker reads from.
	SyncStore interface {
		MealReader
		SyncTracker
	}
)

// PendingMeal identifies a meal whose mirror copy is out of date.
type PendingMeal struct {
	ID      int64
	Version int64
}
