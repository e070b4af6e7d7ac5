package sheets

import (
	"context"

	"nutrilog/internal/core"
)

// MealMirror keeps a copy of the meal log in an external spreadsheet. Rows
// are keyed by meal id so replays are idempotent.
type MealMirror interface {
	UpsertMeal(ctx context.Context, e core.MealEntry, version int64) error
	DeleteMeal(ctx context.Context, id int64) error
}
