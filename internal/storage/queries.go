package storage

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sqlx.Tx) *Queries {
	return &Queries{db: tx}
}

// Meal is a row of the meals table.
type Meal struct {
	ID          int64           `db:"id"`
	Date        string          `db:"date"`
	MealType    string          `db:"meal_type"`
	Description string          `db:"description"`
	Calories    float64         `db:"calories"`
	ProteinG    float64         `db:"protein_g"`
	CarbsG      float64         `db:"carbs_g"`
	FatG        float64         `db:"fat_g"`
	FiberG      float64         `db:"fiber_g"`
	SugarG      float64         `db:"sugar_g"`
	ZincMg      sql.NullFloat64 `db:"zinc_mg"`
	SeleniumMcg sql.NullFloat64 `db:"selenium_mcg"`
	VitaminDIU  sql.NullFloat64 `db:"vitamin_d_iu"`
	Notes       string          `db:"notes"`
	Source      string          `db:"source"`
	SyncStatus  string          `db:"sync_status"`
	Version     int64           `db:"version"`
	CreatedAt   string          `db:"created_at"`
}

// MealComponent is a row of the meal_components table.
type MealComponent struct {
	ID          int64   `db:"id"`
	MealID      int64   `db:"meal_id"`
	Description string  `db:"description"`
	Calories    float64 `db:"calories"`
	ProteinG    float64 `db:"protein_g"`
	FatG        float64 `db:"fat_g"`
	CarbsG      float64 `db:"carbs_g"`
	FiberG      float64 `db:"fiber_g"`
	SugarG      float64 `db:"sugar_g"`
	SortOrder   int64   `db:"sort_order"`
}

const mealColumns = `id, date, meal_type, description, calories, protein_g, carbs_g, fat_g,
	fiber_g, sugar_g, zinc_mg, selenium_mcg, vitamin_d_iu, notes, source, sync_status, version, created_at`

const createMeal = `INSERT INTO meals (
	date, meal_type, description, calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g,
	zinc_mg, selenium_mcg, vitamin_d_iu, notes, source, sync_status, version, created_at
) VALUES (
	:date, :meal_type, :description, :calories, :protein_g, :carbs_g, :fat_g, :fiber_g, :sugar_g,
	:zinc_mg, :selenium_mcg, :vitamin_d_iu, :notes, :source, 'pending', 1, :created_at
)`

func (q *Queries) CreateMeal(ctx context.Context, arg Meal) (int64, error) {
	res, err := q.db.NamedExecContext(ctx, createMeal, arg)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getMeal = `SELECT ` + mealColumns + ` FROM meals WHERE id = ?`

func (q *Queries) GetMeal(ctx context.Context, id int64) (Meal, error) {
	var m Meal
	err := q.db.GetContext(ctx, &m, getMeal, id)
	return m, err
}

// UpdateMeal rewrites every user-visible column and bumps the version, so
// mirror copies of older versions are recognized as stale.
const updateMeal = `UPDATE meals SET
	date = :date, meal_type = :meal_type, description = :description,
	calories = :calories, protein_g = :protein_g, carbs_g = :carbs_g, fat_g = :fat_g,
	fiber_g = :fiber_g, sugar_g = :sugar_g,
	zinc_mg = :zinc_mg, selenium_mcg = :selenium_mcg, vitamin_d_iu = :vitamin_d_iu,
	notes = :notes, source = :source,
	sync_status = 'pending', version = version + 1
WHERE id = :id`

func (q *Queries) UpdateMeal(ctx context.Context, arg Meal) (int64, error) {
	res, err := q.db.NamedExecContext(ctx, updateMeal, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteMeal = `DELETE FROM meals WHERE id = ?`

func (q *Queries) DeleteMeal(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMeal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listMealsByDate = `SELECT ` + mealColumns + ` FROM meals WHERE date = ? ORDER BY meal_type, id`

func (q *Queries) ListMealsByDate(ctx context.Context, date string) ([]Meal, error) {
	var out []Meal
	err := q.db.SelectContext(ctx, &out, listMealsByDate, date)
	return out, err
}

const listMealsBetween = `SELECT ` + mealColumns + ` FROM meals WHERE date BETWEEN ? AND ? ORDER BY date, meal_type, id`

func (q *Queries) ListMealsBetween(ctx context.Context, from, to string) ([]Meal, error) {
	var out []Meal
	err := q.db.SelectContext(ctx, &out, listMealsBetween, from, to)
	return out, err
}

const listAllMeals = `SELECT ` + mealColumns + ` FROM meals ORDER BY date DESC, meal_type, id`

func (q *Queries) ListAllMeals(ctx context.Context) ([]Meal, error) {
	var out []Meal
	err := q.db.SelectContext(ctx, &out, listAllMeals)
	return out, err
}

const componentColumns = `id, meal_id, description, calories, protein_g, fat_g, carbs_g, fiber_g, sugar_g, sort_order`

const listComponents = `SELECT ` + componentColumns + ` FROM meal_components WHERE meal_id = ? ORDER BY sort_order, id`

func (q *Queries) ListComponents(ctx context.Context, mealID int64) ([]MealComponent, error) {
	var out []MealComponent
	err := q.db.SelectContext(ctx, &out, listComponents, mealID)
	return out, err
}

const listComponentsIn = `SELECT ` + componentColumns + ` FROM meal_components WHERE meal_id IN (?) ORDER BY sort_order, id`

// ListComponentsIn loads the components of several meals in one query.
func (q *Queries) ListComponentsIn(ctx context.Context, mealIDs []int64) ([]MealComponent, error) {
	if len(mealIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(listComponentsIn, mealIDs)
	if err != nil {
		return nil, err
	}
	var out []MealComponent
	err = q.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

const getComponent = `SELECT ` + componentColumns + ` FROM meal_components WHERE id = ?`

func (q *Queries) GetComponent(ctx context.Context, id int64) (MealComponent, error) {
	var c MealComponent
	err := q.db.GetContext(ctx, &c, getComponent, id)
	return c, err
}

const createComponent = `INSERT INTO meal_components (
	meal_id, description, calories, protein_g, fat_g, carbs_g, fiber_g, sugar_g, sort_order
) VALUES (
	:meal_id, :description, :calories, :protein_g, :fat_g, :carbs_g, :fiber_g, :sugar_g, :sort_order
)`

func (q *Queries) CreateComponent(ctx context.Context, arg MealComponent) (int64, error) {
	res, err := q.db.NamedExecContext(ctx, createComponent, arg)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteComponent = `DELETE FROM meal_components WHERE id = ? AND meal_id = ?`

func (q *Queries) DeleteComponent(ctx context.Context, id, mealID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteComponent, id, mealID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteComponentsOf = `DELETE FROM meal_components WHERE meal_id = ?`

func (q *Queries) DeleteComponentsOf(ctx context.Context, mealID int64) error {
	_, err := q.db.ExecContext(ctx, deleteComponentsOf, mealID)
	return err
}

const getPendingSyncMeals = `SELECT id, version FROM meals
WHERE sync_status IN ('pending', 'error')
ORDER BY id
LIMIT ?`

type PendingSyncRow struct {
	ID      int64 `db:"id"`
	Version int64 `db:"version"`
}

func (q *Queries) GetPendingSyncMeals(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	var out []PendingSyncRow
	err := q.db.SelectContext(ctx, &out, getPendingSyncMeals, limit)
	return out, err
}

// MarkMealSynced only succeeds for the version that was mirrored; a newer
// edit keeps the row pending.
const markMealSynced = `UPDATE meals SET sync_status = 'synced' WHERE id = ? AND version = ?`

func (q *Queries) MarkMealSynced(ctx context.Context, id, version int64) error {
	_, err := q.db.ExecContext(ctx, markMealSynced, id, version)
	return err
}

const markMealSyncError = `UPDATE meals SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkMealSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markMealSyncError, id)
	return err
}
