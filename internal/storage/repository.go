package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"nutrilog/internal/core"
	"nutrilog/internal/ports"

	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type SQLiteRepository struct {
	db      *sqlx.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ ports.MealStore   = (*SQLiteRepository)(nil)
	_ ports.SyncTracker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateMeal implements ports.MealWriter
func (r *SQLiteRepository) CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error) {
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	if err := e.Validate(); err != nil {
		return core.MealEntry{}, err
	}

	row := toRow(e)
	row.CreatedAt = r.now().UTC().Format(time.RFC3339)
	id, err := r.queries.CreateMeal(ctx, row)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("create meal: %w", err)
	}

	slog.InfoContext(ctx, "Meal saved to SQLite",
		"id", id,
		"date", e.Date.String(),
		"meal_type", e.MealType,
		"calories", e.Calories)

	return r.GetMeal(ctx, id)
}

// GetMeal implements ports.MealReader
func (r *SQLiteRepository) GetMeal(ctx context.Context, id int64) (core.MealEntry, error) {
	m, err := r.queries.GetMeal(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MealEntry{}, fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("get meal by id: %w", err)
	}
	comps, err := r.queries.ListComponents(ctx, id)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("list components: %w", err)
	}
	e, err := fromRow(m)
	if err != nil {
		return core.MealEntry{}, err
	}
	e.Components = fromComponentRows(comps)
	return e, nil
}

// UpdateMeal implements ports.MealWriter
func (r *SQLiteRepository) UpdateMeal(ctx context.Context, id int64, p core.MealPatch) (core.MealEntry, error) {
	if p.Empty() {
		return core.MealEntry{}, core.ErrNoFieldsToUpdate
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	current, err := q.GetMeal(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MealEntry{}, fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("get meal by id: %w", err)
	}
	e, err := fromRow(current)
	if err != nil {
		return core.MealEntry{}, err
	}

	updated := p.Apply(e)
	if err := updated.Validate(); err != nil {
		return core.MealEntry{}, err
	}
	row := toRow(updated)
	row.ID = id
	if _, err := q.UpdateMeal(ctx, row); err != nil {
		return core.MealEntry{}, fmt.Errorf("update meal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.MealEntry{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Meal updated", "id", id)
	return r.GetMeal(ctx, id)
}

// DeleteMeal implements ports.MealWriter
func (r *SQLiteRepository) DeleteMeal(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.DeleteComponentsOf(ctx, id); err != nil {
		return fmt.Errorf("delete components: %w", err)
	}
	n, err := q.DeleteMeal(ctx, id)
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Meal deleted", "id", id)
	return nil
}

// ListMeals implements ports.MealReader
func (r *SQLiteRepository) ListMeals(ctx context.Context, f core.MealFilter) ([]core.MealEntry, error) {
	var (
		rows []Meal
		err  error
	)
	switch {
	case f.Date != nil:
		rows, err = r.queries.ListMealsByDate(ctx, f.Date.String())
	case f.From != nil && f.To != nil:
		rows, err = r.queries.ListMealsBetween(ctx, f.From.String(), f.To.String())
	default:
		rows, err = r.queries.ListAllMeals(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}

	entries := make([]core.MealEntry, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		e, err := fromRow(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		ids = append(ids, m.ID)
	}

	comps, err := r.queries.ListComponentsIn(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	byMeal := make(map[int64][]core.Component, len(comps))
	for _, c := range fromComponentRows(comps) {
		byMeal[c.MealID] = append(byMeal[c.MealID], c)
	}
	for i := range entries {
		if cs, ok := byMeal[entries[i].ID]; ok {
			entries[i].Components = cs
		}
	}
	return entries, nil
}

// ListComponents implements ports.ComponentStore
func (r *SQLiteRepository) ListComponents(ctx context.Context, mealID int64) ([]core.Component, error) {
	if _, err := r.queries.GetMeal(ctx, mealID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("meal %d: %w", mealID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get meal by id: %w", err)
	}
	comps, err := r.queries.ListComponents(ctx, mealID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return fromComponentRows(comps), nil
}

// CreateComponent implements ports.ComponentStore
func (r *SQLiteRepository) CreateComponent(ctx context.Context, c core.Component) (core.Component, error) {
	if err := c.Validate(); err != nil {
		return core.Component{}, err
	}
	if _, err := r.queries.GetMeal(ctx, c.MealID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Component{}, fmt.Errorf("meal %d: %w", c.MealID, core.ErrNotFound)
		}
		return core.Component{}, fmt.Errorf("get meal by id: %w", err)
	}

	id, err := r.queries.CreateComponent(ctx, MealComponent{
		MealID:      c.MealID,
		Description: c.Description,
		Calories:    c.Calories,
		ProteinG:    c.ProteinG,
		FatG:        c.FatG,
		CarbsG:      c.CarbsG,
		FiberG:      c.FiberG,
		SugarG:      c.SugarG,
		SortOrder:   int64(c.SortOrder),
	})
	if err != nil {
		return core.Component{}, fmt.Errorf("create component: %w", err)
	}
	row, err := r.queries.GetComponent(ctx, id)
	if err != nil {
		return core.Component{}, fmt.Errorf("get component: %w", err)
	}
	return fromComponentRow(row), nil
}

// DeleteComponent implements ports.ComponentStore
func (r *SQLiteRepository) DeleteComponent(ctx context.Context, mealID, componentID int64) error {
	n, err := r.queries.DeleteComponent(ctx, componentID, mealID)
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("component %d of meal %d: %w", componentID, mealID, core.ErrNotFound)
	}
	return nil
}

// PendingSync implements ports.SyncTracker
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]ports.PendingMeal, error) {
	rows, err := r.queries.GetPendingSyncMeals(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync meals: %w", err)
	}
	out := make([]ports.PendingMeal, len(rows))
	for i, row := range rows {
		out[i] = ports.PendingMeal{ID: row.ID, Version: row.Version}
	}
	return out, nil
}

// MarkSynced marks a meal version as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	if err := r.queries.MarkMealSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark meal synced: %w", err)
	}
	slog.InfoContext(ctx, "Meal marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a meal as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkMealSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark meal sync error: %w", err)
	}
	slog.WarnContext(ctx, "Meal marked with sync error", "id", id)
	return nil
}

// MealVersion returns the current version of a meal, used by the sync
// worker to drop stale messages.
func (r *SQLiteRepository) MealVersion(ctx context.Context, id int64) (int64, error) {
	m, err := r.queries.GetMeal(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("meal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get meal by id: %w", err)
	}
	return m.Version, nil
}

func toRow(e core.MealEntry) Meal {
	return Meal{
		ID:          e.ID,
		Date:        e.Date.String(),
		MealType:    string(e.MealType),
		Description: e.Description,
		Calories:    e.Calories,
		ProteinG:    e.ProteinG,
		CarbsG:      e.CarbsG,
		FatG:        e.FatG,
		FiberG:      e.FiberG,
		SugarG:      e.SugarG,
		ZincMg:      nullFloat(e.ZincMg),
		SeleniumMcg: nullFloat(e.SeleniumMcg),
		VitaminDIU:  nullFloat(e.VitaminDIU),
		Notes:       e.Notes,
		Source:      string(e.Source),
	}
}

func fromRow(m Meal) (core.MealEntry, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.MealEntry{}, fmt.Errorf("meal %d: %w", m.ID, err)
	}
	created, _ := time.Parse(time.RFC3339, m.CreatedAt)
	return core.MealEntry{
		ID:          m.ID,
		Date:        d,
		MealType:    core.MealType(m.MealType),
		Description: m.Description,
		Calories:    m.Calories,
		ProteinG:    m.ProteinG,
		CarbsG:      m.CarbsG,
		FatG:        m.FatG,
		FiberG:      m.FiberG,
		SugarG:      m.SugarG,
		ZincMg:      floatPtr(m.ZincMg),
		SeleniumMcg: floatPtr(m.SeleniumMcg),
		VitaminDIU:  floatPtr(m.VitaminDIU),
		Notes:       m.Notes,
		Source:      core.Source(m.Source),
		CreatedAt:   created,
		Components:  []core.Component{},
	}, nil
}

func fromComponentRows(rows []MealComponent) []core.Component {
	out := make([]core.Component, len(rows))
	for i, c := range rows {
		out[i] = fromComponentRow(c)
	}
	return out
}

func fromComponentRow(c MealComponent) core.Component {
	return core.Component{
		ID:          c.ID,
		MealID:      c.MealID,
		Description: c.Description,
		Calories:    c.Calories,
		ProteinG:    c.ProteinG,
		FatG:        c.FatG,
		CarbsG:      c.CarbsG,
		FiberG:      c.FiberG,
		SugarG:      c.SugarG,
		SortOrder:   int(c.SortOrder),
	}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
