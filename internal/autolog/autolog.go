package autolog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nutrilog/internal/core"
)

// Supplement is one entry of the daily plan.
type Supplement struct {
	Description string
	Schedule    Schedule
	Calories    float64
	FatG        float64
	ZincMg      *float64
	SeleniumMcg *float64
	VitaminDIU  *float64
	Notes       string
}

// DefaultSupplements is the fixed daily list. Omega-3 is only taken Friday
// to Sunday.
var DefaultSupplements = []Supplement{
	{Description: "Vitamin D3", Schedule: Daily{}, VitaminDIU: core.Float(2000)},
	{Description: "Zinc", Schedule: Daily{}, ZincMg: core.Float(15)},
	{Description: "Selenium", Schedule: Daily{}, SeleniumMcg: core.Float(100)},
	{Description: "Magnesium", Schedule: Daily{}, Notes: "300 mg"},
	{Description: "Omega-3", Schedule: Weekend, Calories: 9, FatG: 1},
}

// MealAPI is the subset of the HTTP API the logger needs.
type MealAPI interface {
	MealsOn(ctx context.Context, date core.Date) ([]core.MealEntry, error)
	CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error)
}

// Result reports what a run did.
type Result struct {
	Date    core.Date
	Skipped bool // supplements were already logged
	Planned []core.MealEntry
	Posted  []core.MealEntry
}

type Logger struct {
	api         MealAPI
	supplements []Supplement
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

func New(api MealAPI, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.Local
	}
	return &Logger{
		api:         api,
		supplements: DefaultSupplements,
		loc:         loc,
		now:         time.Now,
		logger:      slog.Default().With("component", "autolog"),
	}
}

// SetSchedule changes when the named supplement is taken. The name is
// matched case-insensitively.
func (l *Logger) SetSchedule(name string, s Schedule) error {
	for i, sup := range l.supplements {
		if strings.EqualFold(sup.Description, name) {
			// Copy before writing so DefaultSupplements stays untouched.
			l.supplements = append([]Supplement(nil), l.supplements...)
			l.supplements[i].Schedule = s
			return nil
		}
	}
	return fmt.Errorf("unknown supplement: %s", name)
}

// Plan returns the entries due on date.
func (l *Logger) Plan(date core.Date) []core.MealEntry {
	day := date.Weekday()
	var out []core.MealEntry
	for _, s := range l.supplements {
		if !s.Schedule.IsDue(day) {
			continue
		}
		out = append(out, core.MealEntry{
			Date:        date,
			MealType:    core.Supplement,
			Description: s.Description,
			Calories:    s.Calories,
			FatG:        s.FatG,
			ZincMg:      s.ZincMg,
			SeleniumMcg: s.SeleniumMcg,
			VitaminDIU:  s.VitaminDIU,
			Notes:       s.Notes,
			Source:      core.SourceAuto,
		})
	}
	return out
}

// Run logs today's supplements unless any supplement entry already exists
// for today. With dryRun it only computes the plan.
func (l *Logger) Run(ctx context.Context, dryRun bool) (Result, error) {
	today := core.Today(l.now(), l.loc)
	res := Result{Date: today, Planned: l.Plan(today)}

	if dryRun {
		return res, nil
	}

	existing, err := l.api.MealsOn(ctx, today)
	if err != nil {
		return res, err
	}
	count := 0
	for _, e := range existing {
		if e.MealType == core.Supplement {
			count++
		}
	}
	if count > 0 {
		l.logger.InfoContext(ctx, "Supplements already logged", "date", today.String(), "count", count)
		res.Skipped = true
		return res, nil
	}

	for _, e := range res.Planned {
		created, err := l.api.CreateMeal(ctx, e)
		if err != nil {
			return res, fmt.Errorf("log %s: %w", e.Description, err)
		}
		res.Posted = append(res.Posted, created)
	}

	l.logger.InfoContext(ctx, "Supplements logged", "date", today.String(), "count", len(res.Posted))
	return res, nil
}
