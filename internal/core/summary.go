package core

import (
	"github.com/shopspring/decimal"
)

// WeekLength is the number of days covered by a weekly summary.
const WeekLength = 7

// Nutrients is the summable vector of an entry. Absent micronutrients
// count as zero.
type Nutrients struct {
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	CarbsG      float64 `json:"carbs_g"`
	FatG        float64 `json:"fat_g"`
	FiberG      float64 `json:"fiber_g"`
	SugarG      float64 `json:"sugar_g"`
	ZincMg      float64 `json:"zinc_mg"`
	SeleniumMcg float64 `json:"selenium_mcg"`
	VitaminDIU  float64 `json:"vitamin_d_iu"`
}

type Goals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
	FiberG   float64 `json:"fiber_g"`
}

type Progress struct {
	Calories float64 `json:"calories"`
}

// DailySummary is the rollup of a single date.
type DailySummary struct {
	Date        Date      `json:"date"`
	Totals      Nutrients `json:"totals"`
	MealCount   int       `json:"meal_count"`
	Goals       Goals     `json:"goals"`
	Progress    Progress  `json:"progress"`
	BaseGoal    float64   `json:"base_goal"`
	NetCalories float64   `json:"net_calories"`
	Workout     *Burn     `json:"workout,omitempty"`
}

// DayTotals is one row of the weekly trend.
type DayTotals struct {
	Date Date `json:"date"`
	Nutrients
	MealCount int `json:"meal_count"`
}

type WeeklySummary struct {
	Start     Date        `json:"start"`
	End       Date        `json:"end"`
	Days      []DayTotals `json:"days"`
	Totals    Nutrients   `json:"totals"`
	MealCount int         `json:"meal_count"`
}

// DefaultGoals returns the goals of a day without a workout.
func DefaultGoals(calories float64) Goals {
	if calories <= 0 {
		calories = 2000
	}
	return Goals{Calories: calories, ProteinG: 80, FatG: 65, CarbsG: 250, FiberG: 30}
}

// NutrientsOf extracts the summable vector of an entry.
func NutrientsOf(e MealEntry) Nutrients {
	return Nutrients{
		Calories:    e.Calories,
		ProteinG:    e.ProteinG,
		CarbsG:      e.CarbsG,
		FatG:        e.FatG,
		FiberG:      e.FiberG,
		SugarG:      e.SugarG,
		ZincMg:      deref(e.ZincMg),
		SeleniumMcg: deref(e.SeleniumMcg),
		VitaminDIU:  deref(e.VitaminDIU),
	}
}

// accumulator sums nutrient vectors exactly, so the result is independent
// of the order entries are added in.
type accumulator struct {
	fields [9]decimal.Decimal
}

func (a *accumulator) add(n Nutrients) {
	for i, v := range n.values() {
		a.fields[i] = a.fields[i].Add(decimal.NewFromFloat(v))
	}
}

func (a *accumulator) merge(o *accumulator) {
	for i := range a.fields {
		a.fields[i] = a.fields[i].Add(o.fields[i])
	}
}

func (a *accumulator) total() Nutrients {
	var out [9]float64
	for i, d := range a.fields {
		out[i] = d.InexactFloat64()
	}
	return Nutrients{
		Calories:    out[0],
		ProteinG:    out[1],
		CarbsG:      out[2],
		FatG:        out[3],
		FiberG:      out[4],
		SugarG:      out[5],
		ZincMg:      out[6],
		SeleniumMcg: out[7],
		VitaminDIU:  out[8],
	}
}

func (n Nutrients) values() [9]float64 {
	return [9]float64{n.Calories, n.ProteinG, n.CarbsG, n.FatG, n.FiberG, n.SugarG, n.ZincMg, n.SeleniumMcg, n.VitaminDIU}
}

// Daily sums the entries dated on date. Entries for other dates are ignored.
func Daily(date Date, entries []MealEntry, goals Goals) DailySummary {
	acc, count := sumDay(date, entries)
	totals := acc.total()
	return DailySummary{
		Date:        date,
		Totals:      totals,
		MealCount:   count,
		Goals:       goals,
		Progress:    Progress{Calories: percent(totals.Calories, goals.Calories)},
		BaseGoal:    goals.Calories,
		NetCalories: Round(totals.Calories, 0),
	}
}

// Weekly rolls up the seven days start..start+6. Days without entries are
// present with zero totals.
func Weekly(start Date, entries []MealEntry) WeeklySummary {
	ws := WeeklySummary{
		Start: start,
		End:   start.AddDays(WeekLength - 1),
		Days:  make([]DayTotals, 0, WeekLength),
	}
	var week accumulator
	for i := 0; i < WeekLength; i++ {
		day := start.AddDays(i)
		acc, count := sumDay(day, entries)
		week.merge(&acc)
		ws.MealCount += count
		ws.Days = append(ws.Days, DayTotals{Date: day, Nutrients: acc.total(), MealCount: count})
	}
	ws.Totals = week.total()
	return ws
}

func sumDay(date Date, entries []MealEntry) (accumulator, int) {
	var acc accumulator
	count := 0
	for _, e := range entries {
		if !e.Date.Equal(date.Time) {
			continue
		}
		acc.add(NutrientsOf(e))
		count++
	}
	return acc, count
}

func percent(v, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return Round(v/goal*100, 1)
}

// Round rounds to places decimals, ties to even.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
