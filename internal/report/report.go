// Package report builds the weekly nutrition report from logged meals and
// renders it as JSON, terminal markdown or an HTML e-mail body.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nutrilog/internal/core"
)

const (
	DefaultDays = 7

	// Days below this protein total count as low-protein days.
	LowProteinG = 80
)

// Targets are the reference values for the target diffs.
type Targets struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	SugarG   float64 `json:"sugar_g"`
}

var DefaultTargets = Targets{Calories: 2000, ProteinG: 90, SugarG: 25}

type Day struct {
	Date      core.Date `json:"date"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	FatG      float64   `json:"fat_g"`
	CarbsG    float64   `json:"carbs_g"`
	SugarG    float64   `json:"sugar_g"`
	FiberG    float64   `json:"fiber_g"`
	MealCount int       `json:"meal_count"`
}

type Report struct {
	PeriodStart      core.Date   `json:"period_start"`
	PeriodEnd        core.Date   `json:"period_end"`
	DaysWithData     int         `json:"days_with_data"`
	TotalCalories    float64     `json:"total_calories"`
	AvgDailyCalories float64     `json:"avg_daily_calories"`
	AvgProteinG      float64     `json:"avg_protein_g"`
	AvgFatG          float64     `json:"avg_fat_g"`
	AvgCarbsG        float64     `json:"avg_carbs_g"`
	AvgSugarG        float64     `json:"avg_sugar_g"`
	Daily            []Day       `json:"daily"`
	LowProteinDays   []core.Date `json:"low_protein_days"`
	HighSugarDays    []core.Date `json:"high_sugar_days"`
	Targets          Targets     `json:"targets"`
	TargetDiffs      Targets     `json:"target_diffs"`
	Tip              string      `json:"tip"`
}

// Empty is returned in place of a report when no day has data.
type Empty struct {
	Error        string `json:"error"`
	DaysWithData int    `json:"days_with_data"`
}

var NoData = Empty{Error: "no data", DaysWithData: 0}

// Window returns the first and last day of the n days ending on end.
func Window(end core.Date, days int) (core.Date, core.Date) {
	if days < 1 {
		days = DefaultDays
	}
	return end.AddDays(-(days - 1)), end
}

// Compute builds the report for the days from..to. Days without entries
// are left out of the averages. ok is false when no day has data.
func Compute(from, to core.Date, entries []core.MealEntry, targets Targets) (Report, bool) {
	var daily []Day
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		s := core.Daily(d, entries, core.Goals{})
		if s.MealCount == 0 {
			continue
		}
		daily = append(daily, Day{
			Date:      d,
			Calories:  s.Totals.Calories,
			ProteinG:  s.Totals.ProteinG,
			FatG:      s.Totals.FatG,
			CarbsG:    s.Totals.CarbsG,
			SugarG:    s.Totals.SugarG,
			FiberG:    s.Totals.FiberG,
			MealCount: s.MealCount,
		})
	}
	if len(daily) == 0 {
		return Report{}, false
	}

	n := decimal.NewFromInt(int64(len(daily)))
	var cal, protein, fat, carbs, sugar decimal.Decimal
	r := Report{
		PeriodStart:    daily[0].Date,
		PeriodEnd:      daily[len(daily)-1].Date,
		DaysWithData:   len(daily),
		Daily:          daily,
		LowProteinDays: []core.Date{},
		HighSugarDays:  []core.Date{},
		Targets:        targets,
	}
	for _, d := range daily {
		cal = cal.Add(decimal.NewFromFloat(d.Calories))
		protein = protein.Add(decimal.NewFromFloat(d.ProteinG))
		fat = fat.Add(decimal.NewFromFloat(d.FatG))
		carbs = carbs.Add(decimal.NewFromFloat(d.CarbsG))
		sugar = sugar.Add(decimal.NewFromFloat(d.SugarG))
		if d.ProteinG < LowProteinG {
			r.LowProteinDays = append(r.LowProteinDays, d.Date)
		}
		if d.SugarG > targets.SugarG {
			r.HighSugarDays = append(r.HighSugarDays, d.Date)
		}
	}

	avg := func(sum decimal.Decimal) float64 { return sum.Div(n).InexactFloat64() }
	avgCal, avgProtein, avgSugar := avg(cal), avg(protein), avg(sugar)

	r.TotalCalories = core.Round(cal.InexactFloat64(), 1)
	r.AvgDailyCalories = core.Round(avgCal, 1)
	r.AvgProteinG = core.Round(avgProtein, 1)
	r.AvgFatG = core.Round(avg(fat), 1)
	r.AvgCarbsG = core.Round(avg(carbs), 1)
	r.AvgSugarG = core.Round(avgSugar, 1)
	r.TargetDiffs = Targets{
		Calories: core.Round(avgCal-targets.Calories, 1),
		ProteinG: core.Round(avgProtein-targets.ProteinG, 1),
		SugarG:   core.Round(avgSugar-targets.SugarG, 1),
	}
	r.Tip = Tip(avgProtein, avgSugar, avgCal, len(r.LowProteinDays), len(daily))
	return r, true
}

// Tip picks advice by the first matching rule.
func Tip(avgProtein, avgSugar, avgCal float64, lowProteinDays, days int) string {
	mostlyLowProtein := float64(lowProteinDays) > float64(days)/2
	switch {
	case mostlyLowProtein && avgSugar > 30:
		return "Swap sugary snacks for protein sources like skyr, chicken breast or lentils. That raises protein and lowers sugar at the same time."
	case mostlyLowProtein:
		return "Protein fell short on most days. Try to plan a protein source for every meal (eggs, quark, fish, legumes)."
	case avgSugar > 40:
		return "Sugar intake is far too high. Replace juices and sweets with water and nuts."
	case avgSugar > 25:
		return "Sugar is above target. Watch for hidden sugar in muesli, yoghurt and sauces."
	case avgCal > 2200:
		return "Calorie intake is above target. Smaller portions at dinner can help."
	case avgCal < 1600:
		return "Calorie intake is low. Make sure to eat enough, especially on training days."
	}
	return "Good week! Keep it up, consistency is key."
}

func signed(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%g", v)
	}
	return fmt.Sprintf("%g", v)
}
