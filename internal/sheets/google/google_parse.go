package google

import (
	"fmt"
	"strconv"
	"strings"

	"nutrilog/internal/core"
)

// Columns of the meal sheet, A through P.
var header = []any{
	"ID", "Date", "Meal", "Description",
	"Calories", "Protein (g)", "Carbs (g)", "Fat (g)", "Fiber (g)", "Sugar (g)",
	"Zinc (mg)", "Selenium (mcg)", "Vitamin D (IU)",
	"Source", "Notes", "Version",
}

const lastColumn = "P"

func mealRow(e core.MealEntry, version int64) []any {
	return []any{
		e.ID,
		e.Date.String(),
		string(e.MealType),
		e.Description,
		e.Calories,
		e.ProteinG,
		e.CarbsG,
		e.FatG,
		e.FiberG,
		e.SugarG,
		optional(e.ZincMg),
		optional(e.SeleniumMcg),
		optional(e.VitaminDIU),
		string(e.Source),
		e.Notes,
		version,
	}
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// findRow returns the 1-based sheet row whose first cell holds id, or 0.
// values is the A column as returned by the Sheets API.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == want {
			return i + 1
		}
	}
	return 0
}

// nextRow returns the first row after the last non-empty one.
func nextRow(values [][]any) int {
	last := 0
	for i, row := range values {
		if len(row) > 0 && cellString(row[0]) != "" {
			last = i + 1
		}
	}
	return last + 1
}

func cellString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
