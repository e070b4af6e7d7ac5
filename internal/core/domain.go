package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// maxDescriptionLen is counted in characters, as SQLite's length() does.
const maxDescriptionLen = 500

// DateLayout is the wire and storage format of a meal date.
const DateLayout = "2006-01-02"

const (
	Breakfast  MealType = "breakfast"
	Lunch      MealType = "lunch"
	Dinner     MealType = "dinner"
	Snack      MealType = "snack"
	Supplement MealType = "supplement"
)

const (
	SourceManual Source = "manual"
	SourceText   Source = "text"
	SourcePhoto  Source = "photo"
	SourceAuto   Source = "auto"
)

type (
	MealType string

	// Source tags how an entry got into the log.
	Source string

	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	MealEntry struct {
		ID          int64       `json:"id"`
		Date        Date        `json:"date"`
		MealType    MealType    `json:"meal_type"`
		Description string      `json:"description"`
		Calories    float64     `json:"calories"`
		ProteinG    float64     `json:"protein_g"`
		CarbsG      float64     `json:"carbs_g"`
		FatG        float64     `json:"fat_g"`
		FiberG      float64     `json:"fiber_g"`
		SugarG      float64     `json:"sugar_g"`
		ZincMg      *float64    `json:"zinc_mg"`
		SeleniumMcg *float64    `json:"selenium_mcg"`
		VitaminDIU  *float64    `json:"vitamin_d_iu"`
		Notes       string      `json:"notes"`
		Source      Source      `json:"source"`
		CreatedAt   time.Time   `json:"created_at"`
		Components  []Component `json:"components"`
	}

	// Component is an ingredient line of a single meal. Components never
	// contribute to summaries; the parent entry carries the totals.
	Component struct {
		ID          int64   `json:"id"`
		MealID      int64   `json:"meal_id"`
		Description string  `json:"description"`
		Calories    float64 `json:"calories"`
		ProteinG    float64 `json:"protein_g"`
		FatG        float64 `json:"fat_g"`
		CarbsG      float64 `json:"carbs_g"`
		FiberG      float64 `json:"fiber_g"`
		SugarG      float64 `json:"sugar_g"`
		SortOrder   int     `json:"sort_order"`
	}

	// MealFilter selects entries for listing. Date wins over From/To; an
	// empty filter selects everything.
	MealFilter struct {
		Date *Date
		From *Date
		To   *Date
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMealType    = errors.New("invalid meal type")
	ErrInvalidSource      = errors.New("invalid source")
	ErrEmptyDescription   = errors.New("empty description")
	ErrNegativeNutrient   = errors.New("nutrient values must not be negative")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
)

// MealTypes lists the valid meal types in display order.
func MealTypes() []MealType {
	return []MealType{Breakfast, Lunch, Dinner, Snack, Supplement}
}

func (t MealType) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner, Snack, Supplement:
		return true
	}
	return false
}

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceText, SourcePhoto, SourceAuto:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar day as observed in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc != nil {
		now = now.In(loc)
	}
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks an entry before it is persisted. A missing source is
// accepted; storage defaults it to manual.
func (e MealEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.MealType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMealType, e.MealType)
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.Source != "" && !e.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, e.Source)
	}
	for _, v := range []float64{e.Calories, e.ProteinG, e.CarbsG, e.FatG, e.FiberG, e.SugarG} {
		if v < 0 {
			return ErrNegativeNutrient
		}
	}
	for _, v := range []*float64{e.ZincMg, e.SeleniumMcg, e.VitaminDIU} {
		if v != nil && *v < 0 {
			return ErrNegativeNutrient
		}
	}
	return nil
}

func (c Component) Validate() error {
	if len(strings.TrimSpace(c.Description)) == 0 {
		return ErrEmptyDescription
	}
	for _, v := range []float64{c.Calories, c.ProteinG, c.CarbsG, c.FatG, c.FiberG, c.SugarG} {
		if v < 0 {
			return ErrNegativeNutrient
		}
	}
	return nil
}

// Matches reports whether the entry is selected by the filter.
func (f MealFilter) Matches(e MealEntry) bool {
	switch {
	case f.Date != nil:
		return e.Date.Equal(f.Date.Time)
	case f.From != nil && f.To != nil:
		return !e.Date.Before(f.From.Time) && !e.Date.After(f.To.Time)
	}
	return true
}

// Float returns a pointer to v, for the optional micronutrient fields.
func Float(v float64) *float64 {
	return &v
}
