package core

import "strings"

// OptionalFloat distinguishes an absent field from an explicit null in a
// partial update of a nullable micronutrient.
type OptionalFloat struct {
	Set   bool
	Value *float64
}

// MealPatch carries the fields of a partial update. Nil fields are left
// unchanged.
type MealPatch struct {
	Date        *Date
	MealType    *MealType
	Description *string
	Calories    *float64
	ProteinG    *float64
	CarbsG      *float64
	FatG        *float64
	FiberG      *float64
	SugarG      *float64
	ZincMg      OptionalFloat
	SeleniumMcg OptionalFloat
	VitaminDIU  OptionalFloat
	Notes       *string
	Source      *Source
}

// Empty reports whether the patch changes nothing.
func (p MealPatch) Empty() bool {
	return p.Date == nil && p.MealType == nil && p.Description == nil &&
		p.Calories == nil && p.ProteinG == nil && p.CarbsG == nil &&
		p.FatG == nil && p.FiberG == nil && p.SugarG == nil &&
		!p.ZincMg.Set && !p.SeleniumMcg.Set && !p.VitaminDIU.Set &&
		p.Notes == nil && p.Source == nil
}

// Apply returns a copy of e with the patch applied. The result is not
// validated.
func (p MealPatch) Apply(e MealEntry) MealEntry {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.MealType != nil {
		e.MealType = *p.MealType
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	setFloat(&e.Calories, p.Calories)
	setFloat(&e.ProteinG, p.ProteinG)
	setFloat(&e.CarbsG, p.CarbsG)
	setFloat(&e.FatG, p.FatG)
	setFloat(&e.FiberG, p.FiberG)
	setFloat(&e.SugarG, p.SugarG)
	if p.ZincMg.Set {
		e.ZincMg = p.ZincMg.Value
	}
	if p.SeleniumMcg.Set {
		e.SeleniumMcg = p.SeleniumMcg.Value
	}
	if p.VitaminDIU.Set {
		e.VitaminDIU = p.VitaminDIU.Value
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.Source != nil {
		e.Source = *p.Source
	}
	return e
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
