package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nutrilog/internal/core"
)

func TestStoreCreateListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	day := core.NewDate(2025, 1, 10)
	lunch, err := s.CreateMeal(ctx, core.MealEntry{Date: day, MealType: core.Lunch, Description: "bowl", Calories: 550})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lunch.ID != 1 || lunch.Source != core.SourceManual {
		t.Fatalf("unexpected entry: %+v", lunch)
	}
	if _, err := s.CreateMeal(ctx, core.MealEntry{Date: day, MealType: core.Breakfast, Description: "toast", Calories: 250}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateMeal(ctx, core.MealEntry{Date: day.AddDays(1), MealType: core.Dinner, Description: "stew", Calories: 600}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateMeal(ctx, core.MealEntry{Date: day, MealType: core.Lunch, Description: ""}); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	got, _ := s.ListMeals(ctx, core.MealFilter{Date: &day})
	if len(got) != 2 || got[0].MealType != core.Breakfast {
		t.Fatalf("unexpected day listing: %+v", got)
	}
	all, _ := s.ListMeals(ctx, core.MealFilter{})
	if len(all) != 3 || all[0].Description != "stew" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	if err := s.DeleteMeal(ctx, lunch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteMeal(ctx, lunch.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreComponents(t *testing.T) {
	ctx := context.Background()
	s := New()
	m, _ := s.CreateMeal(ctx, core.MealEntry{Date: core.NewDate(2025, 1, 10), MealType: core.Breakfast, Description: "muesli", Calories: 600})

	for i, d := range []string{"oats", "berries"} {
		if _, err := s.CreateComponent(ctx, core.Component{MealID: m.ID, Description: d, SortOrder: 1 - i}); err != nil {
			t.Fatalf("create component: %v", err)
		}
	}
	comps, err := s.ListComponents(ctx, m.ID)
	if err != nil || len(comps) != 2 || comps[0].Description != "berries" {
		t.Fatalf("unexpected components %+v, %v", comps, err)
	}
	got, _ := s.GetMeal(ctx, m.ID)
	if len(got.Components) != 2 {
		t.Fatalf("components not attached: %+v", got)
	}
	if err := s.DeleteComponent(ctx, m.ID, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"date":"2025-02-18","meal_type":"breakfast","description":"muesli","calories":615,
	"components":[{"description":"oats","calories":370},{"description":"raspberries","calories":40}]}]`
	if err := os.WriteFile(filepath.Join(dir, "seed_meals.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	all, _ := s.ListMeals(context.Background(), core.MealFilter{})
	if len(all) != 1 || len(all[0].Components) != 2 {
		t.Fatalf("unexpected seed result: %+v", all)
	}
	if all[0].Components[0].Description != "oats" {
		t.Fatalf("seed order not kept: %+v", all[0].Components)
	}

	if empty := NewFromFiles(filepath.Join(dir, "missing")); len(empty.meals) != 0 {
		t.Fatal("expected empty store")
	}
}
