// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies are flat JSON objects mirroring the MealEntry fields.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nutrilog/internal/core"
)

const maxBodyBytes = 1 << 20

// readJSON decodes the request body into v, rejecting empty and oversized
// bodies.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("read request body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			return err
		}
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

// ParseMealEntry reads a POST /api/meals body. Server-assigned fields are
// ignored; numeric fields default to zero and source to manual.
func ParseMealEntry(w http.ResponseWriter, r *http.Request) (core.MealEntry, error) {
	var e core.MealEntry
	if err := readJSON(w, r, &e); err != nil {
		return core.MealEntry{}, err
	}
	e.ID = 0
	e.CreatedAt = time.Time{}
	e.Components = nil
	e.Description = sanitizeInput(e.Description)
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	return e, e.Validate()
}

// ParseMealPatch reads a PUT /api/meals/{id} body. Only the fields present
// in the object are updated; micronutrients accept an explicit null.
func ParseMealPatch(w http.ResponseWriter, r *http.Request) (core.MealPatch, error) {
	var raw map[string]json.RawMessage
	if err := readJSON(w, r, &raw); err != nil {
		return core.MealPatch{}, err
	}

	var p core.MealPatch
	for key, value := range raw {
		var err error
		switch key {
		case "date":
			p.Date = new(core.Date)
			err = json.Unmarshal(value, p.Date)
		case "meal_type":
			p.MealType, err = decodeRequired[core.MealType](key, value)
		case "description":
			p.Description, err = decodeRequired[string](key, value)
			if p.Description != nil {
				*p.Description = sanitizeInput(*p.Description)
			}
		case "calories":
			p.Calories, err = decodeRequired[float64](key, value)
		case "protein_g":
			p.ProteinG, err = decodeRequired[float64](key, value)
		case "carbs_g":
			p.CarbsG, err = decodeRequired[float64](key, value)
		case "fat_g":
			p.FatG, err = decodeRequired[float64](key, value)
		case "fiber_g":
			p.FiberG, err = decodeRequired[float64](key, value)
		case "sugar_g":
			p.SugarG, err = decodeRequired[float64](key, value)
		case "zinc_mg":
			p.ZincMg, err = decodeOptional(key, value)
		case "selenium_mcg":
			p.SeleniumMcg, err = decodeOptional(key, value)
		case "vitamin_d_iu":
			p.VitaminDIU, err = decodeOptional(key, value)
		case "notes":
			p.Notes, err = decodeRequired[string](key, value)
		case "source":
			p.Source, err = decodeRequired[core.Source](key, value)
		}
		if err != nil {
			return core.MealPatch{}, err
		}
	}

	if p.Empty() {
		return core.MealPatch{}, core.ErrNoFieldsToUpdate
	}
	return p, nil
}

// decodeRequired decodes a field that cannot be cleared.
func decodeRequired[T any](key string, value json.RawMessage) (*T, error) {
	if isNull(value) {
		return nil, badRequest("%s cannot be null", key)
	}
	v := new(T)
	if err := json.Unmarshal(value, v); err != nil {
		return nil, badRequest("invalid %s: %v", key, err)
	}
	return v, nil
}

// decodeOptional decodes a nullable micronutrient.
func decodeOptional(key string, value json.RawMessage) (core.OptionalFloat, error) {
	if isNull(value) {
		return core.OptionalFloat{Set: true}, nil
	}
	var f float64
	if err := json.Unmarshal(value, &f); err != nil {
		return core.OptionalFloat{}, badRequest("invalid %s: %v", key, err)
	}
	return core.OptionalFloat{Set: true, Value: &f}, nil
}

func isNull(value json.RawMessage) bool {
	return string(bytes.TrimSpace(value)) == "null"
}

// ParseComponent reads a POST /api/meals/{id}/components body for mealID.
func ParseComponent(w http.ResponseWriter, r *http.Request, mealID int64) (core.Component, error) {
	var c core.Component
	if err := readJSON(w, r, &c); err != nil {
		return core.Component{}, err
	}
	c.ID = 0
	c.MealID = mealID
	c.Description = sanitizeInput(c.Description)
	if err := c.Validate(); err != nil {
		return core.Component{}, fmt.Errorf("component: %w", err)
	}
	return c, nil
}
