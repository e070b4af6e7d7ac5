package http

import (
	"net/http"
	"strings"

	"nutrilog/internal/core"
	"nutrilog/internal/log"
)

// handleListMeals lists entries for ?date=, for the inclusive ?from=&to=
// range, or all entries when neither is given.
func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMealFilter(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	meals, err := s.meals.ListMeals(r.Context(), filter)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if meals == nil {
		meals = []core.MealEntry{}
	}
	OK(meals).Write(w)
}

func parseMealFilter(r *http.Request) (core.MealFilter, error) {
	q := r.URL.Query()
	var f core.MealFilter

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.Date = &d
		return f, nil
	}

	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		return f, nil
	}
	fromDate, err := core.ParseDate(from)
	if err != nil {
		return f, err
	}
	toDate, err := core.ParseDate(to)
	if err != nil {
		return f, err
	}
	f.From, f.To = &fromDate, &toDate
	return f, nil
}

func (s *Server) handleCreateMeal(w http.ResponseWriter, r *http.Request) {
	entry, err := ParseMealEntry(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.meals.CreateMeal(r.Context(), entry)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogMealSaved(r.Context(), log.OpCreate,
		created.ID, created.Date.String(), string(created.MealType), created.Calories)
	Created(created).Write(w)
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	meal, err := s.meals.GetMeal(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(meal).Write(w)
}

func (s *Server) handleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := ParseMealPatch(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.meals.UpdateMeal(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogMealSaved(r.Context(), log.OpUpdate,
		updated.ID, updated.Date.String(), string(updated.MealType), updated.Calories)
	OK(updated).Write(w)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.meals.DeleteMeal(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Meal deleted", log.FieldMealID, id)
	Deleted().Write(w)
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	mealID, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	components, err := s.meals.ListComponents(r.Context(), mealID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if components == nil {
		components = []core.Component{}
	}
	OK(components).Write(w)
}

func (s *Server) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	mealID, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	component, err := ParseComponent(w, r, mealID)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.meals.CreateComponent(r.Context(), component)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	mealID, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	componentID, err := parseID(r, "cid")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.meals.DeleteComponent(r.Context(), mealID, componentID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	Deleted().Write(w)
}
