package http

import (
	"net/http"

	"nutrilog/internal/log"
)

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.summaries.Daily(r.Context(), date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(summary).Write(w)
}

// handleWeeklySummary covers the seven days starting at {date}.
func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r, "date")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.summaries.Weekly(r.Context(), start)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(summary).Write(w)
}
