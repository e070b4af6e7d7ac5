package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"nutrilog/internal/core"
	"nutrilog/internal/log"
)

// requestError marks malformed input that never reached the store.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidMealType,
	core.ErrInvalidSource,
	core.ErrEmptyDescription,
	core.ErrNegativeNutrient,
	core.ErrNoFieldsToUpdate,
	core.ErrDescriptionTooLong,
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with {"error": ...}. Internal failures are logged and
// their details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, op, log.LogFields{log.FieldPath: r.URL.Path})
		msg = "internal server error"
	}
	ErrorResponse(status, msg).Write(w)
}

// parseID reads a positive integer path value.
func parseID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// parseDate reads a YYYY-MM-DD path value.
func parseDate(r *http.Request, name string) (core.Date, error) {
	return core.ParseDate(r.PathValue(name))
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
