package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/core"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid request"
	}
	return fmt.Sprintf("invalid request: %s: %s", v[0].Field, v[0].Message)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errNotFound, fmt.Sprintf(format, args...))
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]any{"fields": validationErrs},
		})
	case errors.Is(err, catalog.ErrUnknownZone),
		errors.Is(err, catalog.ErrUnknownStatus),
		errors.Is(err, errBadRequest):
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errNotFound):
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrLedgerDisabled):
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		var msg string
		switch err.Tag() {
		case "required":
			msg = "is required"
		case "max":
			msg = "must be at most " + err.Param() + " characters"
		case "excludesall":
			msg = "must not contain any of " + fmt.Sprintf("%q", err.Param())
		default:
			msg = fmt.Sprintf("failed %q validation", err.Tag())
		}
		out = append(out, ValidationError{Field: err.Field(), Message: msg})
	}
	return out
}
