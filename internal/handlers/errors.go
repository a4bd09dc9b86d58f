package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// Client-facing messages.
const (
	MsgInvalidJSON         = "invalid json"
	MsgMissingFields       = "All fields are required"
	MsgValidationFailed    = "validation failed"
	MsgLoginFieldsRequired = "Username and password are required"
	MsgConflict            = "Username, email, or external ID already exists"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgUnauthorized        = "Unauthorized"
	MsgUserNotFound        = "User not found"
)

// ValidationError reports missing or malformed input (400).
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a duplicate unique field (409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthError reports bad credentials or a missing, invalid or expired session (401).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NotFoundError reports a referenced record that no longer exists (404).
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// writeError maps err onto the error taxonomy. Anything unclassified is logged
// with the request id and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve *ValidationError
		ce *ConflictError
		ae *AuthError
		ne *NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		JSONValidationError(w, ve.Message, ve.Fields, http.StatusBadRequest)
	case errors.As(err, &ce):
		JSONError(w, ce.Message, http.StatusConflict)
	case errors.As(err, &ae):
		JSONError(w, ae.Message, http.StatusUnauthorized)
	case errors.As(err, &ne):
		JSONError(w, ne.Message, http.StatusNotFound)
	default:
		slog.ErrorContext(r.Context(), op+" failed",
			"request_id", chimw.GetReqID(r.Context()),
			"error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	out := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	json.NewEncoder(w).Encode(out)
}
