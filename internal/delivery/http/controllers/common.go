package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
)

// pathValue reads a required path value. On failure it writes 400 and returns false.
func pathValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.PathValue(name)
	if v == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	return v, true
}

// pathID is pathValue for entity ids, which must be UUIDs.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, ok := pathValue(w, r, name)
	if !ok {
		return "", false
	}
	if !validID(id) {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, name+" must be a valid UUID")
		return "", false
	}
	return id, true
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// callerID returns the authenticated user id. On failure it writes 401 and returns false.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}

// checkInterval validates an optional start/end pair supplied together in a request body.
func checkInterval(errs []string, start, end *time.Time) []string {
	if start != nil && end != nil && end.Before(*start) {
		errs = append(errs, "end_date must not be before start_date")
	}
	return errs
}
