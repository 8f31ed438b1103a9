package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvalidState, http.StatusUnprocessableEntity, ErrCodeInvalidState},
}

// WriteServiceError maps a service error to its HTTP status by kind.
// Unclassified errors are logged with a reference id and reported as a generic 500
// so internal details never reach the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			msg := domain.Message(err)
			if msg == "" {
				msg = k.kind.Error()
			}
			WriteJSONError(w, k.status, k.code, msg)
			return
		}
	}
	ref := uuid.NewString()
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "ref", ref, "err", err)
	WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error (ref "+ref+")")
}
