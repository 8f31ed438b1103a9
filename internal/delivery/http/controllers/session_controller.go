package controllers

import (
	"log/slog"
	"net/http"
	"time"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateSessionRequest is the request body for POST /events/{eventID}/sessions.
type CreateSessionRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	SpeakerID   string         `json:"speaker_id"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate implements Validator.
func (c CreateSessionRequest) Validate() []string {
	var errs []string
	if c.StartDate == nil {
		errs = append(errs, "start_date is required")
	}
	if c.EndDate == nil {
		errs = append(errs, "end_date is required")
	}
	if c.SpeakerID == "" {
		errs = append(errs, "speaker_id is required")
	} else if !validID(c.SpeakerID) {
		errs = append(errs, "speaker_id must be a valid UUID")
	}
	return errs
}

// UpdateSessionRequest is the request body for PATCH /sessions/{sessionID}. All fields optional.
type UpdateSessionRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	SpeakerID   *string        `json:"speaker_id"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate implements Validator.
func (u UpdateSessionRequest) Validate() []string {
	var errs []string
	if u.Title == nil && u.Description == nil && u.StartDate == nil && u.EndDate == nil && u.SpeakerID == nil && u.Metadata == nil {
		errs = append(errs, "at least one field is required")
	}
	if u.SpeakerID != nil && !validID(*u.SpeakerID) {
		errs = append(errs, "speaker_id must be a valid UUID")
	}
	return checkInterval(errs, u.StartDate, u.EndDate)
}

// SessionSuccessResponse is the success response envelope for endpoints returning one session.
type SessionSuccessResponse struct {
	Data  *domain.Session `json:"data"`
	Error *h.APIError     `json:"error"`
}

// ListSessionsResponse is the data payload for GET /events/{eventID}/sessions (200).
type ListSessionsResponse struct {
	Items      []*domain.Session `json:"items"`
	Pagination h.PaginationMeta  `json:"pagination"`
}

// ListSessionsSuccessResponse is the success response envelope for GET /events/{eventID}/sessions (200).
type ListSessionsSuccessResponse struct {
	Data  ListSessionsResponse `json:"data"`
	Error *h.APIError          `json:"error"`
}

type SessionController struct {
	Logger  *slog.Logger
	Service domain.SessionService
}

func NewSessionController(logger *slog.Logger, svc domain.SessionService) *SessionController {
	return &SessionController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateSession godoc
// @Summary Create a session in an event
// @Description The session must fit inside the event dates, must not overlap another active session of the event, and its speaker must be an active SPEAKER assistant of the event.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateSessionRequest true "Session data"
// @Success 201 {object} controllers.SessionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (overlapping session)"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_state (event finished)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/sessions [post]
func (c *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateSessionRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	session, err := c.Service.CreateSession(r.Context(), eventID, &domain.SessionInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   *req.StartDate,
		EndDate:     *req.EndDate,
		SpeakerID:   req.SpeakerID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, session)
}

// ListSessions godoc
// @Summary List sessions of an event
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListSessionsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/sessions [get]
func (c *SessionController) ListSessions(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	params, ok := h.ParsePagination(w, r)
	if !ok {
		return
	}
	sessions, total, err := c.Service.ListSessions(r.Context(), eventID, params)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListSessionsResponse{
		Items:      sessions,
		Pagination: h.NewPaginationMeta(params, total),
	})
}

// GetSession godoc
// @Summary Get a session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID (UUID)"
// @Success 200 {object} controllers.SessionSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/{sessionID} [get]
func (c *SessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := c.Service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, session)
}

// UpdateSession godoc
// @Summary Update a session
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID (UUID)"
// @Param body body UpdateSessionRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.SessionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/{sessionID} [patch]
func (c *SessionController) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	var req UpdateSessionRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	session, err := c.Service.UpdateSession(r.Context(), sessionID, domain.SessionUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		SpeakerID:   req.SpeakerID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, session)
}

// DeleteSession godoc
// @Summary Delete a session
// @Tags sessions
// @Security BearerAuth
// @Param sessionID path string true "Session ID (UUID)"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/{sessionID} [delete]
func (c *SessionController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	if err := c.Service.DeleteSession(r.Context(), sessionID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
