package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateAssistantRequest is the request body for POST /events/{eventID}/assistants.
type CreateAssistantRequest struct {
	Email           string                `json:"email"`
	FullName        string                `json:"full_name"`
	Type            *domain.AssistantType `json:"type" swaggertype:"string" enums:"STAFF,SPEAKER,MAINTENANCE,USER,OWNER"`
	ContactMetadata map[string]any        `json:"contact_metadata"`
	Metadata        map[string]any        `json:"metadata"`
}

// Validate implements Validator.
func (c CreateAssistantRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	if c.Type == nil {
		errs = append(errs, "type is required")
	}
	return errs
}

// UpdateAssistantRequest is the request body for PATCH /assistants/{assistantID}. All fields optional.
type UpdateAssistantRequest struct {
	Email           *string               `json:"email"`
	FullName        *string               `json:"full_name"`
	Type            *domain.AssistantType `json:"type" swaggertype:"string" enums:"STAFF,SPEAKER,MAINTENANCE,USER,OWNER"`
	ContactMetadata map[string]any        `json:"contact_metadata"`
	Metadata        map[string]any        `json:"metadata"`
}

// Validate implements Validator.
func (u UpdateAssistantRequest) Validate() []string {
	if u.Email == nil && u.FullName == nil && u.Type == nil && u.ContactMetadata == nil && u.Metadata == nil {
		return []string{"at least one field is required"}
	}
	return nil
}

// AssistantSuccessResponse is the success response envelope for endpoints returning one assistant.
type AssistantSuccessResponse struct {
	Data  *domain.Assistant `json:"data"`
	Error *h.APIError       `json:"error"`
}

// ListAssistantsResponse is the data payload for GET /events/{eventID}/assistants (200).
type ListAssistantsResponse struct {
	Items      []*domain.Assistant `json:"items"`
	Pagination h.PaginationMeta    `json:"pagination"`
}

// ListAssistantsSuccessResponse is the success response envelope for GET /events/{eventID}/assistants (200).
type ListAssistantsSuccessResponse struct {
	Data  ListAssistantsResponse `json:"data"`
	Error *h.APIError            `json:"error"`
}

type AssistantController struct {
	Logger  *slog.Logger
	Service domain.AssistantService
}

func NewAssistantController(logger *slog.Logger, svc domain.AssistantService) *AssistantController {
	return &AssistantController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateAssistant godoc
// @Summary Register an assistant to an event
// @Description contact_metadata must include phone; SPEAKER assistants need metadata.theme. When the event is full the creator is warned by email and the request fails with 409.
// @Tags assistants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateAssistantRequest true "Assistant data"
// @Success 201 {object} controllers.AssistantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event is full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/assistants [post]
func (c *AssistantController) CreateAssistant(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateAssistantRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	a, err := c.Service.CreateAssistant(r.Context(), eventID, &domain.AssistantInput{
		Email:           req.Email,
		FullName:        req.FullName,
		Type:            *req.Type,
		ContactMetadata: req.ContactMetadata,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, a)
}

// ListAssistants godoc
// @Summary List assistants of an event
// @Tags assistants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListAssistantsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/assistants [get]
func (c *AssistantController) ListAssistants(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	params, ok := h.ParsePagination(w, r)
	if !ok {
		return
	}
	items, total, err := c.Service.ListAssistants(r.Context(), eventID, params)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.Assistant{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListAssistantsResponse{
		Items:      items,
		Pagination: h.NewPaginationMeta(params, total),
	})
}

// GetAssistant godoc
// @Summary Get an assistant
// @Tags assistants
// @Produce json
// @Security BearerAuth
// @Param assistantID path string true "Assistant ID (UUID)"
// @Success 200 {object} controllers.AssistantSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /assistants/{assistantID} [get]
func (c *AssistantController) GetAssistant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assistantID")
	if !ok {
		return
	}
	a, err := c.Service.GetAssistant(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, a)
}

// UpdateAssistant godoc
// @Summary Update an assistant
// @Description A SPEAKER who still speaks at an active session cannot change type.
// @Tags assistants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assistantID path string true "Assistant ID (UUID)"
// @Param body body UpdateAssistantRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.AssistantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /assistants/{assistantID} [patch]
func (c *AssistantController) UpdateAssistant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assistantID")
	if !ok {
		return
	}
	var req UpdateAssistantRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	a, err := c.Service.UpdateAssistant(r.Context(), id, domain.AssistantUpdate{
		Email:           req.Email,
		FullName:        req.FullName,
		Type:            req.Type,
		ContactMetadata: req.ContactMetadata,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, a)
}

// DeleteAssistant godoc
// @Summary Remove an assistant from an event
// @Description Soft-deletes the assistant. The event creator and the assistant are notified by email.
// @Tags assistants
// @Security BearerAuth
// @Param assistantID path string true "Assistant ID (UUID)"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /assistants/{assistantID} [delete]
func (c *AssistantController) DeleteAssistant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assistantID")
	if !ok {
		return
	}
	if err := c.Service.DeleteAssistant(r.Context(), id); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
