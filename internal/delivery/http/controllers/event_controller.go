package controllers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	StartDate      *time.Time     `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
	AssistantLimit int            `json:"assistant_limit"`
	Metadata       map[string]any `json:"metadata"`
}

// Validate implements Validator. Only presence is checked here; business rules live in the service.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.StartDate == nil {
		errs = append(errs, "start_date is required")
	}
	if c.EndDate == nil {
		errs = append(errs, "end_date is required")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	StartDate      *time.Time          `json:"start_date"`
	EndDate        *time.Time          `json:"end_date"`
	Status         *domain.EventStatus `json:"status" swaggertype:"string" enums:"PENDING,IN_PROGRESS,PAUSED,FINISHED"`
	AssistantLimit *int                `json:"assistant_limit"`
	Metadata       map[string]any      `json:"metadata"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.toDomain().IsEmpty() {
		errs = append(errs, "at least one field is required")
	}
	return checkInterval(errs, u.StartDate, u.EndDate)
}

func (u UpdateEventRequest) toDomain() domain.EventUpdate {
	return domain.EventUpdate{
		Title:          u.Title,
		Description:    u.Description,
		StartDate:      u.StartDate,
		EndDate:        u.EndDate,
		Status:         u.Status,
		AssistantLimit: u.AssistantLimit,
		Metadata:       u.Metadata,
	}
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event `json:"data"`
	Error *h.APIError   `json:"error"`
}

// ListEventsResponse is the data payload for GET /events (200).
type ListEventsResponse struct {
	Items      []*domain.Event  `json:"items"`
	Pagination h.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *h.APIError        `json:"error"`
}

// SearchEventsSuccessResponse is the success response envelope for GET /events/search (200). Items keep relevance order.
type SearchEventsSuccessResponse struct {
	Data  []*domain.Event `json:"data"`
	Error *h.APIError     `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event in PENDING status owned by the authenticated user. The assistant limit must be greater than 10 and the dates must not overlap another active event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (overlapping event)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), &domain.EventInput{
		Title:          req.Title,
		Description:    req.Description,
		StartDate:      *req.StartDate,
		EndDate:        *req.EndDate,
		AssistantLimit: req.AssistantLimit,
		Metadata:       req.Metadata,
	}, userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Lists active events ordered by start date.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params, ok := h.ParsePagination(w, r)
	if !ok {
		return
	}
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Items:      events,
		Pagination: h.NewPaginationMeta(params, total),
	})
}

// SearchEvents godoc
// @Summary Full-text event search
// @Description Searches title and description. Results come back in relevance order; events deleted since indexing are skipped.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text (empty matches all)"
// @Param assistant_limit query int false "Exact assistant limit"
// @Param start_date_from query string false "RFC3339 lower bound on start date"
// @Param start_date_to query string false "RFC3339 upper bound on start date"
// @Param assistant_count_min query int false "Minimum active assistants"
// @Param assistant_count_max query int false "Maximum active assistants"
// @Param location query string false "Exact location"
// @Param category query string false "Exact category"
// @Success 200 {object} controllers.SearchEventsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/search [get]
func (c *EventController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, errs := parseSearchFilter(q)
	if len(errs) > 0 {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, strings.Join(errs, "; "))
		return
	}
	events, err := c.Service.Search(r.Context(), q.Get("q"), filter)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

func parseSearchFilter(q url.Values) (domain.SearchFilter, []string) {
	var (
		f    domain.SearchFilter
		errs []string
	)
	intParam := func(name string) *int {
		s := q.Get(name)
		if s == "" {
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, name+" must be an integer")
			return nil
		}
		return &v
	}
	timeParam := func(name string) *time.Time {
		s := q.Get(name)
		if s == "" {
			return nil
		}
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errs = append(errs, name+" must be an RFC3339 timestamp")
			return nil
		}
		return &v
	}
	f.AssistantLimit = intParam("assistant_limit")
	f.AssistantCountMin = intParam("assistant_count_min")
	f.AssistantCountMax = intParam("assistant_count_max")
	f.StartDateFrom = timeParam("start_date_from")
	f.StartDateTo = timeParam("start_date_to")
	f.Location = strings.TrimSpace(q.Get("location"))
	f.Category = strings.TrimSpace(q.Get("category"))
	return f, errs
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEventByID(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Updates event fields and status. Finished events cannot change. Status moves PENDING to IN_PROGRESS or PAUSED, IN_PROGRESS to PAUSED or FINISHED, PAUSED to IN_PROGRESS or FINISHED.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_state (event finished)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, req.toDomain())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Soft-deletes the event and drops it from search.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
