package domain

import (
	"context"
	"time"
)

// MinAssistantLimit is exclusive: an event must allow more than this many assistants.
const MinAssistantLimit = 10

// Event represents a scheduled event
// swagger:model Event
type Event struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	Status         EventStatus    `json:"status" swaggertype:"string" enums:"PENDING,IN_PROGRESS,PAUSED,FINISHED"`
	Active         bool           `json:"active"`
	AssistantLimit int            `json:"assistant_limit"`
	Metadata       map[string]any `json:"metadata"`
	CreatedByID    string         `json:"created_by_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Location returns metadata.location, used for search filtering.
func (e *Event) Location() string {
	s, _ := e.Metadata["location"].(string)
	return s
}

// Category returns metadata.category, used for search filtering.
func (e *Event) Category() string {
	s, _ := e.Metadata["category"].(string)
	return s
}

// EventInput is the payload for CreateEvent.
type EventInput struct {
	Title          string
	Description    string
	StartDate      time.Time
	EndDate        time.Time
	AssistantLimit int
	Metadata       map[string]any
}

// EventUpdate carries the fields to change; nil means untouched.
type EventUpdate struct {
	Title          *string
	Description    *string
	StartDate      *time.Time
	EndDate        *time.Time
	Status         *EventStatus
	AssistantLimit *int
	Metadata       map[string]any
}

// IsEmpty reports whether no field is present.
func (u EventUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.StartDate == nil && u.EndDate == nil &&
		u.Status == nil && u.AssistantLimit == nil && u.Metadata == nil
}

// DatesChanged reports whether the update touches the event interval.
func (u EventUpdate) DatesChanged() bool {
	return u.StartDate != nil || u.EndDate != nil
}

// IsFull reports whether activeCount exceeds limit. count == limit is not full.
func IsFull(activeCount, limit int) bool {
	return activeCount > limit
}

// SearchFilter narrows a full-text event search. Zero values are ignored.
type SearchFilter struct {
	AssistantLimit    *int
	StartDateFrom     *time.Time
	StartDateTo       *time.Time
	AssistantCountMin *int
	AssistantCountMax *int
	Location          string
	Category          string
}

// EventDocument is the search-index representation of an event.
type EventDocument struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Status         string    `json:"status"`
	AssistantLimit int       `json:"assistant_limit"`
	AssistantCount int       `json:"assistant_count"`
	Location       string    `json:"location,omitempty"`
	Category       string    `json:"category,omitempty"`
}

// NewEventDocument builds the index document for e.
func NewEventDocument(e *Event, assistantCount int) *EventDocument {
	return &EventDocument{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		Status:         e.Status.String(),
		AssistantLimit: e.AssistantLimit,
		AssistantCount: assistantCount,
		Location:       e.Location(),
		Category:       e.Category(),
	}
}

// EventIndex is the full-text search collaborator. Search returns ids in rank order.
type EventIndex interface {
	Search(ctx context.Context, text string, filter SearchFilter) ([]string, error)
	Index(ctx context.Context, doc *EventDocument) error
	Remove(ctx context.Context, id string) error
}

// EventRepository defines the interface for event storage. Reads only see active events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	// ListOverlapping returns active events whose interval intersects [start, end].
	ListOverlapping(ctx context.Context, start, end time.Time) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	SoftDelete(ctx context.Context, id string) error
}

// EventService defines the business logic for events.
type EventService interface {
	CreateEvent(ctx context.Context, input *EventInput, creatorID string) (*Event, error)
	GetEventByID(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	Search(ctx context.Context, text string, filter SearchFilter) ([]*Event, error)
	IsFull(ctx context.Context, id string) (bool, error)
	GetTitle(ctx context.Context, id string) (string, error)
	GetCreatorEmail(ctx context.Context, id string) (string, error)
	// RefreshIndex re-pushes the event to the search index, logging failures.
	RefreshIndex(ctx context.Context, id string)
}
