package domain

import (
	"context"
	"time"
)

// Session is a talk or slot inside an event
// swagger:model Session
type Session struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Active      bool           `json:"active"`
	Metadata    map[string]any `json:"metadata"`
	SpeakerID   string         `json:"speaker_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SessionInput is the payload for CreateSession.
type SessionInput struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	SpeakerID   string
	Metadata    map[string]any
}

// SessionUpdate carries the fields to change; nil means untouched.
type SessionUpdate struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	SpeakerID   *string
	Metadata    map[string]any
}

// DatesChanged reports whether the update touches the session interval.
func (u SessionUpdate) DatesChanged() bool {
	return u.StartDate != nil || u.EndDate != nil
}

// SessionRepository defines the interface for session storage. Reads only see active sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListByEvent(ctx context.Context, eventID string, params PaginationParams) ([]*Session, int, error)
	// ListAllByEvent returns every active session of the event, unpaginated.
	ListAllByEvent(ctx context.Context, eventID string) ([]*Session, error)
	// ListOverlapping returns active sessions of the event whose interval intersects [start, end].
	ListOverlapping(ctx context.Context, eventID string, start, end time.Time) ([]*Session, error)
	CountBySpeaker(ctx context.Context, speakerID string) (int, error)
	Update(ctx context.Context, session *Session) error
	SoftDelete(ctx context.Context, id string) error
}

// SessionService defines the business logic for sessions.
type SessionService interface {
	CreateSession(ctx context.Context, eventID string, input *SessionInput) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, eventID string, params PaginationParams) ([]*Session, int, error)
	UpdateSession(ctx context.Context, id string, upd SessionUpdate) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}
