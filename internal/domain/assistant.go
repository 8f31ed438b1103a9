package domain

import (
	"context"
	"fmt"
	"time"
)

// AssistantType is the role an assistant plays at an event.
type AssistantType int

const (
	AssistantStaff AssistantType = iota
	AssistantSpeaker
	AssistantMaintenance
	AssistantUser
	AssistantOwner
)

var assistantTypeNames = [...]string{"STAFF", "SPEAKER", "MAINTENANCE", "USER", "OWNER"}

func (t AssistantType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("AssistantType(%d)", int(t))
	}
	return assistantTypeNames[t]
}

// Valid reports whether t is a known type.
func (t AssistantType) Valid() bool {
	return t >= AssistantStaff && t <= AssistantOwner
}

// ParseAssistantType parses the upper-case type name.
func ParseAssistantType(name string) (AssistantType, error) {
	for i, n := range assistantTypeNames {
		if n == name {
			return AssistantType(i), nil
		}
	}
	return 0, Validationf("unknown assistant type %q", name)
}

func (t AssistantType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid assistant type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *AssistantType) UnmarshalText(b []byte) error {
	v, err := ParseAssistantType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Assistant is a person registered to an event
// swagger:model Assistant
type Assistant struct {
	ID              string         `json:"id"`
	EventID         string         `json:"event_id"`
	UserID          *string        `json:"user_id"`
	Email           string         `json:"email"`
	FullName        string         `json:"full_name"`
	Type            AssistantType  `json:"type" swaggertype:"string" enums:"STAFF,SPEAKER,MAINTENANCE,USER,OWNER"`
	ContactMetadata map[string]any `json:"contact_metadata"`
	Metadata        map[string]any `json:"metadata"`
	Active          bool           `json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AssistantInput is the payload for CreateAssistant.
type AssistantInput struct {
	Email           string
	FullName        string
	Type            AssistantType
	ContactMetadata map[string]any
	Metadata        map[string]any
}

// AssistantUpdate carries the fields to change; nil means untouched.
type AssistantUpdate struct {
	Email           *string
	FullName        *string
	Type            *AssistantType
	ContactMetadata map[string]any
	Metadata        map[string]any
}

// AssistantRepository defines the interface for assistant storage. Reads only see active assistants.
type AssistantRepository interface {
	Create(ctx context.Context, a *Assistant) error
	GetByID(ctx context.Context, id string) (*Assistant, error)
	ListByEvent(ctx context.Context, eventID string, params PaginationParams) ([]*Assistant, int, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	Update(ctx context.Context, a *Assistant) error
	SoftDelete(ctx context.Context, id string) error
}

// AssistantService defines the business logic for event assistants.
type AssistantService interface {
	CreateAssistant(ctx context.Context, eventID string, input *AssistantInput) (*Assistant, error)
	GetAssistant(ctx context.Context, id string) (*Assistant, error)
	ListAssistants(ctx context.Context, eventID string, params PaginationParams) ([]*Assistant, int, error)
	UpdateAssistant(ctx context.Context, id string, upd AssistantUpdate) (*Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
}
