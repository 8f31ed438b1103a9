package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/domain"
)

type sessionService struct {
	sessionRepo    domain.SessionRepository
	eventRepo      domain.EventRepository
	assistantRepo  domain.AssistantRepository
	locker         domain.ScheduleLocker
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewSessionService(sessionRepo domain.SessionRepository,
	eventRepo domain.EventRepository,
	assistantRepo domain.AssistantRepository,
	locker domain.ScheduleLocker,
	logger *slog.Logger,
	timeout time.Duration,
) domain.SessionService {
	return &sessionService{
		sessionRepo:    sessionRepo,
		eventRepo:      eventRepo,
		assistantRepo:  assistantRepo,
		locker:         locker,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// openEvent loads an active event that still accepts schedule changes.
func (s *sessionService) openEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("event %s not found", eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status == domain.EventStatusFinished {
		return nil, domain.InvalidStatef("event is finished")
	}
	return event, nil
}

// validateSpeaker requires an active SPEAKER assistant of the same event.
func (s *sessionService) validateSpeaker(ctx context.Context, eventID, speakerID string) error {
	if speakerID == "" {
		return domain.Validationf("speaker_id is required")
	}
	a, err := s.assistantRepo.GetByID(ctx, speakerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validationf("speaker %s not found", speakerID)
		}
		return fmt.Errorf("get speaker: %w", err)
	}
	if a.EventID != eventID {
		return domain.Validationf("speaker %s is not registered to this event", speakerID)
	}
	if a.Type != domain.AssistantSpeaker {
		return domain.Validationf("assistant %s is not a speaker", speakerID)
	}
	return nil
}

func validateSessionDates(start, end time.Time, event *domain.Event) error {
	if end.Before(start) {
		return domain.Validationf("end_date must not be before start_date")
	}
	if !domain.Within(start, end, event.StartDate, event.EndDate) {
		return domain.Validationf("session must take place within the event dates")
	}
	return nil
}

func (s *sessionService) checkOverlap(ctx context.Context, eventID string, start, end time.Time, excludeID string) error {
	candidates, err := s.sessionRepo.ListOverlapping(ctx, eventID, start, end)
	if err != nil {
		return fmt.Errorf("list overlapping sessions: %w", err)
	}
	if domain.ConflictsWith(start, end, domain.SessionIntervals(candidates), excludeID) {
		return domain.Conflictf("session dates overlap with another active session")
	}
	return nil
}

func (s *sessionService) CreateSession(ctx context.Context, eventID string, input *domain.SessionInput) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input == nil {
		return nil, domain.Validationf("session is required")
	}
	if _, err := s.openEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if err := domain.ValidateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.SpeakerID == "" {
		return nil, domain.Validationf("speaker_id is required")
	}

	release, err := s.locker.Acquire(ctx, domain.SessionsLockScope(eventID))
	if err != nil {
		return nil, fmt.Errorf("acquire schedule lock: %w", err)
	}
	defer release()

	// Parent interval and speaker are read under the lock. UpdateEvent and speaker
	// removal hold the same scope.
	event, err := s.openEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := validateSessionDates(input.StartDate, input.EndDate, event); err != nil {
		return nil, err
	}
	if err := s.validateSpeaker(ctx, eventID, input.SpeakerID); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, eventID, input.StartDate, input.EndDate, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		EventID:     eventID,
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Active:      true,
		Metadata:    input.Metadata,
		SpeakerID:   input.SpeakerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if session.Metadata == nil {
		session.Metadata = map[string]any{}
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *sessionService) getActive(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("session %s not found", id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.getActive(ctx, id)
}

func (s *sessionService) ListSessions(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Session, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.NotFoundf("event %s not found", eventID)
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	sessions, total, err := s.sessionRepo.ListByEvent(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return sessions, total, nil
}

func (s *sessionService) UpdateSession(ctx context.Context, id string, upd domain.SessionUpdate) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	session, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.openEvent(ctx, session.EventID); err != nil {
		return nil, err
	}

	next := *session
	if upd.Title != nil {
		if err := domain.ValidateTitle(*upd.Title); err != nil {
			return nil, err
		}
		next.Title = *upd.Title
	}
	if upd.Description != nil {
		if err := domain.ValidateDescription(*upd.Description); err != nil {
			return nil, err
		}
		next.Description = *upd.Description
	}
	if upd.StartDate != nil {
		next.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		next.EndDate = *upd.EndDate
	}
	if upd.DatesChanged() && next.EndDate.Before(next.StartDate) {
		return nil, domain.Validationf("end_date must not be before start_date")
	}
	if upd.SpeakerID != nil {
		next.SpeakerID = *upd.SpeakerID
	}
	if upd.Metadata != nil {
		next.Metadata = upd.Metadata
	}

	if upd.DatesChanged() || upd.SpeakerID != nil {
		release, err := s.locker.Acquire(ctx, domain.SessionsLockScope(session.EventID))
		if err != nil {
			return nil, fmt.Errorf("acquire schedule lock: %w", err)
		}
		defer release()

		if upd.SpeakerID != nil {
			if err := s.validateSpeaker(ctx, session.EventID, next.SpeakerID); err != nil {
				return nil, err
			}
		}
		if upd.DatesChanged() {
			event, err := s.openEvent(ctx, session.EventID)
			if err != nil {
				return nil, err
			}
			if err := validateSessionDates(next.StartDate, next.EndDate, event); err != nil {
				return nil, err
			}
			if err := s.checkOverlap(ctx, session.EventID, next.StartDate, next.EndDate, session.ID); err != nil {
				return nil, err
			}
		}
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.sessionRepo.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("session %s not found", id)
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return &next, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	session, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.openEvent(ctx, session.EventID); err != nil {
		return err
	}
	if err := s.sessionRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundf("session %s not found", id)
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
