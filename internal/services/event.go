package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	sessionRepo    domain.SessionRepository
	assistantRepo  domain.AssistantRepository
	userRepo       domain.UserRepository
	index          domain.EventIndex
	locker         domain.ScheduleLocker
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	sessionRepo domain.SessionRepository,
	assistantRepo domain.AssistantRepository,
	userRepo domain.UserRepository,
	index domain.EventIndex,
	locker domain.ScheduleLocker,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		sessionRepo:    sessionRepo,
		assistantRepo:  assistantRepo,
		userRepo:       userRepo,
		index:          index,
		locker:         locker,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func validateEventFields(title, description string, start, end time.Time, limit int) error {
	if err := domain.ValidateTitle(title); err != nil {
		return err
	}
	if err := domain.ValidateDescription(description); err != nil {
		return err
	}
	if end.Before(start) {
		return domain.Validationf("end_date must not be before start_date")
	}
	if limit <= domain.MinAssistantLimit {
		return domain.Validationf("assistant_limit must be greater than %d", domain.MinAssistantLimit)
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, input *domain.EventInput, creatorID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input == nil {
		return nil, domain.Validationf("event is required")
	}
	if creatorID == "" {
		return nil, domain.Validationf("event creator is required")
	}
	if err := validateEventFields(input.Title, input.Description, input.StartDate, input.EndDate, input.AssistantLimit); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, domain.EventsLockScope)
	if err != nil {
		return nil, fmt.Errorf("acquire schedule lock: %w", err)
	}
	defer release()

	if err := s.checkOverlap(ctx, input.StartDate, input.EndDate, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event := &domain.Event{
		Title:          input.Title,
		Description:    input.Description,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         domain.EventStatusPending,
		Active:         true,
		AssistantLimit: input.AssistantLimit,
		Metadata:       input.Metadata,
		CreatedByID:    creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.reindex(ctx, event)
	return event, nil
}

// checkOverlap fails with a conflict when [start, end] intersects another active event.
func (s *eventService) checkOverlap(ctx context.Context, start, end time.Time, excludeID string) error {
	candidates, err := s.eventRepo.ListOverlapping(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list overlapping events: %w", err)
	}
	if domain.ConflictsWith(start, end, domain.EventIntervals(candidates), excludeID) {
		return domain.Conflictf("event dates overlap with another active event")
	}
	return nil
}

func (s *eventService) getActive(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("event %s not found", id)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.getActive(ctx, id)
}

func (s *eventService) ListEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.IsEmpty() {
		return event, nil
	}
	if event.Status == domain.EventStatusFinished {
		return nil, domain.InvalidStatef("event is finished")
	}

	next := *event
	if upd.Title != nil {
		next.Title = *upd.Title
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.StartDate != nil {
		next.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		next.EndDate = *upd.EndDate
	}
	if upd.AssistantLimit != nil {
		next.AssistantLimit = *upd.AssistantLimit
	}
	if upd.Metadata != nil {
		next.Metadata = upd.Metadata
	}
	if err := validateEventFields(next.Title, next.Description, next.StartDate, next.EndDate, next.AssistantLimit); err != nil {
		return nil, err
	}
	if upd.Status != nil {
		if err := domain.ValidateTransition(event.Status, *upd.Status); err != nil {
			return nil, err
		}
		next.Status = *upd.Status
	}

	if upd.DatesChanged() {
		release, err := s.locker.Acquire(ctx, domain.EventsLockScope)
		if err != nil {
			return nil, fmt.Errorf("acquire schedule lock: %w", err)
		}
		defer release()

		// Lock order is events, then the event's sessions scope. Session writers only take the latter.
		releaseSessions, err := s.locker.Acquire(ctx, domain.SessionsLockScope(event.ID))
		if err != nil {
			return nil, fmt.Errorf("acquire schedule lock: %w", err)
		}
		defer releaseSessions()

		if err := s.checkOverlap(ctx, next.StartDate, next.EndDate, event.ID); err != nil {
			return nil, err
		}
		if err := s.checkSessionsFit(ctx, &next); err != nil {
			return nil, err
		}
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.eventRepo.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("event %s not found", id)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.reindex(ctx, &next)
	return &next, nil
}

// checkSessionsFit keeps every active session inside the event interval.
func (s *eventService) checkSessionsFit(ctx context.Context, event *domain.Event) error {
	sessions, err := s.sessionRepo.ListAllByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, sess := range sessions {
		if !domain.Within(sess.StartDate, sess.EndDate, event.StartDate, event.EndDate) {
			return domain.Conflictf("session %q would fall outside the event dates", sess.Title)
		}
	}
	return nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getActive(ctx, id); err != nil {
		return err
	}
	if err := s.eventRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundf("event %s not found", id)
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "remove event from search index", "event_id", id, "err", err)
	}
	return nil
}

func (s *eventService) Search(ctx context.Context, text string, filter domain.SearchFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := s.index.Search(ctx, text, filter)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	events := make([]*domain.Event, 0, len(ids))
	for _, id := range ids {
		e, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// stale index entry
				continue
			}
			return nil, fmt.Errorf("get event %s: %w", id, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *eventService) IsFull(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getActive(ctx, id)
	if err != nil {
		return false, err
	}
	count, err := s.assistantRepo.CountByEvent(ctx, id)
	if err != nil {
		return false, fmt.Errorf("count assistants: %w", err)
	}
	return domain.IsFull(count, event.AssistantLimit), nil
}

func (s *eventService) GetTitle(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getActive(ctx, id)
	if err != nil {
		return "", err
	}
	return event.Title, nil
}

func (s *eventService) GetCreatorEmail(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getActive(ctx, id)
	if err != nil {
		return "", err
	}
	creator, err := s.userRepo.GetByID(ctx, event.CreatedByID)
	if err != nil {
		return "", fmt.Errorf("get event creator: %w", err)
	}
	return creator.Email, nil
}

func (s *eventService) RefreshIndex(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getActive(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh search index", "event_id", id, "err", err)
		return
	}
	s.reindex(ctx, event)
}

// reindex pushes the event to the search index. Failures are logged, never returned.
func (s *eventService) reindex(ctx context.Context, event *domain.Event) {
	count, err := s.assistantRepo.CountByEvent(ctx, event.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "count assistants for index", "event_id", event.ID, "err", err)
		return
	}
	if err := s.index.Index(ctx, domain.NewEventDocument(event, count)); err != nil {
		s.logger.WarnContext(ctx, "index event", "event_id", event.ID, "err", err)
	}
}
