package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type assistantService struct {
	assistantRepo  domain.AssistantRepository
	sessionRepo    domain.SessionRepository
	userRepo       domain.UserRepository
	events         domain.EventService
	emailService   domain.EmailService
	locker         domain.ScheduleLocker
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewAssistantService(assistantRepo domain.AssistantRepository,
	sessionRepo domain.SessionRepository,
	userRepo domain.UserRepository,
	events domain.EventService,
	emailService domain.EmailService,
	locker domain.ScheduleLocker,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AssistantService {
	return &assistantService{
		assistantRepo:  assistantRepo,
		sessionRepo:    sessionRepo,
		userRepo:       userRepo,
		events:         events,
		emailService:   emailService,
		locker:         locker,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func validateAssistant(a *domain.Assistant) error {
	if err := domain.ValidateEmail(a.Email); err != nil {
		return err
	}
	if err := domain.ValidateFullName(a.FullName); err != nil {
		return err
	}
	if !a.Type.Valid() {
		return domain.Validationf("unknown assistant type %d", int(a.Type))
	}
	if err := domain.RequireKeys("contact_metadata", a.ContactMetadata, "phone"); err != nil {
		return err
	}
	if a.Type == domain.AssistantSpeaker {
		if err := domain.RequireKeys("metadata", a.Metadata, "theme"); err != nil {
			return err
		}
	}
	return nil
}

// linkedUserID resolves the registered user with the given email, if any.
func (s *assistantService) linkedUserID(ctx context.Context, email string) (*string, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve user by email: %w", err)
	}
	return &u.ID, nil
}

func (s *assistantService) CreateAssistant(ctx context.Context, eventID string, input *domain.AssistantInput) (*domain.Assistant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input == nil {
		return nil, domain.Validationf("assistant is required")
	}
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	a := &domain.Assistant{
		EventID:         eventID,
		Email:           strings.TrimSpace(input.Email),
		FullName:        strings.TrimSpace(input.FullName),
		Type:            input.Type,
		ContactMetadata: input.ContactMetadata,
		Metadata:        input.Metadata,
		Active:          true,
	}
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if err := validateAssistant(a); err != nil {
		return nil, err
	}
	if a.UserID, err = s.linkedUserID(ctx, a.Email); err != nil {
		return nil, err
	}

	full, err := s.events.IsFull(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if full {
		s.notifyEventFull(ctx, event)
		return nil, domain.ErrEventFull
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.assistantRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	s.events.RefreshIndex(ctx, eventID)
	return a, nil
}

func (s *assistantService) notifyEventFull(ctx context.Context, event *domain.Event) {
	to, err := s.events.GetCreatorEmail(ctx, event.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "event full notification: resolve creator", "event_id", event.ID, "err", err)
		return
	}
	err = s.emailService.SendEventFull(ctx, &domain.EventFullEmailData{
		Email:          to,
		EventTitle:     event.Title,
		AssistantLimit: event.AssistantLimit,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "event full notification", "event_id", event.ID, "err", err)
	}
}

func (s *assistantService) getActive(ctx context.Context, id string) (*domain.Assistant, error) {
	a, err := s.assistantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("assistant %s not found", id)
		}
		return nil, fmt.Errorf("get assistant: %w", err)
	}
	return a, nil
}

func (s *assistantService) GetAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.getActive(ctx, id)
}

func (s *assistantService) ListAssistants(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Assistant, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.events.GetEventByID(ctx, eventID); err != nil {
		return nil, 0, err
	}
	out, total, err := s.assistantRepo.ListByEvent(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list assistants: %w", err)
	}
	if out == nil {
		out = []*domain.Assistant{}
	}
	return out, total, nil
}

func (s *assistantService) UpdateAssistant(ctx context.Context, id string, upd domain.AssistantUpdate) (*domain.Assistant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	a, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.GetEventByID(ctx, a.EventID); err != nil {
		return nil, err
	}

	next := *a
	if upd.Email != nil {
		next.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.FullName != nil {
		next.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Type != nil {
		next.Type = *upd.Type
	}
	if upd.ContactMetadata != nil {
		next.ContactMetadata = upd.ContactMetadata
	}
	if upd.Metadata != nil {
		next.Metadata = upd.Metadata
	}
	if err := validateAssistant(&next); err != nil {
		return nil, err
	}
	if a.Type == domain.AssistantSpeaker && next.Type != domain.AssistantSpeaker {
		release, err := s.ensureNotSpeaking(ctx, a)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	if next.Email != a.Email {
		if next.UserID, err = s.linkedUserID(ctx, next.Email); err != nil {
			return nil, err
		}
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.assistantRepo.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("assistant %s not found", id)
		}
		return nil, fmt.Errorf("update assistant: %w", err)
	}
	return &next, nil
}

func (s *assistantService) DeleteAssistant(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	a, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}
	if a.Type == domain.AssistantSpeaker {
		release, err := s.ensureNotSpeaking(ctx, a)
		if err != nil {
			return err
		}
		defer release()
	}
	if err := s.assistantRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundf("assistant %s not found", id)
		}
		return fmt.Errorf("delete assistant: %w", err)
	}
	s.events.RefreshIndex(ctx, a.EventID)
	s.notifyRemoved(ctx, a)
	return nil
}

// ensureNotSpeaking fails with a conflict while the speaker holds active sessions.
// On success the event's sessions scope stays locked until release is called,
// so no session can pick this speaker before the change is written.
func (s *assistantService) ensureNotSpeaking(ctx context.Context, a *domain.Assistant) (func(), error) {
	release, err := s.locker.Acquire(ctx, domain.SessionsLockScope(a.EventID))
	if err != nil {
		return nil, fmt.Errorf("acquire schedule lock: %w", err)
	}
	n, err := s.sessionRepo.CountBySpeaker(ctx, a.ID)
	if err != nil {
		release()
		return nil, fmt.Errorf("count speaker sessions: %w", err)
	}
	if n > 0 {
		release()
		return nil, domain.Conflictf("assistant is the speaker of %d active sessions", n)
	}
	return release, nil
}

// notifyRemoved tells the event creator and the assistant. Failures are logged only.
func (s *assistantService) notifyRemoved(ctx context.Context, a *domain.Assistant) {
	title, err := s.events.GetTitle(ctx, a.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "assistant removed notification: event title", "event_id", a.EventID, "err", err)
		return
	}
	data := domain.AssistantRemovedEmailData{EventTitle: title, AssistantName: a.FullName}

	if owner, err := s.events.GetCreatorEmail(ctx, a.EventID); err != nil {
		s.logger.WarnContext(ctx, "assistant removed notification: resolve creator", "event_id", a.EventID, "err", err)
	} else {
		ownerData := data
		ownerData.Email = owner
		if err := s.emailService.SendAssistantRemovedOwner(ctx, &ownerData); err != nil {
			s.logger.WarnContext(ctx, "assistant removed notification to owner", "assistant_id", a.ID, "err", err)
		}
	}

	personal := data
	personal.Email = a.Email
	if err := s.emailService.SendAssistantRemoved(ctx, &personal); err != nil {
		s.logger.WarnContext(ctx, "assistant removed notification to assistant", "assistant_id", a.ID, "err", err)
	}
}
