package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventhub/internal/domain"
)

// Template names under internal/adapters/email/templates.
const (
	templateWelcome               = "welcome"
	templateEventFull             = "event_full"
	templateAssistantRemovedOwner = "assistant_removed_owner"
	templateAssistantRemoved      = "assistant_removed"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

func (s *emailService) SendWelcome(ctx context.Context, data *domain.WelcomeEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome email data is nil")
	}
	return s.send(ctx, templateWelcome, data.Email, data)
}

func (s *emailService) SendEventFull(ctx context.Context, data *domain.EventFullEmailData) error {
	if data == nil {
		return fmt.Errorf("event full email data is nil")
	}
	return s.send(ctx, templateEventFull, data.Email, data)
}

func (s *emailService) SendAssistantRemovedOwner(ctx context.Context, data *domain.AssistantRemovedEmailData) error {
	if data == nil {
		return fmt.Errorf("assistant removed email data is nil")
	}
	return s.send(ctx, templateAssistantRemovedOwner, data.Email, data)
}

func (s *emailService) SendAssistantRemoved(ctx context.Context, data *domain.AssistantRemovedEmailData) error {
	if data == nil {
		return fmt.Errorf("assistant removed email data is nil")
	}
	return s.send(ctx, templateAssistantRemoved, data.Email, data)
}

func (s *emailService) send(ctx context.Context, template, to string, data any) error {
	if to == "" {
		return fmt.Errorf("%s email: missing recipient", template)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("render %s template: %w", template, err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %s email: %w", template, err)
	}
	s.logger.DebugContext(ctx, "email sent", "template", template, "to", to)
	return nil
}
