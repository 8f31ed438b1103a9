package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email.
type WelcomeEmailData struct {
	Email    string
	FullName string
}

// EventFullEmailData holds data for the capacity warning sent to an event creator.
type EventFullEmailData struct {
	Email          string
	EventTitle     string
	AssistantLimit int
}

// AssistantRemovedEmailData holds data for the removal notices.
type AssistantRemovedEmailData struct {
	Email         string
	EventTitle    string
	AssistantName string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcome(ctx context.Context, data *WelcomeEmailData) error
	SendEventFull(ctx context.Context, data *EventFullEmailData) error
	// SendAssistantRemovedOwner tells the event creator an assistant was removed.
	SendAssistantRemovedOwner(ctx context.Context, data *AssistantRemovedEmailData) error
	// SendAssistantRemoved tells the assistant they were removed.
	SendAssistantRemoved(ctx context.Context, data *AssistantRemovedEmailData) error
}
