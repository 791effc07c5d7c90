package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

var ErrEmailNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

// EmailService sends transactional mail through Resend. In development it
// only logs what would have been sent.
type EmailService struct {
	client  *resend.Client
	from    string
	appURL  string
	appName string
	dryRun  bool
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	s := &EmailService{from: fromEmail, appURL: appURL, appName: appName, dryRun: isDev}
	if apiKey != "" && !isDev {
		s.client = resend.NewClient(apiKey)
	}
	return s
}

func (s *EmailService) SendConfirmationEmail(ctx context.Context, to, token, name string) error {
	return s.deliver(ctx, to, "confirm_email", emailData{
		Name: name,
		URL:  s.appURL + "/auth/confirm/" + token,
	})
}

func (s *EmailService) SendPasswordResetEmail(ctx context.Context, to, token, name string) error {
	return s.deliver(ctx, to, "password_reset", emailData{
		Name: name,
		URL:  s.appURL + "/auth/password/reset/" + token,
	})
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, name, role string) error {
	return s.deliver(ctx, to, "welcome", emailData{Name: name, Role: role, URL: s.appURL})
}

func (s *EmailService) SendJoinApprovedEmail(ctx context.Context, to, studentName, teacherName string) error {
	return s.deliver(ctx, to, "join_approved", emailData{Name: studentName, Teacher: teacherName})
}

func (s *EmailService) deliver(ctx context.Context, to, kind string, data emailData) error {
	data.AppName = s.appName
	msg, err := renderEmail(kind, data)
	if err != nil {
		return err
	}

	log := slog.With("type", kind, "to", to)
	if s.dryRun {
		log.Info("email sent (dev mode)", "subject", msg.Subject, "url", data.URL)
		return nil
	}
	if s.client == nil {
		return ErrEmailNotConfigured
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	log.Info("email sent", "email_id", sent.Id)
	return nil
}
