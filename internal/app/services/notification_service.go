package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// NotificationService sends free-form emails on behalf of signed-in users.
type NotificationService interface {
	SendEmail(ctx context.Context, session Session, req *dto.SendEmailRequest) (*dto.SendEmailResponse, error)
}

type notificationServiceImpl struct {
	mailer  email.Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(mailer email.Mailer, m *metrics.Metrics, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{mailer: mailer, metrics: m, logger: logger}
}

// SendEmail hands the message to the configured transport. The plain text
// body is also sent as escaped HTML with line breaks kept.
func (s *notificationServiceImpl) SendEmail(ctx context.Context, session Session, req *dto.SendEmailRequest) (*dto.SendEmailResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	if s.mailer == nil {
		return nil, apperrors.ErrNotificationFailed
	}

	msg := email.Message{
		To:      strings.TrimSpace(req.To),
		Subject: strings.TrimSpace(req.Subject),
		Text:    req.Message,
		HTML:    "<p>" + strings.ReplaceAll(html.EscapeString(req.Message), "\n", "<br>") + "</p>",
	}
	if err := msg.Validate(); err != nil {
		return nil, apperrors.NewValidationError("to", err.Error())
	}

	err := s.mailer.Send(ctx, msg)
	s.metrics.ObserveEmail("custom", err)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", session.UserID).Str("to", msg.To).Msg("Failed to send email")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNotificationFailed, err)
	}

	s.logger.Info().Int64("userID", session.UserID).Str("to", msg.To).Msg("Email sent")
	return &dto.SendEmailResponse{Success: true}, nil
}
