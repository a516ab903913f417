package services

import (
	"context"
	"errors"
	"testing"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewNotificationService(mailer, metrics.New(), zerolog.Nop())
	session := Session{UserID: 1, Role: models.RoleStudent}

	resp, err := svc.SendEmail(context.Background(), session, &dto.SendEmailRequest{
		To: "pat@foodbank.org", Subject: "Hello", Message: "line one\nline <two>",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "<p>line one<br>line &lt;two&gt;</p>", sent[0].HTML)

	mailer.err = errors.New("smtp down")
	_, err = svc.SendEmail(context.Background(), session, &dto.SendEmailRequest{To: "pat@foodbank.org", Subject: "Hi", Message: "x"})
	require.ErrorIs(t, err, apperrors.ErrNotificationFailed)

	_, err = svc.SendEmail(context.Background(), Session{}, &dto.SendEmailRequest{To: "pat@foodbank.org", Subject: "Hi", Message: "x"})
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}
