package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNewSendEmailTask(t *testing.T) {
	msg := email.Message{To: "coach@example.org", Subject: "Hi", Text: "body"}
	task, err := NewSendEmailTask(msg, QueueOptions{MaxRetry: 2})
	require.NoError(t, err)
	assert.Equal(t, TaskSendEmail, task.Type())

	var decoded email.Message
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, msg, decoded)

	_, err = NewSendEmailTask(email.Message{Subject: "no recipient", Text: "x"}, QueueOptions{})
	assert.Error(t, err)
}

func TestHandleSendEmail(t *testing.T) {
	mailer := &recordingMailer{}
	handler := handleSendEmail(mailer, zerolog.Nop())

	task, err := NewSendEmailTask(email.Message{To: "a@b.org", Subject: "s", Text: "t"}, QueueOptions{})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@b.org", mailer.sent[0].To)
}

func TestHandleSendEmailSkipsRetryOnBadPayload(t *testing.T) {
	handler := handleSendEmail(&recordingMailer{}, zerolog.Nop())

	err := handler(context.Background(), asynq.NewTask(TaskSendEmail, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(email.Message{Subject: "missing to"})
	err = handler(context.Background(), asynq.NewTask(TaskSendEmail, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSendEmailRetriesTransportErrors(t *testing.T) {
	boom := errors.New("smtp down")
	handler := handleSendEmail(&recordingMailer{err: boom}, zerolog.Nop())

	task, err := NewSendEmailTask(email.Message{To: "a@b.org", Subject: "s", Text: "t"}, QueueOptions{})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewQueueRejectsBadURL(t *testing.T) {
	_, err := NewQueue("://nope", QueueOptions{})
	assert.Error(t, err)
}
