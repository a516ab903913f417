package email

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourVerificationMessage(t *testing.T) {
	msg := HourVerificationMessage(HourVerification{
		ContactEmail:  "coach@example.org",
		ContactName:   "Coach Kim",
		StudentName:   "Ada Lovelace",
		CommunityName: "Food Bank",
		ActivityName:  "Sorting cans",
		ActivityDate:  "2026-03-01",
		Hours:         2.5,
		ReviewURL:     "https://hours.example.org/requests/7",
	})

	require.NoError(t, msg.Validate())
	assert.Equal(t, "coach@example.org", msg.To)
	assert.Equal(t, "Ada Lovelace Requests Verification of Hours", msg.Subject)
	assert.Contains(t, msg.Text, "2.5 hours")
	assert.Contains(t, msg.Text, `"Food Bank"`)
	assert.Contains(t, msg.HTML, `href="https://hours.example.org/requests/7"`)
}

func TestHourVerificationMessageEscapesHTML(t *testing.T) {
	msg := HourVerificationMessage(HourVerification{
		ContactEmail:  "c@example.org",
		StudentName:   "<script>",
		CommunityName: "A&B",
		ActivityName:  "x",
		Hours:         1,
	})
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "A&amp;B")
}

func TestHourReviewMessage(t *testing.T) {
	approved := HourReviewMessage(HourReview{StudentEmail: "s@example.org", StudentName: "Sam", ActivityName: "Park cleanup", CommunityName: "Green", Hours: 3, Approved: true})
	assert.Equal(t, "Your hours for Park cleanup were approved", approved.Subject)
	assert.Contains(t, approved.Text, "3 hours")

	rejected := HourReviewMessage(HourReview{StudentEmail: "s@example.org", ActivityName: "Park cleanup", Note: "no signature"})
	assert.True(t, strings.HasSuffix(rejected.Subject, "rejected"))
	assert.Contains(t, rejected.Text, "no signature")
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"missing recipient", Message{Subject: "s", Text: "t"}},
		{"bad recipient", Message{To: "nobody", Subject: "s", Text: "t"}},
		{"missing subject", Message{To: "a@b.c", Text: "t"}},
		{"missing body", Message{To: "a@b.c", Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.msg.Validate())
		})
	}
}

func TestSMTPMailerWithoutCredentialsLogsOnly(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{}, zerolog.Nop())
	err := m.Send(context.Background(), Message{To: "a@b.c", Subject: "hi", Text: "body"})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
}

func TestBuildMessagePrefersHTML(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{FromName: "Hours", FromEmail: "no-reply@example.org"}, zerolog.Nop())
	raw := string(m.buildMessage(Message{To: "a@b.c", Subject: "s", Text: "plain", HTML: "<p>rich</p>"}))
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, raw, "From: Hours <no-reply@example.org>\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>rich</p>"))
}
