package services

import (
	"context"

	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// notifier sends best-effort emails after a write has committed. Failures are
// logged and counted, never returned.
type notifier struct {
	mailer  email.Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func (n notifier) send(ctx context.Context, kind string, msg email.Message) {
	if n.mailer == nil {
		return
	}
	err := n.mailer.Send(ctx, msg)
	n.metrics.ObserveEmail(kind, err)
	if err != nil {
		n.logger.Warn().Err(err).
			Str("kind", kind).
			Str("to", msg.To).
			Msg("Failed to send notification")
	}
}
