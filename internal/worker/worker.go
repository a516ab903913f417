package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Options configures the worker server.
type Options struct {
	RedisURL        string
	Concurrency     int
	ShutdownTimeout time.Duration
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.logger.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.logger.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.logger.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.logger.Error().Msg(fmt.Sprint(args...)) }

func (a asynqLogger) Fatal(args ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the worker and blocks until SIGINT/SIGTERM. Used by cmd/worker.
func Run(opts Options, mailer email.Mailer, logger zerolog.Logger) error {
	srv, mux, err := newServer(opts, mailer, logger)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start runs the worker in the background and returns a stop function, for
// the API process when the worker is embedded.
func Start(opts Options, mailer email.Mailer, logger zerolog.Logger) (stop func(), err error) {
	srv, mux, err := newServer(opts, mailer, logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return srv.Shutdown, nil
}

func newServer(opts Options, mailer email.Mailer, logger zerolog.Logger) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(opts.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}

	logger = logger.With().Str("component", "worker").Logger()
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     opts.Concurrency,
		ShutdownTimeout: opts.ShutdownTimeout,
		ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
		Logger:          asynqLogger{logger: logger},
	})

	mux := NewMux(mailer, logger)
	logger.Info().Int("concurrency", opts.Concurrency).Msg("Worker starting")
	return srv, mux, nil
}

// NewMux registers the task handlers.
func NewMux(mailer email.Mailer, logger zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendEmail, handleSendEmail(mailer, logger))
	return mux
}

// handleSendEmail delivers a queued email. Malformed payloads are not retried.
func handleSendEmail(mailer email.Mailer, logger zerolog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var msg email.Message
		if err := json.Unmarshal(task.Payload(), &msg); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if err := msg.Validate(); err != nil {
			logger.Error().Err(err).Msg("Dropping invalid email task")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if err := mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email delivered")
		return nil
	}
}

func makeErrorHandler(logger zerolog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		event := logger.Error()
		if errors.Is(err, asynq.SkipRetry) || retried >= maxRetry {
			event = event.Bool("final", true)
		}
		event.Err(err).
			Str("task_type", task.Type()).
			Int("retry_count", retried).
			Int("max_retry", maxRetry).
			Msg("Task execution failed")
	}
}
