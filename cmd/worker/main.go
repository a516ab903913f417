package main

import (
	"os"

	"github.com/helphive/servicehours/internal/bootstrap"
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/logger"
	"github.com/helphive/servicehours/internal/worker"
)

func main() {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger("servicehours-worker")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if cfg.Redis.URL == "" {
		lgr.Error().Msg("REDIS_URL is required to run the worker")
		os.Exit(1)
	}

	mailer := email.NewSMTPMailer(bootstrap.SMTPConfig(cfg), lgr.With().Str("component", "email").Logger())

	lgr.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("Starting email worker")
	// Run blocks until SIGINT/SIGTERM
	if err := worker.Run(bootstrap.WorkerOptions(cfg), mailer, lgr); err != nil {
		lgr.Error().Err(err).Msg("Worker stopped with error")
		os.Exit(1)
	}
	lgr.Info().Msg("Worker exited gracefully")
}
