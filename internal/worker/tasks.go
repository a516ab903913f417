package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskSendEmail = "email:send"
)

// QueueOptions controls how tasks are enqueued.
type QueueOptions struct {
	MaxRetry  int
	Timeout   time.Duration
	Retention time.Duration
}

// Queue enqueues email deliveries for the worker. It satisfies email.Mailer,
// so services can send through it without knowing about the queue.
type Queue struct {
	client *asynq.Client
	opts   QueueOptions
}

var _ email.Mailer = (*Queue)(nil)

// NewQueue connects an asynq client to the Redis instance at redisURL.
func NewQueue(redisURL string, opts QueueOptions) (*Queue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	return &Queue{client: asynq.NewClient(opt), opts: opts}, nil
}

// Close closes the client connection.
func (q *Queue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

// NewSendEmailTask builds the task carrying msg.
func NewSendEmailTask(msg email.Message, opts QueueOptions) (*asynq.Task, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskSendEmail,
		payload,
		asynq.MaxRetry(opts.MaxRetry),
		asynq.Timeout(opts.Timeout),
		asynq.Retention(opts.Retention),
	), nil
}

// Send enqueues msg. Delivery happens later in the worker.
func (q *Queue) Send(ctx context.Context, msg email.Message) error {
	task, err := NewSendEmailTask(msg, q.opts)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	return nil
}
