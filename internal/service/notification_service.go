package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/pkg/jobs"
)

// Notifier delivers a case event to the outside world (court messaging,
// e-mail, SMS). Delivery mechanics live outside this service.
type Notifier interface {
	Notify(ctx context.Context, event models.CaseEvent) error
}

// NotifierFunc allows using plain functions as notifiers.
type NotifierFunc func(ctx context.Context, event models.CaseEvent) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event models.CaseEvent) error {
	return f(ctx, event)
}

// NotificationService fans committed case events out to the notifier through
// a background queue, so a slow delivery channel never blocks a transition
// response.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NotificationConfig tunes the dispatch queue.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewNotificationService builds the service and its dispatch queue.
func NewNotificationService(notifier Notifier, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, models.CaseEvent) error { return nil })
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.CaseEvent)
		if !ok {
			logger.Warn("dropping notification job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return notifier.Notify(ctx, event)
	}

	queue := jobs.NewQueue("case-notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	return &NotificationService{queue: queue, logger: logger}
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// CaseTransitioned enqueues a committed transition for delivery. Enqueue
// failures are logged, never surfaced; notification is best-effort.
func (s *NotificationService) CaseTransitioned(ctx context.Context, event models.CaseEvent) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "case.transitioned",
		Payload: event,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue case notification",
			zap.String("case_id", event.CaseID),
			zap.String("transition", string(event.Transition)),
			zap.Error(err))
	}
}
