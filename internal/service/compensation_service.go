package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/pkg/jobs"
)

const jobDeleteIdentity = "identity.delete"

type identityDeleter interface {
	Delete(ctx context.Context, accountID string) error
}

// CompensationConfig tunes the compensation queue.
type CompensationConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	// Timeout bounds each call to the identity provider.
	Timeout time.Duration
}

// CompensationService removes identities whose local aggregate was never
// written or has been deleted. Deletions are retried with backoff.
type CompensationService struct {
	identity identityDeleter
	metrics  *MetricsService
	logger   *zap.Logger
	timeout  time.Duration
	queue    *jobs.Queue
}

// NewCompensationService builds the service and its queue. Call Start before enqueuing.
func NewCompensationService(identity identityDeleter, metrics *MetricsService, logger *zap.Logger, cfg CompensationConfig) *CompensationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	s := &CompensationService{identity: identity, metrics: metrics, logger: logger, timeout: cfg.Timeout}
	s.queue = jobs.NewQueue("compensation", s.handle, jobs.QueueConfig{
		Workers:     cfg.Workers,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Logger:      logger,
		OnExhausted: s.exhausted,
		OnDropped:   s.dropped,
	})
	return s
}

// Start launches the workers.
func (s *CompensationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for in-flight work to finish. Pending deletions are logged as
// orphaned identities.
func (s *CompensationService) Stop() {
	s.queue.Stop()
}

// EnqueueIdentityDeletion schedules the removal of an identity.
func (s *CompensationService) EnqueueIdentityDeletion(accountID, reason string) error {
	job := jobs.Job{
		ID:      fmt.Sprintf("%s:%s", jobDeleteIdentity, accountID),
		Type:    jobDeleteIdentity,
		Payload: accountID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue identity deletion",
			zap.String("account_id", accountID), zap.String("reason", reason), zap.Error(err))
		return err
	}
	s.metrics.RecordCompensation(CompensationEnqueued)
	s.logger.Info("identity deletion enqueued", zap.String("account_id", accountID), zap.String("reason", reason))
	return nil
}

func (s *CompensationService) handle(ctx context.Context, job jobs.Job) error {
	accountID, ok := job.Payload.(string)
	if !ok || accountID == "" {
		s.logger.Error("dropping malformed compensation job", zap.String("job_id", job.ID))
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.identity.Delete(callCtx, accountID); err != nil {
		s.metrics.RecordCompensation(CompensationFailed)
		return err
	}
	s.metrics.RecordCompensation(CompensationSucceeded)
	s.logger.Info("identity deleted", zap.String("account_id", accountID), zap.Int("attempt", job.Attempt+1))
	return nil
}

func (s *CompensationService) exhausted(job jobs.Job, err error) {
	s.metrics.RecordCompensation(CompensationExhausted)
	s.logger.Error("identity left orphaned after retries",
		zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}

func (s *CompensationService) dropped(job jobs.Job) {
	s.metrics.RecordCompensation(CompensationDropped)
	s.logger.Error("identity deletion abandoned at shutdown",
		zap.String("job_id", job.ID), zap.Any("account_id", job.Payload), zap.Int("attempts", job.Attempt))
}
