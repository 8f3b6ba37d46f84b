package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxBackoffShift caps exponential growth of the retry delay.
const maxBackoffShift = 6

var (
	// ErrNotStarted is returned by Enqueue before Start or after Stop.
	ErrNotStarted = errors.New("queue not started")
	// ErrQueueFull is returned when the buffer has no room. Enqueue never blocks.
	ErrQueueFull = errors.New("queue full")
	// ErrStopped is returned once the context the queue was started with is done.
	ErrStopped = errors.New("queue stopped")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ExhaustedFunc is invoked once a job has failed more than MaxRetries times.
type ExhaustedFunc func(Job, error)

// DroppedFunc is invoked for every job still buffered or waiting for a retry
// when the queue stops.
type DroppedFunc func(Job)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *zap.Logger
	OnExhausted ExhaustedFunc
	OnDropped   DroppedFunc
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
// Failed jobs are retried with exponential backoff.
type Queue struct {
	name    string
	handler Handler

	workers     int
	maxRetries  int
	retryDelay  time.Duration
	logger      *zap.Logger
	onExhausted ExhaustedFunc
	onDropped   DroppedFunc

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:        name,
		handler:     handler,
		workers:     cfg.Workers,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
		onExhausted: cfg.OnExhausted,
		onDropped:   cfg.OnDropped,
		jobs:        make(chan Job, cfg.BufferSize),
	}
}

// Name returns the queue name used in logs and metrics.
func (q *Queue) Name() string {
	return q.name
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and pending retries, waits for them to exit and hands
// every unprocessed job to OnDropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.retries.Wait()

	dropped := 0
	for {
		select {
		case job := <-q.jobs:
			q.drop(job)
			dropped++
		default:
			q.logger.Sugar().Infow("queue stopped", "queue", q.name, "dropped", dropped)
			return
		}
	}
}

// Enqueue pushes a job onto the queue without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if q.ctx.Err() != nil {
		return fmt.Errorf("%s: %w", q.name, ErrStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) drop(job Job) {
	if q.onDropped != nil {
		q.onDropped(job)
	}
}

// Backoff returns the delay applied before the given retry attempt (1-based).
func (q *Queue) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return q.retryDelay << uint(shift)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
		if q.onExhausted != nil {
			q.onExhausted(job, err)
		}
		return
	}
	delay := q.Backoff(job.Attempt)
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.drop(j)
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
				q.drop(j)
			}
		}
	}(job)
}
