// Package worker runs the execution queue: it polls for queued execution
// logs, dispatches them to the executor with bounded concurrency, and feeds
// retryable failures back into the queue. A file lock enforces a single
// worker process per data directory.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"greenlight/internal/config"
	"greenlight/internal/executor"
	"greenlight/internal/logging"
	"greenlight/internal/notifications"
	"greenlight/internal/production"
	"greenlight/internal/services"
)

// Processor handles one execution attempt. The executor is the production
// implementation.
type Processor interface {
	Process(ctx context.Context, executionID int64) (*executor.Outcome, error)
}

// Worker coordinates queue polling and enforces single-instance execution.
type Worker struct {
	cfg       *config.Config
	store     *production.Store
	processor Processor
	notifier  notifications.Service
	logger    *slog.Logger

	pollInterval time.Duration
	retryDelay   time.Duration

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a worker with initialized dependencies.
func New(cfg *config.Config, store *production.Store, processor Processor, notifier notifications.Service, logger *slog.Logger) (*Worker, error) {
	if cfg == nil || store == nil || processor == nil {
		return nil, errors.New("worker requires config, store, and processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "greenlight.lock")
	return &Worker{
		cfg:          cfg,
		store:        store,
		processor:    processor,
		notifier:     notifier,
		logger:       logger.With(logging.String(logging.FieldComponent, "worker")),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}, nil
}

// Start acquires the worker lock, requeues executions stranded in processing
// by a previous crash, and launches the poll loop.
func (w *Worker) Start(ctx context.Context) error {
	if w.running.Load() {
		return errors.New("worker already running")
	}

	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another greenlight worker instance is already running")
	}

	// Stranded processing rows are safe to requeue: phase 1 of the finalize
	// sequence is replayable and completed rows are never touched.
	reset, err := w.store.ResetStuckExecutions(ctx)
	if err != nil {
		_ = w.lock.Unlock()
		return fmt.Errorf("reset stuck executions: %w", err)
	}
	if reset > 0 {
		w.logger.Info("requeued stranded executions", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running.Store(true)

	w.wg.Add(1)
	go w.pollLoop(runCtx)

	w.logger.Info("worker started",
		logging.String("lock", w.lockPath),
		logging.Int("worker_count", w.workerCount()),
		logging.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop halts polling, waits for in-flight executions, and releases the lock.
func (w *Worker) Stop() {
	if !w.running.Load() {
		return
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.wg.Wait()
	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("failed to release worker lock", logging.Error(err))
	}
	w.running.Store(false)
	w.logger.Info("worker stopped")
}

// Running reports whether the poll loop is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) workerCount() int {
	if w.cfg.Workflow.WorkerCount > 0 {
		return w.cfg.Workflow.WorkerCount
	}
	return 1
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	sem := make(chan struct{}, w.workerCount())
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.dispatchAvailable(ctx, sem)
		select {
		case <-ctx.Done():
			// Drain in-flight slots before returning.
			for i := 0; i < cap(sem); i++ {
				sem <- struct{}{}
			}
			return
		case <-ticker.C:
		}
	}
}

// dispatchAvailable claims queued executions while worker slots are free.
func (w *Worker) dispatchAvailable(ctx context.Context, sem chan struct{}) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}

		log, err := w.claimNext(ctx)
		if err != nil {
			<-sem
			if ctx.Err() == nil {
				w.logger.Error("failed to claim next execution", logging.Error(err))
			}
			return
		}
		if log == nil {
			<-sem
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.handle(ctx, log)
		}()
	}
}

// claimNext pops the oldest queued execution and marks it processing so the
// next poll tick cannot dispatch it twice.
func (w *Worker) claimNext(ctx context.Context) (*production.ExecutionLog, error) {
	log, err := w.store.NextQueuedExecution(ctx)
	if err != nil || log == nil {
		return nil, err
	}
	log.Status = production.ExecutionProcessing
	if err := w.store.UpdateExecution(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (w *Worker) handle(ctx context.Context, log *production.ExecutionLog) {
	logger := w.logger.With(
		logging.String(logging.FieldBriefID, log.BriefID),
		logging.Int64(logging.FieldExecutionID, log.ID),
	)

	outcome, err := w.processor.Process(ctx, log.ID)
	if err != nil {
		if services.Retryable(err) {
			logger.Warn("execution failed, scheduling retry",
				logging.Error(err),
				logging.Duration("retry_in", w.retryDelay))
			w.scheduleRetry(log.ID)
			return
		}
		logger.Error("execution failed permanently", logging.Error(err))
		if w.notifier != nil {
			_ = w.notifier.NotifyError(ctx, err, fmt.Sprintf("execution %d", log.ID))
		}
		return
	}

	switch outcome.Status {
	case production.ExecutionCompleted:
		if w.notifier != nil {
			_ = w.notifier.NotifyExecutionCompleted(ctx, log.BriefID, outcome.CanPublish, outcome.QualityScore)
		}
	case production.ExecutionFailed:
		if w.notifier != nil {
			_ = w.notifier.NotifyExecutionFailed(ctx, log.BriefID, outcome.ErrorMessage)
		}
	}
}

// scheduleRetry requeues the execution after the configured delay. The timer
// outlives the poll context on purpose: a retry owed to the queue survives a
// shutdown race, and RequeueExecution skips completed rows regardless.
func (w *Worker) scheduleRetry(executionID int64) {
	delay := w.retryDelay
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.store.RequeueExecution(ctx, executionID); err != nil {
			w.logger.Error("failed to requeue execution",
				logging.Int64(logging.FieldExecutionID, executionID),
				logging.Error(err))
		}
	})
}
