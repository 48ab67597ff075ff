package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop()
	EnqueueJob(submissionID uuid.UUID) bool
}

type WorkerOptions struct {
	Concurrency  int
	QueueSize    int
	PollSchedule string
	PollBatch    int
}

type worker struct {
	subRepo   repositories.SubmissionRepository
	validator ValidatorService
	opts      WorkerOptions
	jobQueue  chan uuid.UUID
	scheduler *cron.Cron
	wg        sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once
	log       *zap.Logger
}

func NewWorker(
	subRepo repositories.SubmissionRepository,
	validator ValidatorService,
	opts WorkerOptions,
	log *zap.Logger,
) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.PollBatch <= 0 {
		opts.PollBatch = 10
	}

	return &worker{
		subRepo:   subRepo,
		validator: validator,
		opts:      opts,
		jobQueue:  make(chan uuid.UUID, opts.QueueSize),
		scheduler: cron.New(),
		stopChan:  make(chan struct{}),
		log:       log,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) error {
	if w.opts.PollSchedule != "" {
		if _, err := w.scheduler.AddFunc(w.opts.PollSchedule, w.pollPendingJobs); err != nil {
			return fmt.Errorf("invalid poll schedule %q: %w", w.opts.PollSchedule, err)
		}
	}

	w.log.Info("🚀 Starting worker", zap.Int("concurrency", w.opts.Concurrency))

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.scheduler.Start()
	return nil
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping worker...")
		<-w.scheduler.Stop().Done()
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker. It never blocks: when the queue is full the
// submission stays pending and the poller picks it up later.
func (w *worker) EnqueueJob(submissionID uuid.UUID) bool {
	select {
	case <-w.stopChan:
		w.log.Warn("⚠️  Worker stopped, cannot enqueue job", zap.Stringer("submission_id", submissionID))
		return false
	default:
	}

	select {
	case w.jobQueue <- submissionID:
		w.log.Debug("📥 Job enqueued", zap.Stringer("submission_id", submissionID))
		return true
	default:
		w.log.Warn("⚠️  Job queue full, deferring to poller", zap.Stringer("submission_id", submissionID))
		return false
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			log.Debug("👷 Worker stopped")
			return
		case <-ctx.Done():
			log.Debug("👷 Worker context cancelled")
			return
		case id := <-w.jobQueue:
			err := w.validator.ValidateSubmission(ctx, id)
			switch {
			case err == nil:
				log.Info("✅ Job completed", zap.Stringer("submission_id", id))
			case errors.Is(err, repositories.ErrStaleSubmission):
				log.Debug("⏭️  Job skipped, submission already taken", zap.Stringer("submission_id", id))
			default:
				log.Error("❌ Job failed", zap.Stringer("submission_id", id), zap.Error(err))
			}
		}
	}
}

func (w *worker) pollPendingJobs() {
	pending, err := w.subRepo.FindPending(w.opts.PollBatch)
	if err != nil {
		w.log.Warn("⚠️  Failed to fetch pending submissions", zap.Error(err))
		return
	}

	if len(pending) > 0 {
		w.log.Info("📋 Found pending submissions", zap.Int("count", len(pending)))
	}

	for _, sub := range pending {
		if !w.EnqueueJob(sub.ID) {
			return
		}
	}
}
