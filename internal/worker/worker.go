package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shoprag/internal/domain"
	"shoprag/internal/usecase"
)

const (
	jobTimeout     = 5 * time.Minute
	initialBackoff = 1 * time.Second
	maxBackoff     = 5 * time.Minute
)

// JobWorker drains the ingest job queue. One worker processes one job at a
// time; several worker processes can share the queue because job
// acquisition is atomic.
type JobWorker struct {
	jobRepo       domain.IngestJobRepository
	ingestUsecase usecase.IngestUsecase
	logger        *slog.Logger
	pollInterval  time.Duration
	stopChan      chan struct{}
	backoff       time.Duration
}

func NewJobWorker(
	jobRepo domain.IngestJobRepository,
	ingestUsecase usecase.IngestUsecase,
	logger *slog.Logger,
	pollInterval time.Duration,
) *JobWorker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &JobWorker{
		jobRepo:       jobRepo,
		ingestUsecase: ingestUsecase,
		logger:        logger,
		pollInterval:  pollInterval,
		stopChan:      make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("starting ingest worker", "poll_interval", w.pollInterval.String())
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("stopping ingest worker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.ProcessNextJob(context.Background())
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

// ProcessNextJob claims and runs at most one job. Failures mark the job
// failed and back off the poll loop exponentially until a job succeeds.
func (w *JobWorker) ProcessNextJob(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return
	}

	w.logger.Info("processing job", "job_id", job.ID, "type", job.JobType)

	var processErr error
	switch job.JobType {
	case domain.JobTypeIngestReviews:
		processErr = w.processIngestReviews(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := domain.JobStatusDone
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("worker backing off", "job_id", job.ID, "backoff", w.backoff.String(), "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("job completed", "job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("failed to update job status", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestReviews(ctx context.Context, job *domain.IngestJob) error {
	var input usecase.IngestInput
	if err := json.Unmarshal(job.Payload, &input); err != nil {
		return fmt.Errorf("invalid job payload: %w", err)
	}

	_, err := w.ingestUsecase.Ingest(ctx, input)
	return err
}
