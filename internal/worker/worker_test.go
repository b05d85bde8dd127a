package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/domain"
	"shoprag/internal/usecase"
	"shoprag/internal/worker"
)

type fakeJobRepo struct {
	queue      []*domain.IngestJob
	acquireErr error

	updatedID     uuid.UUID
	updatedStatus string
	updatedErrMsg *string
}

func (r *fakeJobRepo) Enqueue(ctx context.Context, job *domain.IngestJob) error {
	r.queue = append(r.queue, job)
	return nil
}

func (r *fakeJobRepo) AcquireNextJob(ctx context.Context) (*domain.IngestJob, error) {
	if r.acquireErr != nil {
		return nil, r.acquireErr
	}
	if len(r.queue) == 0 {
		return nil, nil
	}
	job := r.queue[0]
	r.queue = r.queue[1:]
	job.Status = domain.JobStatusProcessing
	return job, nil
}

func (r *fakeJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	r.updatedID = id
	r.updatedStatus = status
	r.updatedErrMsg = errorMessage
	return nil
}

type fakeIngestUsecase struct {
	gotInput *usecase.IngestInput
	err      error
}

func (u *fakeIngestUsecase) Ingest(ctx context.Context, input usecase.IngestInput) (*usecase.IngestStats, error) {
	u.gotInput = &input
	if u.err != nil {
		return nil, u.err
	}
	return &usecase.IngestStats{ReviewsSeen: len(input.Reviews), ChunksInserted: len(input.Reviews)}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ingestJob(t *testing.T, jobType string, input usecase.IngestInput) *domain.IngestJob {
	t.Helper()
	payload, err := json.Marshal(input)
	require.NoError(t, err)
	now := time.Now()
	return &domain.IngestJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Payload:   payload,
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProcessNextJob_RunsIngestAndMarksDone(t *testing.T) {
	input := usecase.IngestInput{
		Product: domain.Product{ASIN: "B07SKQZSN6", Title: "Anker PowerCore 10000"},
		Reviews: []usecase.ReviewInput{
			{Text: "Survived several drops, very durable charger overall.", Rating: 5},
		},
	}
	job := ingestJob(t, domain.JobTypeIngestReviews, input)
	repo := &fakeJobRepo{queue: []*domain.IngestJob{job}}
	ingest := &fakeIngestUsecase{}

	w := worker.NewJobWorker(repo, ingest, testLogger(), time.Second)
	w.ProcessNextJob(context.Background())

	require.NotNil(t, ingest.gotInput)
	assert.Equal(t, "B07SKQZSN6", ingest.gotInput.Product.ASIN)
	require.Len(t, ingest.gotInput.Reviews, 1)
	assert.Equal(t, job.ID, repo.updatedID)
	assert.Equal(t, domain.JobStatusDone, repo.updatedStatus)
	assert.Nil(t, repo.updatedErrMsg)
}

func TestProcessNextJob_EmptyQueueDoesNothing(t *testing.T) {
	repo := &fakeJobRepo{}
	ingest := &fakeIngestUsecase{}

	w := worker.NewJobWorker(repo, ingest, testLogger(), time.Second)
	w.ProcessNextJob(context.Background())

	assert.Nil(t, ingest.gotInput)
	assert.Empty(t, repo.updatedStatus)
}

func TestProcessNextJob_IngestFailureMarksJobFailed(t *testing.T) {
	job := ingestJob(t, domain.JobTypeIngestReviews, usecase.IngestInput{
		Product: domain.Product{ASIN: "B07SKQZSN6"},
	})
	repo := &fakeJobRepo{queue: []*domain.IngestJob{job}}
	ingest := &fakeIngestUsecase{err: errors.New("embedding backend down")}

	w := worker.NewJobWorker(repo, ingest, testLogger(), time.Second)
	w.ProcessNextJob(context.Background())

	assert.Equal(t, domain.JobStatusFailed, repo.updatedStatus)
	require.NotNil(t, repo.updatedErrMsg)
	assert.Contains(t, *repo.updatedErrMsg, "embedding backend down")
}

func TestProcessNextJob_UnknownJobTypeFails(t *testing.T) {
	job := ingestJob(t, "reindex_everything", usecase.IngestInput{})
	repo := &fakeJobRepo{queue: []*domain.IngestJob{job}}

	w := worker.NewJobWorker(repo, &fakeIngestUsecase{}, testLogger(), time.Second)
	w.ProcessNextJob(context.Background())

	assert.Equal(t, domain.JobStatusFailed, repo.updatedStatus)
	require.NotNil(t, repo.updatedErrMsg)
	assert.Contains(t, *repo.updatedErrMsg, "unknown job type")
}

func TestProcessNextJob_MalformedPayloadFails(t *testing.T) {
	job := &domain.IngestJob{
		ID:      uuid.New(),
		JobType: domain.JobTypeIngestReviews,
		Payload: []byte("{not json"),
		Status:  domain.JobStatusNew,
	}
	repo := &fakeJobRepo{queue: []*domain.IngestJob{job}}
	ingest := &fakeIngestUsecase{}

	w := worker.NewJobWorker(repo, ingest, testLogger(), time.Second)
	w.ProcessNextJob(context.Background())

	assert.Nil(t, ingest.gotInput)
	assert.Equal(t, domain.JobStatusFailed, repo.updatedStatus)
}
