package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/repository"
)

// SubmitResponse is returned after queueing a conversion.
type SubmitResponse struct {
	JobID   domain.JobID
	Status  domain.JobStatus
	Message string
}

// Submit validates rawURL and queues an asynchronous conversion.
func (s *GIFService) Submit(ctx context.Context, rawURL string) (*SubmitResponse, error) {
	rawURL = strings.TrimSpace(rawURL)
	if _, err := s.classifier.Classify(rawURL); err != nil {
		return nil, err
	}

	jobID := domain.JobID("job_" + uuid.New().String()[:8])
	job := domain.NewJob(jobID, rawURL)

	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("conversion submitted", "job_id", jobID, "url", rawURL)

	return &SubmitResponse{
		JobID:   jobID,
		Status:  job.Status,
		Message: "Conversion queued for processing",
	}, nil
}

// ProcessJob runs a queued conversion to completion. A failed job is
// recorded as failed and not retried.
func (s *GIFService) ProcessJob(ctx context.Context, job *domain.Job) error {
	logger := s.logger.With("job_id", job.ID)

	job.MarkProcessing()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	artifact, err := s.Convert(ctx, job.SourceURL)
	if err != nil {
		job.MarkFailed(err.Error())
		if uerr := s.jobRepo.Update(ctx, job); uerr != nil {
			logger.Error("failed to record job failure", "error", uerr)
		}
		return err
	}

	job.MarkCompleted(artifact.Filename)
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	logger.Info("job completed", "artifact", artifact.Filename)
	return nil
}

// GetJob returns the current state of a job.
func (s *GIFService) GetJob(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	return s.jobRepo.Get(ctx, id)
}

// QueueStats returns job counts by status.
func (s *GIFService) QueueStats(ctx context.Context) (*repository.QueueStats, error) {
	return s.jobRepo.Stats(ctx)
}
