package domain

import (
	"time"
)

// JobID is a unique identifier for a job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is an asynchronous GIF conversion. Jobs run once; a failed job
// stays failed.
type Job struct {
	ID        JobID
	SourceURL string
	Status    JobStatus
	Artifact  string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a queued job for sourceURL.
func NewJob(id JobID, sourceURL string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		SourceURL: sourceURL,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records the produced artifact filename.
func (j *Job) MarkCompleted(artifact string) {
	j.Status = JobStatusCompleted
	j.Artifact = artifact
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *Job) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}
