package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/service"
)

// JobService queues conversions and reports their state.
type JobService interface {
	Submit(ctx context.Context, rawURL string) (*service.SubmitResponse, error)
	GetJob(ctx context.Context, id domain.JobID) (*domain.Job, error)
}

// JobHandler handles asynchronous conversion jobs.
type JobHandler struct {
	jobs   JobService
	logger *slog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

// SubmitResponse is the JSON response after queueing a job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobResponse reports a job's state.
type JobResponse struct {
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Filename    string    `json:"filename,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submit handles POST /api/v1/jobs.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.jobs.Submit(r.Context(), req.URL)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to submit job", "error", err)
			writeError(w, status, "failed to submit job")
			return
		}
		writeError(w, status, messageFor(err))
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:   string(resp.JobID),
		Status:  string(resp.Status),
		Message: resp.Message,
	})
}

// Get handles GET /api/v1/jobs/{jobID}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), domain.JobID(id))
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	resp := JobResponse{
		JobID:     string(job.ID),
		URL:       job.SourceURL,
		Status:    string(job.Status),
		Error:     job.LastError,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Artifact != "" {
		resp.Filename = job.Artifact
		resp.DownloadURL = downloadURL(job.Artifact)
	}
	writeJSON(w, http.StatusOK, resp)
}
