package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iconidentify/gifgrab/internal/repository"
)

// Tool is an external binary the pipeline shells out to.
type Tool interface {
	IsAvailable() bool
}

// ToolFunc adapts an availability check to Tool.
type ToolFunc func() bool

// IsAvailable calls f.
func (f ToolFunc) IsAvailable() bool { return f() }

// DiskReporter reports free space where artifacts are written.
type DiskReporter interface {
	FreeDiskSpace() (int64, error)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	jobRepo repository.JobRepository
	tools   map[string]Tool
	disk    DiskReporter
}

// NewHealthHandler creates a new health handler. tools are reported by
// name on the readiness endpoint. disk may be nil.
func NewHealthHandler(jobRepo repository.JobRepository, tools map[string]Tool, disk DiskReporter) *HealthHandler {
	return &HealthHandler{
		jobRepo: jobRepo,
		tools:   tools,
		disk:    disk,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Server    string                 `json:"server,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Queue     *repository.QueueStats `json:"queue,omitempty"`
	Tools     map[string]bool        `json:"tools,omitempty"`
	DiskFree  int64                  `json:"output_free_bytes,omitempty"`
	DiskError string                 `json:"output_error,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Server:    "gifgrab",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The service is ready when
// the job queue answers, yt-dlp is installed and the output directory can
// be inspected. A missing ffmpeg or ffprobe only degrades encoding to the
// library fallback.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.jobRepo.Stats(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	tools := make(map[string]bool, len(h.tools))
	for name, tool := range h.tools {
		tools[name] = tool.IsAvailable()
	}

	status, code := "ok", http.StatusOK
	if ok, known := tools["yt-dlp"]; known && !ok {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Queue:     stats,
		Tools:     tools,
	}
	if h.disk != nil {
		free, err := h.disk.FreeDiskSpace()
		if err != nil {
			resp.DiskError = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
		resp.DiskFree = free
	}
	resp.Status = status
	writeJSON(w, code, resp)
}
