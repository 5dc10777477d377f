package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/service"
)

// TweetConverter converts Twitter/X posts to GIFs.
type TweetConverter interface {
	ConvertTweet(ctx context.Context, rawURL string) (*domain.GifArtifact, error)
}

// VideoDownloader downloads YouTube videos.
type VideoDownloader interface {
	Download(ctx context.Context, req service.VideoDownloadRequest) (*service.VideoFile, error)
}

// ArtifactResolver finds produced files by name.
type ArtifactResolver interface {
	ArtifactPath(filename string) (string, error)
}

// ProcessHandler serves the conversion and download endpoints.
type ProcessHandler struct {
	converter  TweetConverter
	downloader VideoDownloader
	artifacts  ArtifactResolver
	logger     *slog.Logger
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(converter TweetConverter, downloader VideoDownloader, artifacts ArtifactResolver, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{
		converter:  converter,
		downloader: downloader,
		artifacts:  artifacts,
		logger:     logger,
	}
}

// ProcessTwitter handles POST /process-twitter.
func (h *ProcessHandler) ProcessTwitter(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	h.logger.Info("twitter conversion requested", "url", req.URL)

	artifact, err := h.converter.ConvertTweet(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("twitter conversion failed", "url", req.URL, "error", err)
		writeError(w, statusFor(err), messageFor(err))
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Status:      StatusSuccess,
		Path:        artifact.Path,
		DownloadURL: downloadURL(artifact.Filename),
		Filename:    artifact.Filename,
	})
}

// ProcessYouTube handles POST /process-youtube.
func (h *ProcessHandler) ProcessYouTube(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	h.logger.Info("youtube download requested", "url", req.URL, "quality", req.Quality, "format", req.Format)

	file, err := h.downloader.Download(r.Context(), service.VideoDownloadRequest{
		URL:     req.URL,
		Quality: req.Quality,
		Format:  req.Format,
	})
	if err != nil {
		h.logger.Error("youtube download failed", "url", req.URL, "error", err)
		writeError(w, statusFor(err), messageFor(err))
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Status:      StatusSuccess,
		Path:        file.Path,
		DownloadURL: downloadURL(file.Filename),
		Filename:    file.Filename,
	})
}

// Download handles GET /downloads/{filename}.
func (h *ProcessHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.artifacts.ArtifactPath(filename)
	if err != nil {
		h.logger.Warn("artifact not found", "filename", filename)
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not serve file")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, stat.ModTime(), f)
}
