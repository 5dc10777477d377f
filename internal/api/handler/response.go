package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iconidentify/gifgrab/internal/domain"
)

// Response statuses used by the processing endpoints.
const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// ProcessResponse is the body returned by the processing endpoints.
type ProcessResponse struct {
	Status      string `json:"status"`
	Path        string `json:"path,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Message     string `json:"message,omitempty"`
}

// URLRequest is the body accepted by endpoints that take a post URL.
type URLRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
	Format  string `json:"format,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ProcessResponse{Status: StatusError, Message: message})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrArtifactNotFound), errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrResolutionFailed),
		errors.Is(err, domain.ErrNoMedia),
		errors.Is(err, domain.ErrFetchFailed),
		errors.Is(err, domain.ErrVideoFetchFailed),
		errors.Is(err, domain.ErrUnsupportedMediaKind):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for a failed request.
// Pipeline details stay in the server log.
func messageFor(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		if errors.Is(err, domain.ErrInvalidOption) {
			return "invalid quality or format"
		}
		return "invalid URL"
	case http.StatusNotFound:
		return "not found"
	default:
		return "processing failed"
	}
}

// decodeURLRequest reads a URLRequest body and rejects a missing URL.
func decodeURLRequest(w http.ResponseWriter, r *http.Request) (*URLRequest, bool) {
	var req URLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing URL in request")
		return nil, false
	}
	return &req, true
}

func downloadURL(filename string) string {
	return "/downloads/" + filename
}
