package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidURL is returned when a URL does not match any supported provider shape.
	ErrInvalidURL = errors.New("invalid post URL")

	// ErrResolutionFailed is returned when no media information could be obtained for a post.
	ErrResolutionFailed = errors.New("media resolution failed")

	// ErrNoMedia is returned by the info extractor when a post carries no downloadable media formats.
	ErrNoMedia = errors.New("no media found")

	// ErrFetchFailed is returned when media bytes could not be retrieved.
	ErrFetchFailed = errors.New("media fetch failed")

	// ErrVideoFetchFailed is returned when a video download finished but no output file was found.
	ErrVideoFetchFailed = errors.New("video fetch failed")

	// ErrEncodeFailed is returned when both the preferred and fallback encoders failed.
	ErrEncodeFailed = errors.New("gif encode failed")

	// ErrUnsupportedMediaKind is returned for assets of an unknown kind.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")

	// ErrInvalidOption is returned for an unknown download quality or container format.
	ErrInvalidOption = errors.New("invalid download option")

	// ErrArtifactNotFound is returned when a requested output file does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBrowserUnavailable is returned when the headless browser fallback is disabled or cannot start.
	ErrBrowserUnavailable = errors.New("browser fallback unavailable")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrURLExpired is returned when a media URL answers 401/403.
	ErrURLExpired = errors.New("media URL has expired")

	// ErrRateLimited is returned when rate limited by the media host.
	ErrRateLimited = errors.New("rate limited")
)

// Pipeline stages used in PipelineError.
const (
	StageClassify = "classify"
	StageAcquire  = "acquire"
	StageEncode   = "encode"
	StagePublish  = "publish"
)

// PipelineError wraps an error with the stage and source it happened in.
type PipelineError struct {
	SourceID string
	Stage    string
	Err      error
}

func (e *PipelineError) Error() string {
	if e.SourceID != "" {
		return e.Stage + " [" + e.SourceID + "]: " + e.Err.Error()
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(sourceID, stage string, err error) *PipelineError {
	return &PipelineError{
		SourceID: sourceID,
		Stage:    stage,
		Err:      err,
	}
}
