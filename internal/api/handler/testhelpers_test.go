package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/repository"
	"github.com/iconidentify/gifgrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConverter is a test implementation of TweetConverter.
type fakeConverter struct {
	artifact *domain.GifArtifact
	err      error
	lastURL  string
}

func (f *fakeConverter) ConvertTweet(ctx context.Context, rawURL string) (*domain.GifArtifact, error) {
	f.lastURL = rawURL
	if f.err != nil {
		return nil, f.err
	}
	return f.artifact, nil
}

// fakeVideoDownloader is a test implementation of VideoDownloader.
type fakeVideoDownloader struct {
	file    *service.VideoFile
	err     error
	lastReq service.VideoDownloadRequest
}

func (f *fakeVideoDownloader) Download(ctx context.Context, req service.VideoDownloadRequest) (*service.VideoFile, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}

// dirArtifacts resolves files in a directory.
type dirArtifacts string

func (d dirArtifacts) ArtifactPath(filename string) (string, error) {
	return service.ArtifactPath(string(d), filename)
}

// fakeJobService is a test implementation of JobService.
type fakeJobService struct {
	submitErr error
	jobs      map[domain.JobID]*domain.Job
	getErr    error
}

func (f *fakeJobService) Submit(ctx context.Context, rawURL string) (*service.SubmitResponse, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &service.SubmitResponse{JobID: "job_abcd1234", Status: domain.JobStatusQueued, Message: "Conversion queued for processing"}, nil
}

func (f *fakeJobService) GetJob(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if job, ok := f.jobs[id]; ok {
		return job, nil
	}
	return nil, domain.ErrJobNotFound
}

// mockJobRepository is a test implementation of repository.JobRepository.
type mockJobRepository struct {
	stats    *repository.QueueStats
	statsErr error
}

func (m *mockJobRepository) Enqueue(ctx context.Context, job *domain.Job) error { return nil }
func (m *mockJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	return nil, domain.ErrNoJobs
}
func (m *mockJobRepository) Update(ctx context.Context, job *domain.Job) error { return nil }
func (m *mockJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	return nil, domain.ErrJobNotFound
}
func (m *mockJobRepository) ListPending(ctx context.Context) ([]*domain.Job, error) {
	return nil, nil
}
func (m *mockJobRepository) Stats(ctx context.Context) (*repository.QueueStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

// fakeTool reports a fixed availability.
type fakeTool bool

func (f fakeTool) IsAvailable() bool { return bool(f) }

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParam attaches a chi route parameter to req.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// fakeDisk reports a fixed amount of free space, or err.
type fakeDisk struct {
	free int64
	err  error
}

func (f fakeDisk) FreeDiskSpace() (int64, error) { return f.free, f.err }
