package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/gifgrab/internal/classifier"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/encoder"
	"github.com/iconidentify/gifgrab/internal/media"
	"github.com/iconidentify/gifgrab/internal/repository"
)

const (
	tweetURL   = "https://x.com/user/status/1234567890123456789"
	tweetGIF   = "tweet_1234567890123456789.gif"
	youtubeURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStrategy writes files into the work dir or fails.
type fakeStrategy struct {
	name  string
	kind  domain.MediaKind
	files []string
	err   error

	mu       sync.Mutex
	calls    int
	workDirs []string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Acquire(ctx context.Context, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error) {
	f.mu.Lock()
	f.calls++
	f.workDirs = append(f.workDirs, workDir)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	asset := &domain.FetchedAsset{Kind: f.kind}
	for _, name := range f.files {
		p := filepath.Join(workDir, name)
		if err := os.WriteFile(p, []byte("media"), 0644); err != nil {
			return nil, err
		}
		asset.Paths = append(asset.Paths, p)
	}
	return asset, nil
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEncoder writes a small file to outPath or fails.
type fakeEncoder struct {
	err error

	mu     sync.Mutex
	assets []domain.FetchedAsset
}

func (f *fakeEncoder) Encode(ctx context.Context, asset *domain.FetchedAsset, outPath string) (*encoder.Result, error) {
	f.mu.Lock()
	f.assets = append(f.assets, *asset)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	data := []byte("GIF89a-test")
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return nil, err
	}
	return &encoder.Result{Method: encoder.MethodFFmpegPalette, Size: int64(len(data))}, nil
}

type testEnv struct {
	svc     *GIFService
	repo    *repository.InMemoryJobRepository
	enc     *fakeEncoder
	outDir  string
	tempDir string
}

func newTestEnv(t *testing.T, enc *fakeEncoder, strategies ...media.Strategy) *testEnv {
	t.Helper()
	if enc == nil {
		enc = &fakeEncoder{}
	}
	outDir := filepath.Join(t.TempDir(), "out")
	tempDir := t.TempDir()
	repo := repository.NewInMemoryJobRepository()

	svc := NewGIFService(
		classifier.New(),
		strategies,
		enc,
		repo,
		config.StorageConfig{OutputPath: outDir, TempPath: tempDir},
		Timeouts{},
		testLogger(),
	)
	return &testEnv{svc: svc, repo: repo, enc: enc, outDir: outDir, tempDir: tempDir}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// blockingStrategy waits for release (or its context) before writing one
// video file.
type blockingStrategy struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	ctxErr error
}

func newBlockingStrategy() *blockingStrategy {
	return &blockingStrategy{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingStrategy) Name() string { return "blocking" }

func (b *blockingStrategy) Acquire(ctx context.Context, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		b.mu.Lock()
		b.ctxErr = ctx.Err()
		b.mu.Unlock()
		return nil, ctx.Err()
	}
	p := filepath.Join(workDir, "clip.mp4")
	if err := os.WriteFile(p, []byte("media"), 0644); err != nil {
		return nil, err
	}
	return &domain.FetchedAsset{Kind: domain.MediaKindVideo, Paths: []string{p}}, nil
}

func (b *blockingStrategy) canceled() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctxErr
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
