package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/downloader"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDownloader() *downloader.HTTPDownloader {
	return downloader.NewHTTPDownloader(config.DownloadConfig{
		Timeout:   2 * time.Second,
		UserAgent: "test-agent",
	}, testLogger())
}

func testRequest() domain.MediaRequest {
	return domain.MediaRequest{
		SourceURL: "https://x.com/user/status/42",
		Provider:  domain.ProviderTwitter,
		SourceID:  "42",
	}
}

// noMediaErr mimics the error yt-dlp returns for image-only tweets.
var noMediaErr = &ytdlp.ExecError{
	Stderr: "ERROR: [twitter] 42: No video could be found in this tweet",
	Err:    errors.New("exit status 1"),
}

// fakeExtractor is a scripted Extractor.
type fakeExtractor struct {
	strict      *ytdlp.Info
	strictErr   error
	tolerant    *ytdlp.Info
	tolerantErr error

	download func(opts ytdlp.DownloadOptions) (*ytdlp.Info, error)

	extractCalls  []ytdlp.ExtractOptions
	downloadCalls []ytdlp.DownloadOptions
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, opts ytdlp.ExtractOptions) (*ytdlp.Info, error) {
	f.extractCalls = append(f.extractCalls, opts)
	if opts.IgnoreErrors {
		return f.tolerant, f.tolerantErr
	}
	return f.strict, f.strictErr
}

func (f *fakeExtractor) Download(ctx context.Context, url string, opts ytdlp.DownloadOptions) (*ytdlp.Info, error) {
	f.downloadCalls = append(f.downloadCalls, opts)
	if f.download == nil {
		return nil, errors.New("download not scripted")
	}
	return f.download(opts)
}
