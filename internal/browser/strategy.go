package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/media"
)

// Strategy acquires media by scraping the rendered post. Unlike extraction,
// a gallery image that fails to download is skipped.
type Strategy struct {
	driver  Driver
	fetcher *media.Fetcher
	minSize int
	logger  *slog.Logger
}

// NewStrategy creates the browser strategy.
func NewStrategy(driver Driver, fetcher *media.Fetcher, minImageSize int, logger *slog.Logger) *Strategy {
	return &Strategy{
		driver:  driver,
		fetcher: fetcher,
		minSize: minImageSize,
		logger:  logger,
	}
}

// Name implements media.Strategy.
func (s *Strategy) Name() string { return "browser" }

// Acquire implements media.Strategy.
func (s *Strategy) Acquire(ctx context.Context, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error) {
	logger := s.logger.With("source_id", req.SourceID)

	html, err := s.driver.Render(ctx, req.SourceURL)
	if err != nil {
		return nil, err
	}

	page, err := Inspect(html, req.SourceURL, s.minSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolutionFailed, err)
	}

	if page.HasVideo {
		if !page.Fetchable() {
			return nil, fmt.Errorf("%w: video source %q is not fetchable", domain.ErrFetchFailed, page.VideoURL)
		}
		logger.Info("found video element", "url", page.VideoURL)
		path, err := s.fetcher.SaveURL(ctx, page.VideoURL, workDir, "media_"+req.SourceID, ".mp4")
		if err != nil {
			return nil, fmt.Errorf("%w: video: %v", domain.ErrFetchFailed, err)
		}
		return &domain.FetchedAsset{
			Kind:  domain.MediaKindVideo,
			Paths: []string{path},
		}, nil
	}

	if len(page.ImageURLs) == 0 {
		return nil, fmt.Errorf("%w: no video or image elements on page", domain.ErrResolutionFailed)
	}
	logger.Info("found image elements", "count", len(page.ImageURLs))
	return s.fetcher.FetchImages(ctx, req, page.ImageURLs, workDir, media.SkipFailed)
}
