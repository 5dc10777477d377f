// Package media resolves what a post contains and retrieves it to local
// files.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

// VideoFormat is the yt-dlp format selector used for post videos.
const VideoFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// imageExtensions are the extensions treated as still images.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Extractor is the info/download capability backed by yt-dlp.
type Extractor interface {
	Extract(ctx context.Context, url string, opts ytdlp.ExtractOptions) (*ytdlp.Info, error)
	Download(ctx context.Context, url string, opts ytdlp.DownloadOptions) (*ytdlp.Info, error)
}

// Resolver decides whether a post holds a video or an image gallery
// without downloading media.
type Resolver struct {
	extractor Extractor
	logger    *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(extractor Extractor, logger *slog.Logger) *Resolver {
	return &Resolver{extractor: extractor, logger: logger}
}

// Resolve extracts media info for req. A "no media" extraction error falls
// through to the image path; any other extraction error is final. When no
// image URL can be found, extraction is repeated once with errors ignored.
func (r *Resolver) Resolve(ctx context.Context, req domain.MediaRequest) (*domain.MediaDescriptor, error) {
	logger := r.logger.With("source_id", req.SourceID)

	info, err := r.extractor.Extract(ctx, req.SourceURL, ytdlp.ExtractOptions{})
	if err != nil {
		if !errors.Is(err, ytdlp.ErrNoMedia) {
			return nil, fmt.Errorf("%w: %v", domain.ErrResolutionFailed, err)
		}
		logger.Warn("info extraction found no media, trying image extraction", "error", err)
		info = nil
	}

	if info == nil && hasImageExtension(req.SourceURL) {
		logger.Info("using source URL as image")
		return &domain.MediaDescriptor{
			Kind: domain.MediaKindImageGallery,
			URLs: []string{req.SourceURL},
		}, nil
	}

	if info != nil {
		if info.HasVideo() {
			logger.Info("detected video")
			return &domain.MediaDescriptor{
				Kind:       domain.MediaKindVideo,
				URLs:       []string{req.SourceURL},
				FormatHint: VideoFormat,
			}, nil
		}
		if urls := galleryURLs(info); len(urls) > 0 {
			logger.Info("detected image gallery", "count", len(urls))
			return &domain.MediaDescriptor{
				Kind: domain.MediaKindImageGallery,
				URLs: urls,
			}, nil
		}
		logger.Warn("no image URLs in extracted info")
	}

	info, err = r.extractor.Extract(ctx, req.SourceURL, ytdlp.ExtractOptions{IgnoreErrors: true})
	if err != nil {
		logger.Warn("tolerant info extraction failed", "error", err)
	} else if info != nil {
		if urls := galleryURLs(info); len(urls) > 0 {
			logger.Info("tolerant extraction found images", "count", len(urls))
			return &domain.MediaDescriptor{
				Kind: domain.MediaKindImageGallery,
				URLs: urls,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no video or image URLs", domain.ErrResolutionFailed)
}

// galleryURLs picks image URLs out of an info dictionary. Entries without a
// video codec are preferred; if none qualify every entry URL is used. A
// single item prefers its own URL when it is not video, then the best
// thumbnail, then its URL regardless.
func galleryURLs(info *ytdlp.Info) []string {
	if len(info.Entries) > 0 {
		var urls []string
		for _, e := range info.Entries {
			if e.URL != "" && !ytdlp.HasVideoCodec(e.VCodec) {
				urls = append(urls, e.URL)
			}
		}
		if len(urls) > 0 {
			return urls
		}
		for _, e := range info.Entries {
			if e.URL != "" {
				urls = append(urls, e.URL)
			}
		}
		return urls
	}

	if info.URL != "" && !ytdlp.HasVideoCodec(info.VCodec) {
		return []string{info.URL}
	}
	if thumb := info.BestThumbnail(); thumb != "" {
		return []string{thumb}
	}
	if info.URL != "" {
		return []string{info.URL}
	}
	return nil
}

func hasImageExtension(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
