package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/downloader"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

// videoExtensions are accepted when searching for a downloaded video.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
}

// Fetcher retrieves resolved media into a request's work directory.
type Fetcher struct {
	extractor  Extractor
	downloader downloader.Downloader
	logger     *slog.Logger
}

// NewFetcher creates a fetcher.
func NewFetcher(extractor Extractor, dl downloader.Downloader, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		extractor:  extractor,
		downloader: dl,
		logger:     logger,
	}
}

// Fetch retrieves everything desc points at. Galleries are all-or-nothing.
func (f *Fetcher) Fetch(ctx context.Context, req domain.MediaRequest, desc *domain.MediaDescriptor, workDir string) (*domain.FetchedAsset, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: no descriptor", domain.ErrFetchFailed)
	}
	switch desc.Kind {
	case domain.MediaKindVideo:
		return f.FetchVideo(ctx, req, desc.FormatHint, workDir)
	case domain.MediaKindImageGallery:
		return f.FetchImages(ctx, req, desc.URLs, workDir, AllOrNothing)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaKind, desc.Kind)
	}
}

// FetchVideo downloads the post video through the extractor. The written
// file is located from the download result, then yt-dlp's predicted
// filename, then a glob over known video extensions.
func (f *Fetcher) FetchVideo(ctx context.Context, req domain.MediaRequest, format, workDir string) (*domain.FetchedAsset, error) {
	if format == "" {
		format = VideoFormat
	}
	base := "media_" + req.SourceID
	tmpl := filepath.Join(workDir, base+".%(ext)s")

	f.logger.Info("downloading video", "source_id", req.SourceID)
	info, err := f.extractor.Download(ctx, req.SourceURL, ytdlp.DownloadOptions{
		Format:         format,
		OutputTemplate: tmpl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	path := locateDownload(info, filepath.Join(workDir, base+".*"), videoExtensions)
	if path == "" {
		return nil, fmt.Errorf("%w: no output file for %s", domain.ErrVideoFetchFailed, req.SourceID)
	}

	f.logger.Info("video downloaded", "source_id", req.SourceID, "path", path)
	return &domain.FetchedAsset{
		Kind:  domain.MediaKindVideo,
		Paths: []string{path},
	}, nil
}

// locateDownload finds the file a yt-dlp download wrote. Matches from the
// glob ending in .part or .ytdl are in-progress files and are ignored, as
// are extensions not in allowed.
func locateDownload(info *ytdlp.Info, pattern string, allowed map[string]bool) string {
	if info != nil {
		if p := info.DownloadedPath(); p != "" && fileExists(p) {
			return p
		}
		if info.Filename != "" && fileExists(info.Filename) {
			return info.Filename
		}
	}

	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(m))] {
			return m
		}
	}
	return ""
}

func fileExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && !stat.IsDir()
}
