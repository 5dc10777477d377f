package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/iconidentify/gifgrab/internal/domain"
)

// FetchPolicy decides what happens when one image of a gallery fails.
type FetchPolicy int

const (
	// AllOrNothing aborts the gallery on the first failed image and removes
	// anything already written.
	AllOrNothing FetchPolicy = iota
	// SkipFailed keeps the images that succeeded.
	SkipFailed
)

func (p FetchPolicy) String() string {
	if p == SkipFailed {
		return "skip_failed"
	}
	return "all_or_nothing"
}

// contentTypeExtensions maps response media types to file extensions.
var contentTypeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

var errEmptyDownload = errors.New("downloaded file is empty")

// FetchImages downloads urls in order into workDir as media_<id>_<n><ext>.
// URLs that are empty or lack an http(s) scheme are skipped under either
// policy. The returned paths keep discovery order.
func (f *Fetcher) FetchImages(ctx context.Context, req domain.MediaRequest, urls []string, workDir string, policy FetchPolicy) (*domain.FetchedAsset, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no image URLs", domain.ErrFetchFailed)
	}

	logger := f.logger.With("source_id", req.SourceID, "policy", policy.String())
	var paths []string

	for i, u := range urls {
		if !isHTTPURL(u) {
			logger.Warn("skipping invalid image URL", "index", i+1, "url", u)
			continue
		}

		base := fmt.Sprintf("media_%s_%d", req.SourceID, i+1)
		p, err := f.SaveURL(ctx, u, workDir, base, ".jpg")
		if err != nil {
			if policy == AllOrNothing {
				removeAll(paths)
				return nil, fmt.Errorf("%w: image %d: %v", domain.ErrFetchFailed, i+1, err)
			}
			logger.Warn("image download failed, skipping", "index", i+1, "error", err)
			continue
		}
		logger.Info("image downloaded", "index", i+1, "path", p)
		paths = append(paths, p)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images downloaded", domain.ErrFetchFailed)
	}
	return &domain.FetchedAsset{
		Kind:  domain.MediaKindImageGallery,
		Paths: paths,
	}, nil
}

// SaveURL streams rawURL into dir/base<ext>. The extension comes from the
// response Content-Type, then the URL path, then defaultExt. A zero-byte
// result is removed and reported as an error.
func (f *Fetcher) SaveURL(ctx context.Context, rawURL, dir, base, defaultExt string) (string, error) {
	resp, err := f.downloader.Download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	dest := filepath.Join(dir, base+ExtensionFor(resp.ContentType, rawURL, defaultExt))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		os.Remove(dest)
		return "", fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		os.Remove(dest)
		return "", fmt.Errorf("close file: %w", closeErr)
	case n == 0:
		os.Remove(dest)
		return "", errEmptyDownload
	}
	return dest, nil
}

// ExtensionFor picks a file extension for a download.
func ExtensionFor(contentType, rawURL, defaultExt string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := contentTypeExtensions[strings.ToLower(mt)]; ok {
				return ext
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		for _, e := range imageExtensions {
			if ext == e {
				return ext
			}
		}
		if videoExtensions[ext] {
			return ext
		}
	}
	return defaultExt
}

func isHTTPURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
