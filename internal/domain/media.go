package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider identifies the site a post belongs to.
type Provider string

const (
	ProviderTwitter Provider = "twitter"
	ProviderYouTube Provider = "youtube"
)

// ArtifactPrefix returns the filename prefix used for artifacts of this provider.
func (p Provider) ArtifactPrefix() string {
	switch p {
	case ProviderTwitter:
		return "tweet"
	case ProviderYouTube:
		return "youtube"
	default:
		return string(p)
	}
}

// MediaKind is the resolved kind of a post's media.
type MediaKind string

const (
	MediaKindUnknown      MediaKind = ""
	MediaKindVideo        MediaKind = "video"
	MediaKindImageGallery MediaKind = "image_gallery"
)

// MediaRequest describes one conversion. It is created once per invocation
// and never modified afterwards.
type MediaRequest struct {
	SourceURL  string
	Provider   Provider
	SourceID   string
	OutputPath string
}

// Key identifies the request's source for per-identifier serialization.
func (r MediaRequest) Key() string {
	return string(r.Provider) + ":" + r.SourceID
}

// ArtifactName returns the GIF filename for this request, e.g. tweet_123.gif.
func (r MediaRequest) ArtifactName() string {
	return fmt.Sprintf("%s_%s.gif", r.Provider.ArtifactPrefix(), r.SourceID)
}

// WithOutputDir returns a copy of the request targeting dir.
func (r MediaRequest) WithOutputDir(dir string) MediaRequest {
	r.OutputPath = filepath.Join(dir, r.ArtifactName())
	return r
}

// MediaDescriptor is what the resolver learned about a post.
type MediaDescriptor struct {
	Kind       MediaKind
	URLs       []string
	FormatHint string
}

// FetchedAsset is the set of local files retrieved for a post, in
// presentation order.
type FetchedAsset struct {
	Kind  MediaKind
	Paths []string
}

// Validate checks that the asset has a kind and that every path exists
// and is non-empty.
func (a *FetchedAsset) Validate() error {
	if a == nil || len(a.Paths) == 0 {
		return fmt.Errorf("%w: no files", ErrFetchFailed)
	}
	if a.Kind == MediaKindUnknown {
		return fmt.Errorf("%w: asset kind not set", ErrUnsupportedMediaKind)
	}
	for _, p := range a.Paths {
		stat, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		if stat.Size() == 0 {
			return fmt.Errorf("%w: empty file %s", ErrFetchFailed, filepath.Base(p))
		}
	}
	return nil
}

// InferKindFromPaths guesses the media kind from the first file's extension.
func InferKindFromPaths(paths []string) MediaKind {
	if len(paths) == 0 {
		return MediaKindUnknown
	}
	switch strings.ToLower(filepath.Ext(paths[0])) {
	case ".mp4", ".mkv", ".webm":
		return MediaKindVideo
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return MediaKindImageGallery
	default:
		return MediaKindUnknown
	}
}

// GifArtifact is a finished output file.
type GifArtifact struct {
	Path      string
	Filename  string
	Size      int64
	Kind      MediaKind
	Strategy  string
	CreatedAt time.Time
}
