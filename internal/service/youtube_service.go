package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/iconidentify/gifgrab/internal/classifier"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/media"
	"github.com/iconidentify/gifgrab/internal/metrics"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

// Download qualities accepted by YouTubeService.
const (
	QualityBest   = "best"
	QualityMedium = "medium"
	QualityWorst  = "worst"

	DefaultContainer = "mp4"
)

var containerPattern = regexp.MustCompile(`^[a-z0-9]{2,5}$`)

// VideoDownloadRequest asks for a YouTube video file.
type VideoDownloadRequest struct {
	URL     string
	Quality string
	Format  string
}

// VideoFile is a downloaded video in the output directory.
type VideoFile struct {
	Path     string
	Filename string
	Size     int64
}

// YouTubeService downloads YouTube videos into a scratch directory and
// publishes the finished file to the output directory.
type YouTubeService struct {
	classifier *classifier.Classifier
	extractor  media.Extractor
	storage    config.StorageConfig
	timeout    time.Duration
	flights    flightGroup
	logger     *slog.Logger
}

// NewYouTubeService creates a new YouTube download service.
func NewYouTubeService(
	cls *classifier.Classifier,
	extractor media.Extractor,
	storageCfg config.StorageConfig,
	timeout time.Duration,
	logger *slog.Logger,
) *YouTubeService {
	return &YouTubeService{
		classifier: cls,
		extractor:  extractor,
		storage:    storageCfg,
		timeout:    timeout,
		logger:     logger,
	}
}

// FormatSelector builds the yt-dlp format selector for a quality and
// container. An empty quality means best and an empty container mp4.
func FormatSelector(quality, container string) (string, error) {
	if container == "" {
		container = DefaultContainer
	}
	container = strings.ToLower(container)
	if !containerPattern.MatchString(container) {
		return "", fmt.Errorf("%w: format %q", domain.ErrInvalidOption, container)
	}

	switch strings.ToLower(quality) {
	case "", QualityBest:
		return fmt.Sprintf("bestvideo[ext=%[1]s]+bestaudio[ext=m4a]/best[ext=%[1]s]/best", container), nil
	case QualityMedium:
		return fmt.Sprintf("bestvideo[height<=720][ext=%[1]s]+bestaudio[ext=m4a]/best[height<=720][ext=%[1]s]/best[height<=720]", container), nil
	case QualityWorst:
		return fmt.Sprintf("worstvideo[ext=%[1]s]+worstaudio[ext=m4a]/worst[ext=%[1]s]/worst", container), nil
	default:
		return "", fmt.Errorf("%w: quality %q", domain.ErrInvalidOption, quality)
	}
}

// Download fetches the video behind req.URL. Concurrent requests for the
// same video and container share one download; a caller that goes away
// only abandons its own wait.
func (s *YouTubeService) Download(ctx context.Context, req VideoDownloadRequest) (*VideoFile, error) {
	mreq, err := s.classifier.ClassifyAs(req.URL, domain.ProviderYouTube)
	if err != nil {
		return nil, domain.NewPipelineError("", domain.StageClassify, err)
	}
	format, err := FormatSelector(req.Quality, req.Format)
	if err != nil {
		return nil, domain.NewPipelineError(mreq.SourceID, domain.StageClassify, err)
	}

	container := strings.ToLower(req.Format)
	if container == "" {
		container = DefaultContainer
	}

	key := mreq.Key() + ":" + format
	v, _, err := s.flights.Do(ctx, key, func(runCtx context.Context) (any, error) {
		return s.download(runCtx, mreq, format, container)
	})
	if err != nil {
		return nil, err
	}
	file := *v.(*VideoFile)
	return &file, nil
}

func (s *YouTubeService) download(ctx context.Context, req domain.MediaRequest, format, container string) (file *VideoFile, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With("source_id", req.SourceID, "provider", req.Provider)
	start := time.Now()
	defer func() {
		metrics.VideoDownloadsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	workDir, err := newWorkDir(s.storage.TempDir())
	if err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StageAcquire, err)
	}
	defer os.RemoveAll(workDir)

	base := "youtube_" + req.SourceID
	logger.Info("video download started", "url", req.SourceURL, "format", format)

	info, err := s.extractor.Download(ctx, req.SourceURL, ytdlp.DownloadOptions{
		Format:         format,
		OutputTemplate: filepath.Join(workDir, base+".%(ext)s"),
		MergeFormat:    container,
	})
	if err != nil {
		logger.Error("video download failed", "error", err)
		return nil, domain.NewPipelineError(req.SourceID, domain.StageAcquire, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err))
	}

	scratch := locateNewest(info, workDir, filepath.Join(workDir, base+".*"))
	if scratch == "" {
		logger.Error("downloaded video not found", "dir", workDir)
		return nil, domain.NewPipelineError(req.SourceID, domain.StageAcquire, domain.ErrVideoFetchFailed)
	}

	path := filepath.Join(s.storage.OutputPath, filepath.Base(scratch))
	if err := publish(scratch, path); err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StagePublish, err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StagePublish, err)
	}

	logger.Info("video download completed", "path", path, "size", stat.Size(), "duration", time.Since(start))
	return &VideoFile{
		Path:     path,
		Filename: filepath.Base(path),
		Size:     stat.Size(),
	}, nil
}

// ArtifactPath resolves a downloaded file by name.
func (s *YouTubeService) ArtifactPath(filename string) (string, error) {
	return ArtifactPath(s.storage.OutputPath, filename)
}

// locateNewest finds a finished download inside dir: the path yt-dlp
// reported, the predicted filename, then the most recently modified match
// of pattern. Reported paths outside dir are ignored.
func locateNewest(info *ytdlp.Info, dir, pattern string) string {
	if info != nil {
		for _, p := range []string{info.DownloadedPath(), info.Filename} {
			if p != "" && filepath.Dir(p) == filepath.Clean(dir) && regularFile(p) {
				return p
			}
		}
	}

	matches, _ := filepath.Glob(pattern)
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, m := range matches {
		ext := strings.ToLower(filepath.Ext(m))
		if ext == ".part" || ext == ".ytdl" || ext == ".tmp" || ext == ".gif" {
			continue
		}
		stat, err := os.Stat(m)
		if err != nil || !stat.Mode().IsRegular() {
			continue
		}
		found = append(found, candidate{path: m, mod: stat.ModTime()})
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })
	return found[0].path
}

func regularFile(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular()
}
