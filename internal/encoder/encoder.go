// Package encoder turns fetched media into a GIF, preferring ffmpeg and
// falling back to the in-process encoder.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/pkg/ffmpeg"
	"github.com/iconidentify/gifgrab/pkg/gifenc"
)

// Encoding methods reported in Result.
const (
	MethodFFmpegPalette = "ffmpeg_palette"
	MethodLibrary       = "library"
)

// External is the ffmpeg capability the encoder needs.
type External interface {
	VideoToGIF(ctx context.Context, videoPath, outputPath string, opts ffmpeg.VideoOptions) error
	ImageSequenceToGIF(ctx context.Context, pattern, outputPath string, fps int) error
	StreamFrames(ctx context.Context, videoPath string, opts ffmpeg.FrameOptions, fn func(int, image.Image) error) error
	GetVideoInfo(ctx context.Context, videoPath string) (*ffmpeg.VideoInfo, error)
}

// Result describes a finished encode.
type Result struct {
	Method   string
	FellBack bool
	Size     int64
	Duration time.Duration
}

// Encoder produces GIFs from fetched assets.
type Encoder struct {
	external External
	cfg      config.GIFConfig
	logger   *slog.Logger
}

// New creates an encoder.
func New(external External, cfg config.GIFConfig, logger *slog.Logger) *Encoder {
	return &Encoder{external: external, cfg: cfg, logger: logger}
}

// Encode writes a GIF for asset to outPath. Either a complete GIF exists at
// outPath afterwards or nothing does.
func (e *Encoder) Encode(ctx context.Context, asset *domain.FetchedAsset, outPath string) (*Result, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var res *Result
	var err error
	switch asset.Kind {
	case domain.MediaKindVideo:
		res, err = e.encodeVideo(ctx, asset.Paths[0], outPath)
	case domain.MediaKindImageGallery:
		res, err = e.encodeImages(ctx, asset.Paths, outPath)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaKind, asset.Kind)
	}
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}

	stat, err := os.Stat(outPath)
	if err != nil || stat.Size() == 0 {
		os.Remove(outPath)
		return nil, fmt.Errorf("%w: empty output", domain.ErrEncodeFailed)
	}
	res.Size = stat.Size()
	res.Duration = time.Since(start)

	e.reportSize(outPath, res.Size)
	return res, nil
}

func (e *Encoder) encodeVideo(ctx context.Context, videoPath, outPath string) (*Result, error) {
	err := e.external.VideoToGIF(ctx, videoPath, outPath, ffmpeg.VideoOptions{
		FPS:   e.cfg.VideoFPS,
		Width: e.cfg.VideoWidth,
	})
	if err == nil {
		e.logger.Info("video encoded", "method", MethodFFmpegPalette, "path", outPath)
		return &Result{Method: MethodFFmpegPalette}, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncodeFailed, ctx.Err())
	}
	e.logger.Warn("palette encode failed, using library encoder", "error", err)
	os.Remove(outPath)

	anim := gifenc.NewAnimation(gifenc.Options{
		Delay:     time.Second / time.Duration(e.cfg.FallbackFPS),
		LoopCount: 0,
	})
	err = e.external.StreamFrames(ctx, videoPath, ffmpeg.FrameOptions{
		FPS:       e.cfg.FallbackFPS,
		Width:     e.cfg.VideoWidth,
		MaxFrames: e.fallbackFrames(ctx, videoPath),
	}, func(_ int, frame image.Image) error {
		anim.Add(frame)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: library fallback: %v", domain.ErrEncodeFailed, err)
	}
	if err := anim.WriteFile(outPath); err != nil {
		return nil, fmt.Errorf("%w: library fallback: %v", domain.ErrEncodeFailed, err)
	}
	e.logger.Info("video encoded", "method", MethodLibrary, "frames", anim.Len(), "path", outPath)
	return &Result{Method: MethodLibrary, FellBack: true}, nil
}

// fallbackFrames bounds the library encoder to the clip length at the
// fallback rate, never above FallbackMaxFrames. A video ffprobe cannot
// read gets the configured cap.
func (e *Encoder) fallbackFrames(ctx context.Context, videoPath string) int {
	limit := e.cfg.FallbackMaxFrames
	info, err := e.external.GetVideoInfo(ctx, videoPath)
	if err != nil {
		e.logger.Warn("ffprobe failed", "error", err, "max_frames", limit)
		return limit
	}

	if info.Duration > 0 {
		n := int(math.Ceil(info.Duration * float64(e.cfg.FallbackFPS)))
		if limit <= 0 || n < limit {
			limit = n
		}
	}
	e.logger.Info("library fallback source",
		"duration_s", info.Duration,
		"source_fps", fmt.Sprintf("%.2f", info.FrameRate),
		"width", info.Width,
		"height", info.Height,
		"codec", info.Codec,
		"max_frames", limit,
	)
	return limit
}

func (e *Encoder) encodeImages(ctx context.Context, paths []string, outPath string) (*Result, error) {
	err := e.encodeImageSequence(ctx, paths, outPath)
	if err == nil {
		e.logger.Info("images encoded", "method", MethodFFmpegPalette, "count", len(paths), "path", outPath)
		return &Result{Method: MethodFFmpegPalette}, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncodeFailed, ctx.Err())
	}
	e.logger.Warn("image sequence encode failed, using library encoder", "error", err)
	os.Remove(outPath)

	err = gifenc.WriteAnimated(outPath, paths, gifenc.Options{
		Delay:     e.cfg.FrameDuration,
		LoopCount: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: library fallback: %v", domain.ErrEncodeFailed, err)
	}
	e.logger.Info("images encoded", "method", MethodLibrary, "count", len(paths), "path", outPath)
	return &Result{Method: MethodLibrary, FellBack: true}, nil
}

var errMixedExtensions = errors.New("images have mixed formats")

// encodeImageSequence stages paths as seq_0001<ext>, seq_0002<ext>, ... in
// a scratch directory next to outPath and encodes them with ffmpeg.
func (e *Encoder) encodeImageSequence(ctx context.Context, paths []string, outPath string) error {
	ext := strings.ToLower(filepath.Ext(paths[0]))
	for _, p := range paths[1:] {
		if strings.ToLower(filepath.Ext(p)) != ext {
			return errMixedExtensions
		}
	}

	scratch, err := os.MkdirTemp(filepath.Dir(outPath), "seq-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	for i, p := range paths {
		if err := stageFile(p, filepath.Join(scratch, fmt.Sprintf("seq_%04d%s", i+1, ext))); err != nil {
			return err
		}
	}

	fps := AdjustedFPS(len(paths), e.cfg.ImageFPS)
	pattern := filepath.Join(scratch, "seq_%04d"+ext)
	return e.external.ImageSequenceToGIF(ctx, pattern, outPath, fps)
}

// AdjustedFPS slows short galleries down so each image stays visible: 1 fps
// for up to two images, 2 fps for up to five, otherwise def.
func AdjustedFPS(n, def int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 5:
		return 2
	default:
		return def
	}
}

// reportSize logs the GIF size against the configured budget. No
// compression is attempted.
func (e *Encoder) reportSize(path string, size int64) {
	target := e.cfg.TargetSizeBytes()
	e.logger.Info("gif size",
		"path", path,
		"size_mb", fmt.Sprintf("%.2f", float64(size)/(1024*1024)),
		"target_mb", e.cfg.TargetSizeMB,
		"over_budget", target > 0 && size > target,
	)
}

// stageFile hard-links src to dst, copying when linking is not possible.
func stageFile(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("stage %s: %w", filepath.Base(src), err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("stage %s: %w", filepath.Base(src), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("stage %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}
