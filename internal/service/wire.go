package service

import (
	"log/slog"

	"github.com/iconidentify/gifgrab/internal/browser"
	"github.com/iconidentify/gifgrab/internal/classifier"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/downloader"
	"github.com/iconidentify/gifgrab/internal/encoder"
	"github.com/iconidentify/gifgrab/internal/media"
	"github.com/iconidentify/gifgrab/internal/repository"
	"github.com/iconidentify/gifgrab/pkg/ffmpeg"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

// Services bundles everything the binaries need.
type Services struct {
	GIF     *GIFService
	YouTube *YouTubeService
	Jobs    *repository.InMemoryJobRepository
	YTDLP   *ytdlp.Client
	FFmpeg  *ffmpeg.Processor
}

// New wires the conversion pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Services {
	ytdlpClient := ytdlp.New(cfg.Extractor.Path)
	ffmpegProc := ffmpeg.New(cfg.FFmpeg.Path, cfg.FFmpeg.ProbePath)
	dl := downloader.NewHTTPDownloader(cfg.Download, logger.With("component", "downloader"))
	cls := classifier.New()
	jobRepo := repository.NewInMemoryJobRepository()

	mediaLogger := logger.With("component", "media")
	fetcher := media.NewFetcher(ytdlpClient, dl, mediaLogger)
	strategies := []media.Strategy{
		media.NewExtractorStrategy(media.NewResolver(ytdlpClient, mediaLogger), fetcher),
	}
	if cfg.Browser.Enabled {
		browserLogger := logger.With("component", "browser")
		driver := browser.NewChromeDriver(cfg.Browser, cfg.Download.UserAgent, browserLogger)
		strategies = append(strategies, browser.NewStrategy(driver, fetcher, cfg.Browser.MinImageSize, browserLogger))
	}

	enc := encoder.New(ffmpegProc, cfg.GIF, logger.With("component", "encoder"))

	gifSvc := NewGIFService(
		cls,
		strategies,
		enc,
		jobRepo,
		cfg.Storage,
		Timeouts{
			Pipeline: cfg.Pipeline.Timeout,
			Acquire:  cfg.Extractor.Timeout,
			Encode:   cfg.FFmpeg.Timeout,
		},
		logger.With("component", "gif_service"),
	)

	ytSvc := NewYouTubeService(
		cls,
		ytdlpClient,
		cfg.Storage,
		cfg.Extractor.Timeout,
		logger.With("component", "youtube_service"),
	)

	return &Services{
		GIF:     gifSvc,
		YouTube: ytSvc,
		Jobs:    jobRepo,
		YTDLP:   ytdlpClient,
		FFmpeg:  ffmpegProc,
	}
}
