package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iconidentify/gifgrab/internal/classifier"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/internal/encoder"
	"github.com/iconidentify/gifgrab/internal/media"
	"github.com/iconidentify/gifgrab/internal/metrics"
	"github.com/iconidentify/gifgrab/internal/repository"
)

// GIFEncoder turns fetched media into a GIF file.
type GIFEncoder interface {
	Encode(ctx context.Context, asset *domain.FetchedAsset, outPath string) (*encoder.Result, error)
}

// Timeouts bounds the stages of a conversion. Zero disables a bound.
type Timeouts struct {
	Pipeline time.Duration
	Acquire  time.Duration
	Encode   time.Duration
}

// GIFService orchestrates the post to GIF workflow: classify the URL, try
// each acquisition strategy in order, encode and publish the artifact.
type GIFService struct {
	classifier *classifier.Classifier
	strategies []media.Strategy
	encoder    GIFEncoder
	jobRepo    repository.JobRepository
	storage    config.StorageConfig
	timeouts   Timeouts
	flights    flightGroup
	logger     *slog.Logger
}

// NewGIFService creates a new GIF service. Strategies are tried in the
// given order.
func NewGIFService(
	cls *classifier.Classifier,
	strategies []media.Strategy,
	enc GIFEncoder,
	jobRepo repository.JobRepository,
	storageCfg config.StorageConfig,
	timeouts Timeouts,
	logger *slog.Logger,
) *GIFService {
	return &GIFService{
		classifier: cls,
		strategies: strategies,
		encoder:    enc,
		jobRepo:    jobRepo,
		storage:    storageCfg,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// Convert turns any supported post URL into a GIF.
func (s *GIFService) Convert(ctx context.Context, rawURL string) (*domain.GifArtifact, error) {
	req, err := s.classifier.Classify(rawURL)
	if err != nil {
		return nil, domain.NewPipelineError("", domain.StageClassify, err)
	}
	return s.convert(ctx, req)
}

// ConvertTweet is Convert restricted to Twitter/X status URLs.
func (s *GIFService) ConvertTweet(ctx context.Context, rawURL string) (*domain.GifArtifact, error) {
	req, err := s.classifier.ClassifyAs(rawURL, domain.ProviderTwitter)
	if err != nil {
		return nil, domain.NewPipelineError("", domain.StageClassify, err)
	}
	return s.convert(ctx, req)
}

// convert collapses concurrent conversions of the same post into one run.
// A caller that goes away only abandons its own wait.
func (s *GIFService) convert(ctx context.Context, req domain.MediaRequest) (*domain.GifArtifact, error) {
	req = req.WithOutputDir(s.storage.OutputPath)

	v, shared, err := s.flights.Do(ctx, req.Key(), func(runCtx context.Context) (any, error) {
		return s.run(runCtx, req)
	})
	if shared {
		s.logger.Debug("joined in-flight conversion", "source_id", req.SourceID)
	}
	if err != nil {
		return nil, err
	}
	artifact := *v.(*domain.GifArtifact)
	return &artifact, nil
}

func (s *GIFService) run(ctx context.Context, req domain.MediaRequest) (artifact *domain.GifArtifact, err error) {
	if s.timeouts.Pipeline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Pipeline)
		defer cancel()
	}

	logger := s.logger.With("source_id", req.SourceID, "provider", req.Provider)
	start := time.Now()
	defer func() {
		metrics.ObserveConversion(string(req.Provider), err, time.Since(start))
		if err != nil {
			logger.Error("conversion failed", "error", err, "duration", time.Since(start))
		}
	}()

	logger.Info("conversion started", "url", req.SourceURL)

	workDir, err := newWorkDir(s.storage.TempDir())
	if err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StageAcquire, err)
	}
	defer os.RemoveAll(workDir)

	asset, strategy, err := s.acquire(ctx, req, workDir, logger)
	if err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StageAcquire, err)
	}
	if asset.Kind == domain.MediaKindUnknown {
		asset.Kind = domain.InferKindFromPaths(asset.Paths)
		logger.Warn("media kind inferred from file extension", "kind", asset.Kind)
	}

	encodeCtx := ctx
	if s.timeouts.Encode > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, s.timeouts.Encode)
		defer cancel()
	}
	scratchGIF := filepath.Join(workDir, req.ArtifactName())
	res, err := s.encoder.Encode(encodeCtx, asset, scratchGIF)
	if err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StageEncode, err)
	}
	metrics.EncodesTotal.WithLabelValues(string(asset.Kind), res.Method).Inc()

	if err := publish(scratchGIF, req.OutputPath); err != nil {
		return nil, domain.NewPipelineError(req.SourceID, domain.StagePublish, err)
	}
	metrics.GIFSizeBytes.Observe(float64(res.Size))

	logger.Info("conversion completed",
		"path", req.OutputPath,
		"kind", asset.Kind,
		"strategy", strategy,
		"method", res.Method,
		"size", res.Size,
		"duration", time.Since(start),
	)

	return &domain.GifArtifact{
		Path:      req.OutputPath,
		Filename:  req.ArtifactName(),
		Size:      res.Size,
		Kind:      asset.Kind,
		Strategy:  strategy,
		CreatedAt: time.Now(),
	}, nil
}

// acquire runs the strategies in order and returns the first success.
func (s *GIFService) acquire(ctx context.Context, req domain.MediaRequest, workDir string, logger *slog.Logger) (*domain.FetchedAsset, string, error) {
	if len(s.strategies) == 0 {
		return nil, "", fmt.Errorf("%w: no acquisition strategies configured", domain.ErrResolutionFailed)
	}

	var errs []error
	for _, st := range s.strategies {
		asset, err := s.attempt(ctx, st, req, workDir)
		metrics.StrategyAttemptsTotal.WithLabelValues(st.Name(), metrics.Outcome(err)).Inc()
		if err == nil {
			logger.Info("media acquired", "strategy", st.Name(), "kind", asset.Kind, "files", len(asset.Paths))
			return asset, st.Name(), nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
		if ctx.Err() != nil {
			break
		}
		logger.Warn("strategy failed", "strategy", st.Name(), "error", err)
	}
	return nil, "", errors.Join(errs...)
}

func (s *GIFService) attempt(ctx context.Context, st media.Strategy, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error) {
	if s.timeouts.Acquire > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Acquire)
		defer cancel()
	}
	asset, err := st.Acquire(ctx, req, workDir)
	if err != nil {
		return nil, err
	}
	if len(asset.Paths) == 0 {
		return nil, fmt.Errorf("%w: strategy returned no files", domain.ErrFetchFailed)
	}
	return asset, nil
}
