package media

import (
	"context"

	"github.com/iconidentify/gifgrab/internal/domain"
)

// Strategy is one way of turning a post into local media files. Strategies
// are tried in order until one succeeds.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error)
}

// ExtractorStrategy resolves a post with yt-dlp info extraction and fetches
// the result.
type ExtractorStrategy struct {
	resolver *Resolver
	fetcher  *Fetcher
}

// NewExtractorStrategy creates the extraction strategy.
func NewExtractorStrategy(resolver *Resolver, fetcher *Fetcher) *ExtractorStrategy {
	return &ExtractorStrategy{resolver: resolver, fetcher: fetcher}
}

// Name implements Strategy.
func (s *ExtractorStrategy) Name() string { return "extractor" }

// Acquire implements Strategy.
func (s *ExtractorStrategy) Acquire(ctx context.Context, req domain.MediaRequest, workDir string) (*domain.FetchedAsset, error) {
	desc, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, req, desc, workDir)
}
