package sources

import (
	"context"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
)

// StaticAdapter emits a curated list of URLs from config. It is the
// fallback source of record when search and listing origins are down.
type StaticAdapter struct {
	src    config.SourceConfig
	limit  int
	logger *zap.SugaredLogger
}

// NewStaticAdapter creates an adapter over the configured URL list.
func NewStaticAdapter(src config.SourceConfig, limit int, logger *zap.SugaredLogger) *StaticAdapter {
	return &StaticAdapter{src: src, limit: limit, logger: logger}
}

func (a *StaticAdapter) Name() string                  { return a.src.Name }
func (a *StaticAdapter) SourceType() models.SourceType { return models.SourceType(a.src.Type) }

// Discover returns the configured URLs, canonicalized.
func (a *StaticAdapter) Discover(ctx context.Context) ([]models.CandidateURL, error) {
	candidates := canonicalCandidates(a.src.URLs, a.src, a.limit, a.logger)
	a.logger.Infow("static discovery complete", "source", a.src.Name, "urls", len(candidates))
	return candidates, nil
}
