// Package sources contains the candidate-URL adapters feeding the
// ingestion pipeline. Every adapter emits canonicalized URLs; failures are
// non-fatal and surface as an error alongside zero URLs so sibling
// adapters keep running.
package sources

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
)

// Adapter produces candidate URLs for one configured source. Discover
// re-queries the origin on every call; results are finite and bounded by
// the per-source cap.
type Adapter interface {
	Name() string
	SourceType() models.SourceType
	Discover(ctx context.Context) ([]models.CandidateURL, error)
}

// PageFetcher is the slice of the content fetcher the listing adapter
// needs to pull a listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) models.RawContent
}

// BuildAdapters constructs one adapter per enabled source config.
func BuildAdapters(cfg *config.Config, fetcher PageFetcher, logger *zap.SugaredLogger) ([]Adapter, error) {
	var adapters []Adapter

	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}

		switch src.Adapter {
		case config.AdapterSearch:
			apiKey := os.Getenv("TAVILY_API_KEY")
			if apiKey == "" {
				return nil, fmt.Errorf("search source %q configured but TAVILY_API_KEY is not set", src.Name)
			}
			adapters = append(adapters, NewSearchAdapter(src, apiKey, cfg.Run.MaxURLsPerSource, logger))

		case config.AdapterListing:
			adapter, err := NewListingAdapter(src, fetcher, cfg.Run.MaxURLsPerSource, logger)
			if err != nil {
				return nil, err
			}
			adapters = append(adapters, adapter)

		case config.AdapterStatic:
			adapters = append(adapters, NewStaticAdapter(src, cfg.Run.MaxURLsPerSource, logger))

		default:
			// Unreachable after config validation.
			return nil, fmt.Errorf("unknown adapter kind %q for source %q", src.Adapter, src.Name)
		}
	}

	return adapters, nil
}

// canonicalCandidates converts raw URLs into CandidateURLs, dropping
// anything that fails canonicalization and deduplicating within the batch.
func canonicalCandidates(rawURLs []string, src config.SourceConfig, limit int, logger *zap.SugaredLogger) []models.CandidateURL {
	seen := make(map[string]bool, len(rawURLs))
	candidates := make([]models.CandidateURL, 0, len(rawURLs))
	now := time.Now().UTC()

	for _, raw := range rawURLs {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		canonical, err := models.CanonicalizeURL(raw)
		if err != nil {
			logger.Debugw("skipping malformed URL", "source", src.Name, "url", raw, "error", err)
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		candidates = append(candidates, models.CandidateURL{
			URL:          canonical,
			SourceName:   src.Name,
			SourceType:   models.SourceType(src.Type),
			DiscoveredAt: now,
		})
	}
	return candidates
}
