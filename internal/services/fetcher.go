package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/models"
)

// ContentFetcher resolves a URL to raw content: the remote scrape service
// first, then a direct retrieval. Each strategy gets at most one retry
// with a short fixed backoff. Both strategies failing is not an error —
// the item comes back with Success=false and is retried on a future run.
type ContentFetcher struct {
	primary  *FireCrawlClient
	fallback *DirectClient
	retry    RetryPolicy
	logger   *zap.SugaredLogger
}

// NewContentFetcher wires both fetch strategies behind the shared retry
// policy. primary may be nil when the scrape service is not configured;
// fetching then goes straight to the direct strategy.
func NewContentFetcher(primary *FireCrawlClient, fallback *DirectClient, backoff time.Duration, logger *zap.SugaredLogger) *ContentFetcher {
	return &ContentFetcher{
		primary:  primary,
		fallback: fallback,
		retry: RetryPolicy{
			MaxAttempts: 2,
			Backoff:     backoff,
			Retryable:   IsTransient,
		},
		logger: logger,
	}
}

// Fetch attempts both strategies in order and reports the one that
// produced content.
func (cf *ContentFetcher) Fetch(ctx context.Context, url string) models.RawContent {
	if cf.primary != nil {
		var body string
		err := cf.retry.Do(ctx, func() error {
			var scrapeErr error
			body, scrapeErr = cf.primary.Scrape(ctx, url)
			return scrapeErr
		})
		if err == nil && body != "" {
			return models.RawContent{
				URL:         url,
				Body:        body,
				FetchMethod: models.FetchMethodPrimary,
				FetchedAt:   time.Now().UTC(),
				Success:     true,
			}
		}
		cf.logger.Warnw("primary fetch failed, falling back to direct retrieval",
			"url", url, "stage", "fetch", "error", err)
	}

	var body string
	err := cf.retry.Do(ctx, func() error {
		var getErr error
		body, getErr = cf.fallback.Get(ctx, url)
		return getErr
	})
	if err != nil {
		cf.logger.Warnw("all fetch strategies failed",
			"url", url, "stage", "fetch", "error", err)
		return models.RawContent{
			URL:       url,
			FetchedAt: time.Now().UTC(),
			Success:   false,
		}
	}

	return models.RawContent{
		URL:         url,
		Body:        body,
		FetchMethod: models.FetchMethodFallback,
		FetchedAt:   time.Now().UTC(),
		Success:     true,
	}
}
