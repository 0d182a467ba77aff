package sources

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
)

// markdownLink matches link targets in the markdown the scrape service
// returns; plainURL catches bare links in raw HTML fallback bodies.
var (
	markdownLink = regexp.MustCompile(`\]\((https?://[^)\s]+)\)`)
	plainURL     = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
)

// ListingAdapter scrapes a configured listing page and extracts event
// detail links matching the source's URL pattern.
type ListingAdapter struct {
	src     config.SourceConfig
	fetcher PageFetcher
	pattern *regexp.Regexp
	limit   int
	logger  *zap.SugaredLogger
}

// NewListingAdapter compiles the source's detail-link pattern. A pattern
// that does not compile is a configuration error and aborts startup.
func NewListingAdapter(src config.SourceConfig, fetcher PageFetcher, limit int, logger *zap.SugaredLogger) (*ListingAdapter, error) {
	pattern, err := regexp.Compile(src.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("config error: source %q has invalid url_pattern: %w", src.Name, err)
	}
	return &ListingAdapter{
		src:     src,
		fetcher: fetcher,
		pattern: pattern,
		limit:   limit,
		logger:  logger,
	}, nil
}

func (a *ListingAdapter) Name() string                  { return a.src.Name }
func (a *ListingAdapter) SourceType() models.SourceType { return models.SourceType(a.src.Type) }

// Discover fetches the listing page and collects matching detail links.
func (a *ListingAdapter) Discover(ctx context.Context) ([]models.CandidateURL, error) {
	raw := a.fetcher.Fetch(ctx, a.src.ListingURL)
	if !raw.Success {
		return nil, fmt.Errorf("failed to fetch listing page %s for source %q", a.src.ListingURL, a.src.Name)
	}

	var rawURLs []string
	for _, match := range markdownLink.FindAllStringSubmatch(raw.Body, -1) {
		if a.pattern.MatchString(match[1]) {
			rawURLs = append(rawURLs, match[1])
		}
	}
	if len(rawURLs) == 0 {
		for _, link := range plainURL.FindAllString(raw.Body, -1) {
			if a.pattern.MatchString(link) {
				rawURLs = append(rawURLs, link)
			}
		}
	}

	candidates := canonicalCandidates(rawURLs, a.src, a.limit, a.logger)
	a.logger.Infow("listing discovery complete", "source", a.src.Name, "listing", a.src.ListingURL, "urls", len(candidates))
	return candidates, nil
}
