package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// SearchAdapter discovers candidate URLs through the Tavily search API.
type SearchAdapter struct {
	src        config.SourceConfig
	apiKey     string
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

type tavilySearchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// NewSearchAdapter creates a search adapter for one configured query.
func NewSearchAdapter(src config.SourceConfig, apiKey string, maxResults int, logger *zap.SugaredLogger) *SearchAdapter {
	return &SearchAdapter{
		src:        src,
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (a *SearchAdapter) Name() string                  { return a.src.Name }
func (a *SearchAdapter) SourceType() models.SourceType { return models.SourceType(a.src.Type) }

// Discover runs the configured query and returns the result URLs.
func (a *SearchAdapter) Discover(ctx context.Context) ([]models.CandidateURL, error) {
	payload, err := json.Marshal(tavilySearchRequest{
		APIKey:      a.apiKey,
		Query:       a.src.Query,
		MaxResults:  a.maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed for %q: %w", a.src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("search API returned status %d for %q: %s", resp.StatusCode, a.src.Name, string(body))
	}

	var result tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response for %q: %w", a.src.Name, err)
	}

	rawURLs := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		rawURLs = append(rawURLs, r.URL)
	}

	candidates := canonicalCandidates(rawURLs, a.src, a.maxResults, a.logger)
	a.logger.Infow("search discovery complete", "source", a.src.Name, "query", a.src.Query, "urls", len(candidates))
	return candidates, nil
}
