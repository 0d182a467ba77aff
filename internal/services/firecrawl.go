package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const firecrawlBaseURL = "https://api.firecrawl.dev"

// FireCrawlClient is the primary content-scrape strategy. The remote
// service renders script-heavy pages and returns clean markdown.
type FireCrawlClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type fireCrawlScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type fireCrawlScrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title      string `json:"title"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// NewFireCrawlClient creates a client from the FIRECRAWL_API_KEY
// environment variable.
func NewFireCrawlClient(timeout time.Duration) (*FireCrawlClient, error) {
	apiKey := os.Getenv("FIRECRAWL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY environment variable is required")
	}

	return &FireCrawlClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    firecrawlBaseURL,
	}, nil
}

// Scrape fetches one URL through the scrape service and returns its
// markdown body.
func (fc *FireCrawlClient) Scrape(ctx context.Context, url string) (string, error) {
	payload, err := json.Marshal(fireCrawlScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fc.apiKey)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("scrape service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result fireCrawlScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode scrape response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("scrape service error for %s: %s", url, result.Error)
	}
	if result.Data.Markdown == "" {
		return "", fmt.Errorf("scrape service returned empty body for %s", url)
	}

	return result.Data.Markdown, nil
}
