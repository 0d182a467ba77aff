// Package app wires configuration, AWS clients, and pipeline stages into
// a runnable pipeline. Both entrypoints build through here.
package app

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/pipeline"
	"tech-events-scraper/internal/services"
	"tech-events-scraper/internal/sources"
)

// Build assembles a pipeline from the loaded config and the ambient
// environment. OPENAI_API_KEY is required; FIRECRAWL_API_KEY is optional
// and its absence degrades fetching to the direct fallback client.
func Build(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*pipeline.Pipeline, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	aiClient := openai.NewClient(openaiKey)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	dedup := services.NewDedupStore(dynamoClient, cfg.Storage.DedupTable)
	events := services.NewEventStore(dynamoClient, cfg.Storage.EventsTable)

	var archiver pipeline.Archiver
	if cfg.Storage.ArchiveEnabled {
		archiver = services.NewArchiveClient(s3.NewFromConfig(awsCfg), cfg.Storage.ArchiveBucket, logger)
	}

	primary, err := services.NewFireCrawlClient(cfg.Fetch.PrimaryTimeout())
	if err != nil {
		logger.Warnw("primary fetch client unavailable, using direct fallback only", "reason", err)
		primary = nil
	}
	fallback := services.NewDirectClient(cfg.Fetch.FallbackTimeout())
	fetcher := services.NewContentFetcher(primary, fallback, cfg.Fetch.RetryBackoff(), logger)

	heuristic := services.NewHeuristicExtractor(cfg.Filter.Keywords, cityAliases(cfg.Filter))
	extractor := services.NewExtractor(aiClient, heuristic, services.ExtractorConfig{
		Model:            cfg.Extraction.Model,
		Temperature:      cfg.Extraction.Temperature,
		MaxTokens:        cfg.Extraction.MaxTokens,
		Timeout:          cfg.Extraction.Timeout(),
		MinContentLength: cfg.Extraction.MinContentLength,
	}, logger)

	filter := services.NewEventFilter(cfg.Filter, logger)

	var validator pipeline.Validator
	if cfg.Validation.Enabled {
		validator = services.NewValidator(aiClient, cfg.Validation.Model,
			cfg.Validation.BatchSize, cfg.Validation.Timeout(), cfg.Validation.FailOpen, logger)
	}

	adapters, err := sources.BuildAdapters(cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no enabled sources after adapter construction")
	}

	return pipeline.New(cfg, adapters, fetcher, extractor, filter, validator,
		dedup, events, archiver, logger), nil
}

func cityAliases(cfg config.FilterConfig) map[string][]string {
	aliases := make(map[string][]string, len(cfg.TargetCities))
	for _, city := range cfg.TargetCities {
		aliases[city.Name] = city.Aliases
	}
	return aliases
}
