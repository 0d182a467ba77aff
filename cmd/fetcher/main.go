// Local pipeline runner for development. Reads .env for API keys, runs
// one full pipeline pass, and prints the run summary and dedup stats.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tech-events-scraper/internal/app"
	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/services"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to pipeline config")
	showStats := flag.Bool("stats", false, "print dedup table stats instead of running the pipeline")
	flag.Parse()

	// Missing .env is fine; keys may already be in the environment.
	_ = godotenv.Load()

	base, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer base.Sync()
	logger := base.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalw("config load failed", "path", *configPath, "error", err)
	}

	ctx := context.Background()

	if *showStats {
		printStats(ctx, cfg, logger)
		return
	}

	p, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("pipeline build failed", "error", err)
	}

	summary, err := p.Run(ctx)
	if err != nil {
		logger.Fatalw("run failed", "error", err)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

func printStats(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatalw("failed to load AWS config", "error", err)
	}

	dedup := services.NewDedupStore(dynamodb.NewFromConfig(awsCfg), cfg.Storage.DedupTable)
	stats, err := dedup.Stats(ctx)
	if err != nil {
		logger.Fatalw("failed to read dedup stats", "error", err)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
}
