package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"tech-events-scraper/internal/app"
	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/services"
)

// TriggerEvent is the EventBridge payload that starts a run.
type TriggerEvent struct {
	Source      string `json:"source"`
	DetailType  string `json:"detail-type"`
	TriggerType string `json:"trigger-type,omitempty"` // manual | scheduled
}

// RunResponse is the function's reply, echoing the run summary.
type RunResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Summary *services.RunSummary `json:"summary,omitempty"`
}

func handler(ctx context.Context, event TriggerEvent) (RunResponse, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return RunResponse{Success: false, Message: err.Error()}, err
	}
	defer base.Sync()
	logger := base.Sugar()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Errorw("config load failed", "path", configPath, "error", err)
		return RunResponse{Success: false, Message: err.Error()}, err
	}

	p, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("pipeline build failed", "error", err)
		return RunResponse{Success: false, Message: err.Error()}, err
	}

	logger.Infow("trigger received", "source", event.Source, "trigger_type", event.TriggerType)

	summary, err := p.Run(ctx)
	if err != nil {
		logger.Errorw("run failed", "error", err)
		return RunResponse{Success: false, Message: err.Error()}, err
	}

	return RunResponse{
		Success: true,
		Message: fmt.Sprintf("persisted %d events (%d inserted, %d updated)",
			summary.Persisted, summary.Inserted, summary.Updated),
		Summary: summary,
	}, nil
}

func main() {
	lambda.Start(handler)
}
