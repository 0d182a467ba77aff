package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"tech-events-scraper/internal/models"
)

// s3API is the slice of the S3 client the archiver uses. *s3.Client
// satisfies it.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveClient snapshots each run's output to S3: the persisted events
// and the funnel summary. Archive failure is logged by the caller and
// never fails a run.
type ArchiveClient struct {
	client s3API
	bucket string
	logger *zap.SugaredLogger
}

// NewArchiveClient creates an archiver for the given bucket.
func NewArchiveClient(client s3API, bucket string, logger *zap.SugaredLogger) *ArchiveClient {
	return &ArchiveClient{client: client, bucket: bucket, logger: logger}
}

// ArchiveRun uploads runs/<runID>/events.json and runs/<runID>/summary.json.
func (a *ArchiveClient) ArchiveRun(ctx context.Context, runID string, events []models.PersistedEvent, summary *RunSummary) error {
	if err := a.putJSON(ctx, fmt.Sprintf("runs/%s/events.json", runID), events); err != nil {
		return err
	}
	if err := a.putJSON(ctx, fmt.Sprintf("runs/%s/summary.json", runID), summary); err != nil {
		return err
	}
	a.logger.Infow("archived run output", "run_id", runID, "bucket", a.bucket, "events", len(events))
	return nil
}

func (a *ArchiveClient) putJSON(ctx context.Context, key string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
