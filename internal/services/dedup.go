package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"tech-events-scraper/internal/models"
)

// dedupDynamoAPI is the slice of the DynamoDB client the dedup store
// uses. *dynamodb.Client satisfies it.
type dedupDynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DedupStore tracks the processing state of every canonical URL the
// pipeline has ever seen. It is the only shared mutable state touched by
// concurrent workers; all writes are single-item UpdateItem calls so
// check-then-act on one URL cannot race across workers.
type DedupStore struct {
	client dedupDynamoAPI
	table  string
}

// DedupStats summarizes the tracking table (totals per source type).
type DedupStats struct {
	Total      int64            `json:"total"`
	Enriched   int64            `json:"enriched"`
	Unenriched int64            `json:"unenriched"`
	BySource   map[string]int64 `json:"by_source_type"`
}

// NewDedupStore creates a dedup store over the given table.
func NewDedupStore(client dedupDynamoAPI, table string) *DedupStore {
	return &DedupStore{client: client, table: table}
}

// Lookup returns the record for a URL, or nil when the URL has never
// been seen.
func (s *DedupStore) Lookup(ctx context.Context, url string) (*models.DedupRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up dedup record: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record models.DedupRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dedup record: %w", err)
	}
	return &record, nil
}

// RecordAttempt creates the record on first sighting and increments the
// attempt counter on every call, in one atomic write.
func (s *DedupStore) RecordAttempt(ctx context.Context, url string, sourceType models.SourceType) (*models.DedupRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"url": &types.AttributeValueMemberS{Value: url},
		},
		UpdateExpression: aws.String(
			"SET source_type = if_not_exists(source_type, :st), " +
				"first_seen_at = if_not_exists(first_seen_at, :now), " +
				"is_enriched = if_not_exists(is_enriched, :false), " +
				"last_attempt_at = :now " +
				"ADD attempt_count :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st":    &types.AttributeValueMemberS{Value: string(sourceType)},
			":now":   &types.AttributeValueMemberS{Value: now},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":one":   &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt for %s: %w", url, err)
	}

	var record models.DedupRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dedup record: %w", err)
	}
	return &record, nil
}

// MarkEnriched flips the enriched flag. Idempotent: marking an already
// enriched URL is a no-op write.
func (s *DedupStore) MarkEnriched(ctx context.Context, url string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"url": &types.AttributeValueMemberS{Value: url},
		},
		UpdateExpression: aws.String("SET is_enriched = :true, enriched_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s enriched: %w", url, err)
	}
	return nil
}

// SampleEnriched returns up to n enriched URLs of the given source type,
// used by the forced re-enrichment path to refresh stale records.
func (s *DedupStore) SampleEnriched(ctx context.Context, n int, sourceType models.SourceType) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	var urls []string
	var startKey map[string]types.AttributeValue

	for len(urls) < n {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("is_enriched = :true AND source_type = :st"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":true": &types.AttributeValueMemberBOOL{Value: true},
				":st":   &types.AttributeValueMemberS{Value: string(sourceType)},
			},
			Limit:             aws.Int32(int32(n * 5)),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sample enriched URLs: %w", err)
		}

		for _, item := range result.Items {
			var record models.DedupRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				continue
			}
			urls = append(urls, record.URL)
			if len(urls) >= n {
				break
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return urls, nil
}

// Stats scans the tracking table and aggregates counts.
func (s *DedupStore) Stats(ctx context.Context) (*DedupStats, error) {
	stats := &DedupStats{BySource: make(map[string]int64)}
	var startKey map[string]types.AttributeValue

	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan dedup table: %w", err)
		}

		for _, item := range result.Items {
			var record models.DedupRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				continue
			}
			stats.Total++
			if record.IsEnriched {
				stats.Enriched++
			} else {
				stats.Unenriched++
			}
			stats.BySource[string(record.SourceType)]++
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return stats, nil
}
