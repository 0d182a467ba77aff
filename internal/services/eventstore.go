package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"tech-events-scraper/internal/models"
)

// eventDynamoAPI is the slice of the DynamoDB client the event store
// uses. *dynamodb.Client satisfies it.
type eventDynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// EventStore persists canonical events keyed by URL. Upserts merge rather
// than overwrite: a later partial extraction never erases previously
// captured fields.
type EventStore struct {
	client eventDynamoAPI
	table  string
}

// NewEventStore creates an event store over the given table.
func NewEventStore(client eventDynamoAPI, table string) *EventStore {
	return &EventStore{client: client, table: table}
}

// Get fetches the persisted event for a URL, nil when absent.
func (s *EventStore) Get(ctx context.Context, url string) (*models.PersistedEvent, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var event models.PersistedEvent
	if err := attributevalue.UnmarshalMap(result.Item, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// Upsert inserts or merge-updates an event by URL and reports which one
// happened. Inserts are guarded by a condition on the key so two workers
// racing on the same URL cannot both insert; the loser retries as an
// update against the winner's row.
func (s *EventStore) Upsert(ctx context.Context, incoming models.PersistedEvent) (string, error) {
	existing, err := s.Get(ctx, incoming.URL)
	if err != nil {
		return "", err
	}

	if existing == nil {
		inserted, err := s.insertNew(ctx, incoming)
		if err != nil {
			return "", err
		}
		if inserted {
			return models.UpsertInserted, nil
		}
		// Lost the insert race; reload and merge.
		existing, err = s.Get(ctx, incoming.URL)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", fmt.Errorf("event %s vanished between conditional insert and merge", incoming.URL)
		}
	}

	merged := MergeEvents(*existing, incoming)
	merged.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(merged)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return "", fmt.Errorf("failed to update event: %w", err)
	}
	return models.UpsertUpdated, nil
}

func (s *EventStore) insertNew(ctx context.Context, event models.PersistedEvent) (bool, error) {
	now := time.Now().UTC()
	event.ID = models.GenerateEventID()
	event.CreatedAt = now
	event.UpdatedAt = now

	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#u": "url",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	return true, nil
}

// MergeEvents applies the merge policy: non-empty incoming values
// overwrite, empty incoming values preserve the existing data. Identity
// and creation metadata always come from the existing row.
func MergeEvents(existing, incoming models.PersistedEvent) models.PersistedEvent {
	merged := existing

	merged.Name = mergeString(existing.Name, incoming.Name)
	merged.Description = mergeString(existing.Description, incoming.Description)
	merged.City = mergeString(existing.City, incoming.City)
	merged.StartDate = mergeString(existing.StartDate, incoming.StartDate)
	merged.EndDate = mergeString(existing.EndDate, incoming.EndDate)
	merged.Price = mergeString(existing.Price, incoming.Price)
	merged.Organizer = mergeString(existing.Organizer, incoming.Organizer)
	merged.SourceName = mergeString(existing.SourceName, incoming.SourceName)
	merged.Topics = mergeList(existing.Topics, incoming.Topics)
	merged.Sponsors = mergeList(existing.Sponsors, incoming.Sponsors)
	merged.Speakers = mergeList(existing.Speakers, incoming.Speakers)

	merged.IsRemote = incoming.IsRemote
	if incoming.SourceType != "" {
		merged.SourceType = incoming.SourceType
	}
	if incoming.QualityScore > 0 {
		merged.QualityScore = incoming.QualityScore
	}
	return merged
}

func mergeString(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func mergeList(existing, incoming []string) []string {
	if len(incoming) > 0 {
		return incoming
	}
	return existing
}
