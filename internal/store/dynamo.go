// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	// DynamoDB limits per request.
	dynamoBatchGetLimit   = 100
	dynamoBatchWriteLimit = 25

	// dynamoMaxRetries bounds resubmission of unprocessed batch items.
	dynamoMaxRetries = 5
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoConfig configures the DynamoDB backend.
type DynamoConfig struct {
	Table    string
	Region   string
	Endpoint string // optional, e.g. DynamoDB Local
}

// dynamoItem is the table layout.
type dynamoItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	CreatedAt string `dynamodbav:"CreatedAt"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

func (it *dynamoItem) record() (*Record, error) {
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse CreatedAt of %s/%s: %w", it.PK, it.SK, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse UpdatedAt of %s/%s: %w", it.PK, it.SK, err)
	}
	return &Record{
		Collection: it.PK,
		Key:        it.SK,
		Data:       json.RawMessage(it.Data),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// DynamoStore implements DurableStore on a single DynamoDB table with
// partition key PK (collection) and sort key SK (record key).
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

// OpenDynamo builds a client from the default AWS credential chain.
func OpenDynamo(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb table name is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoStore(client, cfg.Table), nil
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func dynamoKey(collection, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: collection},
		"SK": &types.AttributeValueMemberS{Value: key},
	}
}

// FindOne implements DurableStore.
func (s *DynamoStore) FindOne(ctx context.Context, collection, key string) (*Record, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            dynamoKey(collection, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", collection, key, err)
	}
	return item.record()
}

// FindMany implements DurableStore. Keys are split into BatchGetItem
// chunks which are fetched in parallel.
func (s *DynamoStore) FindMany(ctx context.Context, collection string, keys []string) ([]*Record, error) {
	keys = dedupe(keys)
	if len(keys) == 0 {
		return []*Record{}, nil
	}

	var (
		mu   sync.Mutex
		recs = make([]*Record, 0, len(keys))
	)

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(keys); start += dynamoBatchGetLimit {
		chunk := keys[start:min(start+dynamoBatchGetLimit, len(keys))]
		g.Go(func() error {
			items, err := s.batchGet(gctx, collection, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			recs = append(recs, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *DynamoStore) batchGet(ctx context.Context, collection string, keys []string) ([]*Record, error) {
	itemKeys := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		itemKeys = append(itemKeys, dynamoKey(collection, k))
	}

	request := map[string]types.KeysAndAttributes{
		s.table: {Keys: itemKeys, ConsistentRead: aws.Bool(true)},
	}

	var recs []*Record
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > dynamoMaxRetries {
			return nil, fmt.Errorf("batch get %s: unprocessed keys after %d retries", collection, dynamoMaxRetries)
		}

		out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("batch get %s: %w", collection, err)
		}

		for _, raw := range out.Responses[s.table] {
			var item dynamoItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshal batch item: %w", err)
			}
			rec, err := item.record()
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		request = out.UnprocessedKeys
	}
	return recs, nil
}

// Upsert implements DurableStore. The previous CreatedAt is read first and
// carried over.
func (s *DynamoStore) Upsert(ctx context.Context, collection, key string, data any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	item := dynamoItem{PK: collection, SK: key, Data: string(payload), CreatedAt: now, UpdatedAt: now}

	prev, err := s.FindOne(ctx, collection, key)
	switch {
	case err == nil:
		item.CreatedAt = prev.CreatedAt.UTC().Format(time.RFC3339Nano)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item %s/%s: %w", collection, key, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

// DeleteOne implements DurableStore.
func (s *DynamoStore) DeleteOne(ctx context.Context, collection, key string) (int, error) {
	if err := validateKey(collection, key); err != nil {
		return 0, err
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          dynamoKey(collection, key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if len(out.Attributes) == 0 {
		return 0, nil
	}
	return 1, nil
}

// queryCollection pages through every item of a collection.
func (s *DynamoStore) queryCollection(ctx context.Context, collection string, projectKeysOnly bool, fn func(map[string]types.AttributeValue) error) error {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(collection)))
	if projectKeysOnly {
		builder = builder.WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK")))
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if projectKeysOnly {
		input.ProjectionExpression = expr.Projection()
	}

	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("query %s: %w", collection, err)
		}
		for _, item := range out.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// DeleteMany implements DurableStore. Matching keys are found with a
// keys-only query and removed in BatchWriteItem chunks.
func (s *DynamoStore) DeleteMany(ctx context.Context, collection string, filter Filter) (int, error) {
	if collection == "" {
		return 0, ErrInvalidKey
	}

	var doomed []string
	err := s.queryCollection(ctx, collection, true, func(item map[string]types.AttributeValue) error {
		var k dynamoItem
		if err := attributevalue.UnmarshalMap(item, &k); err != nil {
			return fmt.Errorf("unmarshal key: %w", err)
		}
		if filter.Match(k.SK) {
			doomed = append(doomed, k.SK)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(doomed); start += dynamoBatchWriteLimit {
		chunk := doomed[start:min(start+dynamoBatchWriteLimit, len(doomed))]
		if err := s.batchDelete(ctx, collection, chunk); err != nil {
			return deleted, err
		}
		deleted += len(chunk)
	}
	return deleted, nil
}

func (s *DynamoStore) batchDelete(ctx context.Context, collection string, keys []string) error {
	writes := make([]types.WriteRequest, 0, len(keys))
	for _, k := range keys {
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: dynamoKey(collection, k)},
		})
	}

	request := map[string][]types.WriteRequest{s.table: writes}
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > dynamoMaxRetries {
			return fmt.Errorf("batch delete %s: unprocessed items after %d retries", collection, dynamoMaxRetries)
		}
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: request})
		if err != nil {
			return fmt.Errorf("batch delete %s: %w", collection, err)
		}
		request = out.UnprocessedItems
	}
	return nil
}

// Count implements DurableStore.
func (s *DynamoStore) Count(ctx context.Context, collection string) (int, error) {
	n := 0
	err := s.queryCollection(ctx, collection, true, func(map[string]types.AttributeValue) error {
		n++
		return nil
	})
	return n, err
}

// Scan implements DurableStore.
func (s *DynamoStore) Scan(ctx context.Context, collection string, fn func(*Record) error) error {
	return s.queryCollection(ctx, collection, false, func(raw map[string]types.AttributeValue) error {
		var item dynamoItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return fmt.Errorf("unmarshal item: %w", err)
		}
		rec, err := item.record()
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

// Close implements DurableStore. The SDK client holds no resources.
func (s *DynamoStore) Close() error {
	return nil
}
