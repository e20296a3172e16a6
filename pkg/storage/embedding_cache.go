package storage

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const minTTLDays = 1

// EmbeddingCache stores candidate embeddings keyed by paper ID and
// validated by content hash. A stored record is only trusted when its
// content hash matches the query-time hash; anything else is a miss.
type EmbeddingCache struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewEmbeddingCache creates a cache over the given table.
func NewEmbeddingCache(client DynamoDBAPI, table string) *EmbeddingCache {
	return &EmbeddingCache{client: client, table: table, now: time.Now}
}

// Get returns the cached embedding for the paper iff a record exists,
// its stored content hash matches, and the vector decodes to a
// non-empty list of finite numbers. Hash mismatches and decode
// anomalies are silent misses; only store-level failures return an
// error.
func (c *EmbeddingCache) Get(ctx context.Context, paperID, contentHash string) ([]float64, bool, error) {
	response, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            map[string]types.AttributeValue{"paperId": &types.AttributeValueMemberS{Value: paperID}},
		ConsistentRead: aws.Bool(false),
	})
	if err != nil {
		return nil, false, err
	}
	if response.Item == nil {
		return nil, false, nil
	}

	storedHash, ok := response.Item["contentHash"].(*types.AttributeValueMemberS)
	if !ok || storedHash.Value != contentHash {
		return nil, false, nil
	}

	embedding := decodeEmbedding(response.Item["embedding"])
	if embedding == nil {
		return nil, false, nil
	}
	return embedding, true, nil
}

// Put unconditionally writes the full record. Concurrent writers for
// the same key race on last-writer-wins, which is safe because the
// value is a function of the content hash.
func (c *EmbeddingCache) Put(ctx context.Context, paperID, contentHash string, embedding []float64, ttlDays int) error {
	if ttlDays < minTTLDays {
		ttlDays = minTTLDays
	}
	nowUTC := c.now().UTC()
	ttl := nowUTC.Add(time.Duration(ttlDays) * 24 * time.Hour).Unix()

	values := make([]types.AttributeValue, len(embedding))
	for i, value := range embedding {
		values[i] = &types.AttributeValueMemberN{Value: formatNumber(value)}
	}

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"paperId":     &types.AttributeValueMemberS{Value: paperID},
			"contentHash": &types.AttributeValueMemberS{Value: contentHash},
			"embedding":   &types.AttributeValueMemberL{Value: values},
			"updatedAt":   &types.AttributeValueMemberS{Value: nowUTC.Format(time.RFC3339Nano)},
			"ttl":         &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
		},
	})
	return err
}

func decodeEmbedding(attribute types.AttributeValue) []float64 {
	list, ok := attribute.(*types.AttributeValueMemberL)
	if !ok || len(list.Value) == 0 {
		return nil
	}

	embedding := make([]float64, 0, len(list.Value))
	for _, item := range list.Value {
		number, ok := item.(*types.AttributeValueMemberN)
		if !ok {
			return nil
		}
		value, err := strconv.ParseFloat(number.Value, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil
		}
		embedding = append(embedding, value)
	}
	return embedding
}
