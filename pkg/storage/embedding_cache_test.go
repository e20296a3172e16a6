package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items in memory per table.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	getErr  error
	putErr  error
	puts    []*dynamodb.PutItemInput
	getters []*dynamodb.GetItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.getters = append(f.getters, params)
	key := params.Key["paperId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, params)
	key := params.Item["paperId"].(*types.AttributeValueMemberS).Value
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return nil, errors.New("not used by the cache")
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	store := newFakeDynamo()
	cache := NewEmbeddingCache(store, "embeddings")
	ctx := context.Background()

	embedding := []float64{0.12345678, -1, 0, 2.5}
	require.NoError(t, cache.Put(ctx, "p1", "hash-a", embedding, 30))

	got, hit, err := cache.Get(ctx, "p1", "hash-a")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, embedding, got)
}

func TestEmbeddingCacheMisses(t *testing.T) {
	ctx := context.Background()

	t.Run("absent record", func(t *testing.T) {
		cache := NewEmbeddingCache(newFakeDynamo(), "embeddings")
		got, hit, err := cache.Get(ctx, "missing", "h")
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Nil(t, got)
	})

	t.Run("content hash mismatch", func(t *testing.T) {
		store := newFakeDynamo()
		cache := NewEmbeddingCache(store, "embeddings")
		require.NoError(t, cache.Put(ctx, "p1", "hash-a", []float64{1}, 30))

		got, hit, err := cache.Get(ctx, "p1", "hash-b")
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Nil(t, got)
	})

	t.Run("empty vector", func(t *testing.T) {
		store := newFakeDynamo()
		store.items["p1"] = map[string]types.AttributeValue{
			"paperId":     &types.AttributeValueMemberS{Value: "p1"},
			"contentHash": &types.AttributeValueMemberS{Value: "h"},
			"embedding":   &types.AttributeValueMemberL{Value: nil},
		}
		cache := NewEmbeddingCache(store, "embeddings")

		_, hit, err := cache.Get(ctx, "p1", "h")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("non-numeric vector entry", func(t *testing.T) {
		store := newFakeDynamo()
		store.items["p1"] = map[string]types.AttributeValue{
			"paperId":     &types.AttributeValueMemberS{Value: "p1"},
			"contentHash": &types.AttributeValueMemberS{Value: "h"},
			"embedding": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: "oops"},
			}},
		}
		cache := NewEmbeddingCache(store, "embeddings")

		_, hit, err := cache.Get(ctx, "p1", "h")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("non-finite vector entry", func(t *testing.T) {
		store := newFakeDynamo()
		store.items["p1"] = map[string]types.AttributeValue{
			"paperId":     &types.AttributeValueMemberS{Value: "p1"},
			"contentHash": &types.AttributeValueMemberS{Value: "h"},
			"embedding": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberN{Value: "NaN"},
			}},
		}
		cache := NewEmbeddingCache(store, "embeddings")

		_, hit, err := cache.Get(ctx, "p1", "h")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		store := newFakeDynamo()
		store.getErr = errors.New("dynamo down")
		cache := NewEmbeddingCache(store, "embeddings")

		_, hit, err := cache.Get(ctx, "p1", "h")
		assert.Error(t, err)
		assert.False(t, hit)
	})
}

func TestEmbeddingCachePutRecordShape(t *testing.T) {
	store := newFakeDynamo()
	cache := NewEmbeddingCache(store, "embeddings")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Put(context.Background(), "p1", "h", []float64{0.123456789, 1}, 30))
	require.Len(t, store.puts, 1)
	item := store.puts[0].Item

	assert.Equal(t, "embeddings", *store.puts[0].TableName)
	assert.Equal(t, "h", item["contentHash"].(*types.AttributeValueMemberS).Value)

	// 8-decimal formatting, trailing zeros trimmed.
	list := item["embedding"].(*types.AttributeValueMemberL).Value
	assert.Equal(t, "0.12345679", list[0].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "1", list[1].(*types.AttributeValueMemberN).Value)

	wantTTL := now.Add(30 * 24 * time.Hour).Unix()
	assert.Equal(t, wantTTL, mustParseInt(t, item["ttl"].(*types.AttributeValueMemberN).Value))

	_, err := time.Parse(time.RFC3339Nano, item["updatedAt"].(*types.AttributeValueMemberS).Value)
	assert.NoError(t, err)
}

func TestEmbeddingCachePutClampsTTLDays(t *testing.T) {
	store := newFakeDynamo()
	cache := NewEmbeddingCache(store, "embeddings")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Put(context.Background(), "p1", "h", []float64{1}, 0))
	item := store.puts[0].Item

	wantTTL := now.Add(24 * time.Hour).Unix()
	assert.Equal(t, wantTTL, mustParseInt(t, item["ttl"].(*types.AttributeValueMemberN).Value))
}

func mustParseInt(t *testing.T, value string) int64 {
	t.Helper()
	parsed, err := strconv.ParseInt(value, 10, 64)
	require.NoError(t, err)
	return parsed
}
