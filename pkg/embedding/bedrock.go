// Package embedding wraps the AWS Bedrock runtime for text embedding.
// It exposes a single-text call and a bounded-concurrency batched path
// that tolerates per-item failure.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/dante-labs/paper-search/pkg/observability"
)

// ErrNoVector is returned when the model response does not include a
// usable embedding vector.
var ErrNoVector = errors.New("embedding response did not include a valid vector")

// BedrockRuntimeClient is the slice of the Bedrock runtime API used by
// this package. It exists so tests can substitute a fake.
type BedrockRuntimeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client generates embeddings through a Titan-style Bedrock model.
type Client struct {
	client  BedrockRuntimeClient
	modelID string
	logger  observability.Logger
}

// NewClient creates an embedding client backed by the given AWS
// configuration and model.
func NewClient(awsCfg aws.Config, modelID string, logger observability.Logger) *Client {
	return NewClientWithRuntime(bedrockruntime.NewFromConfig(awsCfg), modelID, logger)
}

// NewClientWithRuntime creates an embedding client over an existing
// runtime client. Used directly in tests.
func NewClientWithRuntime(runtime BedrockRuntimeClient, modelID string, logger observability.Logger) *Client {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Client{client: runtime, modelID: modelID, logger: logger}
}

type embedRequest struct {
	InputText string `json:"inputText"`
	Normalize bool   `json:"normalize"`
}

type embedResponse struct {
	Embedding  []float64   `json:"embedding"`
	Embeddings [][]float64 `json:"embeddings"`
}

// EmbedText embeds a single text. The response may carry the vector in
// either an "embedding" field or as the first entry of an "embeddings"
// array; anything else fails with ErrNoVector.
func (c *Client) EmbedText(ctx context.Context, text string, normalize bool) ([]float64, error) {
	body, err := json.Marshal(embedRequest{InputText: text, Normalize: normalize})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	response, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke embedding model: %w", err)
	}

	var payload embedResponse
	if err := json.Unmarshal(response.Body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	vector := payload.Embedding
	if len(vector) == 0 && len(payload.Embeddings) > 0 {
		vector = payload.Embeddings[0]
	}
	if len(vector) == 0 {
		return nil, ErrNoVector
	}
	return vector, nil
}

// IndexedText pairs a caller-side index with the text to embed. The
// index is the join key back to the candidate list.
type IndexedText struct {
	Index int
	Text  string
}

type indexedResult struct {
	index  int
	vector []float64
	err    error
}

// EmbedTextsIndexed embeds the given items with up to maxWorkers
// concurrent calls. Per-item failures are logged and omitted from the
// result; the call itself never fails. Output order is irrelevant, the
// map key is the item index.
func (c *Client) EmbedTextsIndexed(ctx context.Context, items []IndexedText, maxWorkers int, normalize bool) map[int][]float64 {
	results := make(map[int][]float64, len(items))
	if len(items) == 0 {
		return results
	}

	workers := maxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan IndexedText)
	out := make(chan indexedResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				vector, err := c.EmbedText(ctx, item.Text, normalize)
				out <- indexedResult{index: item.Index, vector: vector, err: err}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(out)

	for result := range out {
		if result.err != nil {
			c.logger.Warn("paper_embedding_failed", map[string]interface{}{
				"candidate_index": result.index,
				"error_type":      fmt.Sprintf("%T", result.err),
				"error":           result.err.Error(),
			})
			continue
		}
		results[result.index] = result.vector
	}
	return results
}
