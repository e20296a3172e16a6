// Package app wires the process-wide singletons: settings, AWS
// clients, the circuit breaker, and the request handler. Everything is
// built once at startup and shared by reference across requests.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dante-labs/paper-search/pkg/api"
	"github.com/dante-labs/paper-search/pkg/config"
	"github.com/dante-labs/paper-search/pkg/embedding"
	"github.com/dante-labs/paper-search/pkg/observability"
	"github.com/dante-labs/paper-search/pkg/resilience"
	"github.com/dante-labs/paper-search/pkg/search"
	"github.com/dante-labs/paper-search/pkg/storage"
	"github.com/dante-labs/paper-search/pkg/upstream"
)

// Container holds the constructed service graph.
type Container struct {
	Settings *config.Settings
	Logger   observability.Logger
	Handler  *api.Handler
}

// Build constructs the full service graph from the environment.
func Build(ctx context.Context, logger observability.Logger) (*Container, error) {
	settings := config.Load()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(settings.BedrockRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg)
	embedder := embedding.NewClient(awsCfg, settings.BedrockModelID, logger.WithPrefix("embedding"))

	breaker := resilience.NewCircuitBreaker(
		settings.CircuitBreakerThreshold,
		settings.CircuitBreakerOpenSeconds,
	)

	searcher := upstream.NewClient(upstream.ClientConfig{
		BaseURL:        settings.SemanticScholarBaseURL,
		APIKey:         settings.SemanticScholarAPIKey,
		CandidateLimit: settings.CandidateLimit,
		TimeoutSeconds: settings.UpstreamTimeoutSeconds,
		Breaker:        breaker,
		Logger:         logger.WithPrefix("upstream"),
	})

	ranker := search.NewRanker(search.Config{
		Searcher:            searcher,
		Embedder:            embedder,
		Cache:               storage.NewEmbeddingCache(ddb, settings.PaperEmbeddingsTable),
		EmbeddingMaxWorkers: settings.EmbeddingMaxWorkers,
		EmbeddingTTLDays:    settings.PaperEmbeddingTTLDays,
		Logger:              logger.WithPrefix("search"),
	})

	limiter := storage.NewRateLimiter(ddb, settings.RequestRateLimitTable)
	handler := api.NewHandler(settings, limiter, ranker, logger.WithPrefix("handler"))

	return &Container{
		Settings: settings,
		Logger:   logger,
		Handler:  handler,
	}, nil
}
