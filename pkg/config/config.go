// Package config loads the frozen service settings from the
// environment. Settings are read once per process and every numeric
// option is clamped at load.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the complete service configuration.
type Settings struct {
	BedrockRegion  string
	BedrockModelID string

	SemanticScholarBaseURL string
	SemanticScholarAPIKey  string

	CandidateLimit            int
	MaxContextChars           int
	MaxK                      int
	PaperEmbeddingTTLDays     int
	RateLimitPerMinute        int
	CircuitBreakerThreshold   int
	CircuitBreakerOpenSeconds int
	EmbeddingMaxWorkers       int
	UpstreamTimeoutSeconds    int

	PaperEmbeddingsTable  string
	RequestRateLimitTable string

	ListenAddress string
}

// Load reads settings from the environment, applying defaults and
// clamps. Table names have no default; an empty value means the
// service is not configured and requests fail with 500.
func Load() *Settings {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("BEDROCK_REGION", "us-east-2")
	v.SetDefault("BEDROCK_EMBED_MODEL_ID", "amazon.titan-embed-text-v2:0")
	v.SetDefault("SEMANTIC_SCHOLAR_BASE_URL", "https://api.semanticscholar.org")
	v.SetDefault("SEMANTIC_SCHOLAR_API_KEY", "")
	v.SetDefault("CANDIDATE_LIMIT", 100)
	v.SetDefault("MAX_CONTEXT_CHARS", 8000)
	v.SetDefault("MAX_K", 10)
	v.SetDefault("PAPER_EMBEDDING_TTL_DAYS", 30)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 3)
	v.SetDefault("CIRCUIT_BREAKER_OPEN_SECONDS", 30)
	v.SetDefault("EMBEDDING_MAX_WORKERS", 6)
	v.SetDefault("UPSTREAM_TIMEOUT_SECONDS", 8)
	v.SetDefault("PAPER_EMBEDDINGS_TABLE_NAME", "")
	v.SetDefault("REQUEST_RATE_LIMIT_TABLE_NAME", "")
	v.SetDefault("LISTEN_ADDRESS", ":8080")

	return &Settings{
		BedrockRegion:             stringOrDefault(v.GetString("BEDROCK_REGION"), "us-east-2"),
		BedrockModelID:            stringOrDefault(v.GetString("BEDROCK_EMBED_MODEL_ID"), "amazon.titan-embed-text-v2:0"),
		SemanticScholarBaseURL:    stringOrDefault(v.GetString("SEMANTIC_SCHOLAR_BASE_URL"), "https://api.semanticscholar.org"),
		SemanticScholarAPIKey:     strings.TrimSpace(v.GetString("SEMANTIC_SCHOLAR_API_KEY")),
		CandidateLimit:            clampRange(v.GetInt("CANDIDATE_LIMIT"), 1, 100),
		MaxContextChars:           clampMin(v.GetInt("MAX_CONTEXT_CHARS"), 200),
		MaxK:                      clampMin(v.GetInt("MAX_K"), 1),
		PaperEmbeddingTTLDays:     clampMin(v.GetInt("PAPER_EMBEDDING_TTL_DAYS"), 1),
		RateLimitPerMinute:        clampMin(v.GetInt("RATE_LIMIT_PER_MINUTE"), 1),
		CircuitBreakerThreshold:   clampMin(v.GetInt("CIRCUIT_BREAKER_THRESHOLD"), 1),
		CircuitBreakerOpenSeconds: clampMin(v.GetInt("CIRCUIT_BREAKER_OPEN_SECONDS"), 5),
		EmbeddingMaxWorkers:       clampMin(v.GetInt("EMBEDDING_MAX_WORKERS"), 1),
		UpstreamTimeoutSeconds:    clampMin(v.GetInt("UPSTREAM_TIMEOUT_SECONDS"), 1),
		PaperEmbeddingsTable:      strings.TrimSpace(v.GetString("PAPER_EMBEDDINGS_TABLE_NAME")),
		RequestRateLimitTable:     strings.TrimSpace(v.GetString("REQUEST_RATE_LIMIT_TABLE_NAME")),
		ListenAddress:             stringOrDefault(v.GetString("LISTEN_ADDRESS"), ":8080"),
	}
}

// Configured reports whether both table names are set.
func (s *Settings) Configured() bool {
	return s.PaperEmbeddingsTable != "" && s.RequestRateLimitTable != ""
}

func stringOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func clampMin(value, minimum int) int {
	if value < minimum {
		return minimum
	}
	return value
}

func clampRange(value, minimum, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}
