// Package api implements the request entry for the paper search
// service: envelope parsing, payload validation, rate limiting, and
// the mapping from pipeline errors to client-facing statuses.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dante-labs/paper-search/pkg/config"
	"github.com/dante-labs/paper-search/pkg/models"
	"github.com/dante-labs/paper-search/pkg/observability"
	"github.com/dante-labs/paper-search/pkg/upstream"
)

// RequestEvent is the invocation-event envelope the handler consumes.
// The HTTP transport adapts incoming requests into this shape.
type RequestEvent struct {
	Body            string         `json:"body"`
	IsBase64Encoded bool           `json:"isBase64Encoded"`
	RequestContext  RequestContext `json:"requestContext"`
}

// RequestContext carries the request ID and caller identity.
type RequestContext struct {
	RequestID string              `json:"requestId"`
	HTTP      *HTTPRequestContext `json:"http,omitempty"`
	Identity  *RequestIdentity    `json:"identity,omitempty"`
}

// HTTPRequestContext is the HTTP flavor of the caller identity.
type HTTPRequestContext struct {
	SourceIP string `json:"sourceIp"`
}

// RequestIdentity is the legacy flavor of the caller identity.
type RequestIdentity struct {
	SourceIP string `json:"sourceIp"`
}

// Response is the envelope returned to the transport.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// RateLimiter is the per-client counter consulted before any work.
type RateLimiter interface {
	Check(ctx context.Context, sourceIP string, perMinuteLimit int) (bool, error)
}

// Ranker runs the retrieval-and-reranking pipeline.
type Ranker interface {
	Rank(ctx context.Context, searchContext string, k int) ([]models.RankedResult, models.SearchMeta, error)
}

// Handler is the request entry.
type Handler struct {
	settings *config.Settings
	limiter  RateLimiter
	ranker   Ranker
	logger   observability.Logger
}

// NewHandler creates a Handler.
func NewHandler(settings *config.Settings, limiter RateLimiter, ranker Ranker, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Handler{settings: settings, limiter: limiter, ranker: ranker, logger: logger}
}

type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

// Handle processes one request event end to end.
func (h *Handler) Handle(ctx context.Context, event RequestEvent) Response {
	startedAt := time.Now()
	requestID := strings.TrimSpace(event.RequestContext.RequestID)
	sourceIP := extractSourceIP(event.RequestContext)

	payload, err := parseBody(event)
	if err != nil {
		return jsonResponse(400, map[string]interface{}{"message": "Invalid JSON payload."})
	}

	searchContext, k, err := validateSearchPayload(payload, h.settings.MaxContextChars, h.settings.MaxK)
	if err != nil {
		return jsonResponse(400, map[string]interface{}{"message": err.Error()})
	}

	if !h.settings.Configured() {
		h.logger.Error("paper_search_missing_table_config", map[string]interface{}{
			"request_id": requestID,
		})
		return jsonResponse(500, map[string]interface{}{"message": "Service is not configured."})
	}

	allowed, err := h.limiter.Check(ctx, sourceIP, h.settings.RateLimitPerMinute)
	if err != nil {
		h.logger.Error("paper_search_rate_limit_failed", map[string]interface{}{
			"request_id": requestID,
			"error_type": fmt.Sprintf("%T", err),
			"error":      err.Error(),
		})
		return jsonResponse(500, map[string]interface{}{"message": "Rate limiting service is unavailable."})
	}
	if !allowed {
		return jsonResponse(429, map[string]interface{}{"message": "Too many requests. Please try again shortly."})
	}

	results, meta, err := h.ranker.Rank(ctx, searchContext, k)
	if err != nil {
		return h.errorResponse(requestID, err)
	}

	meta.RequestID = requestID
	meta.LatencyMs = time.Since(startedAt).Milliseconds()

	h.logger.Info("paper_search_success", map[string]interface{}{
		"request_id": requestID,
		"source_ip":  sourceIP,
		"candidates": meta.CandidatesFetched,
		"cache_hits": meta.CachedEmbeddingsUsed,
		"results":    len(results),
		"latency_ms": meta.LatencyMs,
	})

	if results == nil {
		results = []models.RankedResult{}
	}
	return jsonResponse(200, map[string]interface{}{
		"results": results,
		"meta":    meta,
	})
}

func (h *Handler) errorResponse(requestID string, err error) Response {
	switch {
	case errors.Is(err, upstream.ErrCircuitOpen):
		h.logger.Warn("paper_search_circuit_open", map[string]interface{}{
			"request_id": requestID,
		})
		return jsonResponse(503, map[string]interface{}{
			"message": "Semantic Scholar is temporarily throttled. Please retry shortly.",
		})
	case errors.Is(err, upstream.ErrRateLimited):
		h.logger.Warn("paper_search_upstream_rate_limited", map[string]interface{}{
			"request_id": requestID,
		})
		return jsonResponse(503, map[string]interface{}{
			"message": "Semantic Scholar is rate limiting requests right now. Please retry shortly.",
		})
	case errors.Is(err, upstream.ErrRequestFailed):
		h.logger.Error("paper_search_upstream_failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return jsonResponse(502, map[string]interface{}{
			"message": "Semantic Scholar request failed. Please retry.",
		})
	default:
		h.logger.Error("paper_search_failed", map[string]interface{}{
			"request_id": requestID,
			"error_type": fmt.Sprintf("%T", err),
			"error":      err.Error(),
		})
		return jsonResponse(500, map[string]interface{}{
			"message": "Paper search is temporarily unavailable. Please try again.",
		})
	}
}

// parseBody decodes the event body into a JSON object. An empty body
// yields an empty payload; a body that is valid JSON but not an object
// is reported by validation, matching the error surface of a broken
// payload.
func parseBody(event RequestEvent) (map[string]interface{}, error) {
	raw := event.Body
	if raw == "" {
		return map[string]interface{}{}, nil
	}

	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, err
		}
		raw = string(decoded)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	payload, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, errors.New("payload is not a JSON object")
	}
	return payload, nil
}

// validateSearchPayload checks the context and k fields and returns
// the whitespace-normalized context with the clamped k.
func validateSearchPayload(payload map[string]interface{}, maxContextChars, maxK int) (string, int, error) {
	rawContext, ok := payload["context"].(string)
	if !ok {
		return "", 0, &validationError{message: "context must be a string."}
	}

	normalized := strings.Join(strings.Fields(rawContext), " ")
	if normalized == "" {
		return "", 0, &validationError{message: "context is required."}
	}
	if utf8.RuneCountInString(normalized) > maxContextChars {
		return "", 0, &validationError{message: fmt.Sprintf("context must be %d characters or fewer.", maxContextChars)}
	}

	k := 10
	if rawK, present := payload["k"]; present {
		number, ok := rawK.(float64)
		if !ok {
			return "", 0, &validationError{message: "k must be a number."}
		}
		k = int(math.Trunc(number))
	}
	if k < 1 {
		k = 1
	}
	if k > maxK {
		k = maxK
	}
	return normalized, k, nil
}

func extractSourceIP(rc RequestContext) string {
	if rc.HTTP != nil {
		if ip := strings.TrimSpace(rc.HTTP.SourceIP); ip != "" {
			return ip
		}
	}
	if rc.Identity != nil {
		if ip := strings.TrimSpace(rc.Identity.SourceIP); ip != "" {
			return ip
		}
	}
	return "unknown"
}

func jsonResponse(statusCode int, payload map[string]interface{}) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{"message":"Internal error."}`)
		statusCode = 500
	}
	return Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(body),
	}
}
