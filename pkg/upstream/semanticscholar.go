// Package upstream implements the Semantic Scholar candidate search
// client. Every call is gated by the circuit breaker; failures feed
// back into it.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dante-labs/paper-search/pkg/models"
	"github.com/dante-labs/paper-search/pkg/observability"
	"github.com/dante-labs/paper-search/pkg/resilience"
)

const (
	searchPath    = "/graph/v1/paper/search"
	searchFields  = "paperId,title,abstract,authors,year,venue,url"
	userAgent     = "dante-paper-search/1.0"
	minLimit      = 1
	maxLimit      = 100
	minTimeoutSec = 1
)

// ClientConfig holds the construction parameters for a Client.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	CandidateLimit int
	TimeoutSeconds int
	Breaker        *resilience.CircuitBreaker
	Logger         observability.Logger
}

// Client issues candidate searches against the Semantic Scholar graph
// API and normalizes the results.
type Client struct {
	baseURL        string
	apiKey         string
	candidateLimit int
	httpClient     *http.Client
	breaker        *resilience.CircuitBreaker
	logger         observability.Logger
}

// NewClient creates a search client. The candidate limit is clamped to
// [1, 100] and the timeout to a minimum of one second.
func NewClient(cfg ClientConfig) *Client {
	limit := cfg.CandidateLimit
	if limit < minLimit {
		limit = minLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	timeout := cfg.TimeoutSeconds
	if timeout < minTimeoutSec {
		timeout = minTimeoutSec
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		candidateLimit: limit,
		httpClient:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		breaker:        cfg.Breaker,
		logger:         logger,
	}
}

// SearchPapers returns the normalized candidates for the given keyword
// query. It returns ErrCircuitOpen without touching the network while
// the breaker is open; HTTP 429 and 5xx map to ErrRateLimited and all
// other failures to ErrRequestFailed, each recording a breaker
// failure. A successful response records a breaker success even when
// it contains zero usable candidates.
func (c *Client) SearchPapers(ctx context.Context, query string) ([]models.CandidatePaper, error) {
	if !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(c.candidateLimit))
	params.Set("fields", searchFields)

	requestURL := c.baseURL + searchPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: malformed response", ErrRequestFailed)
	}

	c.breaker.RecordSuccess()

	papers := normalizeCandidates(payload.Data)
	c.logger.Info("semantic_scholar_candidates", map[string]interface{}{
		"count": len(papers),
	})
	return papers, nil
}

type rawAuthor struct {
	Name string `json:"name"`
}

type rawCandidate struct {
	PaperID  string          `json:"paperId"`
	Title    string          `json:"title"`
	Abstract string          `json:"abstract"`
	Authors  []rawAuthor     `json:"authors"`
	Year     json.RawMessage `json:"year"`
	Venue    string          `json:"venue"`
	URL      string          `json:"url"`
}

// normalizeCandidates decodes the upstream data array. A non-array
// payload yields an empty slice; individual malformed entries are
// dropped rather than failing the whole response.
func normalizeCandidates(data json.RawMessage) []models.CandidatePaper {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return []models.CandidatePaper{}
	}

	papers := make([]models.CandidatePaper, 0, len(rawItems))
	for _, item := range rawItems {
		var raw rawCandidate
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		if paper, ok := normalizeCandidate(raw); ok {
			papers = append(papers, paper)
		}
	}
	return papers
}

func normalizeCandidate(raw rawCandidate) (models.CandidatePaper, bool) {
	paperID := strings.TrimSpace(raw.PaperID)
	title := strings.TrimSpace(raw.Title)
	if paperID == "" || title == "" {
		return models.CandidatePaper{}, false
	}

	authors := make([]string, 0, len(raw.Authors))
	for _, author := range raw.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	// Year is kept only when the upstream value is an integer.
	var year *int
	if parsed, err := strconv.ParseInt(strings.TrimSpace(string(raw.Year)), 10, 64); err == nil {
		value := int(parsed)
		year = &value
	}

	return models.CandidatePaper{
		PaperID:  paperID,
		Title:    title,
		Abstract: strings.TrimSpace(raw.Abstract),
		Authors:  authors,
		Year:     year,
		Venue:    strings.TrimSpace(raw.Venue),
		URL:      strings.TrimSpace(raw.URL),
	}, true
}
