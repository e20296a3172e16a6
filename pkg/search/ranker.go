// Package search orchestrates the retrieval-and-reranking pipeline:
// candidate search, cached or freshly computed embeddings, cosine
// scoring, and stable ordering.
package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/dante-labs/paper-search/pkg/embedding"
	"github.com/dante-labs/paper-search/pkg/models"
	"github.com/dante-labs/paper-search/pkg/observability"
	"github.com/dante-labs/paper-search/pkg/query"
	"github.com/dante-labs/paper-search/pkg/similarity"
)

const snippetMaxChars = 320

// PaperSearcher produces candidate papers for a keyword query.
type PaperSearcher interface {
	SearchPapers(ctx context.Context, query string) ([]models.CandidatePaper, error)
}

// Embedder produces embedding vectors for texts.
type Embedder interface {
	EmbedText(ctx context.Context, text string, normalize bool) ([]float64, error)
	EmbedTextsIndexed(ctx context.Context, items []embedding.IndexedText, maxWorkers int, normalize bool) map[int][]float64
}

// EmbeddingCache is the content-addressed store for candidate
// embeddings.
type EmbeddingCache interface {
	Get(ctx context.Context, paperID, contentHash string) ([]float64, bool, error)
	Put(ctx context.Context, paperID, contentHash string, embedding []float64, ttlDays int) error
}

// Config holds the construction parameters for a Ranker.
type Config struct {
	Searcher            PaperSearcher
	Embedder            Embedder
	Cache               EmbeddingCache
	EmbeddingMaxWorkers int
	EmbeddingTTLDays    int
	Logger              observability.Logger
}

// Ranker ties the pipeline together for one request.
type Ranker struct {
	searcher   PaperSearcher
	embedder   Embedder
	cache      EmbeddingCache
	maxWorkers int
	ttlDays    int
	logger     observability.Logger
}

// NewRanker creates a Ranker.
func NewRanker(cfg Config) *Ranker {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Ranker{
		searcher:   cfg.Searcher,
		embedder:   cfg.Embedder,
		cache:      cfg.Cache,
		maxWorkers: cfg.EmbeddingMaxWorkers,
		ttlDays:    cfg.EmbeddingTTLDays,
		logger:     logger,
	}
}

type pendingCandidate struct {
	paper       models.CandidatePaper
	contentHash string
}

// Rank returns the top-k candidates for the context ordered by cosine
// similarity, ties broken by upstream order. Candidates without a
// usable vector are dropped. The returned meta counts fetched
// candidates and cache hits; request ID and latency are filled in by
// the caller.
func (r *Ranker) Rank(ctx context.Context, searchContext string, k int) ([]models.RankedResult, models.SearchMeta, error) {
	candidates, err := r.searcher.SearchPapers(ctx, query.BuildUpstreamQuery(searchContext))
	if err != nil {
		return nil, models.SearchMeta{}, err
	}

	queryVector, err := r.embedder.EmbedText(ctx, searchContext, true)
	if err != nil {
		return nil, models.SearchMeta{}, err
	}

	// Vectors are joined back by paper id, but the candidate list stays
	// authoritative: duplicate ids each keep their row in the results.
	// Duplicates whose content differs all score against the last
	// stored vector for that id.
	cachedHits := 0
	vectorsByPaper := make(map[string][]float64, len(candidates))
	var missing []embedding.IndexedText
	missingMeta := make(map[int]pendingCandidate)

	for index, candidate := range candidates {
		contentHash := query.ContentHash(candidate.Title, candidate.Abstract)
		cached, hit, err := r.cache.Get(ctx, candidate.PaperID, contentHash)
		if err != nil {
			return nil, models.SearchMeta{}, err
		}
		if hit {
			cachedHits++
			vectorsByPaper[candidate.PaperID] = cached
			continue
		}

		text := query.BuildEmbeddingText(candidate.Title, candidate.Abstract)
		if text == "" {
			continue
		}
		missing = append(missing, embedding.IndexedText{Index: index, Text: text})
		missingMeta[index] = pendingCandidate{paper: candidate, contentHash: contentHash}
	}

	if len(missing) > 0 {
		embedded := r.embedder.EmbedTextsIndexed(ctx, missing, r.maxWorkers, true)
		for index, vector := range embedded {
			pending := missingMeta[index]
			vectorsByPaper[pending.paper.PaperID] = vector
			if err := r.cache.Put(ctx, pending.paper.PaperID, pending.contentHash, vector, r.ttlDays); err != nil {
				return nil, models.SearchMeta{}, err
			}
		}
	}

	ranked := make([]models.RankedPaper, 0, len(candidates))
	for _, candidate := range candidates {
		vector, ok := vectorsByPaper[candidate.PaperID]
		if !ok {
			continue
		}
		ranked = append(ranked, models.RankedPaper{
			Paper: candidate,
			Score: similarity.Cosine(queryVector, vector),
		})
	}

	// Stable sort keeps upstream order for tied scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}

	results := make([]models.RankedResult, 0, len(ranked))
	for _, item := range ranked {
		authors := item.Paper.Authors
		if authors == nil {
			authors = []string{}
		}
		results = append(results, models.RankedResult{
			PaperID:         item.Paper.PaperID,
			Title:           item.Paper.Title,
			Authors:         authors,
			Year:            item.Paper.Year,
			Venue:           item.Paper.Venue,
			URL:             item.Paper.URL,
			Score:           roundScore(item.Score),
			AbstractSnippet: abstractSnippet(item.Paper.Abstract),
		})
	}

	meta := models.SearchMeta{
		CandidatesFetched:    len(candidates),
		CachedEmbeddingsUsed: cachedHits,
	}
	return results, meta, nil
}

func roundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

// abstractSnippet collapses whitespace and truncates to 320 characters
// with a trailing ellipsis when cut. Empty abstracts get a fixed
// placeholder.
func abstractSnippet(abstract string) string {
	normalized := strings.Join(strings.Fields(abstract), " ")
	if normalized == "" {
		return "Abstract not available."
	}

	runes := []rune(normalized)
	if len(runes) <= snippetMaxChars {
		return normalized
	}
	cut := strings.TrimRight(string(runes[:snippetMaxChars-1]), " ")
	return cut + "..."
}
