// Package models defines the data types shared across the paper
// search pipeline.
package models

// CandidatePaper is one normalized upstream search result. Candidates
// are constructed by the upstream client and immutable afterwards.
type CandidatePaper struct {
	PaperID  string
	Title    string
	Abstract string
	Authors  []string
	Year     *int
	Venue    string
	URL      string
}

// RankedPaper pairs a candidate with its similarity score.
type RankedPaper struct {
	Paper CandidatePaper
	Score float64
}

// RankedResult is one entry of the client-facing results array.
type RankedResult struct {
	PaperID         string   `json:"paperId"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Year            *int     `json:"year"`
	Venue           string   `json:"venue"`
	URL             string   `json:"url"`
	Score           float64  `json:"score"`
	AbstractSnippet string   `json:"abstractSnippet"`
}

// SearchMeta carries per-request bookkeeping returned alongside the
// results. RequestID and LatencyMs are filled in by the request entry.
type SearchMeta struct {
	CandidatesFetched    int    `json:"candidatesFetched"`
	CachedEmbeddingsUsed int    `json:"cachedEmbeddingsUsed"`
	RequestID            string `json:"requestId"`
	LatencyMs            int64  `json:"latencyMs"`
}
