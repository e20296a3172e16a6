// Package query turns the free-text research context into a stable
// upstream keyword query and derives the content-addressed cache keys
// for candidate papers.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	maxQueryTerms    = 24
	fallbackQueryLen = 300
)

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9+\-]+`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"that": {}, "this": {}, "into": {}, "using": {}, "use": {},
	"what": {}, "which": {}, "when": {}, "where": {}, "how": {},
	"does": {}, "are": {}, "can": {}, "your": {}, "about": {},
}

// BuildUpstreamQuery extracts up to 24 lowercased keyword terms from
// the context, dropping stop words and duplicates while preserving
// first-occurrence order. If no terms survive, it falls back to the
// first 300 characters of the original context.
func BuildUpstreamQuery(context string) string {
	terms := wordPattern.FindAllString(context, -1)

	selected := make([]string, 0, maxQueryTerms)
	seen := make(map[string]struct{}, maxQueryTerms)
	for _, term := range terms {
		term = strings.ToLower(term)
		if _, stop := stopWords[term]; stop {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		selected = append(selected, term)
		if len(selected) >= maxQueryTerms {
			break
		}
	}

	if len(selected) > 0 {
		return strings.Join(selected, " ")
	}

	runes := []rune(context)
	if len(runes) > fallbackQueryLen {
		runes = runes[:fallbackQueryLen]
	}
	return string(runes)
}

// ContentHash returns the SHA-256 hex digest over the trimmed title
// and abstract joined by a blank line. It is the cache-invalidation
// key for candidate embeddings.
func ContentHash(title, abstract string) string {
	payload := strings.TrimSpace(title) + "\n\n" + strings.TrimSpace(abstract)
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// BuildEmbeddingText returns the text embedded for a candidate: title
// and abstract joined by a blank line when both are present, otherwise
// whichever is non-empty. An empty return means the candidate carries
// nothing worth embedding and is skipped.
func BuildEmbeddingText(title, abstract string) string {
	title = strings.TrimSpace(title)
	abstract = strings.TrimSpace(abstract)
	if title != "" && abstract != "" {
		return title + "\n\n" + abstract
	}
	if title != "" {
		return title
	}
	return abstract
}
