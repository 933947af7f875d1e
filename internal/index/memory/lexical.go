package memory

import (
	"strings"

	"github.com/reglens/reglens/internal/index"
)

// stopWords are excluded from lexical matching.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"what": true, "which": true, "who": true, "when": true, "where": true,
	"why": true, "how": true,
}

// queryTerms extracts matchable terms from a query: lowercased, punctuation
// trimmed, short words and stopwords dropped.
func queryTerms(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:()")
		if len(w) > 2 && !stopWords[w] {
			terms = append(terms, w)
		}
	}
	return terms
}

// lexicalScore is a term-frequency relevance score over the text and title
// fields, with title occurrences weighted up. Like a real lexical engine it
// is unbounded; the hybrid ranker normalizes it by the configured scale.
func lexicalScore(doc index.IndexedDocument, terms []string) float64 {
	text := strings.ToLower(doc.Text)
	title := strings.ToLower(doc.DocumentTitle)

	var score float64
	for _, term := range terms {
		score += float64(strings.Count(text, term))
		score += 2 * float64(strings.Count(title, term))
	}
	return score
}
