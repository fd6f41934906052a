package engine

import (
	"strconv"

	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
)

// Term is a field and an indexed value.
type Term struct {
	Field string
	Text  string
}

func (t Term) String() string { return t.Field + ":" + t.Text }

// Query describes what to match. Queries are immutable once built and may be
// shared by concurrent searches.
type Query interface {
	// CreateWeight binds the query to a searcher's statistics.
	CreateWeight(s *Searcher) (Weight, error)

	// Rewrite returns a simpler equivalent query, or the receiver itself when
	// nothing can be simplified.
	Rewrite(r *index.Reader) (Query, error)

	// ExtractTerms adds the terms the query scores on to terms.
	ExtractTerms(terms map[Term]struct{})

	// Equal reports whether other matches and scores like the receiver.
	Equal(other Query) bool

	String() string
}

// Weight is a query bound to a searcher. It creates per-segment scorers.
type Weight interface {
	// Query returns the query the weight was created from.
	Query() Query

	// Scorer returns a scorer over leaf restricted to acceptDocs, or nil when
	// nothing in the segment can match. A nil acceptDocs accepts every doc.
	Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (Scorer, error)

	// ScoresDocsOutOfOrder reports whether BulkScorer may deliver docs out of
	// doc ID order when asked to.
	ScoresDocsOutOfOrder() bool
}

// BulkScorer pushes every match of a segment into a collector.
type BulkScorer interface {
	Score(c Collector) error
}

// BulkScorerWeight is implemented by weights with a dedicated bulk scoring
// path. When inOrder is false the returned BulkScorer may collect docs in
// any order.
type BulkScorerWeight interface {
	Weight
	BulkScorer(leaf *index.LeafReader, inOrder bool, acceptDocs bitset.Bits) (BulkScorer, error)
}

// scorerBulkScorer drives a scorer into a collector in doc ID order.
type scorerBulkScorer struct {
	scorer Scorer
}

// NewScorerBulkScorer wraps scorer as an in-order BulkScorer.
func NewScorerBulkScorer(scorer Scorer) BulkScorer {
	return &scorerBulkScorer{scorer: scorer}
}

func (b *scorerBulkScorer) Score(c Collector) error {
	c.SetScorer(b.scorer)
	for b.scorer.Next() {
		c.Collect(b.scorer.DocID())
	}
	return nil
}

// BoostString formats a boost suffix for query strings.
func BoostString(boost float32) string {
	if boost == 1 || boost == 0 {
		return ""
	}
	return "^" + strconv.FormatFloat(float64(boost), 'g', -1, 32)
}
