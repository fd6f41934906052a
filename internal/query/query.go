// Package query provides the executable queries of the engine: term,
// boolean, match-all/none, constant score and numeric field score queries.
package query

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// Boolean operator limits.
const (
	MaxBooleanClauses = 1024
)

var (
	ErrTooManyClauses = errors.New("boolean query exceeds maximum clause count")
)

// effectiveBoost treats the zero value as no boost.
func effectiveBoost(b float32) float32 {
	if b == 0 {
		return 1
	}
	return b
}

// boostedScorer multiplies the scores of a scorer by a constant.
type boostedScorer struct {
	engine.Scorer
	boost float32
}

func boostScorer(s engine.Scorer, boost float32) engine.Scorer {
	if boost == 1 {
		return s
	}
	return &boostedScorer{Scorer: s, boost: boost}
}

func (s *boostedScorer) Score() float32 { return s.Scorer.Score() * s.boost }

func (s *boostedScorer) Children() []engine.Scorer { return []engine.Scorer{s.Scorer} }

// constantScorer gives every doc of an iterator the same score.
type constantScorer struct {
	engine.PostingsIterator
	score float32
	inner engine.Scorer
}

func (s *constantScorer) Score() float32 { return s.score }

func (s *constantScorer) Children() []engine.Scorer {
	if s.inner == nil {
		return nil
	}
	return []engine.Scorer{s.inner}
}

// andBits accepts docs accepted by both filters; a nil filter accepts all.
type andBits struct {
	a, b bitset.Bits
}

func (x andBits) Get(doc uint32) bool {
	return (x.a == nil || x.a.Get(doc)) && (x.b == nil || x.b.Get(doc))
}

func (x andBits) Len() uint32 {
	if x.a != nil {
		return x.a.Len()
	}
	return x.b.Len()
}

// simpleWeight is the weight of queries whose scorer needs nothing from the
// searcher.
type simpleWeight struct {
	query  engine.Query
	scorer func(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error)
}

func (w *simpleWeight) Query() engine.Query { return w.query }

func (w *simpleWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	return w.scorer(leaf, acceptDocs)
}

func (w *simpleWeight) ScoresDocsOutOfOrder() bool { return false }
