package query

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// ConstantScoreQuery matches the docs of a query or a filter and gives each
// the boost as its score. Exactly one of Query and Filter is set.
type ConstantScoreQuery struct {
	Query  engine.Query
	Filter engine.Filter
	Boost  float32
}

func (q *ConstantScoreQuery) CreateWeight(s *engine.Searcher) (engine.Weight, error) {
	boost := effectiveBoost(q.Boost)
	if q.Filter != nil {
		return &simpleWeight{query: q, scorer: func(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
			set, err := q.Filter.DocIDSet(leaf, acceptDocs)
			if err != nil || set == nil {
				return nil, err
			}
			it := set.Iterator()
			if it == nil {
				return nil, nil
			}
			return &constantScorer{PostingsIterator: it, score: boost}, nil
		}}, nil
	}

	inner, err := q.Query.CreateWeight(s)
	if err != nil {
		return nil, err
	}
	return &simpleWeight{query: q, scorer: func(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
		sub, err := inner.Scorer(leaf, acceptDocs)
		if err != nil || sub == nil {
			return nil, err
		}
		return &constantScorer{PostingsIterator: sub, score: boost, inner: sub}, nil
	}}, nil
}

func (q *ConstantScoreQuery) Rewrite(r *index.Reader) (engine.Query, error) {
	if q.Query == nil {
		return q, nil
	}
	rewritten, err := q.Query.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.Query {
		return q, nil
	}
	return &ConstantScoreQuery{Query: rewritten, Boost: q.Boost}, nil
}

func (q *ConstantScoreQuery) ExtractTerms(map[engine.Term]struct{}) {}

func (q *ConstantScoreQuery) Equal(other engine.Query) bool {
	o, ok := other.(*ConstantScoreQuery)
	if !ok || effectiveBoost(o.Boost) != effectiveBoost(q.Boost) {
		return false
	}
	if q.Filter != nil || o.Filter != nil {
		return q.Filter == o.Filter
	}
	return q.Query.Equal(o.Query)
}

func (q *ConstantScoreQuery) String() string {
	inner := ""
	if q.Filter != nil {
		inner = q.Filter.String()
	} else {
		inner = q.Query.String()
	}
	return "ConstantScore(" + inner + ")" + engine.BoostString(q.Boost)
}
