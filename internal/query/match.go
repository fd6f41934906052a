package query

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// MatchAllQuery matches all live documents with a constant score.
type MatchAllQuery struct {
	Boost float32
}

func (q *MatchAllQuery) CreateWeight(*engine.Searcher) (engine.Weight, error) {
	boost := effectiveBoost(q.Boost)
	return &simpleWeight{query: q, scorer: func(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
		if leaf.MaxDoc() == 0 {
			return nil, nil
		}
		return &constantScorer{PostingsIterator: engine.NewAllDocsIterator(leaf.MaxDoc(), acceptDocs), score: boost}, nil
	}}, nil
}

func (q *MatchAllQuery) Rewrite(*index.Reader) (engine.Query, error) { return q, nil }
func (q *MatchAllQuery) ExtractTerms(map[engine.Term]struct{})       {}

func (q *MatchAllQuery) Equal(other engine.Query) bool {
	o, ok := other.(*MatchAllQuery)
	return ok && effectiveBoost(o.Boost) == effectiveBoost(q.Boost)
}

func (q *MatchAllQuery) String() string { return "*:*" + engine.BoostString(q.Boost) }

// MatchNoneQuery matches no documents.
type MatchNoneQuery struct{}

func (q *MatchNoneQuery) CreateWeight(*engine.Searcher) (engine.Weight, error) {
	return &simpleWeight{query: q, scorer: func(*index.LeafReader, bitset.Bits) (engine.Scorer, error) {
		return nil, nil
	}}, nil
}

func (q *MatchNoneQuery) Rewrite(*index.Reader) (engine.Query, error) { return q, nil }
func (q *MatchNoneQuery) ExtractTerms(map[engine.Term]struct{})       {}

func (q *MatchNoneQuery) Equal(other engine.Query) bool {
	_, ok := other.(*MatchNoneQuery)
	return ok
}

func (q *MatchNoneQuery) String() string { return "MatchNone" }

// FieldScoreQuery matches docs that have a value for a numeric field and
// scores each with that value times the boost.
type FieldScoreQuery struct {
	Field string
	Boost float32
}

func (q *FieldScoreQuery) CreateWeight(*engine.Searcher) (engine.Weight, error) {
	boost := effectiveBoost(q.Boost)
	return &simpleWeight{query: q, scorer: func(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
		dv := leaf.NumericDocValues(q.Field)
		has := hasValueBits{dv: dv, maxDoc: leaf.MaxDoc()}
		it := engine.NewAllDocsIterator(leaf.MaxDoc(), andBits{a: acceptDocs, b: has})
		return &fieldScorer{PostingsIterator: it, dv: dv, boost: boost}, nil
	}}, nil
}

func (q *FieldScoreQuery) Rewrite(*index.Reader) (engine.Query, error) { return q, nil }
func (q *FieldScoreQuery) ExtractTerms(map[engine.Term]struct{})       {}

func (q *FieldScoreQuery) Equal(other engine.Query) bool {
	o, ok := other.(*FieldScoreQuery)
	return ok && o.Field == q.Field && effectiveBoost(o.Boost) == effectiveBoost(q.Boost)
}

func (q *FieldScoreQuery) String() string {
	return "score(" + q.Field + ")" + engine.BoostString(q.Boost)
}

type hasValueBits struct {
	dv     *index.NumericDocValues
	maxDoc uint32
}

func (b hasValueBits) Get(doc uint32) bool { return b.dv.Has(doc) }
func (b hasValueBits) Len() uint32         { return b.maxDoc }

type fieldScorer struct {
	engine.PostingsIterator
	dv    *index.NumericDocValues
	boost float32
}

func (s *fieldScorer) Score() float32 {
	return float32(s.dv.Get(s.DocID())) * s.boost
}
