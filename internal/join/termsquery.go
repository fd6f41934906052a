package join

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// TermsQuery matches the docs whose field holds any key of a frozen
// JoinKeyTable, each with the boost as its score.
type TermsQuery struct {
	// Boost is the score of every match. Zero means 1.
	Boost float32

	field     string
	fromQuery engine.Query
	keys      *JoinKeyTable
}

// NewTermsQuery matches the docs of field holding one of keys. fromQuery is
// the query the keys were collected with; it only takes part in equality.
func NewTermsQuery(field string, fromQuery engine.Query, keys *JoinKeyTable) *TermsQuery {
	return &TermsQuery{field: field, fromQuery: fromQuery, keys: keys}
}

// Field returns the field matched against the keys.
func (q *TermsQuery) Field() string { return q.field }

// Keys returns the key table the query matches.
func (q *TermsQuery) Keys() *JoinKeyTable { return q.keys }

func (q *TermsQuery) CreateWeight(*engine.Searcher) (engine.Weight, error) {
	return &termsWeight{query: q, boost: effectiveBoost(q.Boost)}, nil
}

func (q *TermsQuery) Rewrite(*index.Reader) (engine.Query, error) { return q, nil }
func (q *TermsQuery) ExtractTerms(map[engine.Term]struct{})       {}

func (q *TermsQuery) Equal(other engine.Query) bool {
	o, ok := other.(*TermsQuery)
	return ok &&
		o.field == q.field &&
		effectiveBoost(o.Boost) == effectiveBoost(q.Boost) &&
		o.fromQuery.Equal(q.fromQuery)
}

func (q *TermsQuery) String() string {
	return "TermsQuery{field=" + q.field + "}" + engine.BoostString(q.Boost)
}

type termsWeight struct {
	query *TermsQuery
	boost float32
}

func (w *termsWeight) Query() engine.Query        { return w.query }
func (w *termsWeight) ScoresDocsOutOfOrder() bool { return false }

// Scorer unions the postings of every key found in the segment into a bit
// set.
func (w *termsWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	if w.query.keys.Len() == 0 {
		return nil, nil
	}
	terms := leaf.Terms(w.query.field)
	if terms == nil {
		return nil, nil
	}

	matched := bitset.New(leaf.MaxDoc())
	found := false
	e := newKeyTermsEnum(terms.Iterator(), w.query.keys)
	for e.Next() {
		postings := e.Postings(acceptDocs)
		for postings.Next() {
			matched.Set(postings.DocID())
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return &constantBitSetScorer{BitSetIterator: engine.NewBitSetIterator(matched, nil), score: w.boost}, nil
}

type constantBitSetScorer struct {
	*engine.BitSetIterator
	score float32
}

func (s *constantBitSetScorer) Score() float32 { return s.score }
