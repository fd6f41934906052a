package query

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/scoring"
)

// TermQuery matches documents containing the exact indexed term, scored
// with BM25.
type TermQuery struct {
	Field string
	Term  string
	Boost float32
}

func (q *TermQuery) CreateWeight(s *engine.Searcher) (engine.Weight, error) {
	r := s.Reader()
	stats := scoring.CollectionStats{
		Field:          q.Field,
		DocCount:       int64(r.MaxDoc()),
		AvgFieldLength: r.AvgFieldLength(q.Field),
	}
	docFreq := int64(r.DocFreq(q.Field, q.Term))
	return &termWeight{
		query: q,
		sim:   s.Similarity().Weigh(stats, q.Term, docFreq, effectiveBoost(q.Boost)),
	}, nil
}

func (q *TermQuery) Rewrite(*index.Reader) (engine.Query, error) { return q, nil }

func (q *TermQuery) ExtractTerms(terms map[engine.Term]struct{}) {
	terms[engine.Term{Field: q.Field, Text: q.Term}] = struct{}{}
}

func (q *TermQuery) Equal(other engine.Query) bool {
	o, ok := other.(*TermQuery)
	return ok && o.Field == q.Field && o.Term == q.Term && effectiveBoost(o.Boost) == effectiveBoost(q.Boost)
}

func (q *TermQuery) String() string {
	return q.Field + ":" + q.Term + engine.BoostString(q.Boost)
}

type termWeight struct {
	query *TermQuery
	sim   *scoring.TermWeight
}

func (w *termWeight) Query() engine.Query        { return w.query }
func (w *termWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *termWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	terms := leaf.Terms(w.query.Field)
	if terms == nil {
		return nil, nil
	}
	te := terms.Iterator()
	if !te.SeekExact(w.query.Term) {
		return nil, nil
	}
	return &termScorer{
		PostingsEnum: te.Postings(acceptDocs),
		sim:          w.sim,
		leaf:         leaf,
		field:        w.query.Field,
	}, nil
}

// Explain breaks down the score of a segment-local doc, or returns false if
// the doc does not contain the term.
func (w *termWeight) Explain(leaf *index.LeafReader, doc uint32) (scoring.Explanation, bool) {
	scorer, _ := w.Scorer(leaf, nil)
	if scorer == nil || !scorer.Advance(doc) || scorer.DocID() != doc {
		return scoring.Explanation{}, false
	}
	return w.sim.Explain(scorer.Freq(), leaf.FieldLength(w.query.Field, doc)), true
}

type termScorer struct {
	*index.PostingsEnum
	sim   *scoring.TermWeight
	leaf  *index.LeafReader
	field string
}

func (s *termScorer) Score() float32 {
	return s.sim.Score(s.Freq(), s.leaf.FieldLength(s.field, s.DocID()))
}
