package join

import (
	"github.com/RoaringBitmap/roaring/v2"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/metrics"
)

// TermsIncludingScoreQuery matches the docs whose field holds any key of a
// frozen JoinKeyTable and scores each with the score of the key it holds.
// A doc holding several keys gets the score of the first of them in byte
// order.
type TermsIncludingScoreQuery struct {
	// Boost multiplies the key scores. Zero means 1.
	Boost float32

	field     string
	multi     bool
	keys      *JoinKeyTable
	scores    []float32
	fromQuery engine.Query
	origQuery engine.Query
	metrics   *metrics.Metrics
}

// NewTermsIncludingScoreQuery matches the docs of field holding one of keys,
// scoring each with scores[keyID]. multipleValuesPerDocument must be set
// when a doc may hold several keys. fromQuery is the query the keys were
// collected with.
func NewTermsIncludingScoreQuery(field string, multipleValuesPerDocument bool, keys *JoinKeyTable, scores []float32, fromQuery engine.Query) *TermsIncludingScoreQuery {
	return &TermsIncludingScoreQuery{
		field:     field,
		multi:     multipleValuesPerDocument,
		keys:      keys,
		scores:    scores,
		fromQuery: fromQuery,
		origQuery: fromQuery,
	}
}

// Field returns the field matched against the keys.
func (q *TermsIncludingScoreQuery) Field() string { return q.field }

// Keys returns the key table the query matches.
func (q *TermsIncludingScoreQuery) Keys() *JoinKeyTable { return q.keys }

func (q *TermsIncludingScoreQuery) CreateWeight(*engine.Searcher) (engine.Weight, error) {
	return &termsIncludingScoreWeight{query: q, boost: effectiveBoost(q.Boost)}, nil
}

// Rewrite rewrites the from query. The result stays Equal to the receiver.
func (q *TermsIncludingScoreQuery) Rewrite(r *index.Reader) (engine.Query, error) {
	rewritten, err := q.fromQuery.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.fromQuery {
		return q, nil
	}
	clone := *q
	clone.fromQuery = rewritten
	return &clone, nil
}

func (q *TermsIncludingScoreQuery) ExtractTerms(terms map[engine.Term]struct{}) {
	q.origQuery.ExtractTerms(terms)
}

func (q *TermsIncludingScoreQuery) Equal(other engine.Query) bool {
	o, ok := other.(*TermsIncludingScoreQuery)
	return ok &&
		o.field == q.field &&
		effectiveBoost(o.Boost) == effectiveBoost(q.Boost) &&
		o.origQuery.Equal(q.origQuery)
}

func (q *TermsIncludingScoreQuery) String() string {
	return "TermsIncludingScoreQuery{field=" + q.field + ";originalQuery=" + q.origQuery.String() + "}" + engine.BoostString(q.Boost)
}

type termsIncludingScoreWeight struct {
	query *TermsIncludingScoreQuery
	boost float32
}

func (w *termsIncludingScoreWeight) Query() engine.Query { return w.query }

func (w *termsIncludingScoreWeight) ScoresDocsOutOfOrder() bool { return true }

func (w *termsIncludingScoreWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	w.query.metrics.TermJoinScorer(true)
	return w.inOrderScorer(leaf, acceptDocs), nil
}

// BulkScorer streams each key's postings straight into the collector when
// docs may arrive out of order, instead of materializing the segment's
// matches first.
func (w *termsIncludingScoreWeight) BulkScorer(leaf *index.LeafReader, inOrder bool, acceptDocs bitset.Bits) (engine.BulkScorer, error) {
	w.query.metrics.TermJoinScorer(inOrder)
	if inOrder {
		scorer := w.inOrderScorer(leaf, acceptDocs)
		if scorer == nil {
			return nil, nil
		}
		return engine.NewScorerBulkScorer(scorer), nil
	}

	terms := w.terms(leaf)
	if terms == nil {
		return nil, nil
	}
	return &outOfOrderTermsBulkScorer{
		weight:     w,
		terms:      terms,
		acceptDocs: acceptDocs,
	}, nil
}

func (w *termsIncludingScoreWeight) terms(leaf *index.LeafReader) *index.Terms {
	if w.query.keys.Len() == 0 {
		return nil
	}
	return leaf.Terms(w.query.field)
}

// inOrderScorer fills a bit set and a per-doc score array from the postings
// of every key, then iterates the bit set.
func (w *termsIncludingScoreWeight) inOrderScorer(leaf *index.LeafReader, acceptDocs bitset.Bits) engine.Scorer {
	terms := w.terms(leaf)
	if terms == nil {
		return nil
	}

	q := w.query
	matched := bitset.New(leaf.MaxDoc())
	scores := make([]float32, leaf.MaxDoc())
	found := false

	e := newKeyTermsEnum(terms.Iterator(), q.keys)
	for e.Next() {
		score := q.scores[e.KeyID()]
		postings := e.Postings(acceptDocs)
		for postings.Next() {
			doc := postings.DocID()
			if q.multi {
				if matched.GetAndSet(doc) {
					continue
				}
			} else {
				matched.Set(doc)
			}
			scores[doc] = score
			found = true
		}
	}
	if !found {
		return nil
	}
	return &keyScoreScorer{
		BitSetIterator: engine.NewBitSetIterator(matched, nil),
		scores:         scores,
		boost:          w.boost,
	}
}

type keyScoreScorer struct {
	*engine.BitSetIterator
	scores []float32
	boost  float32
}

func (s *keyScoreScorer) Score() float32 { return s.scores[s.DocID()] * s.boost }

// outOfOrderTermsBulkScorer collects key by key, so a segment's docs arrive
// in key order. With several keys per doc, a doc is collected only for the
// first key it holds.
type outOfOrderTermsBulkScorer struct {
	weight     *termsIncludingScoreWeight
	terms      *index.Terms
	acceptDocs bitset.Bits
}

func (b *outOfOrderTermsBulkScorer) Score(c engine.Collector) error {
	q := b.weight.query
	scorer := &engine.CurrentDocScorer{FreqValue: 1}
	c.SetScorer(scorer)

	var emitted *roaring.Bitmap
	if q.multi {
		emitted = roaring.New()
	}

	e := newKeyTermsEnum(b.terms.Iterator(), q.keys)
	for e.Next() {
		scorer.ScoreValue = q.scores[e.KeyID()] * b.weight.boost
		postings := e.Postings(b.acceptDocs)
		for postings.Next() {
			doc := postings.DocID()
			if emitted != nil && !emitted.CheckedAdd(doc) {
				continue
			}
			scorer.Doc = doc
			c.Collect(doc)
		}
	}
	return nil
}
