package join

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// keyReader reads the join keys of a doc from doc values.
type keyReader struct {
	field string
	multi bool

	binary *index.BinaryDocValues
	sorted *index.SortedSetDocValues
}

func (r *keyReader) setNextReader(leaf *index.LeafReader) {
	if r.multi {
		r.sorted = leaf.SortedSetDocValues(r.field)
	} else {
		r.binary = leaf.BinaryDocValues(r.field)
	}
}

// forEach calls fn with every key of doc. Docs without a value have no key.
func (r *keyReader) forEach(doc uint32, fn func(key string)) {
	if !r.multi {
		if v, ok := r.binary.Get(doc); ok {
			fn(v)
		}
		return
	}
	r.sorted.SetDocument(doc)
	for ord := r.sorted.NextOrd(); ord != index.NoMoreOrds; ord = r.sorted.NextOrd() {
		fn(r.sorted.LookupOrd(ord))
	}
}

// TermsCollector gathers the distinct join keys of the collected docs.
type TermsCollector struct {
	keys   keyReader
	table  *JoinKeyTable
	frozen bool
}

// NewTermsCollector collects the keys of field. With
// multipleValuesPerDocument every value of a doc is a key, otherwise only
// its first.
func NewTermsCollector(field string, multipleValuesPerDocument bool) *TermsCollector {
	return &TermsCollector{
		keys:  keyReader{field: field, multi: multipleValuesPerDocument},
		table: newJoinKeyTable(),
	}
}

func (c *TermsCollector) SetNextReader(leaf *index.LeafReader) { c.keys.setNextReader(leaf) }
func (c *TermsCollector) SetScorer(engine.Scorer)              {}
func (c *TermsCollector) AcceptsDocsOutOfOrder() bool          { return true }

func (c *TermsCollector) Collect(doc uint32) {
	c.keys.forEach(doc, func(key string) { c.table.add(key) })
}

// KeyTable returns the collected keys. No more docs may be collected
// afterwards.
func (c *TermsCollector) KeyTable() *JoinKeyTable {
	if !c.frozen {
		c.table.freeze()
		c.frozen = true
	}
	return c.table
}

// TermsWithScoreCollector gathers the distinct join keys of the collected
// docs together with a score per key, combined under a score mode from the
// scores of the docs holding the key.
type TermsWithScoreCollector struct {
	keys      keyReader
	table     *JoinKeyTable
	scoreMode ScoreMode
	scorer    engine.Scorer
	frozen    bool
}

// NewTermsWithScoreCollector is NewTermsCollector keeping scores. scoreMode
// must not be ScoreModeNone.
func NewTermsWithScoreCollector(field string, multipleValuesPerDocument bool, scoreMode ScoreMode) (*TermsWithScoreCollector, error) {
	switch scoreMode {
	case ScoreModeAvg, ScoreModeMax, ScoreModeTotal:
	default:
		return nil, errors.Wrapf(ErrUnsupportedScoreMode, "%s for a scoring terms collector", scoreMode)
	}
	return &TermsWithScoreCollector{
		keys:      keyReader{field: field, multi: multipleValuesPerDocument},
		table:     newJoinKeyTable(),
		scoreMode: scoreMode,
	}, nil
}

func (c *TermsWithScoreCollector) SetNextReader(leaf *index.LeafReader) { c.keys.setNextReader(leaf) }
func (c *TermsWithScoreCollector) SetScorer(s engine.Scorer)            { c.scorer = s }
func (c *TermsWithScoreCollector) AcceptsDocsOutOfOrder() bool          { return true }

func (c *TermsWithScoreCollector) Collect(doc uint32) {
	score := c.scorer.Score()
	c.keys.forEach(doc, func(key string) { c.accumulate(key, score) })
}

func (c *TermsWithScoreCollector) accumulate(key string, score float32) {
	t := c.table
	id, isNew := t.add(key)
	if isNew {
		t.scoreSum = append(t.scoreSum, score)
		if c.scoreMode == ScoreModeAvg {
			t.scoreCount = append(t.scoreCount, 1)
		}
		return
	}
	switch c.scoreMode {
	case ScoreModeTotal:
		t.scoreSum[id] += score
	case ScoreModeMax:
		t.scoreSum[id] = max(t.scoreSum[id], score)
	case ScoreModeAvg:
		t.scoreSum[id] += score
		t.scoreCount[id]++
	}
}

// ScoreMode returns how key scores are combined.
func (c *TermsWithScoreCollector) ScoreMode() ScoreMode { return c.scoreMode }

// KeyTable returns the collected keys. No more docs may be collected
// afterwards.
func (c *TermsWithScoreCollector) KeyTable() *JoinKeyTable {
	if !c.frozen {
		c.table.freeze()
		c.frozen = true
	}
	return c.table
}

// Scores returns the score of every key, indexed by key ID. Under
// ScoreModeAvg the first call turns the running sums into means. No more
// docs may be collected afterwards.
func (c *TermsWithScoreCollector) Scores() []float32 {
	t := c.table
	if t.scoreCount != nil {
		for i, n := range t.scoreCount {
			t.scoreSum[i] /= float32(n)
		}
		t.scoreCount = nil
	}
	return t.scoreSum
}
