package engine

import (
	"container/heap"
	"math"

	"GoJoin/internal/index"
)

// Collector receives the matches of a search, one segment at a time.
type Collector interface {
	// SetNextReader is called before the docs of leaf are collected.
	SetNextReader(leaf *index.LeafReader)

	// SetScorer hands over the scorer positioned on each collected doc.
	SetScorer(s Scorer)

	// Collect is called for each match with its segment-local doc ID.
	Collect(doc uint32)

	// AcceptsDocsOutOfOrder reports whether Collect may be called with docs
	// in any order within a segment.
	AcceptsDocsOutOfOrder() bool
}

// ScoreDoc is a single hit. Doc is a top-level doc ID. Fields holds the sort
// values of the hit when sorting by field.
type ScoreDoc struct {
	Doc    uint32
	Score  float32
	Fields []any
}

// TopDocs is the result of a top-N search.
type TopDocs struct {
	TotalHits int
	ScoreDocs []ScoreDoc
	MaxScore  float32
	Sort      *Sort
}

// TopScoreDocCollector collects the top-N documents by score using a
// min-heap. Ties on score keep the lower doc ID, so results do not depend on
// collection order.
type TopScoreDocCollector struct {
	n         int
	h         scoreDocHeap
	scorer    Scorer
	docBase   uint32
	totalHits int
	maxScore  float32
}

// NewTopScoreDocCollector creates a collector for the top n documents.
func NewTopScoreDocCollector(n int) *TopScoreDocCollector {
	if n <= 0 {
		n = 10
	}
	return &TopScoreDocCollector{
		n:        n,
		h:        make(scoreDocHeap, 0, n),
		maxScore: float32(math.Inf(-1)),
	}
}

func (c *TopScoreDocCollector) SetNextReader(leaf *index.LeafReader) { c.docBase = leaf.DocBase() }
func (c *TopScoreDocCollector) SetScorer(s Scorer)                   { c.scorer = s }
func (c *TopScoreDocCollector) AcceptsDocsOutOfOrder() bool          { return true }

func (c *TopScoreDocCollector) Collect(doc uint32) {
	score := c.scorer.Score()
	c.totalHits++
	if score > c.maxScore {
		c.maxScore = score
	}
	sd := ScoreDoc{Doc: c.docBase + doc, Score: score}
	if c.h.Len() < c.n {
		heap.Push(&c.h, sd)
		return
	}
	if c.h.less(c.h[0], sd) {
		c.h[0] = sd
		heap.Fix(&c.h, 0)
	}
}

// TotalHits returns the number of docs collected so far.
func (c *TopScoreDocCollector) TotalHits() int {
	return c.totalHits
}

// TopDocs returns the collected documents sorted by descending score. It
// drains the collector.
func (c *TopScoreDocCollector) TopDocs() *TopDocs {
	return c.TopDocsRange(0, c.h.Len())
}

// TopDocsRange returns at most n hits starting at rank start. It drains the
// collector.
func (c *TopScoreDocCollector) TopDocsRange(start, n int) *TopDocs {
	sorted := make([]ScoreDoc, c.h.Len())
	for i := len(sorted) - 1; i >= 0; i-- {
		sorted[i] = heap.Pop(&c.h).(ScoreDoc)
	}
	td := &TopDocs{TotalHits: c.totalHits, MaxScore: float32(math.NaN())}
	if c.totalHits > 0 {
		td.MaxScore = c.maxScore
	}
	if start < 0 || start >= len(sorted) || n <= 0 {
		td.ScoreDocs = []ScoreDoc{}
		return td
	}
	td.ScoreDocs = sorted[start:min(start+n, len(sorted))]
	return td
}

// scoreDocHeap is a min-heap of ScoreDoc: the least competitive hit on top.
type scoreDocHeap []ScoreDoc

// less reports whether a is less competitive than b.
func (h scoreDocHeap) less(a, b ScoreDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Doc > b.Doc
}

func (h scoreDocHeap) Len() int           { return len(h) }
func (h scoreDocHeap) Less(i, j int) bool { return h.less(h[i], h[j]) }
func (h scoreDocHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoreDocHeap) Push(x any)        { *h = append(*h, x.(ScoreDoc)) }
func (h *scoreDocHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TotalHitCountCollector only counts matches.
type TotalHitCountCollector struct {
	totalHits int
}

func (c *TotalHitCountCollector) SetNextReader(*index.LeafReader) {}
func (c *TotalHitCountCollector) SetScorer(Scorer)                {}
func (c *TotalHitCountCollector) Collect(uint32)                  { c.totalHits++ }
func (c *TotalHitCountCollector) AcceptsDocsOutOfOrder() bool     { return true }

// TotalHits returns the number of docs collected.
func (c *TotalHitCountCollector) TotalHits() int { return c.totalHits }

// DocSetCollector records every collected top-level doc and its score.
// Collected docs are kept in collection order.
type DocSetCollector struct {
	Docs   []uint32
	Scores []float32

	scorer  Scorer
	docBase uint32
}

func (c *DocSetCollector) SetNextReader(leaf *index.LeafReader) { c.docBase = leaf.DocBase() }
func (c *DocSetCollector) SetScorer(s Scorer)                   { c.scorer = s }
func (c *DocSetCollector) AcceptsDocsOutOfOrder() bool          { return true }

func (c *DocSetCollector) Collect(doc uint32) {
	c.Docs = append(c.Docs, c.docBase+doc)
	c.Scores = append(c.Scores, c.scorer.Score())
}
