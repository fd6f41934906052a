package engine

import (
	"container/heap"
	"math"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/index"
)

// fieldEntry is a retained hit: its comparator slot, top-level doc and score.
type fieldEntry struct {
	slot  int
	doc   uint32
	score float32
}

// TopFieldCollector collects the top-N documents by a Sort. Docs must arrive
// in increasing doc ID order within a segment: a doc that ties the bottom
// on every sort field is rejected because the earlier doc wins the tie.
type TopFieldCollector struct {
	sort        Sort
	numHits     int
	comparators []FieldComparator
	reverseMul  []int
	queue       fieldHeap

	fillFields     bool
	trackDocScores bool
	trackMaxScore  bool

	scorer    Scorer
	docBase   uint32
	totalHits int
	maxScore  float32
	bottom    *fieldEntry
}

// NewTopFieldCollector creates a collector for the top numHits docs by
// sort. fillFields records each hit's sort values; trackDocScores and
// trackMaxScore compute scores even when the sort does not need them.
func NewTopFieldCollector(sort Sort, numHits int, fillFields, trackDocScores, trackMaxScore bool) (*TopFieldCollector, error) {
	if len(sort.Fields) == 0 {
		return nil, errors.New("sort must contain at least one field")
	}
	if numHits <= 0 {
		return nil, errors.Newf("numHits must be > 0, got %d", numHits)
	}
	c := &TopFieldCollector{
		sort:           sort,
		numHits:        numHits,
		comparators:    make([]FieldComparator, len(sort.Fields)),
		reverseMul:     make([]int, len(sort.Fields)),
		fillFields:     fillFields,
		trackDocScores: trackDocScores,
		trackMaxScore:  trackMaxScore,
		maxScore:       float32(math.Inf(-1)),
	}
	for i, f := range sort.Fields {
		comp, err := f.NewComparator(numHits, i)
		if err != nil {
			return nil, err
		}
		c.comparators[i] = comp
		c.reverseMul[i] = 1
		if f.Reverse {
			c.reverseMul[i] = -1
		}
	}
	c.queue = fieldHeap{entries: make([]*fieldEntry, 0, numHits), c: c}
	return c, nil
}

func (c *TopFieldCollector) SetNextReader(leaf *index.LeafReader) {
	c.docBase = leaf.DocBase()
	for _, comp := range c.comparators {
		comp.SetNextReader(leaf)
	}
}

func (c *TopFieldCollector) SetScorer(s Scorer) {
	c.scorer = s
	for _, comp := range c.comparators {
		comp.SetScorer(s)
	}
}

func (c *TopFieldCollector) AcceptsDocsOutOfOrder() bool { return false }

func (c *TopFieldCollector) Collect(doc uint32) {
	c.totalHits++
	score := float32(math.NaN())
	if c.trackDocScores || c.trackMaxScore {
		score = c.scorer.Score()
		if score > c.maxScore {
			c.maxScore = score
		}
	}

	if c.bottom != nil {
		for i, comp := range c.comparators {
			cmp := c.reverseMul[i] * comp.CompareBottom(doc)
			if cmp < 0 {
				return
			}
			if cmp > 0 {
				break
			}
			if i == len(c.comparators)-1 {
				return
			}
		}
		for _, comp := range c.comparators {
			comp.Copy(c.bottom.slot, doc)
		}
		c.bottom.doc = c.docBase + doc
		c.bottom.score = score
		heap.Fix(&c.queue, 0)
		c.updateBottom()
		return
	}

	slot := c.queue.Len()
	for _, comp := range c.comparators {
		comp.Copy(slot, doc)
	}
	heap.Push(&c.queue, &fieldEntry{slot: slot, doc: c.docBase + doc, score: score})
	if c.queue.Len() == c.numHits {
		c.updateBottom()
	}
}

func (c *TopFieldCollector) updateBottom() {
	c.bottom = c.queue.entries[0]
	for _, comp := range c.comparators {
		comp.SetBottom(c.bottom.slot)
	}
}

// TotalHits returns the number of docs collected so far.
func (c *TopFieldCollector) TotalHits() int { return c.totalHits }

// TopDocs returns every retained hit in sort order. It drains the collector.
func (c *TopFieldCollector) TopDocs() *TopDocs {
	return c.TopDocsRange(0, c.queue.Len())
}

// TopDocsRange returns at most n hits starting at rank start. It drains the
// collector.
func (c *TopFieldCollector) TopDocsRange(start, n int) *TopDocs {
	sorted := make([]*fieldEntry, c.queue.Len())
	for i := len(sorted) - 1; i >= 0; i-- {
		sorted[i] = heap.Pop(&c.queue).(*fieldEntry)
	}
	c.bottom = nil

	td := &TopDocs{TotalHits: c.totalHits, MaxScore: float32(math.NaN()), Sort: &c.sort}
	if c.trackMaxScore && c.totalHits > 0 {
		td.MaxScore = c.maxScore
	}
	if start < 0 || start >= len(sorted) || n <= 0 {
		td.ScoreDocs = []ScoreDoc{}
		return td
	}
	end := min(start+n, len(sorted))
	td.ScoreDocs = make([]ScoreDoc, 0, end-start)
	for _, e := range sorted[start:end] {
		sd := ScoreDoc{Doc: e.doc, Score: e.score}
		if c.fillFields {
			sd.Fields = make([]any, len(c.comparators))
			for i, comp := range c.comparators {
				sd.Fields[i] = comp.Value(e.slot)
			}
		}
		td.ScoreDocs = append(td.ScoreDocs, sd)
	}
	return td
}

// fieldHeap keeps the least competitive entry on top.
type fieldHeap struct {
	entries []*fieldEntry
	c       *TopFieldCollector
}

func (h fieldHeap) Len() int { return len(h.entries) }

func (h fieldHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	for k, comp := range h.c.comparators {
		if cmp := h.c.reverseMul[k] * comp.Compare(a.slot, b.slot); cmp != 0 {
			return cmp > 0
		}
	}
	return a.doc > b.doc
}

func (h fieldHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *fieldHeap) Push(x any) { h.entries = append(h.entries, x.(*fieldEntry)) }

func (h *fieldHeap) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[:n-1]
	return x
}
