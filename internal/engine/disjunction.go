package engine

import "container/heap"

// DisjunctionScorer implements OR logic over multiple scorers. It merges
// them in doc ID order with a min-heap. A doc matches when at least
// minMatch sub-scorers are on it; its score is the sum of their scores and
// its freq their count.
type DisjunctionScorer struct {
	subs     []Scorer
	h        scorerHeap
	minMatch int

	current uint32
	score   float32
	freq    uint32
	started bool
}

// NewDisjunctionScorer creates an OR scorer over subs. minMatch below 1 is
// treated as 1.
func NewDisjunctionScorer(subs []Scorer, minMatch int) *DisjunctionScorer {
	if minMatch < 1 {
		minMatch = 1
	}
	return &DisjunctionScorer{
		subs:     subs,
		minMatch: minMatch,
		h:        make(scorerHeap, 0, len(subs)),
	}
}

func (d *DisjunctionScorer) start(target uint32, advance bool) {
	d.started = true
	for _, sub := range d.subs {
		var ok bool
		if advance {
			ok = sub.Advance(target)
		} else {
			ok = sub.Next()
		}
		if ok {
			d.h = append(d.h, sub)
		}
	}
	heap.Init(&d.h)
}

func (d *DisjunctionScorer) Next() bool {
	if !d.started {
		d.start(0, false)
	} else {
		d.advanceCurrent()
	}
	return d.settle()
}

func (d *DisjunctionScorer) Advance(target uint32) bool {
	if !d.started {
		d.start(target, true)
		return d.settle()
	}
	if d.current == NoMoreDocs {
		return false
	}
	if d.current >= target {
		return true
	}
	for len(d.h) > 0 && d.h[0].DocID() < target {
		top := d.h[0]
		if top.Advance(target) {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}
	return d.settle()
}

// settle positions on the heap's top doc, moving on until a doc has
// minMatch matching subs.
func (d *DisjunctionScorer) settle() bool {
	for {
		if len(d.h) == 0 {
			d.current = NoMoreDocs
			return false
		}
		d.current = d.h[0].DocID()
		d.score = 0
		d.freq = 0
		for _, sub := range d.h {
			if sub.DocID() == d.current {
				d.score += sub.Score()
				d.freq++
			}
		}
		if int(d.freq) >= d.minMatch {
			return true
		}
		d.advanceCurrent()
	}
}

// advanceCurrent moves every sub positioned on the current doc forward.
func (d *DisjunctionScorer) advanceCurrent() {
	for len(d.h) > 0 && d.h[0].DocID() == d.current {
		top := d.h[0]
		if top.Next() {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}
}

func (d *DisjunctionScorer) DocID() uint32  { return d.current }
func (d *DisjunctionScorer) Freq() uint32   { return d.freq }
func (d *DisjunctionScorer) Score() float32 { return d.score }

func (d *DisjunctionScorer) Cost() int64 {
	var total int64
	for _, s := range d.subs {
		total += s.Cost()
	}
	return total
}

func (d *DisjunctionScorer) Children() []Scorer {
	return d.subs
}

// scorerHeap is a min-heap of scorers ordered by current doc ID.
type scorerHeap []Scorer

func (h scorerHeap) Len() int           { return len(h) }
func (h scorerHeap) Less(i, j int) bool { return h[i].DocID() < h[j].DocID() }
func (h scorerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scorerHeap) Push(x any)        { *h = append(*h, x.(Scorer)) }
func (h *scorerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
