package join

import (
	"container/heap"
	"math"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// oneGroup is a retained parent hit. For each enrolled join query slot it
// owns the child docs and scores taken from the join scorer when the parent
// was collected.
type oneGroup struct {
	slot  int
	doc   uint32
	leaf  *index.LeafReader
	score float32

	docs   [][]uint32
	scores [][]float32
	counts []int
}

// BlockJoinCollector collects the top parent hits of a search that contains
// one or more ToParentBlockJoinQuery clauses, and for each retained parent
// keeps the children that matched each of those clauses. GetTopGroups then
// returns the parents with their top children.
//
// Docs must arrive in increasing order within a segment, since the join
// scorers only hold the children of their current parent.
type BlockJoinCollector struct {
	sort          engine.Sort
	numParentHits int
	comparators   []engine.FieldComparator
	reverseMul    []int
	queue         groupQueue

	trackScores   bool
	trackMaxScore bool

	joinQueries []*ToParentBlockJoinQuery
	joinScorers []*ToParentBlockJoinScorer

	scorer        engine.Scorer
	leaf          *index.LeafReader
	totalHitCount int
	maxScore      float32
	bottom        *oneGroup
	sortedGroups  []*oneGroup

	opts options
}

// NewBlockJoinCollector creates a collector for the top numParentHits
// parents by sort. trackScores keeps parent and child scores, which a
// relevance sort within groups needs. trackMaxScore records the best parent
// score.
//
// With trackScores set, the search fails with ErrNoChildScores when a
// ScoreModeNone join hands children to a collected parent. A ScoreModeNone
// join nested below the collected level never does.
func NewBlockJoinCollector(sort engine.Sort, numParentHits int, trackScores, trackMaxScore bool, opts ...Option) (*BlockJoinCollector, error) {
	if len(sort.Fields) == 0 {
		return nil, errors.New("group sort must contain at least one field")
	}
	if numParentHits <= 0 {
		return nil, errors.Newf("numParentHits must be > 0, got %d", numParentHits)
	}
	c := &BlockJoinCollector{
		sort:          sort,
		numParentHits: numParentHits,
		comparators:   make([]engine.FieldComparator, len(sort.Fields)),
		reverseMul:    make([]int, len(sort.Fields)),
		trackScores:   trackScores,
		trackMaxScore: trackMaxScore,
		maxScore:      float32(math.Inf(-1)),
		opts:          buildOptions(opts),
	}
	for i, f := range sort.Fields {
		comp, err := f.NewComparator(numParentHits, i)
		if err != nil {
			return nil, errors.Wrapf(err, "group sort field %s", f)
		}
		c.comparators[i] = comp
		c.reverseMul[i] = 1
		if f.Reverse {
			c.reverseMul[i] = -1
		}
	}
	c.queue = groupQueue{c: c}
	return c, nil
}

func (c *BlockJoinCollector) AcceptsDocsOutOfOrder() bool { return false }

func (c *BlockJoinCollector) SetNextReader(leaf *index.LeafReader) {
	c.leaf = leaf
	for _, comp := range c.comparators {
		comp.SetNextReader(leaf)
	}
}

// SetScorer enrolls every ToParentBlockJoinScorer under s. A join query
// keeps the slot it got when first seen, across segments.
func (c *BlockJoinCollector) SetScorer(s engine.Scorer) {
	c.scorer = s
	for _, comp := range c.comparators {
		comp.SetScorer(s)
	}
	clear(c.joinScorers)
	walkScorers(s, c)
}

// VisitToParent enrolls js. It is called while walking the scorer tree.
func (c *BlockJoinCollector) VisitToParent(js *ToParentBlockJoinScorer) {
	js.TrackPendingChildHits()

	slot := c.slotOf(js.Query())
	if slot < 0 {
		slot = len(c.joinQueries)
		c.joinQueries = append(c.joinQueries, js.Query())
		c.joinScorers = append(c.joinScorers, nil)
	}
	c.joinScorers[slot] = js
}

func (c *BlockJoinCollector) slotOf(q *ToParentBlockJoinQuery) int {
	for i, jq := range c.joinQueries {
		if jq == q || jq.Equal(q) {
			return i
		}
	}
	return -1
}

func (c *BlockJoinCollector) Collect(doc uint32) {
	c.totalHitCount++

	score := float32(math.NaN())
	if c.trackMaxScore {
		score = c.scorer.Score()
		c.maxScore = max(c.maxScore, score)
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

		og := c.bottom
		for _, comp := range c.comparators {
			comp.Copy(og.slot, doc)
		}
		if c.trackScores && !c.trackMaxScore {
			score = c.scorer.Score()
		}
		og.doc = c.leaf.DocBase() + doc
		og.leaf = c.leaf
		og.score = score
		c.copyGroups(og, doc)
		heap.Fix(&c.queue, 0)
		c.updateBottom()
		return
	}

	slot := c.queue.Len()
	for _, comp := range c.comparators {
		comp.Copy(slot, doc)
	}
	if c.trackScores && !c.trackMaxScore {
		score = c.scorer.Score()
	}
	og := &oneGroup{slot: slot, doc: c.leaf.DocBase() + doc, leaf: c.leaf, score: score}
	c.copyGroups(og, doc)
	heap.Push(&c.queue, og)
	if c.queue.Len() == c.numParentHits {
		c.updateBottom()
	}
}

// copyGroups moves the pending children of every join scorer positioned on
// doc into og. A join scorer under a disjunction may sit on another parent,
// in which case the parent had no matching children for that query.
func (c *BlockJoinCollector) copyGroups(og *oneGroup, doc uint32) {
	n := len(c.joinScorers)
	for len(og.counts) < n {
		og.docs = append(og.docs, nil)
		og.scores = append(og.scores, nil)
		og.counts = append(og.counts, 0)
	}

	for i, js := range c.joinScorers {
		if js == nil || js.ParentDoc() != doc {
			og.counts[i] = 0
			continue
		}
		og.counts[i] = js.ChildCount()
		og.docs[i] = js.SwapChildDocs(og.docs[i])
		if c.trackScores {
			scores, err := js.SwapChildScores(og.scores[i])
			if err != nil {
				panic(errors.Mark(
					errors.Wrapf(err, "collector tracks scores but %s", js.Query()),
					engine.ErrSearchAborted))
			}
			og.scores[i] = scores
		}
	}
}

func (c *BlockJoinCollector) updateBottom() {
	c.bottom = c.queue.groups[0]
	for _, comp := range c.comparators {
		comp.SetBottom(c.bottom.slot)
	}
}

// TotalHitCount returns the number of parents collected.
func (c *BlockJoinCollector) TotalHitCount() int { return c.totalHitCount }

// MaxScore returns the best parent score, or NaN when it was not tracked or
// nothing was collected.
func (c *BlockJoinCollector) MaxScore() float32 {
	if !c.trackMaxScore || c.totalHitCount == 0 {
		return float32(math.NaN())
	}
	return c.maxScore
}

// GetTopGroups returns the retained parents from rank offset on, each with
// at most maxDocsPerGroup children that matched query, starting at child
// rank withinGroupOffset. A nil withinGroupSort orders children by
// relevance, which requires trackScores. fillSortFields fills each group's
// sort values and each child's.
//
// It returns nil when query never matched and nothing was collected, or
// when offset is past the last group. Once called, no more docs may be
// collected.
func (c *BlockJoinCollector) GetTopGroups(query *ToParentBlockJoinQuery, withinGroupSort *engine.Sort, offset, maxDocsPerGroup, withinGroupOffset int, fillSortFields bool) (*TopGroups, error) {
	slot := c.slotOf(query)
	if slot < 0 && c.totalHitCount == 0 {
		return nil, nil
	}

	if c.sortedGroups == nil {
		if offset >= c.queue.Len() {
			return nil, nil
		}
		c.sortQueue()
	} else if offset > len(c.sortedGroups) {
		return nil, nil
	}

	tg, err := c.accumulateGroups(slot, offset, maxDocsPerGroup, withinGroupOffset, withinGroupSort, fillSortFields)
	if err != nil {
		return nil, err
	}
	c.opts.metrics.GroupsReturned(len(tg.Groups))
	c.opts.logger.Debug("top groups",
		"query", query.String(),
		"groups", len(tg.Groups),
		"grouped_hits", tg.TotalGroupedHitCount,
	)
	return tg, nil
}

// GetTopGroupsWithAllChildDocs is GetTopGroups returning every matching
// child of each group.
func (c *BlockJoinCollector) GetTopGroupsWithAllChildDocs(query *ToParentBlockJoinQuery, withinGroupSort *engine.Sort, offset, withinGroupOffset int, fillSortFields bool) (*TopGroups, error) {
	return c.GetTopGroups(query, withinGroupSort, offset, math.MaxInt, withinGroupOffset, fillSortFields)
}

func (c *BlockJoinCollector) sortQueue() {
	c.sortedGroups = make([]*oneGroup, c.queue.Len())
	for i := len(c.sortedGroups) - 1; i >= 0; i-- {
		c.sortedGroups[i] = heap.Pop(&c.queue).(*oneGroup)
	}
	c.bottom = nil
}

func (c *BlockJoinCollector) accumulateGroups(slot, offset, maxDocsPerGroup, withinGroupOffset int, withinGroupSort *engine.Sort, fillSortFields bool) (*TopGroups, error) {
	if withinGroupSort == nil && !c.trackScores {
		return nil, ErrScoresNotTracked
	}

	groups := make([]GroupDocs, 0, len(c.sortedGroups)-offset)
	fake := &engine.CurrentDocScorer{FreqValue: 1}
	totalGroupedHitCount := 0

	for _, og := range c.sortedGroups[offset:] {
		numChildDocs := 0
		if slot >= 0 && slot < len(og.counts) {
			numChildDocs = og.counts[slot]
		}
		numDocsInGroup := max(1, min(numChildDocs, maxDocsPerGroup))

		collector, err := c.groupCollector(withinGroupSort, numDocsInGroup, fillSortFields)
		if err != nil {
			return nil, err
		}
		collector.SetScorer(fake)
		collector.SetNextReader(og.leaf)
		for i := 0; i < numChildDocs; i++ {
			fake.Doc = og.docs[slot][i]
			if c.trackScores {
				fake.ScoreValue = og.scores[slot][i]
			}
			collector.Collect(fake.Doc)
		}
		totalGroupedHitCount += numChildDocs

		var groupSortValues []any
		if fillSortFields {
			groupSortValues = make([]any, len(c.comparators))
			for i, comp := range c.comparators {
				groupSortValues[i] = comp.Value(og.slot)
			}
		}

		td := collector.TopDocsRange(withinGroupOffset, numDocsInGroup)
		groups = append(groups, GroupDocs{
			GroupValue:      og.doc,
			Score:           og.score,
			MaxScore:        td.MaxScore,
			TotalHits:       numChildDocs,
			ScoreDocs:       td.ScoreDocs,
			GroupSortValues: groupSortValues,
		})
	}

	return &TopGroups{
		GroupSort:            c.sort,
		WithinGroupSort:      withinGroupSort,
		TotalGroupedHitCount: totalGroupedHitCount,
		TotalGroupCount:      c.totalHitCount,
		Groups:               groups,
		MaxScore:             c.MaxScore(),
	}, nil
}

// topDocsCollector is what accumulateGroups needs from a within-group
// collector.
type topDocsCollector interface {
	engine.Collector
	TopDocsRange(start, n int) *engine.TopDocs
}

func (c *BlockJoinCollector) groupCollector(withinGroupSort *engine.Sort, n int, fillSortFields bool) (topDocsCollector, error) {
	if withinGroupSort == nil {
		return engine.NewTopScoreDocCollector(n), nil
	}
	return engine.NewTopFieldCollector(*withinGroupSort, n, fillSortFields, c.trackScores, c.trackMaxScore)
}

// groupQueue keeps the least competitive group on top.
type groupQueue struct {
	groups []*oneGroup
	c      *BlockJoinCollector
}

func (q groupQueue) Len() int { return len(q.groups) }

func (q groupQueue) Less(i, j int) bool {
	a, b := q.groups[i], q.groups[j]
	for k, comp := range q.c.comparators {
		if cmp := q.c.reverseMul[k] * comp.Compare(a.slot, b.slot); cmp != 0 {
			return cmp > 0
		}
	}
	return a.doc > b.doc
}

func (q groupQueue) Swap(i, j int) { q.groups[i], q.groups[j] = q.groups[j], q.groups[i] }

func (q *groupQueue) Push(x any) { q.groups = append(q.groups, x.(*oneGroup)) }

func (q *groupQueue) Pop() any {
	old := q.groups
	n := len(old)
	x := old[n-1]
	q.groups = old[:n-1]
	return x
}
