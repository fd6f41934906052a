package join

import (
	"math"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// ToParentBlockJoinQuery matches the parent docs of the blocks in which the
// child query matched at least one doc. Each block must hold its children
// immediately before its parent, and the parent filter must mark exactly the
// parent docs. The parent scores by combining its matching children's
// scores under the score mode.
type ToParentBlockJoinQuery struct {
	// Boost multiplies the parent score. Zero means 1.
	Boost float32

	childQuery     engine.Query
	origChildQuery engine.Query
	parentsFilter  engine.Filter
	scoreMode      ScoreMode
}

// NewToParentBlockJoinQuery joins childQuery up to the parents marked by
// parentsFilter, which should be an engine.CachingBitSetFilter.
func NewToParentBlockJoinQuery(childQuery engine.Query, parentsFilter engine.Filter, scoreMode ScoreMode) *ToParentBlockJoinQuery {
	return &ToParentBlockJoinQuery{
		childQuery:     childQuery,
		origChildQuery: childQuery,
		parentsFilter:  parentsFilter,
		scoreMode:      scoreMode,
	}
}

// ChildQuery returns the child query as given to the constructor.
func (q *ToParentBlockJoinQuery) ChildQuery() engine.Query { return q.origChildQuery }

// ParentsFilter returns the filter marking parent docs.
func (q *ToParentBlockJoinQuery) ParentsFilter() engine.Filter { return q.parentsFilter }

// ScoreMode returns how child scores are combined.
func (q *ToParentBlockJoinQuery) ScoreMode() ScoreMode { return q.scoreMode }

func (q *ToParentBlockJoinQuery) CreateWeight(s *engine.Searcher) (engine.Weight, error) {
	childWeight, err := s.CreateWeight(q.childQuery)
	if err != nil {
		return nil, err
	}
	return &toParentWeight{query: q, childWeight: childWeight}, nil
}

// Rewrite rewrites the child query. The result stays Equal to the receiver.
func (q *ToParentBlockJoinQuery) Rewrite(r *index.Reader) (engine.Query, error) {
	rewritten, err := q.childQuery.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.childQuery {
		return q, nil
	}
	clone := *q
	clone.childQuery = rewritten
	return &clone, nil
}

func (q *ToParentBlockJoinQuery) ExtractTerms(terms map[engine.Term]struct{}) {
	q.childQuery.ExtractTerms(terms)
}

func (q *ToParentBlockJoinQuery) Equal(other engine.Query) bool {
	o, ok := other.(*ToParentBlockJoinQuery)
	return ok &&
		o.scoreMode == q.scoreMode &&
		o.parentsFilter == q.parentsFilter &&
		effectiveBoost(o.Boost) == effectiveBoost(q.Boost) &&
		o.origChildQuery.Equal(q.origChildQuery)
}

func (q *ToParentBlockJoinQuery) String() string {
	return "ToParentBlockJoinQuery(" + q.origChildQuery.String() + ")" + engine.BoostString(q.Boost)
}

type toParentWeight struct {
	query       *ToParentBlockJoinQuery
	childWeight engine.Weight
}

func (w *toParentWeight) Query() engine.Query        { return w.query }
func (w *toParentWeight) ScoresDocsOutOfOrder() bool { return false }

// Scorer returns nil when no child matches in the segment or the segment
// has no parent. acceptDocs filters parents; children are only restricted
// to live docs.
func (w *toParentWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	childScorer, err := w.childWeight.Scorer(leaf, leaf.LiveDocs())
	if err != nil || childScorer == nil {
		return nil, err
	}
	if !childScorer.Next() {
		return nil, nil
	}

	parents, err := parentBits(w.query.parentsFilter, leaf)
	if err != nil || parents == nil {
		return nil, err
	}
	return &ToParentBlockJoinScorer{
		query:        w.query,
		child:        childScorer,
		parents:      parents,
		scoreMode:    w.query.scoreMode,
		acceptDocs:   acceptDocs,
		boost:        effectiveBoost(w.query.Boost),
		nextChildDoc: childScorer.DocID(),
	}, nil
}

// ToParentBlockJoinScorer walks a child scorer and stops on the parent of
// each block holding at least one matching child.
type ToParentBlockJoinScorer struct {
	query      *ToParentBlockJoinQuery
	child      engine.Scorer
	parents    *bitset.FixedBitSet
	scoreMode  ScoreMode
	acceptDocs bitset.Bits
	boost      float32

	started      bool
	parentDoc    uint32
	nextChildDoc uint32
	parentScore  float32
	childCount   int

	trackPending  bool
	pendingDocs   []uint32
	pendingScores []float32
}

// Query returns the join query the scorer was created for.
func (s *ToParentBlockJoinScorer) Query() *ToParentBlockJoinQuery { return s.query }

func (s *ToParentBlockJoinScorer) Next() bool {
	s.started = true
	for {
		if s.nextChildDoc == engine.NoMoreDocs {
			s.parentDoc = engine.NoMoreDocs
			return false
		}

		parent, ok := s.parents.NextSetBit(s.nextChildDoc)
		if !ok {
			panic(engine.InvariantViolation(ErrOrphanChild,
				"child doc %d matched after the last parent of the segment", s.nextChildDoc))
		}
		if parent == s.nextChildDoc {
			s.childMatchedParent(parent)
		}
		s.parentDoc = parent

		if s.acceptDocs != nil && !s.acceptDocs.Get(parent) {
			for s.nextChildDoc < parent {
				s.advanceChild()
			}
			if s.nextChildDoc == parent {
				s.childMatchedParent(parent)
			}
			continue
		}

		s.collectBlock(parent)
		return true
	}
}

// collectBlock consumes every matching child below parent.
func (s *ToParentBlockJoinScorer) collectBlock(parent uint32) {
	var total float32
	maxScore := float32(math.Inf(-1))
	s.childCount = 0
	if s.trackPending {
		s.pendingDocs = s.pendingDocs[:0]
		s.pendingScores = s.pendingScores[:0]
	}

	for s.nextChildDoc < parent {
		if s.trackPending {
			s.pendingDocs = append(s.pendingDocs, s.nextChildDoc)
		}
		if s.scoreMode != ScoreModeNone {
			score := s.child.Score()
			if s.trackPending {
				s.pendingScores = append(s.pendingScores, score)
			}
			total += score
			maxScore = max(maxScore, score)
		}
		s.childCount++
		s.advanceChild()
	}
	if s.nextChildDoc == parent {
		s.childMatchedParent(parent)
	}

	switch s.scoreMode {
	case ScoreModeAvg:
		s.parentScore = total / float32(s.childCount)
	case ScoreModeMax:
		s.parentScore = maxScore
	case ScoreModeTotal:
		s.parentScore = total
	default:
		s.parentScore = 0
	}
}

func (s *ToParentBlockJoinScorer) advanceChild() {
	if s.child.Next() {
		s.nextChildDoc = s.child.DocID()
	} else {
		s.nextChildDoc = engine.NoMoreDocs
	}
}

func (s *ToParentBlockJoinScorer) childMatchedParent(doc uint32) {
	panic(engine.InvariantViolation(ErrChildMatchedParent,
		"child query matched parent doc %d of segment", doc))
}

// Advance moves to the first matching parent >= target. Since doc 0 can
// have no children, target 0 is the same as Next.
func (s *ToParentBlockJoinScorer) Advance(target uint32) bool {
	if s.started {
		if s.parentDoc == engine.NoMoreDocs {
			return false
		}
		if s.parentDoc >= target {
			return true
		}
	}
	if target == engine.NoMoreDocs {
		s.started = true
		s.parentDoc = engine.NoMoreDocs
		return false
	}
	if target == 0 {
		return s.Next()
	}

	if prevParent, ok := s.parents.PrevSetBit(target - 1); ok && prevParent > s.nextChildDoc {
		if s.child.Advance(prevParent) {
			s.nextChildDoc = s.child.DocID()
		} else {
			s.nextChildDoc = engine.NoMoreDocs
		}
		if s.nextChildDoc == prevParent {
			s.childMatchedParent(prevParent)
		}
	}
	return s.Next()
}

func (s *ToParentBlockJoinScorer) DocID() uint32 { return s.parentDoc }

// Freq returns the number of matching children of the current parent.
func (s *ToParentBlockJoinScorer) Freq() uint32 { return uint32(s.childCount) }

func (s *ToParentBlockJoinScorer) Score() float32 { return s.parentScore * s.boost }

func (s *ToParentBlockJoinScorer) Cost() int64 { return s.child.Cost() }

func (s *ToParentBlockJoinScorer) Children() []engine.Scorer { return []engine.Scorer{s.child} }

func (s *ToParentBlockJoinScorer) AcceptJoinVisitor(v JoinVisitor) { v.VisitToParent(s) }

// ParentDoc returns the current parent doc.
func (s *ToParentBlockJoinScorer) ParentDoc() uint32 { return s.parentDoc }

// ChildCount returns the number of matching children of the current parent.
func (s *ToParentBlockJoinScorer) ChildCount() int { return s.childCount }

// TrackPendingChildHits makes the scorer record the doc and score of every
// matching child of the current parent, to be taken with SwapChildDocs and
// SwapChildScores.
func (s *ToParentBlockJoinScorer) TrackPendingChildHits() {
	s.trackPending = true
	if s.pendingDocs == nil {
		s.pendingDocs = make([]uint32, 0, 5)
	}
	if s.scoreMode != ScoreModeNone && s.pendingScores == nil {
		s.pendingScores = make([]float32, 0, 5)
	}
}

// SwapChildDocs returns the child docs recorded for the current parent and
// takes other as the buffer for the next parent. The caller owns the
// returned slice.
func (s *ToParentBlockJoinScorer) SwapChildDocs(other []uint32) []uint32 {
	ret := s.pendingDocs
	if other == nil {
		other = make([]uint32, 0, 5)
	}
	s.pendingDocs = other[:0]
	return ret
}

// SwapChildScores is SwapChildDocs for the child scores. It fails when the
// score mode is ScoreModeNone, since no score is recorded.
func (s *ToParentBlockJoinScorer) SwapChildScores(other []float32) ([]float32, error) {
	if s.scoreMode == ScoreModeNone {
		return nil, ErrNoChildScores
	}
	ret := s.pendingScores
	if other == nil {
		other = make([]float32, 0, 5)
	}
	s.pendingScores = other[:0]
	return ret, nil
}

func effectiveBoost(boost float32) float32 {
	if boost == 0 {
		return 1
	}
	return boost
}
