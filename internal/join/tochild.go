package join

import (
	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// ToChildBlockJoinQuery matches every child of the parents the parent query
// matches. The parent query must only match docs marked by the parent
// filter. With doScores each child gets its parent's score.
type ToChildBlockJoinQuery struct {
	// Boost multiplies the child score. Zero means 1.
	Boost float32

	parentQuery     engine.Query
	origParentQuery engine.Query
	parentsFilter   engine.Filter
	doScores        bool
}

// NewToChildBlockJoinQuery joins parentQuery down to the children of the
// parents marked by parentsFilter.
func NewToChildBlockJoinQuery(parentQuery engine.Query, parentsFilter engine.Filter, doScores bool) *ToChildBlockJoinQuery {
	return &ToChildBlockJoinQuery{
		parentQuery:     parentQuery,
		origParentQuery: parentQuery,
		parentsFilter:   parentsFilter,
		doScores:        doScores,
	}
}

// ParentQuery returns the parent query as given to the constructor.
func (q *ToChildBlockJoinQuery) ParentQuery() engine.Query { return q.origParentQuery }

func (q *ToChildBlockJoinQuery) CreateWeight(s *engine.Searcher) (engine.Weight, error) {
	parentWeight, err := s.CreateWeight(q.parentQuery)
	if err != nil {
		return nil, err
	}
	return &toChildWeight{query: q, parentWeight: parentWeight}, nil
}

// Rewrite rewrites the parent query. The result stays Equal to the receiver.
func (q *ToChildBlockJoinQuery) Rewrite(r *index.Reader) (engine.Query, error) {
	rewritten, err := q.parentQuery.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.parentQuery {
		return q, nil
	}
	clone := *q
	clone.parentQuery = rewritten
	return &clone, nil
}

func (q *ToChildBlockJoinQuery) ExtractTerms(terms map[engine.Term]struct{}) {
	q.parentQuery.ExtractTerms(terms)
}

func (q *ToChildBlockJoinQuery) Equal(other engine.Query) bool {
	o, ok := other.(*ToChildBlockJoinQuery)
	return ok &&
		o.doScores == q.doScores &&
		o.parentsFilter == q.parentsFilter &&
		effectiveBoost(o.Boost) == effectiveBoost(q.Boost) &&
		o.origParentQuery.Equal(q.origParentQuery)
}

func (q *ToChildBlockJoinQuery) String() string {
	return "ToChildBlockJoinQuery(" + q.origParentQuery.String() + ")" + engine.BoostString(q.Boost)
}

type toChildWeight struct {
	query        *ToChildBlockJoinQuery
	parentWeight engine.Weight
}

func (w *toChildWeight) Query() engine.Query        { return w.query }
func (w *toChildWeight) ScoresDocsOutOfOrder() bool { return false }

// Scorer restricts parents to live docs and children to acceptDocs.
func (w *toChildWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	parentScorer, err := w.parentWeight.Scorer(leaf, leaf.LiveDocs())
	if err != nil || parentScorer == nil {
		return nil, err
	}
	parents, err := parentBits(w.query.parentsFilter, leaf)
	if err != nil || parents == nil {
		return nil, err
	}
	return &ToChildBlockJoinScorer{
		parent:     parentScorer,
		parents:    parents,
		doScores:   w.query.doScores,
		acceptDocs: acceptDocs,
		boost:      effectiveBoost(w.query.Boost),
		parentFreq: 1,
	}, nil
}

// ToChildBlockJoinScorer walks a parent scorer and stops on every child of
// each matching parent.
type ToChildBlockJoinScorer struct {
	parent     engine.Scorer
	parents    *bitset.FixedBitSet
	doScores   bool
	acceptDocs bitset.Bits
	boost      float32

	started     bool
	childDoc    uint32
	parentDoc   uint32
	parentScore float32
	parentFreq  uint32
}

func (s *ToChildBlockJoinScorer) Next() bool {
	for {
		if s.started && s.childDoc == engine.NoMoreDocs {
			return false
		}
		if !s.started || s.childDoc+1 == s.parentDoc {
			s.started = true
			if !s.nextParent() {
				return false
			}
		} else {
			s.childDoc++
		}
		if s.accepted(s.childDoc) {
			return true
		}
	}
}

// nextParent positions on the first child of the next matching parent that
// has children.
func (s *ToChildBlockJoinScorer) nextParent() bool {
	for {
		if !s.parent.Next() {
			return s.exhaust()
		}
		s.parentDoc = s.parent.DocID()
		s.validateParent()

		if first := firstChild(s.parents, s.parentDoc); first != s.parentDoc {
			s.loadParentScore()
			s.childDoc = first
			return true
		}
	}
}

// Advance moves to the first accepted child >= target. A rejected child at
// the landing position falls through to Next.
func (s *ToChildBlockJoinScorer) Advance(target uint32) bool {
	if s.started {
		if s.childDoc == engine.NoMoreDocs {
			return false
		}
		if s.childDoc >= target {
			return true
		}
	}
	if target == engine.NoMoreDocs {
		s.started = true
		return s.exhaust()
	}

	if !s.started || target >= s.parentDoc {
		s.started = true
		if !s.parent.Advance(target + 1) {
			return s.exhaust()
		}
		s.parentDoc = s.parent.DocID()
		s.validateParent()

		for {
			first := firstChild(s.parents, s.parentDoc)
			if first != s.parentDoc {
				target = max(target, first)
				break
			}
			if !s.parent.Next() {
				return s.exhaust()
			}
			s.parentDoc = s.parent.DocID()
			s.validateParent()
		}
		s.loadParentScore()
	}

	s.childDoc = target
	if s.accepted(target) {
		return true
	}
	return s.Next()
}

func (s *ToChildBlockJoinScorer) exhaust() bool {
	s.childDoc = engine.NoMoreDocs
	s.parentDoc = engine.NoMoreDocs
	return false
}

func (s *ToChildBlockJoinScorer) validateParent() {
	if !s.parents.Get(s.parentDoc) {
		panic(engine.InvariantViolation(ErrParentMatchedChild,
			"parent query matched non-parent doc %d of segment", s.parentDoc))
	}
}

func (s *ToChildBlockJoinScorer) loadParentScore() {
	if s.doScores {
		s.parentScore = s.parent.Score()
		s.parentFreq = s.parent.Freq()
	}
}

func (s *ToChildBlockJoinScorer) accepted(doc uint32) bool {
	return s.acceptDocs == nil || s.acceptDocs.Get(doc)
}

func (s *ToChildBlockJoinScorer) DocID() uint32 { return s.childDoc }

// Freq returns the parent's freq when scoring, 1 otherwise.
func (s *ToChildBlockJoinScorer) Freq() uint32 { return s.parentFreq }

// Score returns the parent's score when scoring, 0 otherwise.
func (s *ToChildBlockJoinScorer) Score() float32 { return s.parentScore * s.boost }

func (s *ToChildBlockJoinScorer) Cost() int64 { return s.parent.Cost() }

func (s *ToChildBlockJoinScorer) Children() []engine.Scorer { return []engine.Scorer{s.parent} }

// ParentDoc returns the parent of the current child.
func (s *ToChildBlockJoinScorer) ParentDoc() uint32 { return s.parentDoc }
