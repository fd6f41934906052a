package engine

// ReqExclScorer matches the docs of a required scorer that an excluded
// iterator does not match. Scores come from the required scorer.
type ReqExclScorer struct {
	req         Scorer
	excl        PostingsIterator
	exclStarted bool
	exclDone    bool
}

// NewReqExclScorer creates a scorer for req AND NOT excl.
func NewReqExclScorer(req Scorer, excl PostingsIterator) *ReqExclScorer {
	return &ReqExclScorer{req: req, excl: excl}
}

func (s *ReqExclScorer) Next() bool {
	if !s.req.Next() {
		return false
	}
	return s.skipExcluded()
}

func (s *ReqExclScorer) Advance(target uint32) bool {
	if !s.req.Advance(target) {
		return false
	}
	return s.skipExcluded()
}

func (s *ReqExclScorer) skipExcluded() bool {
	for {
		doc := s.req.DocID()
		if !s.excluded(doc) {
			return true
		}
		if !s.req.Next() {
			return false
		}
	}
}

func (s *ReqExclScorer) excluded(doc uint32) bool {
	if s.exclDone {
		return false
	}
	if !s.exclStarted || s.excl.DocID() < doc {
		s.exclStarted = true
		if !s.excl.Advance(doc) {
			s.exclDone = true
			return false
		}
	}
	return s.excl.DocID() == doc
}

func (s *ReqExclScorer) DocID() uint32      { return s.req.DocID() }
func (s *ReqExclScorer) Freq() uint32       { return s.req.Freq() }
func (s *ReqExclScorer) Score() float32     { return s.req.Score() }
func (s *ReqExclScorer) Cost() int64        { return s.req.Cost() }
func (s *ReqExclScorer) Children() []Scorer { return []Scorer{s.req} }

// ReqOptScorer matches the docs of a required scorer and adds the score of
// an optional scorer on the docs it also matches.
type ReqOptScorer struct {
	req        Scorer
	opt        Scorer
	optStarted bool
	optDone    bool
}

// NewReqOptScorer creates a scorer for req with optional opt.
func NewReqOptScorer(req, opt Scorer) *ReqOptScorer {
	return &ReqOptScorer{req: req, opt: opt}
}

func (s *ReqOptScorer) Next() bool                 { return s.req.Next() }
func (s *ReqOptScorer) Advance(target uint32) bool { return s.req.Advance(target) }
func (s *ReqOptScorer) DocID() uint32              { return s.req.DocID() }
func (s *ReqOptScorer) Cost() int64                { return s.req.Cost() }
func (s *ReqOptScorer) Children() []Scorer         { return []Scorer{s.req, s.opt} }

func (s *ReqOptScorer) Freq() uint32 {
	if s.optMatches() {
		return 2
	}
	return 1
}

func (s *ReqOptScorer) Score() float32 {
	score := s.req.Score()
	if s.optMatches() {
		score += s.opt.Score()
	}
	return score
}

func (s *ReqOptScorer) optMatches() bool {
	if s.optDone {
		return false
	}
	doc := s.req.DocID()
	if !s.optStarted || s.opt.DocID() < doc {
		s.optStarted = true
		if !s.opt.Advance(doc) {
			s.optDone = true
			return false
		}
	}
	return s.opt.DocID() == doc
}
