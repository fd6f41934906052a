package join

import (
	"GoJoin/internal/engine"
)

// JoinVisitor is told about the block join scorers found in a scorer tree.
type JoinVisitor interface {
	VisitToParent(s *ToParentBlockJoinScorer)
}

// JoinAware is implemented by scorers a JoinVisitor should see.
type JoinAware interface {
	AcceptJoinVisitor(v JoinVisitor)
}

// walkScorers visits every JoinAware scorer under root, breadth first.
func walkScorers(root engine.Scorer, v JoinVisitor) {
	queue := []engine.Scorer{root}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s == nil {
			continue
		}
		if ja, ok := s.(JoinAware); ok {
			ja.AcceptJoinVisitor(v)
		}
		if p, ok := s.(engine.ScorerParent); ok {
			queue = append(queue, p.Children()...)
		}
	}
}
