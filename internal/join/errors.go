package join

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrChildMatchedParent is the cause of the invariant violation raised
	// when the child query of a to-parent join matches a parent doc.
	ErrChildMatchedParent = errors.New("child query must only match non-parent docs")

	// ErrParentMatchedChild is the cause of the invariant violation raised
	// when the parent query of a to-child join matches a doc that is not a
	// parent.
	ErrParentMatchedChild = errors.New("parent query must only match parent docs")

	// ErrOrphanChild is the cause of the invariant violation raised when the
	// child query matches a doc after the last parent of a segment.
	ErrOrphanChild = errors.New("child doc has no parent after it")

	ErrParentFilterNotBitSet = errors.New("parent filter must produce a FixedBitDocIDSet")
	ErrUnsupportedScoreMode  = errors.New("unsupported score mode")
	ErrScoresNotTracked      = errors.New("cannot sort by relevance within group: scores were not tracked")
	ErrNoChildScores         = errors.New("score mode none keeps no child scores")
)
