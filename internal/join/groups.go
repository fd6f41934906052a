package join

import (
	"GoJoin/internal/engine"
)

// GroupDocs is one parent hit with its top child hits.
type GroupDocs struct {
	// GroupValue is the top-level doc ID of the parent.
	GroupValue uint32

	// Score is the parent's score, NaN unless scores were tracked.
	Score float32

	// MaxScore is the best child score, NaN unless scores were tracked.
	MaxScore float32

	// TotalHits is the number of matching children, which may exceed
	// len(ScoreDocs).
	TotalHits int

	ScoreDocs []engine.ScoreDoc

	// GroupSortValues are the parent's values for each group sort field,
	// filled only when requested.
	GroupSortValues []any
}

// TopGroups is the result of BlockJoinCollector.GetTopGroups.
type TopGroups struct {
	GroupSort       engine.Sort
	WithinGroupSort *engine.Sort

	// TotalGroupedHitCount is the number of matching children over every
	// returned group.
	TotalGroupedHitCount int

	// TotalGroupCount is the number of parent docs collected.
	TotalGroupCount int

	Groups   []GroupDocs
	MaxScore float32
}
