package join_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/join"
	"GoJoin/internal/query"
	"GoJoin/internal/testutil"
)

func scoredChild(score int) index.Document {
	return testutil.Doc("docType", "child", "score", score)
}

func namedParent(name string) index.Document {
	return testutil.Doc("docType", "parent", "name", name)
}

func parentsFilter() *engine.CachingBitSetFilter {
	return testutil.ParentsFilter("docType", "parent")
}

func resumeFilter() *engine.CachingBitSetFilter {
	return testutil.ParentsFilter("docType", "resume")
}

// childScores matches every doc with a score field, scoring it with the
// field's value.
func childScores() engine.Query { return &query.FieldScoreQuery{Field: "score"} }

// scenarioReader indexes P1 with children scored 10 and 20 and P2 with a
// child scored 5:
//
//	0 c1(10), 1 c2(20), 2 P1, 3 c3(5), 4 P2
func scenarioReader(t *testing.T) *index.Reader {
	return testutil.BuildReader(t,
		testutil.Block(scoredChild(10), scoredChild(20), namedParent("P1")),
		testutil.Block(scoredChild(5), namedParent("P2")),
	)
}

type hit struct {
	doc   uint32
	score float32
	freq  uint32
}

// drain iterates the scorers of q over every segment, restricted to live
// docs.
func drain(t *testing.T, s *engine.Searcher, q engine.Query) []hit {
	t.Helper()
	w, err := s.CreateWeight(q)
	require.NoError(t, err)

	var hits []hit
	for _, leaf := range s.Reader().Leaves() {
		sc, err := w.Scorer(leaf, leaf.LiveDocs())
		require.NoError(t, err)
		if sc == nil {
			continue
		}
		for sc.Next() {
			hits = append(hits, hit{doc: leaf.DocBase() + sc.DocID(), score: sc.Score(), freq: sc.Freq()})
		}
		assert.Equal(t, engine.NoMoreDocs, sc.DocID())
	}
	return hits
}

func leafScorer(t *testing.T, s *engine.Searcher, q engine.Query) engine.Scorer {
	t.Helper()
	w, err := s.CreateWeight(q)
	require.NoError(t, err)
	sc, err := w.Scorer(s.Reader().Leaves()[0], nil)
	require.NoError(t, err)
	require.NotNil(t, sc)
	return sc
}

func TestToParentBlockJoinScorer_ScoreModes(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))

	tests := []struct {
		mode join.ScoreMode
		want []hit
	}{
		{join.ScoreModeMax, []hit{{2, 20, 2}, {4, 5, 1}}},
		{join.ScoreModeTotal, []hit{{2, 30, 2}, {4, 5, 1}}},
		{join.ScoreModeAvg, []hit{{2, 15, 2}, {4, 5, 1}}},
		{join.ScoreModeNone, []hit{{2, 0, 2}, {4, 0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), tt.mode)
			assert.Equal(t, tt.want, drain(t, s, q))
		})
	}
}

func TestToParentBlockJoinQuery_Boost(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))
	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeMax)
	q.Boost = 2

	assert.Equal(t, []hit{{2, 40, 2}, {4, 10, 1}}, drain(t, s, q))
	assert.Contains(t, q.String(), "^2")
}

func TestToParentBlockJoinScorer_ParentsCoverMatchingChildren(t *testing.T) {
	// Block i has i%4 children; blocks without children hold only a parent.
	b := testutil.NewBuilder(t)
	var wantParents []uint32
	wantFreq := map[uint32]uint32{}
	next := uint32(0)
	for i := 0; i < 20; i++ {
		n := i % 4
		block := make([]index.Document, 0, n+1)
		for j := 0; j < n; j++ {
			block = append(block, scoredChild(j+1))
		}
		block = append(block, namedParent("p"))
		testutil.AddBlocks(t, b, block)

		parent := next + uint32(n)
		if n > 0 {
			wantParents = append(wantParents, parent)
			wantFreq[parent] = uint32(n)
		}
		next = parent + 1
	}
	s := engine.NewSearcher(b.Reader())

	q := join.NewToParentBlockJoinQuery(testutil.Term("docType", "child"), parentsFilter(), join.ScoreModeNone)
	hits := drain(t, s, q)

	got := make([]uint32, len(hits))
	for i, h := range hits {
		got[i] = h.doc
		assert.Equal(t, wantFreq[h.doc], h.freq, "freq of parent %d", h.doc)
	}
	assert.Equal(t, wantParents, got)
}

func TestToParentBlockJoinScorer_ChildMatchesParent(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))
	q := join.NewToParentBlockJoinQuery(&query.MatchAllQuery{}, parentsFilter(), join.ScoreModeAvg)

	err := s.Search(q, &engine.TotalHitCountCollector{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, join.ErrChildMatchedParent), "got %v", err)
	assert.True(t, errors.Is(err, engine.ErrInvariantViolation), "got %v", err)
	assert.Contains(t, err.Error(), "doc 2")
}

func TestToParentBlockJoinScorer_OrphanChild(t *testing.T) {
	b := testutil.NewBuilder(t)
	testutil.AddBlocks(t, b, testutil.Block(scoredChild(1), namedParent("P1")))
	require.NoError(t, b.AddDocument(scoredChild(2)))
	s := engine.NewSearcher(b.Reader())

	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeTotal)
	err := s.Search(q, &engine.TotalHitCountCollector{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, join.ErrOrphanChild), "got %v", err)
	assert.True(t, errors.Is(err, engine.ErrInvariantViolation), "got %v", err)
}

func TestToParentBlockJoinQuery_ParentFilterNotBitSet(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))
	filter := engine.NewQueryWrapperFilter(testutil.Term("docType", "parent"))
	q := join.NewToParentBlockJoinQuery(childScores(), filter, join.ScoreModeMax)

	err := s.Search(q, &engine.TotalHitCountCollector{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, join.ErrParentFilterNotBitSet), "got %v", err)
	assert.False(t, errors.Is(err, engine.ErrInvariantViolation))
}

func TestToParentBlockJoinQuery_NoChildMatch(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))
	q := join.NewToParentBlockJoinQuery(testutil.Term("skill", "cobol"), parentsFilter(), join.ScoreModeMax)
	assert.Empty(t, drain(t, s, q))
}

func TestToParentBlockJoinScorer_AdvanceSingleParentSingleChild(t *testing.T) {
	r := testutil.BuildReader(t, testutil.Block(
		testutil.Doc("skill", "java"),
		testutil.Doc("docType", "parent", "name", "1"),
	))
	s := engine.NewSearcher(r)
	q := join.NewToParentBlockJoinQuery(testutil.Term("skill", "java"), parentsFilter(), join.ScoreModeAvg)

	sc := leafScorer(t, s, q)
	require.True(t, sc.Advance(1))
	assert.Equal(t, uint32(1), sc.DocID())
	assert.False(t, sc.Next())
	assert.Equal(t, engine.NoMoreDocs, sc.DocID())
}

func TestToParentBlockJoinScorer_AdvanceSingleParentNoChild(t *testing.T) {
	r := testutil.BuildReader(t,
		testutil.Block(namedParent("1")),
		testutil.Block(testutil.Doc("skill", "java"), namedParent("2")),
	)
	s := engine.NewSearcher(r)
	q := join.NewToParentBlockJoinQuery(testutil.Term("skill", "java"), parentsFilter(), join.ScoreModeAvg)

	sc := leafScorer(t, s, q)
	require.True(t, sc.Advance(0))
	assert.Equal(t, uint32(2), sc.DocID())
}

func TestToParentBlockJoinScorer_AdvanceSkipsBlocks(t *testing.T) {
	// 0 c, 1 P, 2 c, 3 c, 4 P, 5 c, 6 P
	r := testutil.BuildReader(t,
		testutil.Block(scoredChild(1), namedParent("a")),
		testutil.Block(scoredChild(2), scoredChild(3), namedParent("b")),
		testutil.Block(scoredChild(4), namedParent("c")),
	)
	s := engine.NewSearcher(r)
	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeTotal)

	sc := leafScorer(t, s, q)
	require.True(t, sc.Advance(3))
	assert.Equal(t, uint32(4), sc.DocID())
	assert.Equal(t, float32(5), sc.Score())

	// Already past the target.
	require.True(t, sc.Advance(2))
	assert.Equal(t, uint32(4), sc.DocID())

	require.True(t, sc.Advance(6))
	assert.Equal(t, uint32(6), sc.DocID())
	assert.Equal(t, float32(4), sc.Score())

	assert.False(t, sc.Advance(engine.NoMoreDocs))
	assert.Equal(t, engine.NoMoreDocs, sc.DocID())
}

func TestToParentBlockJoinQuery_NestedDocScoringWithDeletes(t *testing.T) {
	b := testutil.NewBuilder(t)
	testutil.AddBlocks(t, b,
		testutil.Block(testutil.MakeJob("java", 2007), testutil.MakeJob("python", 2010), testutil.MakeResume("Lisa", "United Kingdom")),
		testutil.Block(testutil.MakeJob("c", 1999), testutil.MakeJob("ruby", 2005), testutil.MakeJob("java", 2006), testutil.MakeResume("Frank", "United States")),
	)
	b.Flush()

	jobs := &query.ConstantScoreQuery{Query: testutil.Term("docType", "job")}
	q := join.NewToParentBlockJoinQuery(jobs, resumeFilter(), join.ScoreModeTotal)

	td, err := engine.NewSearcher(b.Reader()).TopDocs(q, 10)
	require.NoError(t, err)
	require.Equal(t, 2, td.TotalHits)
	assert.Equal(t, engine.ScoreDoc{Doc: 6, Score: 3}, td.ScoreDocs[0])
	assert.Equal(t, engine.ScoreDoc{Doc: 2, Score: 2}, td.ScoreDocs[1])

	b.DeleteDocuments("skill", "java")
	td, err = engine.NewSearcher(b.Reader()).TopDocs(q, 10)
	require.NoError(t, err)
	require.Equal(t, 2, td.TotalHits)
	assert.Equal(t, engine.ScoreDoc{Doc: 6, Score: 2}, td.ScoreDocs[0])
	assert.Equal(t, engine.ScoreDoc{Doc: 2, Score: 1}, td.ScoreDocs[1])
}

func TestToParentBlockJoinQuery_DeletedParentIsSkipped(t *testing.T) {
	b := testutil.NewBuilder(t)
	testutil.AddBlocks(t, b,
		testutil.Block(scoredChild(1), namedParent("keep")),
		testutil.Block(scoredChild(2), scoredChild(3), namedParent("drop")),
		testutil.Block(scoredChild(4), namedParent("keep2")),
	)
	b.DeleteDocuments("name", "drop")
	s := engine.NewSearcher(b.Reader())

	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeTotal)
	assert.Equal(t, map[uint32]float32{1: 1, 6: 4}, testutil.Collect(t, s, q))
}

func TestToParentBlockJoinQuery_MultipleSegments(t *testing.T) {
	r := testutil.BuildSegments(t,
		[][]index.Document{testutil.Block(scoredChild(10), scoredChild(20), namedParent("P1"))},
		[][]index.Document{testutil.Block(scoredChild(5), namedParent("P2")), testutil.Block(namedParent("P3"))},
	)
	require.Len(t, r.Leaves(), 2)
	s := engine.NewSearcher(r)

	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeMax)
	assert.Equal(t, []hit{{2, 20, 2}, {4, 5, 1}}, drain(t, s, q))
}

func TestToParentBlockJoinQuery_RewriteKeepsIdentity(t *testing.T) {
	s := engine.NewSearcher(testutil.ResumeReader(t))
	child := &query.BooleanQuery{Clauses: []query.BooleanClause{
		{Occur: query.BooleanMust, Query: testutil.Term("skill", "java")},
	}}
	filter := resumeFilter()
	q := join.NewToParentBlockJoinQuery(child, filter, join.ScoreModeAvg)

	rewritten, err := s.Rewrite(q)
	require.NoError(t, err)
	assert.NotSame(t, q, rewritten)
	assert.True(t, rewritten.Equal(q))
	assert.True(t, q.Equal(rewritten))
	assert.Same(t, engine.Query(child), rewritten.(*join.ToParentBlockJoinQuery).ChildQuery())

	other := join.NewToParentBlockJoinQuery(child, filter, join.ScoreModeMax)
	assert.False(t, q.Equal(other))
	assert.False(t, q.Equal(join.NewToParentBlockJoinQuery(child, resumeFilter(), join.ScoreModeAvg)))

	terms := map[engine.Term]struct{}{}
	q.ExtractTerms(terms)
	assert.Contains(t, terms, engine.Term{Field: "skill", Text: "java"})
}

func TestToParentBlockJoinScorer_SwapChildBuffers(t *testing.T) {
	s := engine.NewSearcher(scenarioReader(t))
	q := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeMax)

	sc := leafScorer(t, s, q).(*join.ToParentBlockJoinScorer)
	sc.TrackPendingChildHits()

	require.True(t, sc.Next())
	assert.Equal(t, uint32(2), sc.ParentDoc())
	assert.Equal(t, 2, sc.ChildCount())
	docs := sc.SwapChildDocs(nil)
	scores, err := sc.SwapChildScores(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, docs)
	assert.Equal(t, []float32{10, 20}, scores)

	require.True(t, sc.Next())
	assert.Equal(t, []uint32{3}, sc.SwapChildDocs(docs))
	// The buffers handed back are not touched by the scorer.
	assert.Equal(t, []uint32{0, 1}, docs)

	none := join.NewToParentBlockJoinQuery(childScores(), parentsFilter(), join.ScoreModeNone)
	nsc := leafScorer(t, s, none).(*join.ToParentBlockJoinScorer)
	nsc.TrackPendingChildHits()
	require.True(t, nsc.Next())
	_, err = nsc.SwapChildScores(nil)
	assert.True(t, errors.Is(err, join.ErrNoChildScores))
}

func TestToParentBlockJoinQuery_NoneIsIdempotent(t *testing.T) {
	s := engine.NewSearcher(testutil.ResumeReader(t))
	q := join.NewToParentBlockJoinQuery(testutil.Term("skill", "java"), resumeFilter(), join.ScoreModeNone)

	first := testutil.Collect(t, s, q)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, testutil.Collect(t, s, q))
	}
	assert.Equal(t, map[uint32]float32{2: 0, 5: 0}, first)
}
