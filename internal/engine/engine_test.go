package engine

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
)

// testScorer scores a fixed list of docs with fixed scores.
type testScorer struct {
	*index.PostingsEnum
	docs   []uint32
	scores []float32
}

func newTestScorer(docs []uint32, scores []float32) *testScorer {
	return &testScorer{PostingsEnum: index.NewPostingsEnum(docs, nil, nil), docs: docs, scores: scores}
}

func (s *testScorer) Score() float32 {
	doc := s.DocID()
	for i, d := range s.docs {
		if d == doc {
			if s.scores == nil {
				return 1
			}
			return s.scores[i]
		}
	}
	return 0
}

func drain(it PostingsIterator) []uint32 {
	var docs []uint32
	for it.Next() {
		docs = append(docs, it.DocID())
	}
	return docs
}

func equalDocs(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d docs, got %d: %v", len(want), len(got), got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("doc[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func testLeaf(t *testing.T, n int) *index.LeafReader {
	t.Helper()
	schema := &index.Schema{Fields: []index.FieldDef{
		{Name: "tag", Type: index.FieldTypeKeyword},
		{Name: "rank", Type: index.FieldTypeNumeric},
	}}
	b, err := index.NewBuilder(schema, nil, index.DefaultBuilderOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if err := b.AddDocument(index.Document{Fields: map[string]any{"rank": (i * 7) % 5}}); err != nil {
			t.Fatal(err)
		}
	}
	return b.Reader().Leaves()[0]
}

// --- Conjunction Tests ---

func TestConjunctionScorer_Basic(t *testing.T) {
	a := newTestScorer([]uint32{1, 2, 3, 5, 7}, []float32{1, 1, 1, 1, 1})
	b := newTestScorer([]uint32{2, 3, 4, 5, 8}, []float32{2, 2, 2, 2, 2})

	conj := NewConjunctionScorer([]Scorer{a, b})
	var docs []uint32
	for conj.Next() {
		docs = append(docs, conj.DocID())
		if conj.Score() != 3 {
			t.Errorf("Score at %d = %f, want 3", conj.DocID(), conj.Score())
		}
		if conj.Freq() != 2 {
			t.Errorf("Freq = %d, want 2", conj.Freq())
		}
	}
	equalDocs(t, docs, []uint32{2, 3, 5})
	if conj.DocID() != NoMoreDocs {
		t.Errorf("DocID after exhaustion = %d", conj.DocID())
	}
}

func TestConjunctionScorer_NoOverlap(t *testing.T) {
	a := newTestScorer([]uint32{1, 3, 5}, nil)
	b := newTestScorer([]uint32{2, 4, 6}, nil)

	if NewConjunctionScorer([]Scorer{a, b}).Next() {
		t.Error("expected no results for non-overlapping scorers")
	}
}

func TestConjunctionScorer_ThreeWay(t *testing.T) {
	a := newTestScorer([]uint32{1, 2, 3, 4, 5}, nil)
	b := newTestScorer([]uint32{2, 3, 5}, nil)
	c := newTestScorer([]uint32{3, 5, 7}, nil)

	equalDocs(t, drain(NewConjunctionScorer([]Scorer{a, b, c})), []uint32{3, 5})
}

func TestConjunctionScorer_Advance(t *testing.T) {
	a := newTestScorer([]uint32{1, 3, 5, 7, 9}, nil)
	b := newTestScorer([]uint32{1, 3, 5, 7, 9}, nil)

	conj := NewConjunctionScorer([]Scorer{a, b})
	if !conj.Advance(5) {
		t.Fatal("Advance(5) should succeed")
	}
	if conj.DocID() != 5 {
		t.Errorf("DocID = %d, want 5", conj.DocID())
	}
	if len(conj.Children()) != 2 {
		t.Errorf("Children = %d, want 2", len(conj.Children()))
	}
}

// --- Disjunction Tests ---

func TestDisjunctionScorer_Basic(t *testing.T) {
	a := newTestScorer([]uint32{1, 3, 5}, []float32{1, 1, 1})
	b := newTestScorer([]uint32{2, 3, 6}, []float32{2, 2, 2})

	disj := NewDisjunctionScorer([]Scorer{a, b}, 1)
	var docs []uint32
	for disj.Next() {
		docs = append(docs, disj.DocID())
		if disj.DocID() == 3 && (disj.Score() != 3 || disj.Freq() != 2) {
			t.Errorf("doc 3: score %f freq %d, want 3 and 2", disj.Score(), disj.Freq())
		}
	}
	equalDocs(t, docs, []uint32{1, 2, 3, 5, 6})
}

func TestDisjunctionScorer_Duplicates(t *testing.T) {
	a := newTestScorer([]uint32{1, 2, 3}, nil)
	b := newTestScorer([]uint32{1, 2, 3}, nil)

	equalDocs(t, drain(NewDisjunctionScorer([]Scorer{a, b}, 1)), []uint32{1, 2, 3})
}

func TestDisjunctionScorer_MinMatch(t *testing.T) {
	a := newTestScorer([]uint32{1, 2, 3, 4}, nil)
	b := newTestScorer([]uint32{2, 4, 6}, nil)
	c := newTestScorer([]uint32{3, 4, 6}, nil)

	equalDocs(t, drain(NewDisjunctionScorer([]Scorer{a, b, c}, 2)), []uint32{2, 3, 4, 6})
}

func TestDisjunctionScorer_Empty(t *testing.T) {
	if NewDisjunctionScorer(nil, 1).Next() {
		t.Error("empty disjunction should return false")
	}
}

func TestDisjunctionScorer_Advance(t *testing.T) {
	a := newTestScorer([]uint32{1, 5, 10}, nil)
	b := newTestScorer([]uint32{3, 7, 10}, nil)

	disj := NewDisjunctionScorer([]Scorer{a, b}, 1)
	if !disj.Next() || disj.DocID() != 1 {
		t.Fatalf("Next = %d, want 1", disj.DocID())
	}
	if !disj.Advance(6) {
		t.Fatal("Advance(6) should succeed")
	}
	if disj.DocID() != 7 {
		t.Errorf("DocID = %d, want 7", disj.DocID())
	}
	if !disj.Next() || disj.DocID() != 10 || disj.Freq() != 2 {
		t.Errorf("Next = %d freq %d, want 10 freq 2", disj.DocID(), disj.Freq())
	}
}

// --- Required Scorer Tests ---

func TestReqExclScorer(t *testing.T) {
	req := newTestScorer([]uint32{1, 2, 3, 4, 5}, nil)
	excl := index.NewPostingsEnum([]uint32{2, 4, 9}, nil, nil)

	equalDocs(t, drain(NewReqExclScorer(req, excl)), []uint32{1, 3, 5})
}

func TestReqOptScorer(t *testing.T) {
	req := newTestScorer([]uint32{1, 2, 3}, []float32{1, 1, 1})
	opt := newTestScorer([]uint32{2, 5}, []float32{4, 4})

	s := NewReqOptScorer(req, opt)
	want := map[uint32]float32{1: 1, 2: 5, 3: 1}
	for s.Next() {
		if s.Score() != want[s.DocID()] {
			t.Errorf("doc %d score %f, want %f", s.DocID(), s.Score(), want[s.DocID()])
		}
	}
}

// --- Iterator Tests ---

func TestBitSetIterator(t *testing.T) {
	bits := bitset.Of(100, 3, 10, 64, 99)
	equalDocs(t, drain(NewBitSetIterator(bits, nil)), []uint32{3, 10, 64, 99})
	equalDocs(t, drain(NewBitSetIterator(bits, bitset.Of(100, 10, 99))), []uint32{10, 99})

	it := NewBitSetIterator(bits, nil)
	if !it.Advance(11) || it.DocID() != 64 {
		t.Fatalf("Advance(11) = %d, want 64", it.DocID())
	}
	if it.Advance(100) || it.DocID() != NoMoreDocs {
		t.Errorf("Advance past end should exhaust")
	}
}

func TestAllDocsIterator(t *testing.T) {
	equalDocs(t, drain(NewAllDocsIterator(4, nil)), []uint32{0, 1, 2, 3})
	equalDocs(t, drain(NewAllDocsIterator(4, bitset.Of(4, 0, 3))), []uint32{0, 3})

	it := NewAllDocsIterator(10, nil)
	if !it.Advance(7) || it.DocID() != 7 {
		t.Fatalf("Advance(7) = %d", it.DocID())
	}
	if !it.Next() || it.DocID() != 8 {
		t.Fatalf("Next = %d, want 8", it.DocID())
	}
}

// --- Collector Tests ---

func collectAll(c Collector, leaf *index.LeafReader, docs []uint32, scores []float32) {
	cur := &CurrentDocScorer{}
	c.SetNextReader(leaf)
	c.SetScorer(cur)
	for i, d := range docs {
		cur.Doc = d
		cur.ScoreValue = scores[i]
		c.Collect(d)
	}
}

func TestTopScoreDocCollector_Basic(t *testing.T) {
	c := NewTopScoreDocCollector(3)
	collectAll(c, testLeaf(t, 6), []uint32{1, 2, 3, 4, 5}, []float32{1, 3, 2, 5, 4})

	td := c.TopDocs()
	if td.TotalHits != 5 {
		t.Errorf("TotalHits = %d, want 5", td.TotalHits)
	}
	if td.MaxScore != 5 {
		t.Errorf("MaxScore = %f, want 5", td.MaxScore)
	}
	want := []float32{5, 4, 3}
	if len(td.ScoreDocs) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(td.ScoreDocs))
	}
	for i, sd := range td.ScoreDocs {
		if sd.Score != want[i] {
			t.Errorf("result[%d].Score = %f, want %f", i, sd.Score, want[i])
		}
	}
}

func TestTopScoreDocCollector_TiesPreferLowerDoc(t *testing.T) {
	c := NewTopScoreDocCollector(2)
	collectAll(c, testLeaf(t, 6), []uint32{5, 3, 1, 4}, []float32{2, 2, 2, 2})

	td := c.TopDocs()
	equalDocs(t, []uint32{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc}, []uint32{1, 3})
}

func TestTopScoreDocCollector_Empty(t *testing.T) {
	td := NewTopScoreDocCollector(10).TopDocs()
	if len(td.ScoreDocs) != 0 {
		t.Errorf("expected 0 results, got %d", len(td.ScoreDocs))
	}
	if !math.IsNaN(float64(td.MaxScore)) {
		t.Errorf("MaxScore of empty result = %f, want NaN", td.MaxScore)
	}
}

func TestTopScoreDocCollector_Range(t *testing.T) {
	c := NewTopScoreDocCollector(5)
	collectAll(c, testLeaf(t, 6), []uint32{0, 1, 2, 3, 4}, []float32{5, 4, 3, 2, 1})

	td := c.TopDocsRange(1, 2)
	equalDocs(t, []uint32{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc}, []uint32{1, 2})
}

func TestTopFieldCollector_SortByNumeric(t *testing.T) {
	// rank = (doc*7)%5: 0,2,4,1,3,0,2
	leaf := testLeaf(t, 7)
	sort := NewSort(SortField{Field: "rank", Type: SortInt64}, SortField{Type: SortDoc})
	c, err := NewTopFieldCollector(sort, 3, true, false, false)
	if err != nil {
		t.Fatal(err)
	}
	docs := []uint32{0, 1, 2, 3, 4, 5, 6}
	collectAll(c, leaf, docs, make([]float32, len(docs)))

	td := c.TopDocs()
	equalDocs(t, []uint32{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc, td.ScoreDocs[2].Doc}, []uint32{0, 5, 3})
	if got := td.ScoreDocs[2].Fields[0]; got != int64(1) {
		t.Errorf("sort value = %v, want 1", got)
	}
	if td.TotalHits != 7 {
		t.Errorf("TotalHits = %d, want 7", td.TotalHits)
	}
}

func TestTopFieldCollector_Reverse(t *testing.T) {
	leaf := testLeaf(t, 7)
	sort := NewSort(SortField{Field: "rank", Type: SortInt64, Reverse: true})
	c, err := NewTopFieldCollector(sort, 2, false, true, true)
	if err != nil {
		t.Fatal(err)
	}
	docs := []uint32{0, 1, 2, 3, 4, 5, 6}
	collectAll(c, leaf, docs, []float32{1, 2, 3, 4, 5, 6, 7})

	td := c.TopDocs()
	equalDocs(t, []uint32{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc}, []uint32{2, 4})
	if td.MaxScore != 7 {
		t.Errorf("MaxScore = %f, want 7", td.MaxScore)
	}
	if td.ScoreDocs[0].Score != 3 {
		t.Errorf("Score = %f, want 3", td.ScoreDocs[0].Score)
	}
}

func TestTopFieldCollector_Relevance(t *testing.T) {
	c, err := NewTopFieldCollector(SortByRelevance(), 2, true, true, false)
	if err != nil {
		t.Fatal(err)
	}
	collectAll(c, testLeaf(t, 4), []uint32{0, 1, 2, 3}, []float32{1, 9, 9, 4})

	td := c.TopDocs()
	equalDocs(t, []uint32{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc}, []uint32{1, 2})
}

func TestTopFieldCollector_InvalidArgs(t *testing.T) {
	if _, err := NewTopFieldCollector(Sort{}, 1, false, false, false); err == nil {
		t.Error("empty sort should fail")
	}
	bad := NewSort(SortField{Field: "x", Type: SortCustom})
	if _, err := NewTopFieldCollector(bad, 1, false, false, false); !errors.Is(err, ErrUnsupportedSortType) {
		t.Errorf("expected ErrUnsupportedSortType, got %v", err)
	}
}

// --- LimitingCollector Tests ---

func TestLimitingCollector_HitLimitExceeded(t *testing.T) {
	c := NewLimitingCollector(&TotalHitCountCollector{}, time.Minute, 5)
	c.Hits = 5
	if err := c.CheckLimits(); !errors.Is(err, ErrHitLimitExceeded) {
		t.Errorf("expected ErrHitLimitExceeded, got %v", err)
	}
	if !c.LimitExceeded {
		t.Error("LimitExceeded should be set")
	}
}

func TestLimitingCollector_NoLimitExceeded(t *testing.T) {
	c := NewLimitingCollector(&TotalHitCountCollector{}, time.Minute, 1000)
	c.Hits = 1
	if err := c.CheckLimits(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestLimitingCollector_Timeout(t *testing.T) {
	c := NewLimitingCollector(&TotalHitCountCollector{}, time.Nanosecond, 0)
	time.Sleep(time.Millisecond)
	// Force the check interval to trigger.
	c.checkCounter = c.checkInterval - 1
	if err := c.CheckLimits(); !errors.Is(err, ErrQueryTimeout) {
		t.Errorf("expected ErrQueryTimeout, got %v", err)
	}
	if !c.TimedOut {
		t.Error("TimedOut should be set")
	}
}

func TestLimitingCollector_CollectPanicsWithAbort(t *testing.T) {
	inner := &TotalHitCountCollector{}
	c := NewLimitingCollector(inner, 0, 2)
	c.Collect(0)
	c.Collect(1)

	defer func() {
		err := recoverSearchPanic(recover())
		if !errors.Is(err, ErrSearchAborted) || !errors.Is(err, ErrHitLimitExceeded) {
			t.Errorf("expected abort error, got %v", err)
		}
		if inner.TotalHits() != 2 {
			t.Errorf("inner collected %d, want 2", inner.TotalHits())
		}
	}()
	c.Collect(2)
}

func TestInvariantViolation_Marks(t *testing.T) {
	cause := errors.New("child matched parent")
	err := InvariantViolation(cause, "doc %d", 7)
	if !errors.Is(err, cause) || !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("error not marked: %v", err)
	}
	if got := recoverSearchPanic(err); got != err {
		t.Errorf("recoverSearchPanic changed the error")
	}
}
