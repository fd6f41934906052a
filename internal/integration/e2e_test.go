package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"

	"GoJoin/internal/coordinator"
	"GoJoin/internal/corpus"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/testutil"
)

// resumeCorpus indexes, with four docs per segment, as
//
//	seg 0: 0 java 2007, 1 python 2010, 2 Lisa (UK)
//	seg 1: 3 ruby 2005, 4 java 2006,   5 Frank (US)
//	seg 2: 6 java 2012, 7 Bob (US),    8 Ann (UK)
const resumeCorpus = `{"docType":"resume","name":"Lisa","country":"UK","children":[{"docType":"job","skill":"java","year":2007},{"docType":"job","skill":"python","year":2010}]}
{"docType":"resume","name":"Frank","country":"US","children":[{"docType":"job","skill":"ruby","year":2005},{"docType":"job","skill":"java","year":2006}]}
{"docType":"resume","name":"Bob","country":"US","children":[{"docType":"job","skill":"java","year":2012}]}
{"docType":"resume","name":"Ann","country":"UK"}
`

var resumes = &coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "docType", Term: "resume"}

// loadResumes writes resumeCorpus zstd-compressed, loads it and returns a
// coordinator over the result.
func loadResumes(t testing.TB) *coordinator.Coordinator {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(resumeCorpus)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "resumes.jsonl.zst")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := index.NewBuilder(testutil.JoinSchema(), nil, index.BuilderOptions{MaxDocsPerSegment: 4})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := corpus.Load(context.Background(), path, corpus.Options{}, b)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := (corpus.Stats{Files: 1, Blocks: 4, Docs: 9}); stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	return coordinator.New(coordinator.DefaultConfig(), engine.NewSearcher(b.Reader()), nil, nil)
}

func docs(hits []coordinator.Hit) []uint32 {
	out := make([]uint32, len(hits))
	for i, h := range hits {
		out[i] = h.Doc
	}
	return out
}

func execute(t *testing.T, c *coordinator.Coordinator, plan coordinator.QueryPlan) *coordinator.PlanResult {
	t.Helper()
	res, err := c.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute(%s): %v", plan.Name, err)
	}
	return res
}

func TestE2E_IndexShape(t *testing.T) {
	c := loadResumes(t)
	if got, want := c.Stats(), (coordinator.IndexStats{Segments: 3, MaxDoc: 9, NumDocs: 9}); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestE2E_ToParentAcrossSegments(t *testing.T) {
	c := loadResumes(t)
	res := execute(t, c, coordinator.QueryPlan{
		Name:    "java-resumes",
		Kind:    coordinator.KindToParent,
		Query:   coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "skill", Term: "java"},
		Parents: resumes,
		Fields:  []string{"name", "skill"},
	})

	if got := docs(res.Hits); !reflect.DeepEqual(got, []uint32{2, 5, 7}) {
		t.Fatalf("parents = %v, want [2 5 7]", got)
	}
	if res.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3", res.TotalHits)
	}
	wantChildren := [][]uint32{{0}, {4}, {6}}
	for i, h := range res.Hits {
		if h.ChildHits != 1 {
			t.Errorf("%v ChildHits = %d, want 1", h.Stored["name"], h.ChildHits)
		}
		if got := docs(h.Children); !reflect.DeepEqual(got, wantChildren[i]) {
			t.Errorf("%v children = %v, want %v", h.Stored["name"], got, wantChildren[i])
		}
		for _, child := range h.Children {
			if child.Stored["skill"] != "java" {
				t.Errorf("child %d skill = %v", child.Doc, child.Stored["skill"])
			}
		}
	}
	if res.Hits[0].Stored["name"] != "Lisa" {
		t.Errorf("first parent = %v, want Lisa", res.Hits[0].Stored["name"])
	}
}

func TestE2E_ToParentSortedByLatestJob(t *testing.T) {
	c := loadResumes(t)
	res := execute(t, c, coordinator.QueryPlan{
		Name:    "java-resumes-by-latest-job",
		Kind:    coordinator.KindToParent,
		Query:   coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "skill", Term: "java"},
		Parents: resumes,
		Sort:    []coordinator.SortSpec{{Field: "year", Type: coordinator.SortInt64, Children: "highest", Reverse: true}},
	})

	if got := docs(res.Hits); !reflect.DeepEqual(got, []uint32{7, 2, 5}) {
		t.Fatalf("parents = %v, want [7 2 5]", got)
	}
	for i, want := range []int64{2012, 2010, 2006} {
		if !reflect.DeepEqual(res.Hits[i].Sort, []any{want}) {
			t.Errorf("hit %d sort = %v, want [%d]", i, res.Hits[i].Sort, want)
		}
	}
}

func TestE2E_ToChildAcrossSegments(t *testing.T) {
	c := loadResumes(t)
	res := execute(t, c, coordinator.QueryPlan{
		Name:    "us-jobs",
		Kind:    coordinator.KindToChild,
		Query:   coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "country", Term: "US"},
		Parents: resumes,
		Sort:    []coordinator.SortSpec{{Type: coordinator.SortDoc}},
	})
	if got := docs(res.Hits); !reflect.DeepEqual(got, []uint32{3, 4, 6}) {
		t.Errorf("children = %v, want [3 4 6]", got)
	}
}

func TestE2E_TermJoinAcrossSegments(t *testing.T) {
	c := loadResumes(t)
	res := execute(t, c, coordinator.QueryPlan{
		Name:      "same-country-as-lisa",
		Kind:      coordinator.KindJoin,
		Query:     coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "name", Term: "Lisa"},
		FromField: "country",
		ToField:   "country",
		Sort:      []coordinator.SortSpec{{Type: coordinator.SortDoc}},
	})
	if got := docs(res.Hits); !reflect.DeepEqual(got, []uint32{2, 8}) {
		t.Errorf("joined = %v, want [2 8]", got)
	}
}

func TestE2E_JoinThenFilter(t *testing.T) {
	c := loadResumes(t)
	res := execute(t, c, coordinator.QueryPlan{
		Name:      "us-colleagues",
		Kind:      coordinator.KindJoin,
		Query:     coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "skill", Term: "java"},
		FromField: "skill",
		ToField:   "skill",
		ScoreMode: "total",
		Filter:    &coordinator.QueryClause{Type: coordinator.ClauseTerm, Field: "year", Term: "2012"},
	})
	if got := docs(res.Hits); !reflect.DeepEqual(got, []uint32{6}) {
		t.Errorf("joined = %v, want [6]", got)
	}
	if res.Hits[0].Score == nil || *res.Hits[0].Score <= 0 {
		t.Errorf("score = %v, want positive", res.Hits[0].Score)
	}
}
