package benchmark

import (
	"fmt"
	"testing"

	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/join"
	"GoJoin/internal/query"
	"GoJoin/internal/testutil"
)

var skills = []string{"java", "python", "ruby", "go", "rust", "lisp", "c", "sql"}

// buildResumes indexes n resumes with jobsPer jobs each.
func buildResumes(b *testing.B, n, jobsPer int) *engine.Searcher {
	b.Helper()
	builder, err := index.NewBuilder(testutil.JoinSchema(), nil, index.BuilderOptions{MaxDocsPerSegment: 10_000})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < n; i++ {
		block := make([]index.Document, 0, jobsPer+1)
		for j := 0; j < jobsPer; j++ {
			block = append(block, testutil.MakeJob(skills[(i+j)%len(skills)], 1990+(i*7+j)%35))
		}
		block = append(block, testutil.MakeResume(fmt.Sprintf("r%d", i), fmt.Sprintf("country%d", i%20)))
		if err := builder.AddBlock(block...); err != nil {
			b.Fatal(err)
		}
	}
	return engine.NewSearcher(builder.Reader())
}

func BenchmarkJoin_ToParent(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	parents := testutil.ParentsFilter("docType", "resume")
	for _, mode := range []join.ScoreMode{join.ScoreModeNone, join.ScoreModeAvg, join.ScoreModeMax, join.ScoreModeTotal} {
		b.Run(mode.String(), func(b *testing.B) {
			q := join.NewToParentBlockJoinQuery(testutil.Term("skill", "java"), parents, mode)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.TopDocs(q, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkJoin_ToChild(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	parents := testutil.ParentsFilter("docType", "resume")
	q := join.NewToChildBlockJoinQuery(testutil.Term("country", "country3"), parents, true)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.TopDocs(q, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJoin_BlockJoinCollector(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	parents := testutil.ParentsFilter("docType", "resume")
	q := join.NewToParentBlockJoinQuery(testutil.Term("docType", "job"), parents, join.ScoreModeMax)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := join.NewBlockJoinCollector(engine.SortByRelevance(), 10, true, true)
		if err != nil {
			b.Fatal(err)
		}
		if err := s.Search(q, c); err != nil {
			b.Fatal(err)
		}
		if _, err := c.GetTopGroups(q, nil, 0, 3, 0, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJoin_SortByChildren(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	parents := testutil.ParentsFilter("docType", "resume")
	children := engine.NewCachingBitSetFilter(engine.NewQueryWrapperFilter(testutil.Term("docType", "job")))
	sort := engine.NewSort(join.NewToParentBlockJoinSortField("year", engine.SortInt64, true, join.BlockOrderHighest, parents, children))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.TopFieldDocs(testutil.Term("docType", "resume"), 10, sort); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJoin_CreateJoinQuery(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	from := &query.MatchAllQuery{}
	for _, mode := range []join.ScoreMode{join.ScoreModeNone, join.ScoreModeMax} {
		b.Run(mode.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				q, err := join.CreateJoinQuery("skill", false, "skill", from, s, mode)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := s.TopDocs(q, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkJoin_TermsCollector(b *testing.B) {
	s := buildResumes(b, 5000, 5)
	q := testutil.Term("docType", "job")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := join.NewTermsCollector("skill", false)
		if err := s.Search(q, c); err != nil {
			b.Fatal(err)
		}
		_ = c.KeyTable().SortedIDs()
	}
}
