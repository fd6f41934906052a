package testutil

import (
	"testing"

	"GoJoin/internal/engine"
	"GoJoin/internal/index"
	"GoJoin/internal/query"
)

// JoinSchema returns a schema covering the fixtures used by join tests:
// resume/job blocks, product/price term joins and scored children.
func JoinSchema() *index.Schema {
	return &index.Schema{
		DefaultAnalyzer: "standard",
		Fields: []index.FieldDef{
			{Name: "docType", Type: index.FieldTypeKeyword},
			{Name: "id", Type: index.FieldTypeKeyword, Stored: true},
			{Name: "name", Type: index.FieldTypeKeyword, Stored: true},
			{Name: "country", Type: index.FieldTypeKeyword},
			{Name: "skill", Type: index.FieldTypeKeyword, Stored: true},
			{Name: "qualification", Type: index.FieldTypeKeyword},
			{Name: "year", Type: index.FieldTypeNumeric},
			{Name: "score", Type: index.FieldTypeNumeric},
			{Name: "productID", Type: index.FieldTypeKeyword},
			{Name: "related", Type: index.FieldTypeKeyword, MultiValued: true},
			{Name: "description", Type: index.FieldTypeText},
			{Name: "price", Type: index.FieldTypeNumeric},
		},
	}
}

// Doc builds a document from alternating field names and values.
func Doc(kv ...any) index.Document {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}
	return index.Document{Fields: fields}
}

// MakeJob returns a child doc for a job held with skill since year.
func MakeJob(skill string, year int) index.Document {
	return Doc("docType", "job", "skill", skill, "year", year)
}

// MakeQualification returns a child doc for a qualification earned in year.
func MakeQualification(qualification string, year int) index.Document {
	return Doc("docType", "qualification", "qualification", qualification, "year", year)
}

// MakeResume returns a parent doc.
func MakeResume(name, country string) index.Document {
	return Doc("docType", "resume", "name", name, "country", country)
}

// NewBuilder returns a builder over JoinSchema keeping every doc in one
// segment until flushed.
func NewBuilder(t testing.TB) *index.Builder {
	t.Helper()
	b, err := index.NewBuilder(JoinSchema(), nil, index.DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// AddBlocks adds each block to b. The last doc of a block is its parent.
func AddBlocks(t testing.TB, b *index.Builder, blocks ...[]index.Document) {
	t.Helper()
	for i, block := range blocks {
		if err := b.AddBlock(block...); err != nil {
			t.Fatalf("AddBlock(%d): %v", i, err)
		}
	}
}

// BuildSegments indexes each group of blocks into its own segment.
func BuildSegments(t testing.TB, segments ...[][]index.Document) *index.Reader {
	t.Helper()
	b := NewBuilder(t)
	for _, blocks := range segments {
		AddBlocks(t, b, blocks...)
		b.Flush()
	}
	return b.Reader()
}

// BuildReader indexes blocks into a single segment.
func BuildReader(t testing.TB, blocks ...[]index.Document) *index.Reader {
	t.Helper()
	return BuildSegments(t, blocks)
}

// Block groups children and their parent, parent last.
func Block(docs ...index.Document) []index.Document { return docs }

// ResumeReader indexes two resumes with two jobs each:
//
//	0 job java 2007, 1 job python 2010, 2 resume Lisa (United Kingdom)
//	3 job ruby 2005, 4 job java 2006,   5 resume Frank (United States)
func ResumeReader(t testing.TB) *index.Reader {
	t.Helper()
	return BuildReader(t,
		Block(MakeJob("java", 2007), MakeJob("python", 2010), MakeResume("Lisa", "United Kingdom")),
		Block(MakeJob("ruby", 2005), MakeJob("java", 2006), MakeResume("Frank", "United States")),
	)
}

// Term returns a TermQuery on field for text.
func Term(field, text string) *query.TermQuery {
	return &query.TermQuery{Field: field, Term: text}
}

// ParentsFilter returns a cached bit set filter over the docs whose field
// is value.
func ParentsFilter(field, value string) *engine.CachingBitSetFilter {
	return engine.NewCachingBitSetFilter(engine.NewQueryWrapperFilter(Term(field, value)))
}

// Collect runs q and returns the score of each matching top-level doc.
func Collect(t testing.TB, s *engine.Searcher, q engine.Query) map[uint32]float32 {
	t.Helper()
	c := &engine.DocSetCollector{}
	if err := s.Search(q, c); err != nil {
		t.Fatalf("Search(%s): %v", q, err)
	}
	hits := make(map[uint32]float32, len(c.Docs))
	for i, doc := range c.Docs {
		hits[doc] = c.Scores[i]
	}
	return hits
}

// StoredString returns a stored string field of a top-level doc.
func StoredString(t testing.TB, s *engine.Searcher, doc uint32, field string) string {
	t.Helper()
	v, ok := s.Document(doc)[field].(string)
	if !ok {
		t.Fatalf("doc %d has no stored %q", doc, field)
	}
	return v
}
