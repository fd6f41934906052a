package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, maxDocs int) *Builder {
	t.Helper()
	opts := DefaultBuilderOptions()
	if maxDocs > 0 {
		opts.MaxDocsPerSegment = maxDocs
	}
	b, err := NewBuilder(testSchema(), nil, opts)
	require.NoError(t, err)
	return b
}

func doc(fields map[string]any) Document {
	return Document{Fields: fields}
}

func TestBuilder_AddBlock_Contiguous(t *testing.T) {
	b := newTestBuilder(t, 0)
	require.NoError(t, b.AddBlock(
		doc(map[string]any{"id": "c1", "skills": []any{"go", "java"}}),
		doc(map[string]any{"id": "c2", "skills": "go"}),
		doc(map[string]any{"id": "p1", "title": "Senior Engineer"}),
	))
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "solo", "years": 7})))

	r := b.Reader()
	require.Len(t, r.Leaves(), 1)
	assert.Equal(t, uint32(4), r.MaxDoc())
	assert.Equal(t, uint32(4), r.NumDocs())

	leaf := r.Leaves()[0]
	assert.Equal(t, "c1", leaf.Document(0)["id"])
	assert.Equal(t, "p1", leaf.Document(2)["id"])
	assert.Equal(t, 2, r.DocFreq("skills", "go"))
	assert.Equal(t, 1, r.DocFreq("title", "engineer"))
	assert.Equal(t, 1, r.DocFreq("years", "7"))
}

func TestBuilder_AddBlock_NeverStraddlesSegments(t *testing.T) {
	b := newTestBuilder(t, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.AddBlock(
			doc(map[string]any{"id": "c"}),
			doc(map[string]any{"id": "c"}),
			doc(map[string]any{"id": "p"}),
		))
	}
	r := b.Reader()
	require.Len(t, r.Leaves(), 3)
	for i, leaf := range r.Leaves() {
		assert.Equal(t, uint32(3), leaf.MaxDoc())
		assert.Equal(t, uint32(i*3), leaf.DocBase())
		assert.Equal(t, i, leaf.Ord())
	}

	leaf, local, ok := r.Leaf(7)
	require.True(t, ok)
	assert.Equal(t, 2, leaf.Ord())
	assert.Equal(t, uint32(1), local)

	_, _, ok = r.Leaf(9)
	assert.False(t, ok)
}

func TestBuilder_AddBlock_Errors(t *testing.T) {
	b := newTestBuilder(t, 2)
	assert.ErrorIs(t, b.AddBlock(), ErrEmptyBlock)
	assert.ErrorIs(t, b.AddBlock(doc(nil), doc(nil), doc(nil)), ErrBlockTooLarge)

	err := b.AddBlock(
		doc(map[string]any{"id": "c1"}),
		doc(map[string]any{"years": "seven"}),
	)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
	assert.ErrorIs(t, b.AddDocument(doc(map[string]any{"id": []any{"a", "b"}})), ErrInvalidFieldValue)
	assert.ErrorIs(t, b.AddDocument(doc(map[string]any{"years": 1.5})), ErrInvalidFieldValue)

	// A rejected block leaves nothing behind.
	assert.Equal(t, uint32(0), b.Reader().MaxDoc())
}

func TestBuilder_DeleteDocuments(t *testing.T) {
	b := newTestBuilder(t, 0)
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "a"})))
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "b"})))
	b.Flush()

	before := b.Reader()
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "c"})))
	b.DeleteDocuments("id", "a")
	b.DeleteDocuments("id", "c")
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "c"})))

	after := b.Reader()
	require.Len(t, after.Leaves(), 2)
	assert.Equal(t, uint32(4), after.MaxDoc())
	assert.Equal(t, uint32(2), after.NumDocs())

	first := after.Leaves()[0]
	live := first.LiveDocs()
	require.NotNil(t, live)
	assert.False(t, live.Get(0))
	assert.True(t, live.Get(1))

	// The re-added "c" follows the delete and stays live.
	second := after.Leaves()[1]
	require.NotNil(t, second.LiveDocs())
	assert.False(t, second.LiveDocs().Get(0))
	assert.True(t, second.LiveDocs().Get(1))

	// Readers opened earlier do not see later deletions.
	assert.Nil(t, before.Leaves()[0].LiveDocs())
	assert.Equal(t, before.Leaves()[0].CoreKey(), first.CoreKey())
}

func TestLeafReader_DocValues(t *testing.T) {
	b := newTestBuilder(t, 0)
	require.NoError(t, b.AddDocument(doc(map[string]any{"skills": []string{"rust", "go", "rust"}, "years": 3})))
	require.NoError(t, b.AddDocument(doc(map[string]any{"id": "x"})))
	require.NoError(t, b.AddDocument(doc(map[string]any{"skills": "c"})))
	leaf := b.Reader().Leaves()[0]

	bdv := leaf.BinaryDocValues("skills")
	v, ok := bdv.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "rust", v)
	_, ok = bdv.Get(1)
	assert.False(t, ok)

	ss := leaf.SortedSetDocValues("skills")
	assert.Equal(t, int64(3), ss.ValueCount())
	ss.SetDocument(0)
	var got []string
	for ord := ss.NextOrd(); ord != NoMoreOrds; ord = ss.NextOrd() {
		got = append(got, ss.LookupOrd(ord))
	}
	assert.Equal(t, []string{"go", "rust"}, got)
	ss.SetDocument(1)
	assert.Equal(t, NoMoreOrds, ss.NextOrd())

	ndv := leaf.NumericDocValues("years")
	assert.Equal(t, int64(3), ndv.Get(0))
	assert.True(t, ndv.Has(0))
	assert.False(t, ndv.Has(1))

	missing := leaf.SortedSetDocValues("nope")
	missing.SetDocument(0)
	assert.Equal(t, NoMoreOrds, missing.NextOrd())
}
