package index

import (
	"sort"
)

// Reader is a point-in-time view over an ordered list of segments. Top-level
// doc IDs are a segment's DocBase plus its local doc ID.
type Reader struct {
	leaves  []*LeafReader
	maxDoc  uint32
	numDocs uint32
}

func newReader(segments []*LeafReader) *Reader {
	r := &Reader{leaves: make([]*LeafReader, len(segments))}
	for i, seg := range segments {
		leaf := seg.withDeletions(seg.deleted)
		leaf.docBase = r.maxDoc
		leaf.ord = i
		r.leaves[i] = leaf
		r.maxDoc += leaf.MaxDoc()
		r.numDocs += leaf.NumDocs()
	}
	return r
}

// Leaves returns the segments in doc ID order.
func (r *Reader) Leaves() []*LeafReader { return r.leaves }

// MaxDoc returns one more than the largest top-level doc ID.
func (r *Reader) MaxDoc() uint32 { return r.maxDoc }

// NumDocs returns the number of live docs.
func (r *Reader) NumDocs() uint32 { return r.numDocs }

// Leaf returns the segment holding the top-level doc and the doc's local ID.
func (r *Reader) Leaf(doc uint32) (*LeafReader, uint32, bool) {
	if doc >= r.maxDoc {
		return nil, 0, false
	}
	i := sort.Search(len(r.leaves), func(i int) bool {
		return r.leaves[i].docBase+r.leaves[i].MaxDoc() > doc
	})
	leaf := r.leaves[i]
	return leaf, doc - leaf.docBase, true
}

// Document returns the stored fields of a top-level doc.
func (r *Reader) Document(doc uint32) map[string]any {
	leaf, local, ok := r.Leaf(doc)
	if !ok {
		return nil
	}
	return leaf.Document(local)
}

// DocFreq returns the number of docs containing term in field over all
// segments, deleted docs included.
func (r *Reader) DocFreq(field, term string) int {
	n := 0
	for _, leaf := range r.leaves {
		n += len(leaf.core.docsForTerm(field, term))
	}
	return n
}

// AvgFieldLength returns the mean token count of a text field over every doc
// that has it, across all segments.
func (r *Reader) AvgFieldLength(field string) float32 {
	var total lengthStats
	for _, leaf := range r.leaves {
		st := leaf.core.lenStats[field]
		total.sum += st.sum
		total.docs += st.docs
	}
	if total.docs == 0 || total.sum == 0 {
		return 1
	}
	return float32(total.sum) / float32(total.docs)
}

// SingleLeaf returns a reader whose only segment is leaf, with leaf's doc IDs
// as top-level doc IDs.
func SingleLeaf(leaf *LeafReader) *Reader {
	return newReader([]*LeafReader{leaf})
}
