package index

import (
	"math"
	"sort"

	"GoJoin/internal/bitset"
)

// NoMoreDocs is the doc ID every iterator reports once it is exhausted.
const NoMoreDocs uint32 = math.MaxUint32

// postingsList is the immutable postings of one term in one segment.
type postingsList struct {
	docIDs []uint32
	freqs  []uint32
}

// PostingsEnum iterates a term's postings in doc ID order, skipping docs
// rejected by its accept filter.
type PostingsEnum struct {
	docIDs []uint32
	freqs  []uint32
	accept bitset.Bits
	pos    int
}

// NewPostingsEnum creates a PostingsEnum over parallel doc ID and frequency
// slices. docIDs must be sorted ascending; freqs may be nil (every freq is 1).
// A nil accept filter accepts every doc.
func NewPostingsEnum(docIDs, freqs []uint32, accept bitset.Bits) *PostingsEnum {
	return &PostingsEnum{
		docIDs: docIDs,
		freqs:  freqs,
		accept: accept,
		pos:    -1,
	}
}

// Next advances to the next accepted document. Returns false when exhausted.
func (it *PostingsEnum) Next() bool {
	for it.pos < len(it.docIDs) {
		it.pos++
		if it.pos < len(it.docIDs) && it.accepted() {
			return true
		}
	}
	return false
}

// DocID returns the current document, or NoMoreDocs once exhausted.
func (it *PostingsEnum) DocID() uint32 {
	if it.pos < 0 || it.pos >= len(it.docIDs) {
		return NoMoreDocs
	}
	return it.docIDs[it.pos]
}

// Freq returns the term frequency in the current document.
func (it *PostingsEnum) Freq() uint32 {
	if it.freqs == nil || it.pos < 0 || it.pos >= len(it.freqs) {
		return 1
	}
	return it.freqs[it.pos]
}

// Advance moves to the first accepted document >= target.
func (it *PostingsEnum) Advance(target uint32) bool {
	if it.pos >= 0 && it.pos < len(it.docIDs) && it.docIDs[it.pos] >= target {
		return true
	}
	start := it.pos + 1
	if start < 0 {
		start = 0
	}
	if start >= len(it.docIDs) {
		it.pos = len(it.docIDs)
		return false
	}
	rest := it.docIDs[start:]
	it.pos = start + sort.Search(len(rest), func(i int) bool { return rest[i] >= target })
	if it.pos >= len(it.docIDs) {
		return false
	}
	if it.accepted() {
		return true
	}
	return it.Next()
}

// Cost returns an estimate of remaining documents.
func (it *PostingsEnum) Cost() int64 {
	remaining := len(it.docIDs) - it.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

func (it *PostingsEnum) accepted() bool {
	return it.accept == nil || it.accept.Get(it.docIDs[it.pos])
}
