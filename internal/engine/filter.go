package engine

import (
	"sync"

	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
)

// DocIDSet is a per-segment set of docs.
type DocIDSet interface {
	// Iterator returns an iterator over the set, or nil if it is empty.
	Iterator() PostingsIterator
}

// Filter produces a per-segment DocIDSet, independent of scoring.
type Filter interface {
	// DocIDSet returns the docs of leaf the filter accepts, restricted to
	// acceptDocs. A nil result means no docs. A nil acceptDocs accepts every
	// doc.
	DocIDSet(leaf *index.LeafReader, acceptDocs bitset.Bits) (DocIDSet, error)

	String() string
}

// FixedBitDocIDSet is a DocIDSet backed by a FixedBitSet, with random
// access to its bits.
type FixedBitDocIDSet struct {
	Bits *bitset.FixedBitSet
}

func (s *FixedBitDocIDSet) Iterator() PostingsIterator {
	return NewBitSetIterator(s.Bits, nil)
}

// filteredDocIDSet restricts a FixedBitSet to accepted docs.
type filteredDocIDSet struct {
	bits   *bitset.FixedBitSet
	accept bitset.Bits
}

func (s *filteredDocIDSet) Iterator() PostingsIterator {
	return NewBitSetIterator(s.bits, s.accept)
}

// QueryWrapperFilter accepts the docs matched by a query.
type QueryWrapperFilter struct {
	query Query
}

// NewQueryWrapperFilter creates a filter over the matches of q.
func NewQueryWrapperFilter(q Query) *QueryWrapperFilter {
	return &QueryWrapperFilter{query: q}
}

// Query returns the wrapped query.
func (f *QueryWrapperFilter) Query() Query { return f.query }

func (f *QueryWrapperFilter) DocIDSet(leaf *index.LeafReader, acceptDocs bitset.Bits) (DocIDSet, error) {
	s := NewSearcher(index.SingleLeaf(leaf))
	w, err := s.CreateWeight(f.query)
	if err != nil {
		return nil, err
	}
	scorer, err := w.Scorer(s.Reader().Leaves()[0], acceptDocs)
	if err != nil || scorer == nil {
		return nil, err
	}
	return &iteratorDocIDSet{it: scorer}, nil
}

func (f *QueryWrapperFilter) String() string {
	return "QueryWrapperFilter(" + f.query.String() + ")"
}

// iteratorDocIDSet hands out a single, already created iterator.
type iteratorDocIDSet struct {
	it PostingsIterator
}

func (s *iteratorDocIDSet) Iterator() PostingsIterator { return s.it }

// CachingBitSetFilter caches the FixedBitSet its inner filter produces for
// each segment core, ignoring deletions. Parent filters of block joins are
// wrapped in one so every query over the same segments shares the bits. It is
// safe for concurrent use.
type CachingBitSetFilter struct {
	inner Filter

	mu    sync.Mutex
	cache map[any]*bitset.FixedBitSet
}

// NewCachingBitSetFilter wraps inner.
func NewCachingBitSetFilter(inner Filter) *CachingBitSetFilter {
	return &CachingBitSetFilter{inner: inner, cache: make(map[any]*bitset.FixedBitSet)}
}

// DocIDSet returns the cached bits of leaf as a FixedBitDocIDSet when
// acceptDocs is nil. Otherwise the bits are restricted to acceptDocs and no
// longer support random access.
func (f *CachingBitSetFilter) DocIDSet(leaf *index.LeafReader, acceptDocs bitset.Bits) (DocIDSet, error) {
	bits, err := f.bits(leaf)
	if err != nil || bits == nil {
		return nil, err
	}
	if acceptDocs == nil {
		return &FixedBitDocIDSet{Bits: bits}, nil
	}
	return &filteredDocIDSet{bits: bits, accept: acceptDocs}, nil
}

func (f *CachingBitSetFilter) bits(leaf *index.LeafReader) (*bitset.FixedBitSet, error) {
	key := leaf.CoreKey()
	f.mu.Lock()
	defer f.mu.Unlock()
	if bits, ok := f.cache[key]; ok {
		return bits, nil
	}

	set, err := f.inner.DocIDSet(leaf, nil)
	if err != nil {
		return nil, err
	}
	bits := ToFixedBitSet(set, leaf.MaxDoc())
	f.cache[key] = bits
	return bits, nil
}

func (f *CachingBitSetFilter) String() string {
	return "CachingBitSetFilter(" + f.inner.String() + ")"
}

// ToFixedBitSet materializes set as a FixedBitSet of length maxDoc. A
// FixedBitDocIDSet is returned as is; a nil set yields an empty bit set.
func ToFixedBitSet(set DocIDSet, maxDoc uint32) *bitset.FixedBitSet {
	if fixed, ok := set.(*FixedBitDocIDSet); ok {
		return fixed.Bits
	}
	bits := bitset.New(maxDoc)
	if set == nil {
		return bits
	}
	it := set.Iterator()
	if it == nil {
		return bits
	}
	for it.Next() {
		bits.Set(it.DocID())
	}
	return bits
}

// andBits accepts docs accepted by both a and b.
type andBits struct {
	a, b bitset.Bits
}

func (x andBits) Get(doc uint32) bool { return x.a.Get(doc) && x.b.Get(doc) }
func (x andBits) Len() uint32         { return x.a.Len() }

// intersectBits combines two accept filters, either of which may be nil.
func intersectBits(a, b bitset.Bits) bitset.Bits {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return andBits{a: a, b: b}
	}
}
