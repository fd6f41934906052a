// Package bitset provides the fixed-size bit vector used for per-segment doc
// sets: parent masks for block joins, matched-doc sets for term joins and
// child filters for block-join sorting.
package bitset

import (
	"github.com/bits-and-blooms/bitset"
)

// Bits is a random-access view over a set of doc IDs, such as a segment's
// live docs or a caller supplied accept filter.
type Bits interface {
	// Get reports whether doc is in the set.
	Get(doc uint32) bool

	// Len returns the number of addressable docs.
	Len() uint32
}

// FixedBitSet is a bit vector of fixed length. Scans for the next and
// previous set bit run a 64-bit word at a time.
type FixedBitSet struct {
	bits   *bitset.BitSet
	length uint32
}

// New creates a FixedBitSet addressing docs [0, length).
func New(length uint32) *FixedBitSet {
	return &FixedBitSet{
		bits:   bitset.New(uint(length)),
		length: length,
	}
}

// Of creates a FixedBitSet of the given length with the given docs set.
func Of(length uint32, docs ...uint32) *FixedBitSet {
	b := New(length)
	for _, d := range docs {
		b.Set(d)
	}
	return b
}

// Set sets the bit for doc.
func (b *FixedBitSet) Set(doc uint32) {
	b.bits.Set(uint(doc))
}

// Clear clears the bit for doc.
func (b *FixedBitSet) Clear(doc uint32) {
	b.bits.Clear(uint(doc))
}

// Get reports whether the bit for doc is set. Out of range docs are unset.
func (b *FixedBitSet) Get(doc uint32) bool {
	if doc >= b.length {
		return false
	}
	return b.bits.Test(uint(doc))
}

// GetAndSet sets the bit for doc and returns its previous value.
func (b *FixedBitSet) GetAndSet(doc uint32) bool {
	if b.bits.Test(uint(doc)) {
		return true
	}
	b.bits.Set(uint(doc))
	return false
}

// Len returns the number of addressable bits.
func (b *FixedBitSet) Len() uint32 {
	return b.length
}

// Cardinality returns the number of set bits.
func (b *FixedBitSet) Cardinality() int {
	return int(b.bits.Count())
}

// NextSetBit returns the first set bit at or after from.
func (b *FixedBitSet) NextSetBit(from uint32) (uint32, bool) {
	if from >= b.length {
		return 0, false
	}
	i, ok := b.bits.NextSet(uint(from))
	if !ok || i >= uint(b.length) {
		return 0, false
	}
	return uint32(i), true
}

// PrevSetBit returns the last set bit at or before from.
func (b *FixedBitSet) PrevSetBit(from uint32) (uint32, bool) {
	if b.length == 0 {
		return 0, false
	}
	if from >= b.length {
		from = b.length - 1
	}
	i, ok := b.bits.PreviousSet(uint(from))
	if !ok {
		return 0, false
	}
	return uint32(i), true
}

// Union sets every bit that is set in other.
func (b *FixedBitSet) Union(other *FixedBitSet) {
	b.bits.InPlaceUnion(other.bits)
}

// Clone returns an independent copy.
func (b *FixedBitSet) Clone() *FixedBitSet {
	return &FixedBitSet{bits: b.bits.Clone(), length: b.length}
}
