package engine

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
)

// NoMoreDocs is the doc ID an exhausted iterator reports.
const NoMoreDocs = index.NoMoreDocs

// PostingsIterator iterates over matching documents in increasing doc ID order.
type PostingsIterator interface {
	// Next advances to the next document. Returns false when exhausted.
	Next() bool

	// DocID returns the current document ID, or NoMoreDocs once exhausted.
	// Undefined before the first call to Next or Advance.
	DocID() uint32

	// Freq returns the term frequency in the current document.
	Freq() uint32

	// Advance moves to the first document >= target. Returns false if no such
	// document. target must be greater than the current doc.
	Advance(target uint32) bool

	// Cost returns an estimate of remaining documents.
	Cost() int64
}

// Scorer is a PostingsIterator that also scores the current document.
type Scorer interface {
	PostingsIterator

	// Score returns the score of the current document.
	Score() float32
}

// ScorerParent is implemented by scorers that wrap other scorers. It exposes
// the scorer tree to collectors that need to find specific sub-scorers.
type ScorerParent interface {
	Children() []Scorer
}

// CurrentDocScorer is a scorer whose current doc, score and freq are set
// directly. Code that feeds docs to a collector by hand hands it one of
// these. It cannot iterate.
type CurrentDocScorer struct {
	Doc        uint32
	ScoreValue float32
	FreqValue  uint32
}

func (s *CurrentDocScorer) DocID() uint32  { return s.Doc }
func (s *CurrentDocScorer) Score() float32 { return s.ScoreValue }
func (s *CurrentDocScorer) Freq() uint32   { return s.FreqValue }
func (s *CurrentDocScorer) Cost() int64    { return 1 }

func (s *CurrentDocScorer) Next() bool {
	panic(errors.AssertionFailedf("CurrentDocScorer cannot iterate"))
}

func (s *CurrentDocScorer) Advance(uint32) bool {
	panic(errors.AssertionFailedf("CurrentDocScorer cannot iterate"))
}

// BitSetIterator iterates the set bits of a FixedBitSet, skipping docs
// rejected by accept.
type BitSetIterator struct {
	bits    *bitset.FixedBitSet
	accept  bitset.Bits
	doc     uint32
	started bool
	cost    int64
}

// NewBitSetIterator creates an iterator over bits. A nil accept filter
// accepts every doc.
func NewBitSetIterator(bits *bitset.FixedBitSet, accept bitset.Bits) *BitSetIterator {
	return &BitSetIterator{bits: bits, accept: accept, cost: int64(bits.Cardinality())}
}

func (it *BitSetIterator) Next() bool {
	if !it.started {
		it.started = true
		return it.seek(0)
	}
	if it.doc == NoMoreDocs {
		return false
	}
	return it.seek(it.doc + 1)
}

func (it *BitSetIterator) Advance(target uint32) bool {
	if it.started {
		if it.doc == NoMoreDocs {
			return false
		}
		if it.doc >= target {
			return true
		}
	}
	it.started = true
	return it.seek(target)
}

func (it *BitSetIterator) seek(from uint32) bool {
	for {
		doc, ok := it.bits.NextSetBit(from)
		if !ok {
			it.doc = NoMoreDocs
			return false
		}
		if it.accept == nil || it.accept.Get(doc) {
			it.doc = doc
			return true
		}
		from = doc + 1
	}
}

func (it *BitSetIterator) DocID() uint32 { return it.doc }
func (it *BitSetIterator) Freq() uint32  { return 1 }
func (it *BitSetIterator) Cost() int64   { return it.cost }

// AllDocsIterator iterates every doc of a segment accepted by accept.
type AllDocsIterator struct {
	maxDoc uint32
	accept bitset.Bits
	doc    uint32
	next   uint32
}

// NewAllDocsIterator creates an iterator over [0, maxDoc).
func NewAllDocsIterator(maxDoc uint32, accept bitset.Bits) *AllDocsIterator {
	return &AllDocsIterator{maxDoc: maxDoc, accept: accept, doc: NoMoreDocs}
}

func (it *AllDocsIterator) Next() bool {
	return it.seek(it.next)
}

func (it *AllDocsIterator) Advance(target uint32) bool {
	if it.doc != NoMoreDocs && it.doc >= target {
		return true
	}
	if target < it.next {
		target = it.next
	}
	return it.seek(target)
}

func (it *AllDocsIterator) seek(from uint32) bool {
	for doc := from; doc < it.maxDoc; doc++ {
		if it.accept == nil || it.accept.Get(doc) {
			it.doc = doc
			it.next = doc + 1
			return true
		}
	}
	it.doc = NoMoreDocs
	it.next = it.maxDoc
	return false
}

func (it *AllDocsIterator) DocID() uint32 { return it.doc }
func (it *AllDocsIterator) Freq() uint32  { return 1 }
func (it *AllDocsIterator) Cost() int64   { return int64(it.maxDoc) }
