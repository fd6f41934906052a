package join

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// parentBits returns the parent doc bits of leaf, or nil when the segment
// has no parent. The filter must hand out a FixedBitDocIDSet, which is what
// an engine.CachingBitSetFilter does.
func parentBits(filter engine.Filter, leaf *index.LeafReader) (*bitset.FixedBitSet, error) {
	set, err := filter.DocIDSet(leaf, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "parent filter %s", filter)
	}
	if set == nil {
		return nil, nil
	}
	fixed, ok := set.(*engine.FixedBitDocIDSet)
	if !ok {
		return nil, errors.Wrapf(ErrParentFilterNotBitSet, "filter %s produced %T", filter, set)
	}
	return fixed.Bits, nil
}

// firstChild returns the first doc of parent's block. It equals parent when
// the block has no children.
func firstChild(parents *bitset.FixedBitSet, parent uint32) uint32 {
	if parent == 0 {
		return 0
	}
	prev, ok := parents.PrevSetBit(parent - 1)
	if !ok {
		return 0
	}
	return prev + 1
}
