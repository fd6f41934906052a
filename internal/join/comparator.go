package join

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// BlockOrder picks which child value represents a parent when sorting
// parents by a child field.
type BlockOrder int

const (
	// BlockOrderLowest sorts a parent by its lowest child value.
	BlockOrderLowest BlockOrder = iota
	// BlockOrderHighest sorts a parent by its highest child value.
	BlockOrderHighest
)

func (o BlockOrder) String() string {
	if o == BlockOrderHighest {
		return "highest"
	}
	return "lowest"
}

// NewToParentBlockJoinSortField returns a sort field that orders parent
// docs by a field of their children. Only children marked by childFilter
// take part. typ is the type of the child field; reverse flips the final
// parent order.
func NewToParentBlockJoinSortField(field string, typ engine.SortFieldType, reverse bool, order BlockOrder, parentFilter, childFilter engine.Filter) engine.SortField {
	return engine.SortField{
		Field:   field,
		Type:    engine.SortCustom,
		Reverse: reverse,
		Source: &blockJoinComparatorSource{
			typ:          typ,
			order:        order,
			parentFilter: parentFilter,
			childFilter:  childFilter,
		},
	}
}

type blockJoinComparatorSource struct {
	typ          engine.SortFieldType
	order        BlockOrder
	parentFilter engine.Filter
	childFilter  engine.Filter
}

func (s *blockJoinComparatorSource) NewComparator(field string, numHits, sortPos int, reverse bool) (engine.FieldComparator, error) {
	if s.typ == engine.SortCustom || s.typ == engine.SortScore {
		return nil, errors.Wrapf(engine.ErrUnsupportedSortType, "block join sort on child %s field %q", s.typ, field)
	}
	wrapped, err := engine.SortField{Field: field, Type: s.typ, Reverse: reverse}.NewComparator(numHits+1, sortPos)
	if err != nil {
		return nil, err
	}
	return &BlockJoinFieldComparator{
		wrapped:      wrapped,
		parentFilter: s.parentFilter,
		childFilter:  s.childFilter,
		spareSlot:    numHits,
		order:        s.order,
	}, nil
}

// BlockJoinFieldComparator compares parent docs by the lowest or highest
// value a child comparator finds among their children. A parent without
// children compares equal to anything.
type BlockJoinFieldComparator struct {
	wrapped      engine.FieldComparator
	parentFilter engine.Filter
	childFilter  engine.Filter
	spareSlot    int
	order        BlockOrder

	parents  *bitset.FixedBitSet
	children *bitset.FixedBitSet
}

func (c *BlockJoinFieldComparator) Compare(slot1, slot2 int) int {
	return c.wrapped.Compare(slot1, slot2)
}

func (c *BlockJoinFieldComparator) SetBottom(slot int)        { c.wrapped.SetBottom(slot) }
func (c *BlockJoinFieldComparator) SetTopValue(value any)     { c.wrapped.SetTopValue(value) }
func (c *BlockJoinFieldComparator) SetScorer(s engine.Scorer) { c.wrapped.SetScorer(s) }
func (c *BlockJoinFieldComparator) Value(slot int) any        { return c.wrapped.Value(slot) }

// SetNextReader loads the parent and child bits of leaf. A failing filter
// aborts the search.
func (c *BlockJoinFieldComparator) SetNextReader(leaf *index.LeafReader) {
	c.wrapped.SetNextReader(leaf)

	parents, err := parentBits(c.parentFilter, leaf)
	if err != nil {
		panic(errors.Mark(err, engine.ErrSearchAborted))
	}
	c.parents = parents

	c.children = nil
	set, err := c.childFilter.DocIDSet(leaf, nil)
	if err != nil {
		panic(errors.Mark(errors.Wrapf(err, "child filter %s", c.childFilter), engine.ErrSearchAborted))
	}
	if set != nil {
		c.children = engine.ToFixedBitSet(set, leaf.MaxDoc())
	}
}

func (c *BlockJoinFieldComparator) CompareBottom(parent uint32) int {
	return c.fold(parent, c.wrapped.CompareBottom)
}

func (c *BlockJoinFieldComparator) CompareTop(parent uint32) int {
	return c.fold(parent, c.wrapped.CompareTop)
}

// decisive reports whether a child comparison settles the parent's
// comparison without looking at the other children.
func (c *BlockJoinFieldComparator) decisive(cmp int) bool {
	if c.order == BlockOrderHighest {
		return cmp < 0
	}
	return cmp > 0
}

// fold compares parent's children one by one until one is decisive. A tie
// with any child makes the parent tie.
func (c *BlockJoinFieldComparator) fold(parent uint32, compare func(doc uint32) int) int {
	child, ok := c.firstChild(parent)
	if !ok {
		return 0
	}
	result := compare(child)
	if c.decisive(result) {
		return result
	}
	for {
		child, ok = c.nextChild(child, parent)
		if !ok {
			return result
		}
		cmp := compare(child)
		if c.decisive(cmp) {
			return cmp
		}
		if cmp == 0 {
			result = 0
		}
	}
}

// Copy stores the lowest or highest child value of parent in slot. A
// parent without children stores its own value, usually the missing value.
func (c *BlockJoinFieldComparator) Copy(slot int, parent uint32) {
	child, ok := c.firstChild(parent)
	if !ok {
		c.wrapped.Copy(slot, parent)
		return
	}
	c.wrapped.Copy(slot, child)
	for {
		child, ok = c.nextChild(child, parent)
		if !ok {
			return
		}
		c.wrapped.Copy(c.spareSlot, child)
		cmp := c.wrapped.Compare(c.spareSlot, slot)
		if (c.order == BlockOrderLowest && cmp < 0) || (c.order == BlockOrderHighest && cmp > 0) {
			c.wrapped.Copy(slot, child)
		}
	}
}

func (c *BlockJoinFieldComparator) firstChild(parent uint32) (uint32, bool) {
	if parent == 0 || c.parents == nil || c.children == nil {
		return 0, false
	}
	child, ok := c.children.NextSetBit(firstChild(c.parents, parent))
	if !ok || child >= parent {
		return 0, false
	}
	return child, true
}

func (c *BlockJoinFieldComparator) nextChild(child, parent uint32) (uint32, bool) {
	next, ok := c.children.NextSetBit(child + 1)
	if !ok || next >= parent {
		return 0, false
	}
	return next, true
}
