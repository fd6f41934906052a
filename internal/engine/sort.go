package engine

import (
	"cmp"
	"strings"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/index"
)

// SortFieldType selects how a SortField compares docs.
type SortFieldType int

const (
	// SortScore sorts by descending relevance.
	SortScore SortFieldType = iota
	// SortDoc sorts by ascending doc ID.
	SortDoc
	// SortString sorts by the binary doc value of a keyword field. Docs
	// without a value sort first.
	SortString
	// SortInt64 sorts by the numeric doc value of a field.
	SortInt64
	// SortCustom sorts with the comparator of a ComparatorSource.
	SortCustom
)

func (t SortFieldType) String() string {
	switch t {
	case SortScore:
		return "score"
	case SortDoc:
		return "doc"
	case SortString:
		return "string"
	case SortInt64:
		return "int64"
	case SortCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// FieldComparator compares docs for one sort field. Competitive docs are
// copied into numbered slots; the collector compares slots and compares
// new docs against the weakest retained slot (the bottom). Doc arguments are
// segment-local.
type FieldComparator interface {
	// Compare compares two slots. Negative means slot1 sorts first.
	Compare(slot1, slot2 int) int

	// SetBottom records which slot is currently the weakest.
	SetBottom(slot int)

	// SetTopValue records the value of the last hit of a previous page.
	SetTopValue(value any)

	// CompareBottom compares the bottom slot with doc.
	CompareBottom(doc uint32) int

	// CompareTop compares the top value with doc.
	CompareTop(doc uint32) int

	// Copy stores doc's value in slot.
	Copy(slot int, doc uint32)

	// SetNextReader switches to a new segment.
	SetNextReader(leaf *index.LeafReader)

	// SetScorer hands over the scorer for score based comparators.
	SetScorer(s Scorer)

	// Value returns the sort value held in slot.
	Value(slot int) any
}

// ComparatorSource creates comparators for SortCustom fields.
type ComparatorSource interface {
	NewComparator(field string, numHits, sortPos int, reverse bool) (FieldComparator, error)
}

// SortField is one sort criterion.
type SortField struct {
	Field   string
	Type    SortFieldType
	Reverse bool
	Source  ComparatorSource
}

// NewComparator creates the comparator for the field with numHits slots.
func (f SortField) NewComparator(numHits, sortPos int) (FieldComparator, error) {
	switch f.Type {
	case SortScore:
		return &relevanceComparator{scores: make([]float32, numHits)}, nil
	case SortDoc:
		return &docComparator{docIDs: make([]uint32, numHits)}, nil
	case SortString:
		return &stringComparator{field: f.Field, values: make([]string, numHits), has: make([]bool, numHits)}, nil
	case SortInt64:
		return &int64Comparator{field: f.Field, values: make([]int64, numHits)}, nil
	case SortCustom:
		if f.Source == nil {
			return nil, errors.Wrapf(ErrUnsupportedSortType, "custom sort on %q has no comparator source", f.Field)
		}
		return f.Source.NewComparator(f.Field, numHits, sortPos, f.Reverse)
	default:
		return nil, errors.Wrapf(ErrUnsupportedSortType, "%d", f.Type)
	}
}

func (f SortField) String() string {
	var b strings.Builder
	switch f.Type {
	case SortScore:
		b.WriteString("<score>")
	case SortDoc:
		b.WriteString("<doc>")
	default:
		b.WriteString("<" + f.Type.String() + ": \"" + f.Field + "\">")
	}
	if f.Reverse {
		b.WriteString("!")
	}
	return b.String()
}

// Sort is an ordered list of sort fields; later fields break ties of earlier
// ones, and the doc ID breaks any remaining tie.
type Sort struct {
	Fields []SortField
}

// NewSort creates a Sort over fields.
func NewSort(fields ...SortField) Sort {
	return Sort{Fields: fields}
}

// SortByRelevance sorts by descending score.
func SortByRelevance() Sort {
	return NewSort(SortField{Type: SortScore})
}

// NeedsScores reports whether any field sorts by score.
func (s Sort) NeedsScores() bool {
	for _, f := range s.Fields {
		if f.Type == SortScore {
			return true
		}
	}
	return false
}

func (s Sort) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

type relevanceComparator struct {
	scores []float32
	bottom float32
	top    float32
	scorer Scorer
}

func (c *relevanceComparator) Compare(slot1, slot2 int) int {
	return cmp.Compare(c.scores[slot2], c.scores[slot1])
}

func (c *relevanceComparator) SetBottom(slot int)    { c.bottom = c.scores[slot] }
func (c *relevanceComparator) SetTopValue(value any) { c.top = value.(float32) }
func (c *relevanceComparator) CompareBottom(uint32) int {
	return cmp.Compare(c.scorer.Score(), c.bottom)
}
func (c *relevanceComparator) CompareTop(uint32) int           { return cmp.Compare(c.scorer.Score(), c.top) }
func (c *relevanceComparator) Copy(slot int, _ uint32)         { c.scores[slot] = c.scorer.Score() }
func (c *relevanceComparator) SetNextReader(*index.LeafReader) {}
func (c *relevanceComparator) SetScorer(s Scorer)              { c.scorer = s }
func (c *relevanceComparator) Value(slot int) any              { return c.scores[slot] }

type docComparator struct {
	docIDs  []uint32
	bottom  uint32
	top     uint32
	docBase uint32
}

func (c *docComparator) Compare(slot1, slot2 int) int {
	return cmp.Compare(c.docIDs[slot1], c.docIDs[slot2])
}

func (c *docComparator) SetBottom(slot int)                   { c.bottom = c.docIDs[slot] }
func (c *docComparator) SetTopValue(value any)                { c.top = value.(uint32) }
func (c *docComparator) CompareBottom(doc uint32) int         { return cmp.Compare(c.bottom, c.docBase+doc) }
func (c *docComparator) CompareTop(doc uint32) int            { return cmp.Compare(c.top, c.docBase+doc) }
func (c *docComparator) Copy(slot int, doc uint32)            { c.docIDs[slot] = c.docBase + doc }
func (c *docComparator) SetNextReader(leaf *index.LeafReader) { c.docBase = leaf.DocBase() }
func (c *docComparator) SetScorer(Scorer)                     {}
func (c *docComparator) Value(slot int) any                   { return c.docIDs[slot] }

type stringComparator struct {
	field  string
	values []string
	has    []bool

	bottom    string
	bottomHas bool
	top       string
	topHas    bool

	dv *index.BinaryDocValues
}

func compareOptionalString(a string, aHas bool, b string, bHas bool) int {
	switch {
	case !aHas && !bHas:
		return 0
	case !aHas:
		return -1
	case !bHas:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func (c *stringComparator) Compare(slot1, slot2 int) int {
	return compareOptionalString(c.values[slot1], c.has[slot1], c.values[slot2], c.has[slot2])
}

func (c *stringComparator) SetBottom(slot int) {
	c.bottom, c.bottomHas = c.values[slot], c.has[slot]
}

func (c *stringComparator) SetTopValue(value any) {
	c.top, c.topHas = "", false
	if s, ok := value.(string); ok {
		c.top, c.topHas = s, true
	}
}

func (c *stringComparator) CompareBottom(doc uint32) int {
	v, ok := c.dv.Get(doc)
	return compareOptionalString(c.bottom, c.bottomHas, v, ok)
}

func (c *stringComparator) CompareTop(doc uint32) int {
	v, ok := c.dv.Get(doc)
	return compareOptionalString(c.top, c.topHas, v, ok)
}

func (c *stringComparator) Copy(slot int, doc uint32) {
	c.values[slot], c.has[slot] = c.dv.Get(doc)
}

func (c *stringComparator) SetNextReader(leaf *index.LeafReader) {
	c.dv = leaf.BinaryDocValues(c.field)
}

func (c *stringComparator) SetScorer(Scorer) {}

func (c *stringComparator) Value(slot int) any {
	if !c.has[slot] {
		return nil
	}
	return c.values[slot]
}

type int64Comparator struct {
	field  string
	values []int64
	bottom int64
	top    int64
	dv     *index.NumericDocValues
}

func (c *int64Comparator) Compare(slot1, slot2 int) int {
	return cmp.Compare(c.values[slot1], c.values[slot2])
}

func (c *int64Comparator) SetBottom(slot int)           { c.bottom = c.values[slot] }
func (c *int64Comparator) SetTopValue(value any)        { c.top = value.(int64) }
func (c *int64Comparator) CompareBottom(doc uint32) int { return cmp.Compare(c.bottom, c.dv.Get(doc)) }
func (c *int64Comparator) CompareTop(doc uint32) int    { return cmp.Compare(c.top, c.dv.Get(doc)) }
func (c *int64Comparator) Copy(slot int, doc uint32)    { c.values[slot] = c.dv.Get(doc) }
func (c *int64Comparator) SetNextReader(leaf *index.LeafReader) {
	c.dv = leaf.NumericDocValues(c.field)
}
func (c *int64Comparator) SetScorer(Scorer)   {}
func (c *int64Comparator) Value(slot int) any { return c.values[slot] }
