package index

import (
	"sort"

	"GoJoin/internal/bitset"
)

// SeekStatus is the outcome of TermsEnum.SeekCeil.
type SeekStatus int

const (
	// SeekFound means the enum is positioned on the requested term.
	SeekFound SeekStatus = iota
	// SeekNotFound means the enum is positioned on the smallest term greater
	// than the requested one.
	SeekNotFound
	// SeekEnd means every term is smaller than the requested one.
	SeekEnd
)

func (s SeekStatus) String() string {
	switch s {
	case SeekFound:
		return "found"
	case SeekNotFound:
		return "not_found"
	default:
		return "end"
	}
}

// Terms is the sorted term dictionary of one field in one segment.
type Terms struct {
	field *fieldIndex
}

// Size returns the number of unique terms.
func (t *Terms) Size() int { return len(t.field.terms) }

// SumDocFreq returns the total number of postings over all terms.
func (t *Terms) SumDocFreq() int64 { return t.field.sumDocFreq }

// Iterator returns an enum positioned before the first term.
func (t *Terms) Iterator() *TermsEnum {
	return &TermsEnum{field: t.field, pos: -1}
}

// TermsEnum walks a term dictionary in byte order.
type TermsEnum struct {
	field *fieldIndex
	pos   int
}

// Next moves to the next term. Returns false once the dictionary is
// exhausted.
func (e *TermsEnum) Next() bool {
	if e.pos >= len(e.field.terms) {
		return false
	}
	e.pos++
	return e.pos < len(e.field.terms)
}

// Term returns the current term.
func (e *TermsEnum) Term() string {
	if e.pos < 0 || e.pos >= len(e.field.terms) {
		return ""
	}
	return e.field.terms[e.pos]
}

// SeekCeil positions the enum on the smallest term >= target. Seeking
// forward searches only the terms after the current one.
func (e *TermsEnum) SeekCeil(target string) SeekStatus {
	terms := e.field.terms
	lo := 0
	if e.pos >= 0 && e.pos < len(terms) && terms[e.pos] <= target {
		lo = e.pos
	}
	rest := terms[lo:]
	e.pos = lo + sort.SearchStrings(rest, target)
	if e.pos >= len(terms) {
		return SeekEnd
	}
	if terms[e.pos] == target {
		return SeekFound
	}
	return SeekNotFound
}

// SeekExact positions the enum on target if it exists. On a miss the enum
// position is undefined until the next seek.
func (e *TermsEnum) SeekExact(target string) bool {
	return e.SeekCeil(target) == SeekFound
}

// DocFreq returns the number of docs containing the current term, deleted
// docs included.
func (e *TermsEnum) DocFreq() int {
	if e.pos < 0 || e.pos >= len(e.field.terms) {
		return 0
	}
	return len(e.field.postings[e.pos].docIDs)
}

// Postings returns the postings of the current term restricted to accept.
// A nil accept filter accepts every doc.
func (e *TermsEnum) Postings(accept bitset.Bits) *PostingsEnum {
	if e.pos < 0 || e.pos >= len(e.field.terms) {
		return NewPostingsEnum(nil, nil, accept)
	}
	pl := e.field.postings[e.pos]
	return NewPostingsEnum(pl.docIDs, pl.freqs, accept)
}
