package index

// NoMoreOrds is returned by SortedSetDocValues.NextOrd once the current
// doc's ordinals are exhausted.
const NoMoreOrds int64 = -1

// BinaryDocValues gives random access to the single value of a keyword
// field per doc.
type BinaryDocValues struct {
	kv *keywordValues
}

// Get returns doc's value and whether doc has one.
func (v *BinaryDocValues) Get(doc uint32) (string, bool) {
	if v.kv == nil || !v.kv.has.Get(doc) {
		return "", false
	}
	return v.kv.first[doc], true
}

// SortedSetDocValues enumerates the ordinals of a multi-valued keyword field
// per doc. Ordinals are dense, segment-local and follow byte order of the
// values.
type SortedSetDocValues struct {
	kv  *keywordValues
	cur []int64
	pos int
}

// SetDocument positions the iterator on doc's ordinals.
func (v *SortedSetDocValues) SetDocument(doc uint32) {
	v.cur = nil
	v.pos = 0
	if v.kv == nil || !v.kv.has.Get(doc) {
		return
	}
	v.cur = v.kv.ords[doc]
}

// NextOrd returns the next ordinal of the current doc in ascending order,
// or NoMoreOrds.
func (v *SortedSetDocValues) NextOrd() int64 {
	if v.pos < 0 || v.pos >= len(v.cur) {
		return NoMoreOrds
	}
	ord := v.cur[v.pos]
	v.pos++
	return ord
}

// LookupOrd returns the value of ord.
func (v *SortedSetDocValues) LookupOrd(ord int64) string {
	return v.kv.values[ord]
}

// ValueCount returns the number of distinct values in the segment.
func (v *SortedSetDocValues) ValueCount() int64 {
	if v.kv == nil {
		return 0
	}
	return int64(len(v.kv.values))
}

// NumericDocValues gives random access to a numeric field. Docs without a
// value read as 0.
type NumericDocValues struct {
	nv *numericValues
}

// Get returns doc's value.
func (v *NumericDocValues) Get(doc uint32) int64 {
	if v.nv == nil || doc >= uint32(len(v.nv.values)) {
		return 0
	}
	return v.nv.values[doc]
}

// Has reports whether doc has a value.
func (v *NumericDocValues) Has(doc uint32) bool {
	return v.nv != nil && v.nv.has.Get(doc)
}
