package index

// postingEntry is a single posting for a term in a field.
type postingEntry struct {
	docID uint32
	freq  uint32
}

// pendingPostings accumulates postings for a single term in a single field.
type pendingPostings struct {
	entries []postingEntry
}

// pendingDelete is a term deletion that applies to buffered docs below docUpTo.
type pendingDelete struct {
	field   string
	value   string
	docUpTo uint32
}

// writeBuffer accumulates documents of the segment being built.
// Doc IDs are segment-local and assigned in insertion order.
type writeBuffer struct {
	// field -> term -> postings
	inverted map[string]map[string]*pendingPostings

	// field -> per-doc token count, for text fields.
	lengths map[string]map[uint32]uint32

	// field -> per-doc keyword values, in insertion order.
	keywords map[string]map[uint32][]string

	// field -> per-doc numeric value.
	numerics map[string]map[uint32]int64

	stored  map[uint32]map[string]any
	deletes []pendingDelete

	nextDocID uint32
	termCount int
}

func newWriteBuffer() *writeBuffer {
	return &writeBuffer{
		inverted: make(map[string]map[string]*pendingPostings),
		lengths:  make(map[string]map[uint32]uint32),
		keywords: make(map[string]map[uint32][]string),
		numerics: make(map[string]map[uint32]int64),
		stored:   make(map[uint32]map[string]any),
	}
}

func (b *writeBuffer) allocateDocID() uint32 {
	docID := b.nextDocID
	b.nextDocID++
	return docID
}

func (b *writeBuffer) docCount() int {
	return int(b.nextDocID)
}

// addPosting records freq occurrences of term in docID. Repeated calls for
// the same doc accumulate into a single posting.
func (b *writeBuffer) addPosting(field, term string, docID, freq uint32) {
	fieldMap, ok := b.inverted[field]
	if !ok {
		fieldMap = make(map[string]*pendingPostings)
		b.inverted[field] = fieldMap
	}

	pl, ok := fieldMap[term]
	if !ok {
		pl = &pendingPostings{}
		fieldMap[term] = pl
		b.termCount++
	}

	if n := len(pl.entries); n > 0 && pl.entries[n-1].docID == docID {
		pl.entries[n-1].freq += freq
		return
	}
	pl.entries = append(pl.entries, postingEntry{docID: docID, freq: freq})
}

func (b *writeBuffer) setLength(field string, docID, length uint32) {
	m, ok := b.lengths[field]
	if !ok {
		m = make(map[uint32]uint32)
		b.lengths[field] = m
	}
	m[docID] = length
}

func (b *writeBuffer) addKeyword(field string, docID uint32, value string) {
	m, ok := b.keywords[field]
	if !ok {
		m = make(map[uint32][]string)
		b.keywords[field] = m
	}
	m[docID] = append(m[docID], value)
}

func (b *writeBuffer) setNumeric(field string, docID uint32, value int64) {
	m, ok := b.numerics[field]
	if !ok {
		m = make(map[uint32]int64)
		b.numerics[field] = m
	}
	m[docID] = value
}

func (b *writeBuffer) storeField(docID uint32, field string, value any) {
	fields, ok := b.stored[docID]
	if !ok {
		fields = make(map[string]any)
		b.stored[docID] = fields
	}
	fields[field] = value
}

func (b *writeBuffer) markDeleted(field, value string) {
	b.deletes = append(b.deletes, pendingDelete{field: field, value: value, docUpTo: b.nextDocID})
}
