package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"GoJoin/internal/bitset"
)

// fieldIndex is the sealed inverted index of one field.
type fieldIndex struct {
	terms    []string
	postings []postingsList

	sumDocFreq int64
}

// keywordValues holds the doc values of one keyword field. ords index into
// values, which is sorted and deduplicated.
type keywordValues struct {
	values []string
	ords   [][]int64 // per doc, sorted ascending
	first  []string  // per doc, first value in insertion order
	has    *bitset.FixedBitSet
}

// lengthStats totals the token counts of a text field over the docs that
// have it.
type lengthStats struct {
	sum  uint64
	docs uint64
}

type numericValues struct {
	values []int64
	has    *bitset.FixedBitSet
}

// segmentCore is the immutable part of a sealed segment. It is shared by
// every LeafReader opened on the segment, whatever its deletions.
type segmentCore struct {
	name   string
	maxDoc uint32

	fields   map[string]*fieldIndex
	lengths  map[string][]uint32
	lenStats map[string]lengthStats
	keywords map[string]*keywordValues
	numerics map[string]*numericValues
	stored   []map[string]any
}

// seal turns a write buffer into an immutable segment core.
func seal(name string, b *writeBuffer) *segmentCore {
	maxDoc := b.nextDocID
	core := &segmentCore{
		name:     name,
		maxDoc:   maxDoc,
		fields:   make(map[string]*fieldIndex, len(b.inverted)),
		lengths:  make(map[string][]uint32, len(b.lengths)),
		lenStats: make(map[string]lengthStats, len(b.lengths)),
		keywords: make(map[string]*keywordValues, len(b.keywords)),
		numerics: make(map[string]*numericValues, len(b.numerics)),
		stored:   make([]map[string]any, maxDoc),
	}

	for field, termMap := range b.inverted {
		fi := &fieldIndex{terms: make([]string, 0, len(termMap))}
		for term := range termMap {
			fi.terms = append(fi.terms, term)
		}
		sort.Strings(fi.terms)
		fi.postings = make([]postingsList, len(fi.terms))
		for i, term := range fi.terms {
			entries := termMap[term].entries
			pl := postingsList{
				docIDs: make([]uint32, len(entries)),
				freqs:  make([]uint32, len(entries)),
			}
			for j, e := range entries {
				pl.docIDs[j] = e.docID
				pl.freqs[j] = e.freq
			}
			fi.postings[i] = pl
			fi.sumDocFreq += int64(len(entries))
		}
		core.fields[field] = fi
	}

	for field, perDoc := range b.lengths {
		lengths := make([]uint32, maxDoc)
		var total uint64
		for doc, n := range perDoc {
			lengths[doc] = n
			total += uint64(n)
		}
		core.lengths[field] = lengths
		core.lenStats[field] = lengthStats{sum: total, docs: uint64(len(perDoc))}
	}

	for field, perDoc := range b.keywords {
		core.keywords[field] = sealKeywords(maxDoc, perDoc)
	}

	for field, perDoc := range b.numerics {
		nv := &numericValues{values: make([]int64, maxDoc), has: bitset.New(maxDoc)}
		for doc, v := range perDoc {
			nv.values[doc] = v
			nv.has.Set(doc)
		}
		core.numerics[field] = nv
	}

	for doc, fields := range b.stored {
		core.stored[doc] = fields
	}
	return core
}

func sealKeywords(maxDoc uint32, perDoc map[uint32][]string) *keywordValues {
	kv := &keywordValues{
		ords:  make([][]int64, maxDoc),
		first: make([]string, maxDoc),
		has:   bitset.New(maxDoc),
	}
	unique := make(map[string]struct{})
	for _, vals := range perDoc {
		for _, v := range vals {
			unique[v] = struct{}{}
		}
	}
	kv.values = make([]string, 0, len(unique))
	for v := range unique {
		kv.values = append(kv.values, v)
	}
	sort.Strings(kv.values)

	for doc, vals := range perDoc {
		kv.has.Set(doc)
		kv.first[doc] = vals[0]
		ords := make([]int64, 0, len(vals))
		for _, v := range vals {
			ords = append(ords, int64(sort.SearchStrings(kv.values, v)))
		}
		sort.Slice(ords, func(i, j int) bool { return ords[i] < ords[j] })
		kv.ords[doc] = dedupOrds(ords)
	}
	return kv
}

func dedupOrds(ords []int64) []int64 {
	out := ords[:0]
	for _, o := range ords {
		if n := len(out); n > 0 && out[n-1] == o {
			continue
		}
		out = append(out, o)
	}
	return out
}

// docsForTerm returns the docs of the core that contain term in field.
func (c *segmentCore) docsForTerm(field, term string) []uint32 {
	fi, ok := c.fields[field]
	if !ok {
		return nil
	}
	i := sort.SearchStrings(fi.terms, term)
	if i == len(fi.terms) || fi.terms[i] != term {
		return nil
	}
	return fi.postings[i].docIDs
}

// LeafReader is a point-in-time view of one segment: its immutable core plus
// the deletions visible when the view was opened. Doc IDs are segment-local;
// DocBase maps them into the top-level doc ID space.
type LeafReader struct {
	core    *segmentCore
	deleted *roaring.Bitmap
	docBase uint32
	ord     int
}

// Name returns the segment name.
func (r *LeafReader) Name() string { return r.core.name }

// MaxDoc returns one more than the largest doc ID in the segment.
func (r *LeafReader) MaxDoc() uint32 { return r.core.maxDoc }

// NumDocs returns the number of live docs.
func (r *LeafReader) NumDocs() uint32 {
	if r.deleted == nil {
		return r.core.maxDoc
	}
	return r.core.maxDoc - uint32(r.deleted.GetCardinality())
}

// DocBase returns the top-level doc ID of the segment's first doc.
func (r *LeafReader) DocBase() uint32 { return r.docBase }

// Ord returns the position of the segment within its Reader.
func (r *LeafReader) Ord() int { return r.ord }

// CoreKey identifies the immutable segment core. Two views of one segment
// with different deletions share a CoreKey, so per-segment caches of
// deletion-independent data may key on it.
func (r *LeafReader) CoreKey() any { return r.core }

// LiveDocs returns the live docs of the segment, or nil when nothing is
// deleted.
func (r *LeafReader) LiveDocs() bitset.Bits {
	if r.deleted == nil || r.deleted.IsEmpty() {
		return nil
	}
	return &liveDocs{deleted: r.deleted, maxDoc: r.core.maxDoc}
}

// HasDeletions reports whether any doc of the segment is deleted.
func (r *LeafReader) HasDeletions() bool {
	return r.deleted != nil && !r.deleted.IsEmpty()
}

// Terms returns the term dictionary of field, or nil if the field has no
// indexed terms in this segment.
func (r *LeafReader) Terms(field string) *Terms {
	fi, ok := r.core.fields[field]
	if !ok {
		return nil
	}
	return &Terms{field: fi}
}

// FieldLength returns the number of tokens field had in doc.
func (r *LeafReader) FieldLength(field string, doc uint32) uint32 {
	lengths, ok := r.core.lengths[field]
	if !ok || doc >= uint32(len(lengths)) {
		return 1
	}
	return lengths[doc]
}

// AvgFieldLength returns the mean token count of field over docs that have it.
func (r *LeafReader) AvgFieldLength(field string) float32 {
	st := r.core.lenStats[field]
	if st.docs == 0 || st.sum == 0 {
		return 1
	}
	return float32(st.sum) / float32(st.docs)
}

// Document returns the stored fields of doc. Deleted docs still return their
// fields.
func (r *LeafReader) Document(doc uint32) map[string]any {
	if doc >= r.core.maxDoc {
		return nil
	}
	return r.core.stored[doc]
}

// BinaryDocValues returns the single-valued view of a keyword field. Docs
// with several values expose the first one indexed.
func (r *LeafReader) BinaryDocValues(field string) *BinaryDocValues {
	return &BinaryDocValues{kv: r.core.keywords[field]}
}

// SortedSetDocValues returns the multi-valued view of a keyword field.
func (r *LeafReader) SortedSetDocValues(field string) *SortedSetDocValues {
	return &SortedSetDocValues{kv: r.core.keywords[field], pos: -1}
}

// NumericDocValues returns the per-doc values of a numeric field.
func (r *LeafReader) NumericDocValues(field string) *NumericDocValues {
	return &NumericDocValues{nv: r.core.numerics[field]}
}

// withDeletions returns a view of the same core carrying deleted.
func (r *LeafReader) withDeletions(deleted *roaring.Bitmap) *LeafReader {
	return &LeafReader{core: r.core, deleted: deleted, docBase: r.docBase, ord: r.ord}
}
