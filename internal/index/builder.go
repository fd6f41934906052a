package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cockroachdb/errors"

	"GoJoin/internal/analysis"
)

// DefaultMaxDocsPerSegment bounds the number of docs buffered before the
// builder seals a segment on its own.
const DefaultMaxDocsPerSegment = 100_000

var (
	ErrEmptyBlock        = errors.New("block must contain at least one document")
	ErrInvalidFieldValue = errors.New("invalid field value")
	ErrBlockTooLarge     = errors.New("block exceeds maximum segment size")
)

// Document is a set of field values keyed by field name. Values are strings
// for text and keyword fields, string slices for multi-valued keyword fields
// and integers for numeric fields. Fields not in the schema are ignored.
type Document struct {
	Fields map[string]any
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	MaxDocsPerSegment int
	Logger            *slog.Logger
}

// DefaultBuilderOptions returns the default builder options.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{MaxDocsPerSegment: DefaultMaxDocsPerSegment}
}

// Builder assembles an in-memory index. Documents are buffered into the
// current segment and become searchable once the segment is flushed. A block
// added with AddBlock is always written contiguously into one segment.
type Builder struct {
	schema   *Schema
	registry *analysis.Registry
	opts     BuilderOptions
	logger   *slog.Logger

	mu       sync.Mutex
	buffer   *writeBuffer
	segments []*LeafReader
	nextSeg  int
}

// NewBuilder creates a Builder for schema. Text fields are analyzed with
// analyzers from registry.
func NewBuilder(schema *Schema, registry *analysis.Registry, opts BuilderOptions) (*Builder, error) {
	if err := schema.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid schema")
	}
	if opts.MaxDocsPerSegment <= 0 {
		opts.MaxDocsPerSegment = DefaultMaxDocsPerSegment
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = analysis.NewRegistry()
	}
	return &Builder{
		schema:   schema,
		registry: registry,
		opts:     opts,
		logger:   logger.With("component", "index_builder"),
		buffer:   newWriteBuffer(),
	}, nil
}

// AddDocument indexes a single standalone document.
func (b *Builder) AddDocument(doc Document) error {
	return b.AddBlock(doc)
}

// AddBlock indexes docs as one block: every doc but the last is a child, the
// last is their parent. The block gets consecutive doc IDs in one segment,
// so children sit directly below their parent.
func (b *Builder) AddBlock(docs ...Document) error {
	if len(docs) == 0 {
		return ErrEmptyBlock
	}
	if len(docs) > b.opts.MaxDocsPerSegment {
		return errors.Wrapf(ErrBlockTooLarge, "%d docs (max %d)", len(docs), b.opts.MaxDocsPerSegment)
	}

	// Analyze everything before touching the buffer so a bad document
	// cannot leave half a block behind.
	analyzed := make([][]fieldValue, len(docs))
	for i, doc := range docs {
		fvs, err := b.analyzeDocument(doc)
		if err != nil {
			return errors.Wrapf(err, "document %d", i)
		}
		analyzed[i] = fvs
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer.docCount()+len(docs) > b.opts.MaxDocsPerSegment {
		b.flushLocked()
	}
	for _, fvs := range analyzed {
		docID := b.buffer.allocateDocID()
		for _, fv := range fvs {
			fv.write(b.buffer, docID)
		}
	}
	return nil
}

// DeleteDocuments deletes every doc, flushed or buffered, whose field was
// indexed with the exact term value. Docs added afterwards are unaffected.
func (b *Builder) DeleteDocuments(field, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, leaf := range b.segments {
		docs := leaf.core.docsForTerm(field, value)
		if len(docs) == 0 {
			continue
		}
		deleted := roaring.New()
		if leaf.deleted != nil {
			deleted = leaf.deleted.Clone()
		}
		deleted.AddMany(docs)
		b.segments[i] = leaf.withDeletions(deleted)
	}
	b.buffer.markDeleted(field, value)
}

// Flush seals the buffered documents into a new segment.
func (b *Builder) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Reader flushes buffered documents and returns a point-in-time reader over
// every segment. Later changes to the builder are not visible through it.
func (b *Builder) Reader() *Reader {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
	return newReader(b.segments)
}

func (b *Builder) flushLocked() {
	if b.buffer.docCount() == 0 {
		return
	}
	name := fmt.Sprintf("seg_%06d", b.nextSeg)
	b.nextSeg++

	core := seal(name, b.buffer)
	var deleted *roaring.Bitmap
	for _, pd := range b.buffer.deletes {
		for _, doc := range core.docsForTerm(pd.field, pd.value) {
			if doc >= pd.docUpTo {
				break
			}
			if deleted == nil {
				deleted = roaring.New()
			}
			deleted.Add(doc)
		}
	}
	b.segments = append(b.segments, &LeafReader{core: core, deleted: deleted})

	b.logger.Debug("segment flushed",
		"segment", name,
		"docs", core.maxDoc,
		"terms", b.buffer.termCount,
	)
	b.buffer = newWriteBuffer()
}

// fieldValue is an analyzed field of one document, ready to be buffered.
type fieldValue struct {
	def     FieldDef
	terms   map[string]uint32
	length  uint32
	values  []string
	numeric int64
	stored  any
}

func (fv fieldValue) write(buf *writeBuffer, docID uint32) {
	name := fv.def.Name
	switch fv.def.Type {
	case FieldTypeText:
		for term, freq := range fv.terms {
			buf.addPosting(name, term, docID, freq)
		}
		buf.setLength(name, docID, fv.length)
	case FieldTypeKeyword:
		for _, v := range fv.values {
			buf.addPosting(name, v, docID, 1)
			buf.addKeyword(name, docID, v)
		}
	case FieldTypeNumeric:
		buf.addPosting(name, strconv.FormatInt(fv.numeric, 10), docID, 1)
		buf.setNumeric(name, docID, fv.numeric)
	}
	if fv.def.Stored {
		buf.storeField(docID, name, fv.stored)
	}
}

func (b *Builder) analyzeDocument(doc Document) ([]fieldValue, error) {
	out := make([]fieldValue, 0, len(doc.Fields))
	for _, def := range b.schema.Fields {
		val, ok := doc.Fields[def.Name]
		if !ok || val == nil {
			continue
		}
		fv := fieldValue{def: def, stored: val}
		switch def.Type {
		case FieldTypeText:
			text, ok := val.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidFieldValue, "text field %q must be a string, got %T", def.Name, val)
			}
			analyzer, err := b.registry.Get(b.schema.analyzerFor(def))
			if err != nil {
				return nil, err
			}
			fv.terms = analysis.TermFreqs(analyzer, text)
			for _, n := range fv.terms {
				fv.length += n
			}
		case FieldTypeKeyword:
			values, err := keywordValuesOf(def, val)
			if err != nil {
				return nil, err
			}
			fv.values = values
		case FieldTypeNumeric:
			n, err := numericValueOf(def, val)
			if err != nil {
				return nil, err
			}
			fv.numeric = n
		}
		out = append(out, fv)
	}
	return out, nil
}

func keywordValuesOf(def FieldDef, val any) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if !def.MultiValued && len(v) > 1 {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "field %q is not multi-valued but received %d values", def.Name, len(v))
		}
		return v, nil
	case []any:
		if !def.MultiValued && len(v) > 1 {
			return nil, errors.Wrapf(ErrInvalidFieldValue, "field %q is not multi-valued but received %d values", def.Name, len(v))
		}
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidFieldValue, "keyword field %q array values must be strings, got %T", def.Name, item)
			}
			values = append(values, s)
		}
		return values, nil
	default:
		return nil, errors.Wrapf(ErrInvalidFieldValue, "keyword field %q must be a string or string array, got %T", def.Name, val)
	}
}

func numericValueOf(def FieldDef, val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, errors.Wrapf(ErrInvalidFieldValue, "numeric field %q must be integral, got %v", def.Name, v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidFieldValue, "numeric field %q: %v", def.Name, err)
		}
		return n, nil
	default:
		return 0, errors.Wrapf(ErrInvalidFieldValue, "numeric field %q must be an integer, got %T", def.Name, val)
	}
}
