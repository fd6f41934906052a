// Package corpus reads JSON-lines document corpora into an index builder.
//
// Every top-level JSON object is one block. Its "children" array, when
// present, holds the child records of the block; a child may carry children
// of its own. Blocks are flattened depth first so that every record sits
// directly after its descendants, which is the layout block joins expect.
package corpus

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/index"
)

// ChildrenKey is the record key holding child records.
const ChildrenKey = "children"

var (
	ErrMalformedRecord  = errors.New("malformed corpus record")
	ErrChecksumMismatch = errors.New("corpus checksum mismatch")
	ErrInvalidChecksum  = errors.New("invalid checksum format")
	ErrNoCorpusFiles    = errors.New("no corpus files found")
)

// Record is a single corpus document with its child records.
type Record struct {
	Fields   map[string]any
	Children []Record
}

// Flatten returns the block of r: its descendants depth first, then r.
func (r Record) Flatten() []index.Document {
	docs := make([]index.Document, 0, 1+len(r.Children))
	return r.appendTo(docs)
}

func (r Record) appendTo(docs []index.Document) []index.Document {
	for _, child := range r.Children {
		docs = child.appendTo(docs)
	}
	return append(docs, index.Document{Fields: r.Fields})
}

// Decoder reads records from a JSON-lines stream. Numbers are kept as
// json.Number so integral values survive untouched.
type Decoder struct {
	dec *json.Decoder
	n   int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec}
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (d *Decoder) Next() (Record, error) {
	var raw map[string]any
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, errors.Mark(errors.Wrapf(err, "record %d", d.n+1), ErrMalformedRecord)
	}
	d.n++
	rec, err := recordOf(raw)
	if err != nil {
		return Record{}, errors.Wrapf(err, "record %d", d.n)
	}
	return rec, nil
}

// Count returns the number of records decoded so far.
func (d *Decoder) Count() int { return d.n }

func recordOf(raw map[string]any) (Record, error) {
	if raw == nil {
		return Record{}, errors.Wrap(ErrMalformedRecord, "null record")
	}
	rec := Record{Fields: raw}
	children, ok := raw[ChildrenKey]
	if !ok {
		return rec, nil
	}
	delete(raw, ChildrenKey)

	list, ok := children.([]any)
	if !ok {
		return Record{}, errors.Wrapf(ErrMalformedRecord, "%q must be an array, got %T", ChildrenKey, children)
	}
	rec.Children = make([]Record, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return Record{}, errors.Wrapf(ErrMalformedRecord, "child %d must be an object, got %T", i, item)
		}
		child, err := recordOf(obj)
		if err != nil {
			return Record{}, errors.Wrapf(err, "child %d", i)
		}
		rec.Children = append(rec.Children, child)
	}
	return rec, nil
}
