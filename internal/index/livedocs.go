package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// liveDocs adapts a roaring bitmap of deleted docs to the bitset.Bits view
// of live docs.
type liveDocs struct {
	deleted *roaring.Bitmap
	maxDoc  uint32
}

func (l *liveDocs) Get(doc uint32) bool {
	return doc < l.maxDoc && !l.deleted.Contains(doc)
}

func (l *liveDocs) Len() uint32 {
	return l.maxDoc
}
