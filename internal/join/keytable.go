package join

import (
	"slices"
	"strings"

	"github.com/cockroachdb/swiss"
)

// JoinKeyTable assigns dense IDs to distinct join keys in insertion order and
// keeps a score accumulator per ID. It is filled by a single collector, then
// frozen; a frozen table is read-only and may be shared.
type JoinKeyTable struct {
	ids  swiss.Map[string, int32]
	keys []string

	// scoreSum and scoreCount grow with keys. scoreCount is only kept for
	// ScoreModeAvg.
	scoreSum   []float32
	scoreCount []int32

	sorted []int32
}

func newJoinKeyTable() *JoinKeyTable {
	t := &JoinKeyTable{}
	t.ids.Init(16)
	return t
}

// add returns the ID of key, assigning the next one if key is new.
func (t *JoinKeyTable) add(key string) (id int32, isNew bool) {
	if id, ok := t.ids.Get(key); ok {
		return id, false
	}
	id = int32(len(t.keys))
	t.ids.Put(key, id)
	t.keys = append(t.keys, key)
	return id, true
}

// Len returns the number of distinct keys.
func (t *JoinKeyTable) Len() int { return len(t.keys) }

// Key returns the key with the given ID.
func (t *JoinKeyTable) Key(id int32) string { return t.keys[id] }

// Find returns the ID of key.
func (t *JoinKeyTable) Find(key string) (int32, bool) { return t.ids.Get(key) }

// freeze computes the byte order of the keys. It must be called once the
// table is full and before it is shared.
func (t *JoinKeyTable) freeze() {
	t.sorted = make([]int32, len(t.keys))
	for i := range t.sorted {
		t.sorted[i] = int32(i)
	}
	slices.SortFunc(t.sorted, func(a, b int32) int {
		return strings.Compare(t.keys[a], t.keys[b])
	})
}

// SortedIDs returns the key IDs in byte order of their keys.
func (t *JoinKeyTable) SortedIDs() []int32 { return t.sorted }
