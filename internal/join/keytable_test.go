package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinKeyTable_AddAssignsDenseIDs(t *testing.T) {
	table := newJoinKeyTable()

	var ids []int32
	var fresh []bool
	for _, key := range []string{"x", "y", "x", "z"} {
		id, isNew := table.add(key)
		ids = append(ids, id)
		fresh = append(fresh, isNew)
	}
	assert.Equal(t, []int32{0, 1, 0, 2}, ids)
	assert.Equal(t, []bool{true, true, false, true}, fresh)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "y", table.Key(1))

	id, ok := table.Find("z")
	require.True(t, ok)
	assert.Equal(t, int32(2), id)
	_, ok = table.Find("w")
	assert.False(t, ok)
}

func TestJoinKeyTable_FreezeSortsByBytes(t *testing.T) {
	table := newJoinKeyTable()
	for _, key := range []string{"pear", "Apple", "apple", "", "b"} {
		table.add(key)
	}
	table.freeze()

	var sorted []string
	for _, id := range table.SortedIDs() {
		sorted = append(sorted, table.Key(id))
	}
	assert.Equal(t, []string{"", "Apple", "apple", "b", "pear"}, sorted)
}

func TestJoinKeyTable_Empty(t *testing.T) {
	table := newJoinKeyTable()
	table.freeze()
	assert.Zero(t, table.Len())
	assert.Empty(t, table.SortedIDs())
}

func TestJoinKeyTable_ManyKeys(t *testing.T) {
	table := newJoinKeyTable()
	for i := 0; i < 1000; i++ {
		table.add(string(rune('a'+i%26)) + string(rune('a'+i/26)))
	}
	assert.Equal(t, 1000, table.Len())
	for i := 0; i < 1000; i++ {
		id, ok := table.Find(table.Key(int32(i)))
		require.True(t, ok)
		assert.Equal(t, int32(i), id)
	}
}
