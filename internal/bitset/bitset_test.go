package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedBitSet_NextSetBit(t *testing.T) {
	b := Of(200, 3, 64, 65, 130)

	tests := []struct {
		from uint32
		want uint32
		ok   bool
	}{
		{0, 3, true},
		{3, 3, true},
		{4, 64, true},
		{65, 65, true},
		{66, 130, true},
		{131, 0, false},
		{500, 0, false},
	}
	for _, tt := range tests {
		got, ok := b.NextSetBit(tt.from)
		require.Equal(t, tt.ok, ok, "NextSetBit(%d)", tt.from)
		if ok {
			assert.Equal(t, tt.want, got, "NextSetBit(%d)", tt.from)
		}
	}
}

func TestFixedBitSet_PrevSetBit(t *testing.T) {
	b := Of(200, 3, 64, 65, 130)

	tests := []struct {
		from uint32
		want uint32
		ok   bool
	}{
		{2, 0, false},
		{3, 3, true},
		{63, 3, true},
		{64, 64, true},
		{129, 65, true},
		{199, 130, true},
		{1000, 130, true},
	}
	for _, tt := range tests {
		got, ok := b.PrevSetBit(tt.from)
		require.Equal(t, tt.ok, ok, "PrevSetBit(%d)", tt.from)
		if ok {
			assert.Equal(t, tt.want, got, "PrevSetBit(%d)", tt.from)
		}
	}
}

func TestFixedBitSet_GetAndSet(t *testing.T) {
	b := New(10)
	assert.False(t, b.GetAndSet(4))
	assert.True(t, b.GetAndSet(4))
	assert.True(t, b.Get(4))
	assert.False(t, b.Get(40))
	assert.Equal(t, 1, b.Cardinality())

	b.Clear(4)
	assert.False(t, b.Get(4))
}

func TestFixedBitSet_Empty(t *testing.T) {
	b := New(0)
	_, ok := b.NextSetBit(0)
	assert.False(t, ok)
	_, ok = b.PrevSetBit(0)
	assert.False(t, ok)
}

func TestFixedBitSet_UnionClone(t *testing.T) {
	a := Of(100, 1, 50)
	c := a.Clone()
	c.Union(Of(100, 2, 99))

	assert.Equal(t, 2, a.Cardinality())
	assert.Equal(t, 4, c.Cardinality())
	assert.True(t, c.Get(99))
}
