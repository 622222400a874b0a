package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocIDPacking(t *testing.T) {
	id := BlockRef{VerticeBlock: 7, IndiceBlock: 3}.Pack()
	assert.Equal(t, AllocID(3<<32|7), id)
	assert.Equal(t, BlockRef{VerticeBlock: 7, IndiceBlock: 3}, id.Ref())
	assert.True(t, id.Valid())
	assert.False(t, NullID.Valid())
}

func TestBufferTriplePacking(t *testing.T) {
	tri := BufferTriple{Position: MaxPositionBufferID, Attribute: 5, Index: MaxIndexBufferID}
	v, err := tri.Pack()
	require.NoError(t, err)
	assert.Equal(t, tri, UnpackBufferTriple(v))

	_, err = BufferTriple{Position: MaxPositionBufferID + 1}.Pack()
	assert.ErrorIs(t, err, ErrBufferIDRange)
	_, err = BufferTriple{Attribute: MaxAttributeBufferID + 1}.Pack()
	assert.ErrorIs(t, err, ErrBufferIDRange)
	_, err = BufferTriple{Index: MaxIndexBufferID + 1}.Pack()
	assert.ErrorIs(t, err, ErrBufferIDRange)
}
