package geometry

import (
	"errors"
	"fmt"
)

// AllocID identifies a sub-allocation of a BlockGeometry pool.
// The vertice block occupies the low 32 bits and the indice block the high 32 bits.
type AllocID uint64

const NullID AllocID = 0xFFFFFFFFFFFFFFFF

type BlockRef struct {
	VerticeBlock uint32
	IndiceBlock  uint32
}

func (r BlockRef) Pack() AllocID {
	return AllocID(uint64(r.VerticeBlock) | uint64(r.IndiceBlock)<<32)
}

func (id AllocID) Ref() BlockRef {
	return BlockRef{VerticeBlock: uint32(id), IndiceBlock: uint32(id >> 32)}
}

func (id AllocID) Valid() bool { return id != NullID }

// Raw buffer triples are packed into 64 bits, which bounds the number of
// live buffers each slot can reference.
const (
	PositionBufferBits  = 22
	AttributeBufferBits = 21
	IndexBufferBits     = 21

	MaxPositionBufferID  = 1<<PositionBufferBits - 1
	MaxAttributeBufferID = 1<<AttributeBufferBits - 1
	MaxIndexBufferID     = 1<<IndexBufferBits - 1
)

var ErrBufferIDRange = errors.New("geometry: buffer id exceeds packed width")

// BufferTriple references three raw GPU buffers. Zero means "not used".
type BufferTriple struct {
	Position  uint32
	Attribute uint32
	Index     uint32
}

func (t BufferTriple) Pack() (uint64, error) {
	if t.Position > MaxPositionBufferID {
		return 0, fmt.Errorf("position buffer %d: %w", t.Position, ErrBufferIDRange)
	}
	if t.Attribute > MaxAttributeBufferID {
		return 0, fmt.Errorf("attribute buffer %d: %w", t.Attribute, ErrBufferIDRange)
	}
	if t.Index > MaxIndexBufferID {
		return 0, fmt.Errorf("index buffer %d: %w", t.Index, ErrBufferIDRange)
	}
	return uint64(t.Position) |
		uint64(t.Attribute)<<PositionBufferBits |
		uint64(t.Index)<<(PositionBufferBits+AttributeBufferBits), nil
}

func UnpackBufferTriple(v uint64) BufferTriple {
	return BufferTriple{
		Position:  uint32(v & MaxPositionBufferID),
		Attribute: uint32(v >> PositionBufferBits & MaxAttributeBufferID),
		Index:     uint32(v >> (PositionBufferBits + AttributeBufferBits) & MaxIndexBufferID),
	}
}
