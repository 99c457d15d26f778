package symbols

import (
	"errors"
	"fmt"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
)

// BlockSize is the size of a Block, and of a BLAKE2b-256 digest.
const BlockSize = blake2b.Size256

// ErrDataSize is returned when unmarshaling a symbol from a byte slice of
// the wrong length.
var ErrDataSize = errors.New("incorrect data size given to unmarshaler")

// Block is a fixed-size source symbol, usually the digest of an application
// item. Its group operation is bytewise exclusive-or. XOR modifies the
// receiver, so Block is used through pointers; a nil *Block is treated as
// the all-zero identity.
type Block [BlockSize]byte

// NewBlock returns the BLAKE2b-256 digest of an arbitrary item as a Block.
func NewBlock(item []byte) *Block {
	b := Block(blake2b.Sum256(item))
	return &b
}

// NewEmptyBlock returns a fresh identity Block. It is the symbol factory to
// pass to riblt constructors.
func NewEmptyBlock() *Block {
	return &Block{}
}

// XOR sets d to d ^ t2 and returns d. A nil d is allocated first.
func (d *Block) XOR(t2 *Block) *Block {
	if d == nil {
		d = &Block{}
	}
	if t2 == nil {
		return d
	}
	for i := 0; i < BlockSize; i++ {
		d[i] ^= t2[i]
	}
	return d
}

// Hash returns the SipHash-2-4 of d.
func (d *Block) Hash() uint64 {
	if d == nil {
		return siphash.Hash(hashKey0, hashKey1, make([]byte, BlockSize))
	}
	return siphash.Hash(hashKey0, hashKey1, d[:])
}

// MarshalBinary implements encoding.BinaryMarshaler. It always returns a
// slice of BlockSize bytes and the error is always nil.
func (d *Block) MarshalBinary() ([]byte, error) {
	b := make([]byte, BlockSize)
	if d != nil {
		copy(b, d[:])
	}
	return b, nil
}

// UnmarshalBlock decodes a Block produced by MarshalBinary.
func UnmarshalBlock(data []byte) (*Block, error) {
	if len(data) != BlockSize {
		return nil, fmt.Errorf("%w: %d bytes for a Block", ErrDataSize, len(data))
	}
	b := &Block{}
	copy(b[:], data)
	return b, nil
}
