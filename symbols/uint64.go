// Package symbols provides source symbol types for package riblt.
package symbols

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"
)

// SipHash key shared by every peer. Hashes only need to be unpredictable
// enough that distinct symbols rarely collide; they are not authenticated.
const (
	hashKey0 uint64 = 0x0706050403020100
	hashKey1 uint64 = 0x0f0e0d0c0b0a0908
)

// Uint64Size is the serialized size of a Uint64.
const Uint64Size = 8

// Uint64 is a 64-bit integer source symbol. The group operation is bitwise
// exclusive-or and the zero value is the identity.
type Uint64 uint64

// XOR returns d ^ t2.
func (d Uint64) XOR(t2 Uint64) Uint64 {
	return d ^ t2
}

// Hash returns the SipHash-2-4 of the little-endian encoding of d.
func (d Uint64) Hash() uint64 {
	var b [Uint64Size]byte
	binary.LittleEndian.PutUint64(b[:], uint64(d))
	return siphash.Hash(hashKey0, hashKey1, b[:])
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (d Uint64) MarshalBinary() ([]byte, error) {
	b := make([]byte, Uint64Size)
	binary.LittleEndian.PutUint64(b, uint64(d))
	return b, nil
}

// UnmarshalUint64 decodes a Uint64 produced by MarshalBinary.
func UnmarshalUint64(data []byte) (Uint64, error) {
	if len(data) != Uint64Size {
		return 0, fmt.Errorf("%w: %d bytes for a Uint64", ErrDataSize, len(data))
	}
	return Uint64(binary.LittleEndian.Uint64(data)), nil
}
