// Package wire serializes coded symbols, sketches and source symbols.
//
// A coded symbol is framed as
//
//	uvarint  length of the serialized symbol
//	[]byte   serialized symbol
//	uint64   hash, little endian
//	varint   count
//
// A sketch is a uvarint number of coded symbols followed by that many coded
// symbol frames. A source symbol is framed as its uvarint length and bytes;
// its hash is recomputed on the receiving side.
package wire

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/symbols"
)

// MaxSymbolSize bounds the serialized size of a single symbol accepted by a
// reader.
const MaxSymbolSize = 1 << 16

// MaxSketchLen bounds the number of coded symbols in a sketch accepted by a
// reader.
const MaxSketchLen = 1 << 24

// preallocLimit caps the capacity reserved from a length the peer announced
// before any of the data has arrived.
const preallocLimit = 1024

var (
	// ErrSymbolTooLarge is returned for a symbol frame longer than
	// MaxSymbolSize.
	ErrSymbolTooLarge = errors.New("symbol too large")
	// ErrSketchTooLarge is returned for a sketch of more than MaxSketchLen
	// coded symbols.
	ErrSketchTooLarge = errors.New("sketch too large")
)

// Symbol is a source symbol that can be put on the wire.
type Symbol[T any] interface {
	riblt.Symbol[T]
	encoding.BinaryMarshaler
}

// Reader is what the decoding functions read from. *bufio.Reader and
// *bytes.Reader satisfy it.
type Reader interface {
	io.Reader
	io.ByteReader
}

// Codec reads and writes frames carrying symbols of type T.
type Codec[T Symbol[T]] struct {
	// Unmarshal decodes a symbol from the bytes produced by its
	// MarshalBinary method.
	Unmarshal func([]byte) (T, error)
	// NewSymbol returns a fresh identity symbol. It may be nil when the zero
	// value of T is the identity.
	NewSymbol func() T
}

var (
	Uint64Codec = Codec[symbols.Uint64]{Unmarshal: symbols.UnmarshalUint64}
	BlockCodec  = Codec[*symbols.Block]{Unmarshal: symbols.UnmarshalBlock, NewSymbol: symbols.NewEmptyBlock}
)

func appendSymbol[T Symbol[T]](b []byte, s T) ([]byte, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return b, fmt.Errorf("marshal symbol: %w", err)
	}
	if len(data) > MaxSymbolSize {
		return b, fmt.Errorf("%w: %d bytes", ErrSymbolTooLarge, len(data))
	}
	b = binary.AppendUvarint(b, uint64(len(data)))
	return append(b, data...), nil
}

func (c Codec[T]) readSymbol(r Reader) (T, error) {
	var zero T
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return zero, err
	}
	if n > MaxSymbolSize {
		return zero, fmt.Errorf("%w: %d bytes", ErrSymbolTooLarge, n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return zero, noEOF(err)
	}
	s, err := c.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("unmarshal symbol: %w", err)
	}
	return s, nil
}

// AppendCodedSymbol appends the frame of cs to b.
func (c Codec[T]) AppendCodedSymbol(b []byte, cs riblt.CodedSymbol[T]) ([]byte, error) {
	b, err := appendSymbol(b, cs.Symbol)
	if err != nil {
		return b, err
	}
	b = binary.LittleEndian.AppendUint64(b, cs.Hash)
	return binary.AppendVarint(b, cs.Count), nil
}

// WriteCodedSymbol writes the frame of cs to w.
func (c Codec[T]) WriteCodedSymbol(w io.Writer, cs riblt.CodedSymbol[T]) error {
	b, err := c.AppendCodedSymbol(nil, cs)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadCodedSymbol reads one coded symbol frame. It returns io.EOF only if r
// is exhausted before the first byte of the frame.
func (c Codec[T]) ReadCodedSymbol(r Reader) (riblt.CodedSymbol[T], error) {
	s, err := c.readSymbol(r)
	if err != nil {
		return riblt.CodedSymbol[T]{}, err
	}
	var h [8]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return riblt.CodedSymbol[T]{}, noEOF(err)
	}
	count, err := binary.ReadVarint(r)
	if err != nil {
		return riblt.CodedSymbol[T]{}, noEOF(err)
	}
	return riblt.CodedSymbol[T]{
		Symbol: s,
		Hash:   binary.LittleEndian.Uint64(h[:]),
		Count:  count,
	}, nil
}

// WriteSketch writes all coded symbols of s to w.
func (c Codec[T]) WriteSketch(w io.Writer, s *riblt.Sketch[T]) error {
	cs := s.CodedSymbols()
	b := binary.AppendUvarint(nil, uint64(len(cs)))
	var err error
	for _, x := range cs {
		if b, err = c.AppendCodedSymbol(b, x); err != nil {
			return err
		}
	}
	_, err = w.Write(b)
	return err
}

// ReadSketch reads a sketch written by WriteSketch.
func (c Codec[T]) ReadSketch(r Reader) (*riblt.Sketch[T], error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > MaxSketchLen {
		return nil, fmt.Errorf("%w: %d coded symbols", ErrSketchTooLarge, n)
	}
	cs := make([]riblt.CodedSymbol[T], 0, min(n, preallocLimit))
	for i := uint64(0); i < n; i++ {
		x, err := c.ReadCodedSymbol(r)
		if err != nil {
			return nil, fmt.Errorf("coded symbol %d: %w", i, noEOF(err))
		}
		cs = append(cs, x)
	}
	return riblt.SketchFromCodedSymbols(cs, c.NewSymbol), nil
}

// AppendSymbol appends the frame of a source symbol to b.
func (c Codec[T]) AppendSymbol(b []byte, s T) ([]byte, error) {
	return appendSymbol(b, s)
}

// ReadSymbol reads a source symbol frame and hashes the symbol.
func (c Codec[T]) ReadSymbol(r Reader) (riblt.HashedSymbol[T], error) {
	s, err := c.readSymbol(r)
	if err != nil {
		return riblt.HashedSymbol[T]{}, err
	}
	return riblt.NewHashedSymbol(s), nil
}

// noEOF turns a clean EOF in the middle of a frame into an unexpected one.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
