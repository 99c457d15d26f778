package riblt

import (
	"errors"
	"fmt"
)

// ErrSketchSizeMismatch is returned when subtracting sketches of different
// lengths.
var ErrSketchSizeMismatch = errors.New("subtracting sketches of different sizes")

// Sketch is a prefix of the coded symbol sequence for a set of source symbols.
// Slot i holds the coded symbol an Encoder fed with the same source symbols
// would produce at index i.
type Sketch[T Symbol[T]] struct {
	s         []CodedSymbol[T]
	newSymbol func() T
}

// NewSketch returns the sketch of an empty set with m coded symbols. newSymbol
// returns a fresh identity element of T each time it is called; nil means the
// zero value of T.
func NewSketch[T Symbol[T]](m int, newSymbol func() T) *Sketch[T] {
	s := &Sketch[T]{
		s:         make([]CodedSymbol[T], m),
		newSymbol: newSymbol,
	}
	for i := range s.s {
		s.s[i].Symbol = identity(newSymbol)
	}
	return s
}

// SketchFromCodedSymbols rebuilds a sketch from its coded symbols, e.g. after
// receiving them from a peer. The sketch takes ownership of cs.
func SketchFromCodedSymbols[T Symbol[T]](cs []CodedSymbol[T], newSymbol func() T) *Sketch[T] {
	return &Sketch[T]{s: cs, newSymbol: newSymbol}
}

// Len returns the number of coded symbols in s.
func (s *Sketch[T]) Len() int {
	return len(s.s)
}

// CodedSymbols returns a copy of the coded symbols in s.
func (s *Sketch[T]) CodedSymbols() []CodedSymbol[T] {
	res := make([]CodedSymbol[T], len(s.s))
	for i, c := range s.s {
		res[i] = s.copyOf(c)
	}
	return res
}

// AddSymbol efficiently updates s when t is added to the set.
func (s *Sketch[T]) AddSymbol(t T) {
	s.AddHashedSymbol(NewHashedSymbol(t))
}

// RemoveSymbol efficiently updates s when t is removed from the set.
func (s *Sketch[T]) RemoveSymbol(t T) {
	s.RemoveHashedSymbol(NewHashedSymbol(t))
}

// AddHashedSymbol efficiently updates s when t is added to the set.
func (s *Sketch[T]) AddHashedSymbol(t HashedSymbol[T]) {
	s.applySymbol(t, add)
}

// RemoveHashedSymbol efficiently updates s when t is removed from the set.
func (s *Sketch[T]) RemoveHashedSymbol(t HashedSymbol[T]) {
	s.applySymbol(t, remove)
}

func (s *Sketch[T]) applySymbol(t HashedSymbol[T], dir direction) {
	m := newRandomMapping(t.Hash)
	for m.lastIdx < uint64(len(s.s)) {
		idx := m.lastIdx
		s.s[idx] = s.s[idx].apply(t, dir)
		m.nextIndex()
	}
}

// Subtract subtracts s2 from s, modifying s in place. s and s2 must be of
// equal length. If s is a sketch of set S and s2 is a sketch of set S2, then
// the result is a sketch of the symmetric difference between S and S2.
func (s *Sketch[T]) Subtract(s2 *Sketch[T]) error {
	if len(s.s) != len(s2.s) {
		return fmt.Errorf("%w: %d and %d", ErrSketchSizeMismatch, len(s.s), len(s2.s))
	}
	for i := range s.s {
		s.s[i].Symbol = s.s[i].Symbol.XOR(s2.s[i].Symbol)
		s.s[i].Count = s.s[i].Count - s2.s[i].Count
		s.s[i].Hash ^= s2.s[i].Hash
	}
	return nil
}

// Decode tries to decode s, where s can be one of the following
//  1. A sketch of set S.
//  2. Content of s after calling s.Subtract(s2), where s is a sketch of set
//     S, and s2 is a sketch of set S2.
//
// When successful, fwd contains all source symbols in S in case 1, or S \ S2
// in case 2 (\ is the set subtraction operation). rev is empty in case 1, or
// S2 \ S in case 2. succ is true. When unsuccessful, fwd and rev hold what was
// recovered before peeling got stuck, and succ is false. s is not modified.
func (s *Sketch[T]) Decode() (fwd []HashedSymbol[T], rev []HashedSymbol[T], succ bool, err error) {
	dec := NewDecoder(s.newSymbol)
	for _, c := range s.s {
		dec.AddCodedSymbol(s.copyOf(c))
	}
	if err := dec.TryDecode(); err != nil {
		return nil, nil, false, err
	}
	return dec.Remote(), dec.Local(), dec.Decoded(), nil
}

// copyOf returns c with its accumulator copied into a fresh symbol.
func (s *Sketch[T]) copyOf(c CodedSymbol[T]) CodedSymbol[T] {
	c.Symbol = identity(s.newSymbol).XOR(c.Symbol)
	return c
}
