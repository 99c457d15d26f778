package riblt

import (
	"errors"
	"fmt"
)

// ErrInvalidDegree is returned by TryDecode when a coded symbol queued for
// decoding holds more than one source symbol. It means the decoder state is
// corrupt, e.g. because the Symbol implementation breaks the group laws.
var ErrInvalidDegree = errors.New("invalid degree for decodable coded symbol")

// Decoder computes the symmetric difference between the set of source symbols
// added to it and the set behind the coded symbols it receives.
type Decoder[T Symbol[T]] struct {
	// coded symbols received so far
	cs []CodedSymbol[T]
	// set of source symbols that are exclusive to the decoder
	local codingWindow[T]
	// set of source symbols that the decoder initially has
	window codingWindow[T]
	// set of source symbols that are exclusive to the encoder
	remote codingWindow[T]
	// indices of coded symbols that can be decoded, i.e., degree equal to -1
	// or 1 and sum of hash equal to hash of sum, or degree equal to 0 and sum
	// of hash equal to 0
	decodable []int
	// whether each coded symbol is counted in decoded
	done []bool
	// number of coded symbols that are decoded
	decoded int

	newSymbol func() T
}

// NewDecoder returns an empty decoder. newSymbol returns a fresh identity
// element of T each time it is called; nil means the zero value of T.
func NewDecoder[T Symbol[T]](newSymbol func() T) *Decoder[T] {
	return &Decoder[T]{newSymbol: newSymbol}
}

// Decoded returns true if and only if every coded symbol received so far has
// been decoded.
func (d *Decoder[T]) Decoded() bool {
	return d.decoded == len(d.cs)
}

// CodedSymbols returns the number of coded symbols received so far.
func (d *Decoder[T]) CodedSymbols() int {
	return len(d.cs)
}

// Local returns the list of source symbols that are present in B but not in A.
func (d *Decoder[T]) Local() []HashedSymbol[T] {
	return d.local.hashedSymbols()
}

// Remote returns the list of source symbols that are present in A but not in B.
func (d *Decoder[T]) Remote() []HashedSymbol[T] {
	return d.remote.hashedSymbols()
}

// AddSymbol adds a source symbol to B, the set the decoder holds.
func (d *Decoder[T]) AddSymbol(s T) {
	d.AddHashedSymbol(NewHashedSymbol(s))
}

// AddHashedSymbol adds a source symbol to B, the set the decoder holds. It
// should normally be called before any coded symbol is added. When coded
// symbols have already arrived, s is peeled off them right away, which may
// undo Decoded until the next TryDecode. s must not be a symbol the decoder
// has already returned from Remote.
func (d *Decoder[T]) AddHashedSymbol(s HashedSymbol[T]) {
	if len(d.cs) == 0 {
		d.window.addHashedSymbol(s)
		return
	}
	m := d.applyNewSymbol(s, remove)
	d.window.addHashedSymbolWithMapping(s, m)
	// Unlike a recovered symbol, s may be missing from the coded symbols it
	// maps to, so queued coded symbols can stop being decodable.
	n := 0
	for _, cidx := range d.decodable {
		if d.cs[cidx].decodable() {
			d.decodable[n] = cidx
			n++
		}
	}
	d.decodable = d.decodable[:n]
}

// AddCodedSymbol passes the next coded symbol in A's sequence to the decoder.
// Coded symbols must be passed in the same order as they are received from
// the encoder. The decoder takes ownership of c.
func (d *Decoder[T]) AddCodedSymbol(c CodedSymbol[T]) {
	// scan through decoded symbols to peel off matching ones
	c = d.window.applyWindow(c, remove)
	c = d.remote.applyWindow(c, remove)
	c = d.local.applyWindow(c, add)
	// insert the new coded symbol
	d.cs = append(d.cs, c)
	d.done = append(d.done, false)
	// check if the coded symbol is decodable, and insert into decodable list if so
	if c.decodable() {
		d.decodable = append(d.decodable, len(d.cs)-1)
	}
}

// applyNewSymbol peels t off every coded symbol it maps to, and returns the
// mapping generator advanced past the last coded symbol received.
func (d *Decoder[T]) applyNewSymbol(t HashedSymbol[T], dir direction) randomMapping {
	m := newRandomMapping(t.Hash)
	for m.lastIdx < uint64(len(d.cs)) {
		cidx := int(m.lastIdx)
		if d.done[cidx] {
			// only a symbol added after decoding started can reach an
			// already decoded coded symbol
			d.done[cidx] = false
			d.decoded -= 1
		}
		d.cs[cidx] = d.cs[cidx].apply(t, dir)
		// Check if the coded symbol is now decodable. We do not want to insert
		// a decodable symbol into the list if we already did, otherwise we
		// will visit the same coded symbol twice. To see how we achieve that,
		// notice the following invariant: if a coded symbol becomes decodable
		// with degree D (obviously -1 <= D <=1), it will stay that way, except
		// for that it's degree may become 0. For example, a decodable symbol
		// of degree -1 may not later become undecodable, or become decodable
		// but of degree 1. This is because each peeling removes a source
		// symbol from the coded symbol. So, if a coded symbol already contains
		// only 1 or 0 source symbol (the definition of decodable), the most we
		// can do is to peel off the only remaining source symbol.
		//
		// Meanwhile, notice that if a decodable symbol is of degree 0, then
		// there must be a point in the past when it was of degree 1 or -1 and
		// decodable, at which time we would have inserted it into the
		// decodable list. So, we do not insert degree-0 symbols to avoid
		// duplicates. On the other hand, it is fine that we insert all
		// degree-1 or -1 decodable symbols, because we only see them in such
		// state once.
		if d.cs[cidx].pure() {
			d.decodable = append(d.decodable, cidx)
		}
		m.nextIndex()
	}
	return m
}

// TryDecode tries to decode all coded symbols received so far. It returns an
// error only when the decoder state is found to be inconsistent; not having
// decoded everything yet is reported by Decoded.
func (d *Decoder[T]) TryDecode() error {
	for didx := 0; didx < len(d.decodable); didx += 1 {
		cidx := d.decodable[didx]
		if d.done[cidx] {
			continue
		}
		c := d.cs[cidx]
		// We do not need to compare Hash and Symbol.Hash() below, because we
		// have checked it before inserting into the decodable list. Per the
		// invariant mentioned in the comment in applyNewSymbol, a decodable
		// symbol does not turn undecodable, so there is no worry that
		// additional source symbols have been peeled off a coded symbol after
		// it was inserted into the decodable list and before we visit them
		// here.
		switch c.Count {
		case 1:
			ns := d.extract(c)
			m := d.applyNewSymbol(ns, remove)
			d.remote.addHashedSymbolWithMapping(ns, m)
		case -1:
			ns := d.extract(c)
			m := d.applyNewSymbol(ns, add)
			d.local.addHashedSymbolWithMapping(ns, m)
		case 0:
		default:
			d.decodable = d.decodable[:0]
			return fmt.Errorf("coded symbol %d has degree %d: %w", cidx, c.Count, ErrInvalidDegree)
		}
		d.done[cidx] = true
		d.decoded += 1
	}
	d.decodable = d.decodable[:0]
	return nil
}

// extract copies the only source symbol in c into a freshly allocated
// symbol, so that later peeling of c does not alias the result whether or
// not T is implemented as a pointer.
func (d *Decoder[T]) extract(c CodedSymbol[T]) HashedSymbol[T] {
	s := identity(d.newSymbol)
	s = s.XOR(c.Symbol)
	return HashedSymbol[T]{s, c.Hash}
}

// Reset clears d. It is more efficient to call Reset to reuse an existing
// Decoder than creating a new one.
func (d *Decoder[T]) Reset() {
	if len(d.cs) != 0 {
		d.cs = d.cs[:0]
	}
	if len(d.decodable) != 0 {
		d.decodable = d.decodable[:0]
	}
	if len(d.done) != 0 {
		d.done = d.done[:0]
	}
	d.local.reset()
	d.remote.reset()
	d.window.reset()
	d.decoded = 0
}
