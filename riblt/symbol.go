package riblt

// Symbol is the interface that source symbols should implement. It specifies a
// Boolean group, where T (or its subset) is the underlying set, and XOR is the
// group operation. It should satisfy the following properties:
//  1. For all a, b, c in the group, (a ^ b) ^ c = a ^ (b ^ c).
//  2. Let e be the identity of T. For every a in the group, e ^ a = a and
//     a ^ e = a.
//  3. For every a in the group, a ^ a = e.
//
// The identity is produced by the factory given to NewEncoder, NewDecoder, or
// NewSketch. When no factory is given, the zero value of T is used.
type Symbol[T any] interface {
	// XOR returns t ^ t2, where t is the method receiver. XOR is allowed to
	// modify the method receiver, but not t2. Although the method is called
	// XOR (because the bitwise exclusive-or operation is a valid group
	// operation for groups of fixed-length bit strings), it can implement any
	// operation that satisfies the aforementioned properties.
	XOR(t2 T) T
	// Hash returns the hash of the method receiver. It must not modify the
	// method receiver. It must not be homomorphic over the group operation.
	// That is, the probability that
	//   (a ^ b).Hash() == a.Hash() ^ b.Hash()
	// must be negligible. Here, ^ is the group operation on the left-hand
	// side, and bitwise exclusive-or on the right side.
	Hash() uint64
}

// HashedSymbol is the bundle of a symbol and its hash.
type HashedSymbol[T Symbol[T]] struct {
	Symbol T
	Hash   uint64
}

// NewHashedSymbol computes the hash of s once and bundles it with s.
func NewHashedSymbol[T Symbol[T]](s T) HashedSymbol[T] {
	return HashedSymbol[T]{s, s.Hash()}
}

type direction int64

const (
	add    direction = 1
	remove direction = -1
)

// CodedSymbol is a coded symbol produced by a Rateless IBLT encoder.
type CodedSymbol[T Symbol[T]] struct {
	Symbol T
	Hash   uint64
	// Count is the net number of source symbols mapped to this coded symbol.
	// It goes negative when more symbols have been removed than added, e.g.
	// after subtracting two sketches.
	Count int64
}

// apply maps s to c and modifies the counter of c according to dir.
func (c CodedSymbol[T]) apply(s HashedSymbol[T], dir direction) CodedSymbol[T] {
	c.Symbol = c.Symbol.XOR(s.Symbol)
	c.Hash ^= s.Hash
	c.Count += int64(dir)
	return c
}

// decodable reports whether c holds exactly one source symbol, or nothing
// at all.
func (c CodedSymbol[T]) decodable() bool {
	switch c.Count {
	case 1, -1:
		return c.Hash == c.Symbol.Hash()
	case 0:
		return c.Hash == 0
	default:
		return false
	}
}

// pure reports whether c holds exactly one source symbol.
func (c CodedSymbol[T]) pure() bool {
	return (c.Count == 1 || c.Count == -1) && c.Hash == c.Symbol.Hash()
}

// identity returns a fresh identity element, using newSymbol when it is set.
func identity[T Symbol[T]](newSymbol func() T) T {
	if newSymbol != nil {
		return newSymbol()
	}
	var zero T
	return zero
}
