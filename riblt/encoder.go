package riblt

// Encoder is an incremental encoder of Rateless IBLT. The zero value is an
// empty encoder whose coded symbols start from the zero value of T.
type Encoder[T Symbol[T]] struct {
	window    codingWindow[T]
	newSymbol func() T
}

// NewEncoder returns an empty encoder. newSymbol returns a fresh identity
// element of T each time it is called; nil means the zero value of T.
func NewEncoder[T Symbol[T]](newSymbol func() T) *Encoder[T] {
	return &Encoder[T]{newSymbol: newSymbol}
}

// AddSymbol adds a symbol to the encoder. Coded symbols produced before the
// call do not cover the symbol, later ones do.
func (e *Encoder[T]) AddSymbol(s T) {
	e.window.addSymbol(s)
}

// AddHashedSymbol adds a HashedSymbol to the encoder.
func (e *Encoder[T]) AddHashedSymbol(s HashedSymbol[T]) {
	e.window.addHashedSymbol(s)
}

// ProduceNextCodedSymbol returns the next coded symbol the encoder produces.
// The caller owns the returned coded symbol.
func (e *Encoder[T]) ProduceNextCodedSymbol() CodedSymbol[T] {
	next := CodedSymbol[T]{Symbol: identity(e.newSymbol)}
	return e.window.applyWindow(next, add)
}

// Size returns the number of source symbols added since the last reset.
func (e *Encoder[T]) Size() int {
	return len(e.window.symbols)
}

// Reset clears the encoder. The next coded symbol produced has index 0.
func (e *Encoder[T]) Reset() {
	e.window.reset()
}
