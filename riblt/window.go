package riblt

// symbolMapping is a mapping from a source symbol to a coded symbol. The
// symbols are identified by their indices in codingWindow.
type symbolMapping struct {
	sourceIdx int
	codedIdx  uint64
}

// mappingHeap implements a priority queue of symbolMappings. The priority is
// the codedIdx of a symbolMapping. A smaller value means higher priority. The
// first item of the queue is always the item with the highest priority. The
// fixHead and fixTail methods should be called after the first or the last
// item is modified (or inserted, in the case of the tail), respectively.
type mappingHeap []symbolMapping

// fixHead reestablishes the heap invariant when the first item is modified.
func (m mappingHeap) fixHead() {
	curr := 0
	for {
		child := curr*2 + 1
		if child >= len(m) {
			// no left child
			break
		}
		if rc := child + 1; rc < len(m) && m[rc].codedIdx < m[child].codedIdx {
			child = rc
		}
		if m[curr].codedIdx <= m[child].codedIdx {
			break
		}
		m[curr], m[child] = m[child], m[curr]
		curr = child
	}
}

// fixTail reestablishes the heap invariant when the last item is modified or
// just inserted.
func (m mappingHeap) fixTail() {
	curr := len(m) - 1
	for curr > 0 {
		parent := (curr - 1) / 2
		if m[parent].codedIdx <= m[curr].codedIdx {
			break
		}
		m[parent], m[curr] = m[curr], m[parent]
		curr = parent
	}
}

// codingWindow is a collection of source symbols and their mappings to coded
// symbols.
type codingWindow[T Symbol[T]] struct {
	symbols  []HashedSymbol[T] // source symbols
	mappings []randomMapping   // mapping generators of the source symbols
	queue    mappingHeap       // priority queue of source symbols by the next coded symbols they are mapped to
	nextIdx  uint64            // index of the next coded symbol to be generated
}

// addSymbol inserts a symbol to the codingWindow.
func (e *codingWindow[T]) addSymbol(t T) {
	e.addHashedSymbol(NewHashedSymbol(t))
}

// addHashedSymbol inserts a HashedSymbol to the codingWindow.
func (e *codingWindow[T]) addHashedSymbol(t HashedSymbol[T]) {
	e.addHashedSymbolWithMapping(t, newRandomMapping(t.Hash))
}

// addHashedSymbolWithMapping inserts a HashedSymbol and the current state of
// its mapping generator to the codingWindow. Coded symbols the window has
// already passed are not revisited: if m points before nextIdx, it is advanced
// to the first index at or after nextIdx.
func (e *codingWindow[T]) addHashedSymbolWithMapping(t HashedSymbol[T], m randomMapping) {
	m.skipTo(e.nextIdx)
	e.symbols = append(e.symbols, t)
	e.mappings = append(e.mappings, m)
	e.queue = append(e.queue, symbolMapping{len(e.symbols) - 1, m.lastIdx})
	e.queue.fixTail()
}

// applyWindow maps the source symbols to the next coded symbol they should be
// mapped to, given as cw. The parameter dir controls how the counter of cw
// should be modified.
func (e *codingWindow[T]) applyWindow(cw CodedSymbol[T], dir direction) CodedSymbol[T] {
	for len(e.queue) > 0 && e.queue[0].codedIdx == e.nextIdx {
		src := e.queue[0].sourceIdx
		cw = cw.apply(e.symbols[src], dir)
		// generate the next mapping
		e.queue[0].codedIdx = e.mappings[src].nextIndex()
		e.queue.fixHead()
	}
	e.nextIdx += 1
	return cw
}

// hashedSymbols returns the source symbols in the order they were inserted.
func (e *codingWindow[T]) hashedSymbols() []HashedSymbol[T] {
	return e.symbols
}

// reset clears a codingWindow.
func (e *codingWindow[T]) reset() {
	// symbols may still be referenced by callers of hashedSymbols
	e.symbols = nil
	if len(e.mappings) != 0 {
		e.mappings = e.mappings[:0]
	}
	if len(e.queue) != 0 {
		e.queue = e.queue[:0]
	}
	e.nextIdx = 0
}
