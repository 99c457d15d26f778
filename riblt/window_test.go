package riblt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMappingHeap(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	h := mappingHeap{}
	for i := 0; i < 500; i++ {
		h = append(h, symbolMapping{i, uint64(r.Intn(1000))})
		h.fixTail()
		checkHeap(t, h)
	}
	for i := 0; i < 2000; i++ {
		h[0].codedIdx += uint64(r.Intn(100) + 1)
		h.fixHead()
		checkHeap(t, h)
	}
}

func checkHeap(t *testing.T, h mappingHeap) {
	t.Helper()
	for i := 1; i < len(h); i++ {
		if h[(i-1)/2].codedIdx > h[i].codedIdx {
			t.Fatalf("heap invariant violated at item %d", i)
		}
	}
}

// bruteForceCodedSymbol scans every source symbol to compute the coded
// symbol at index idx.
func bruteForceCodedSymbol(symbols []HashedSymbol[*testSymbol], idx uint64) CodedSymbol[*testSymbol] {
	c := CodedSymbol[*testSymbol]{Symbol: newEmptyTestSymbol()}
	for _, s := range symbols {
		m := newRandomMapping(s.Hash)
		for m.lastIdx < idx {
			m.nextIndex()
		}
		if m.lastIdx == idx {
			c = c.apply(s, add)
		}
	}
	return c
}

func TestApplyWindowMatchesScan(t *testing.T) {
	w := codingWindow[*testSymbol]{}
	symbols := []HashedSymbol[*testSymbol]{}
	for i := uint64(0); i < 100; i++ {
		s := NewHashedSymbol(newTestSymbol(i))
		symbols = append(symbols, s)
		w.addHashedSymbol(s)
	}
	for idx := uint64(0); idx < 300; idx++ {
		got := w.applyWindow(CodedSymbol[*testSymbol]{Symbol: newEmptyTestSymbol()}, add)
		expected := bruteForceCodedSymbol(symbols, idx)
		require.Equal(t, expected.Count, got.Count, "coded symbol %d", idx)
		require.Equal(t, expected.Hash, got.Hash, "coded symbol %d", idx)
		require.Equal(t, *expected.Symbol, *got.Symbol, "coded symbol %d", idx)
	}
	require.EqualValues(t, 300, w.nextIdx)
}

func TestApplyEmptyWindow(t *testing.T) {
	w := codingWindow[*testSymbol]{}
	c := w.applyWindow(CodedSymbol[*testSymbol]{Symbol: newEmptyTestSymbol()}, add)
	require.Zero(t, c.Count)
	require.Zero(t, c.Hash)
	require.EqualValues(t, 1, w.nextIdx)
}

func TestWindowReset(t *testing.T) {
	w := codingWindow[*testSymbol]{}
	for i := uint64(0); i < 10; i++ {
		w.addSymbol(newTestSymbol(i))
	}
	w.applyWindow(CodedSymbol[*testSymbol]{Symbol: newEmptyTestSymbol()}, add)
	kept := w.hashedSymbols()
	w.reset()
	require.Empty(t, w.hashedSymbols())
	require.Empty(t, w.mappings)
	require.Empty(t, w.queue)
	require.Zero(t, w.nextIdx)
	// symbols handed out before the reset stay intact
	w.addSymbol(newTestSymbol(100))
	require.Len(t, kept, 10)
	require.EqualValues(t, 0, index(kept[0]))
}
