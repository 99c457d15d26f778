package riblt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSketch(m int, set []uint64) *Sketch[*testSymbol] {
	s := NewSketch(m, newEmptyTestSymbol)
	for _, i := range set {
		s.AddSymbol(newTestSymbol(i))
	}
	return s
}

func span(from, to uint64) []uint64 {
	res := []uint64{}
	for i := from; i < to; i++ {
		res = append(res, i)
	}
	return res
}

func TestSketchSubtractAndDecode(t *testing.T) {
	s1 := newTestSketch(6, []uint64{1})
	s2 := newTestSketch(6, []uint64{2, 12})
	require.NoError(t, s1.Subtract(s2))
	fwd, rev, succ, err := s1.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.ElementsMatch(t, []uint64{1}, indices(fwd))
	require.ElementsMatch(t, []uint64{2, 12}, indices(rev))
}

func TestSketchLargeSets(t *testing.T) {
	s1 := newTestSketch(100, span(0, 1000))
	s2 := newTestSketch(100, span(20, 1020))
	require.NoError(t, s1.Subtract(s2))
	fwd, rev, succ, err := s1.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.ElementsMatch(t, span(0, 20), indices(fwd))
	require.ElementsMatch(t, span(1000, 1020), indices(rev))
}

func TestSketchTooSmall(t *testing.T) {
	for _, m := range []int{4, 10} {
		s1 := newTestSketch(m, span(0, 1000))
		s2 := newTestSketch(m, span(20, 1020))
		require.NoError(t, s1.Subtract(s2))
		_, _, succ, err := s1.Decode()
		require.NoError(t, err)
		require.False(t, succ, "sketch of %d coded symbols decoded a difference of 40", m)
	}
}

func TestSketchDecodeWholeSet(t *testing.T) {
	s := newTestSketch(60, span(0, 20))
	fwd, rev, succ, err := s.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.ElementsMatch(t, span(0, 20), indices(fwd))
	require.Empty(t, rev)
}

func TestSketchDecodeKeepsSketch(t *testing.T) {
	s := newTestSketch(60, span(0, 20))
	before := s.CodedSymbols()
	_, _, succ, err := s.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.Equal(t, before, s.CodedSymbols())
}

func TestSketchAddRemove(t *testing.T) {
	s := newTestSketch(50, span(0, 30))
	before := s.CodedSymbols()
	extra := newTestSymbol(12345)
	s.AddSymbol(extra)
	require.NotEqual(t, before, s.CodedSymbols())
	s.RemoveSymbol(extra)
	require.Equal(t, before, s.CodedSymbols())
}

func TestSketchRemoveOnly(t *testing.T) {
	// removing symbols that were never added drives the counts negative, and
	// the removed symbols decode on the reverse side
	s := NewSketch(30, newEmptyTestSymbol)
	for _, i := range []uint64{5, 6, 7} {
		s.RemoveSymbol(newTestSymbol(i))
	}
	require.EqualValues(t, -3, s.CodedSymbols()[0].Count)
	fwd, rev, succ, err := s.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.Empty(t, fwd)
	require.ElementsMatch(t, []uint64{5, 6, 7}, indices(rev))
}

func TestSketchMatchesEncoder(t *testing.T) {
	set := span(0, 200)
	s := newTestSketch(100, set)
	enc := NewEncoder(newEmptyTestSymbol)
	for _, i := range set {
		enc.AddSymbol(newTestSymbol(i))
	}
	for idx, c := range s.CodedSymbols() {
		e := enc.ProduceNextCodedSymbol()
		require.Equal(t, e.Count, c.Count, "coded symbol %d", idx)
		require.Equal(t, e.Hash, c.Hash, "coded symbol %d", idx)
		require.Equal(t, *e.Symbol, *c.Symbol, "coded symbol %d", idx)
	}
}

func TestSketchFromCodedSymbols(t *testing.T) {
	s1 := newTestSketch(40, span(0, 100))
	received := SketchFromCodedSymbols(s1.CodedSymbols(), newEmptyTestSymbol)
	require.Equal(t, s1.Len(), received.Len())
	s2 := newTestSketch(40, span(5, 100))
	require.NoError(t, received.Subtract(s2))
	fwd, rev, succ, err := received.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.ElementsMatch(t, span(0, 5), indices(fwd))
	require.Empty(t, rev)
}

func TestSketchSubtractSizeMismatch(t *testing.T) {
	s1 := newTestSketch(10, span(0, 5))
	s2 := newTestSketch(11, span(0, 5))
	err := s1.Subtract(s2)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSketchSizeMismatch))
}

func BenchmarkSketchAddSymbol(b *testing.B) {
	s := NewSketch(1000, newEmptyTestSymbol)
	symbols := make([]HashedSymbol[*testSymbol], 1024)
	for i := range symbols {
		symbols[i] = NewHashedSymbol(newTestSymbol(uint64(i)))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.AddHashedSymbol(symbols[i%len(symbols)])
	}
}
