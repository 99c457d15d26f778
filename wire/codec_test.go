package wire

import (
	"bufio"
	"bytes"
	"errors"
	"encoding/binary"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/symbols"
)

func TestCodedSymbolFrame(t *testing.T) {
	cs := riblt.CodedSymbol[symbols.Uint64]{Symbol: 0x0102030405060708, Hash: 0xaabbccdd, Count: -2}
	b, err := Uint64Codec.AppendCodedSymbol(nil, cs)
	require.NoError(t, err)
	require.Equal(t, []byte{
		8,
		8, 7, 6, 5, 4, 3, 2, 1,
		0xdd, 0xcc, 0xbb, 0xaa, 0, 0, 0, 0,
		3, // zigzag of -2
	}, b)
	got, err := Uint64Codec.ReadCodedSymbol(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, cs, got)
}

func TestCodedSymbolStream(t *testing.T) {
	enc := riblt.NewEncoder(symbols.NewEmptyBlock)
	for i := 0; i < 50; i++ {
		enc.AddSymbol(symbols.NewBlock([]byte{byte(i)}))
	}
	var buf bytes.Buffer
	sent := []riblt.CodedSymbol[*symbols.Block]{}
	for i := 0; i < 20; i++ {
		cs := enc.ProduceNextCodedSymbol()
		sent = append(sent, cs)
		require.NoError(t, BlockCodec.WriteCodedSymbol(&buf, cs))
	}
	r := bufio.NewReader(&buf)
	for i := range sent {
		got, err := BlockCodec.ReadCodedSymbol(r)
		require.NoError(t, err)
		require.Equal(t, sent[i].Count, got.Count)
		require.Equal(t, sent[i].Hash, got.Hash)
		require.Equal(t, *sent[i].Symbol, *got.Symbol)
	}
	_, err := BlockCodec.ReadCodedSymbol(r)
	require.Equal(t, io.EOF, err)
}

func TestTruncatedFrame(t *testing.T) {
	b, err := BlockCodec.AppendCodedSymbol(nil, riblt.CodedSymbol[*symbols.Block]{
		Symbol: symbols.NewBlock([]byte("x")),
		Hash:   1,
		Count:  1,
	})
	require.NoError(t, err)
	for n := 1; n < len(b); n++ {
		_, err := BlockCodec.ReadCodedSymbol(bytes.NewReader(b[:n]))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, "truncated at %d bytes", n)
	}
}

func TestSymbolTooLarge(t *testing.T) {
	b := []byte{0xff, 0xff, 0x7f} // uvarint well above MaxSymbolSize
	_, err := BlockCodec.ReadCodedSymbol(bytes.NewReader(b))
	require.True(t, errors.Is(err, ErrSymbolTooLarge))
}

func TestWrongSymbolSize(t *testing.T) {
	b, err := Uint64Codec.AppendCodedSymbol(nil, riblt.CodedSymbol[symbols.Uint64]{Symbol: 1})
	require.NoError(t, err)
	// a Uint64 frame does not carry a Block
	_, err = BlockCodec.ReadCodedSymbol(bytes.NewReader(b))
	require.True(t, errors.Is(err, symbols.ErrDataSize))
}

func TestSketchRoundTrip(t *testing.T) {
	a := riblt.NewSketch[symbols.Uint64](40, nil)
	b := riblt.NewSketch[symbols.Uint64](40, nil)
	for i := 0; i < 300; i++ {
		if i >= 3 {
			a.AddSymbol(symbols.Uint64(i))
		}
		b.AddSymbol(symbols.Uint64(i))
	}
	var buf bytes.Buffer
	require.NoError(t, Uint64Codec.WriteSketch(&buf, b))
	received, err := Uint64Codec.ReadSketch(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, b.CodedSymbols(), received.CodedSymbols())

	require.NoError(t, received.Subtract(a))
	fwd, rev, succ, err := received.Decode()
	require.NoError(t, err)
	require.True(t, succ)
	require.Empty(t, rev)
	got := []symbols.Uint64{}
	for _, s := range fwd {
		got = append(got, s.Symbol)
	}
	require.ElementsMatch(t, []symbols.Uint64{0, 1, 2}, got)
}

func TestTruncatedSketch(t *testing.T) {
	s := riblt.NewSketch[symbols.Uint64](5, nil)
	s.AddSymbol(7)
	var buf bytes.Buffer
	require.NoError(t, Uint64Codec.WriteSketch(&buf, s))
	b := buf.Bytes()
	_, err := Uint64Codec.ReadSketch(bytes.NewReader(b[:len(b)-10]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// allocated returns the number of heap bytes allocated while running f.
func allocated(f func()) uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	f()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestSketchHeaderWithoutBody(t *testing.T) {
	b := binary.AppendUvarint(nil, MaxSketchLen)
	var err error
	n := allocated(func() {
		_, err = Uint64Codec.ReadSketch(bufio.NewReader(bytes.NewReader(b)))
	})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Less(t, n, uint64(1<<20), "reading a %d byte sketch allocated %d bytes", len(b), n)
}

func TestSourceSymbolFrame(t *testing.T) {
	blk := symbols.NewBlock([]byte("item"))
	b, err := BlockCodec.AppendSymbol(nil, blk)
	require.NoError(t, err)
	require.Len(t, b, 1+symbols.BlockSize)
	got, err := BlockCodec.ReadSymbol(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, *blk, *got.Symbol)
	require.Equal(t, blk.Hash(), got.Hash)
}
