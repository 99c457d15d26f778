package riblt

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/dchest/siphash"
)

func seedOf(i uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], i)
	return siphash.Hash(1, 2, b[:])
}

func TestMappingStrictlyIncreasing(t *testing.T) {
	for i := uint64(0); i < 1000; i++ {
		m := newRandomMapping(seedOf(i))
		if m.lastIdx != 0 {
			t.Fatalf("mapping with seed %d does not start at index 0", i)
		}
		last := m.lastIdx
		for step := 0; step < 100 && m.lastIdx < 1<<40; step++ {
			next := m.nextIndex()
			if next <= last {
				t.Fatalf("mapping with seed %d not increasing: %d after %d", i, next, last)
			}
			last = next
		}
	}
}

func TestMappingDeterministic(t *testing.T) {
	for i := uint64(0); i < 100; i++ {
		m1 := newRandomMapping(seedOf(i))
		m2 := newRandomMapping(seedOf(i))
		for step := 0; step < 50; step++ {
			if m1.nextIndex() != m2.nextIndex() {
				t.Fatalf("mappings with the same seed %d diverge at step %d", i, step)
			}
		}
	}
}

func TestMappingZeroSeedSaturates(t *testing.T) {
	m := newRandomMapping(0)
	prev := m.lastIdx
	for step := 0; step < 10; step++ {
		next := m.nextIndex()
		if next < prev {
			t.Fatalf("mapping went backwards: %d after %d", next, prev)
		}
		prev = next
	}
	if m.lastIdx != math.MaxUint64 {
		t.Errorf("mapping with zero seed did not saturate, last index %d", m.lastIdx)
	}
}

func TestMappingDistribution(t *testing.T) {
	const n = 20000
	const maxIdx = 40
	counts := make([]int, maxIdx+1)
	for i := uint64(0); i < n; i++ {
		m := newRandomMapping(seedOf(i))
		counts[0] += 1
		for m.lastIdx <= maxIdx {
			if idx := m.nextIndex(); idx <= maxIdx {
				counts[idx] += 1
			}
		}
	}
	for _, idx := range []int{1, 2, 3, 5, 10, 20, 40} {
		got := float64(counts[idx]) / n
		expected := 1 / (1 + float64(idx)/2)
		if math.Abs(got-expected) > 0.04 {
			t.Errorf("index %d mapped with probability %.3f, expected %.3f", idx, got, expected)
		}
	}
}

func BenchmarkNextIndex(b *testing.B) {
	s := newRandomMapping(234235)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.nextIndex()
		if s.lastIdx > 1<<40 {
			s = newRandomMapping(uint64(i))
		}
	}
}
