package riblt

import (
	"math"
)

// prngMultiplier is odd, i.e., coprime to 2^64, so multiplying by it permutes
// the PRNG state space.
const prngMultiplier uint64 = 0xda942042e4dd58b5

// randomMapping generates a sequence of indices indicating the coded symbols
// that a source symbol should be mapped to. The generator is deterministic,
// dependent only on its initial PRNG state. When seeded with a uniformly
// random initial PRNG state, index i will be present in the generated sequence
// with probability 1/(1+i/2), for any non-negative i.
type randomMapping struct {
	prng    uint64 // PRNG state
	lastIdx uint64 // the last index the symbol was mapped to
}

func newRandomMapping(seed uint64) randomMapping {
	return randomMapping{prng: seed}
}

// nextIndex returns the next index in the sequence.
func (s *randomMapping) nextIndex() uint64 {
	r := s.prng * prngMultiplier
	s.prng = r
	// Calculate the difference from the current index (s.lastIdx) to the next
	// index. We use the approximated form
	//   diff = (1.5+i)((1-u)^(-1/2)-1)
	// where i is the current index, i.e., lastIdx; u is a number uniformly
	// sampled from [0, 1). Our u comes from sampling a random uint64 r and
	// dividing it by 1<<64, so we replace (1-u)^(-1/2) with 1<<32 / sqrt(r+1).
	// The multiplication above is exact; r is rounded to float64 only once,
	// for the square root.
	diff := math.Ceil((float64(s.lastIdx) + 1.5) * ((1<<32)/math.Sqrt(float64(r)+1) - 1))
	if diff < 1 {
		// float64(r)+1 rounds to 1<<64 when r is close to the top of its range
		diff = 1
	}
	if diff >= 1<<63 || uint64(diff) > math.MaxUint64-s.lastIdx {
		// no window ever gets here, so saturating is as good as overflowing
		s.lastIdx = math.MaxUint64
	} else {
		s.lastIdx += uint64(diff)
	}
	return s.lastIdx
}

// skipTo advances s until its last index is no smaller than idx.
func (s *randomMapping) skipTo(idx uint64) {
	for s.lastIdx < idx {
		s.nextIndex()
	}
}
