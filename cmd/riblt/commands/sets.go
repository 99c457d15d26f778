package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yangl1996/rateless-reconcile/riblt"
	"github.com/yangl1996/rateless-reconcile/symbols"
)

const maxRange = 1 << 24

// parseSet parses comma-separated integers and inclusive ranges such as
// "1-5,9". Duplicates are dropped and the result is sorted.
func parseSet(s string) ([]uint64, error) {
	seen := map[uint64]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("set element %q: %w", part, err)
		}
		to := from
		if isRange {
			if to, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 64); err != nil {
				return nil, fmt.Errorf("set element %q: %w", part, err)
			}
			if to < from {
				return nil, fmt.Errorf("set element %q: empty range", part)
			}
			if to-from >= maxRange {
				return nil, fmt.Errorf("set element %q: range longer than %d", part, maxRange)
			}
		}
		for i := from; ; i++ {
			seen[i] = struct{}{}
			if i == to {
				break
			}
		}
	}
	res := make([]uint64, 0, len(seen))
	for i := range seen {
		res = append(res, i)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res, nil
}

// formatSet is the inverse of parseSet on sorted input.
func formatSet(set []uint64) string {
	parts := []string{}
	for i := 0; i < len(set); {
		j := i
		for j+1 < len(set) && set[j+1] == set[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, strconv.FormatUint(set[i], 10))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", set[i], set[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func sortedValues(ss []riblt.HashedSymbol[symbols.Uint64]) []uint64 {
	res := make([]uint64, 0, len(ss))
	for _, s := range ss {
		res = append(res, uint64(s.Symbol))
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
