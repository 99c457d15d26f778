package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSet(t *testing.T) {
	for in, expected := range map[string][]uint64{
		"":             {},
		"7":            {7},
		"1-5,9":        {1, 2, 3, 4, 5, 9},
		" 3 , 1-2 ,3 ": {1, 2, 3},
		"4-4":          {4},
		"10,2-3,,":     {2, 3, 10},
	} {
		got, err := parseSet(in)
		require.NoError(t, err, "parsing %q", in)
		require.Equal(t, expected, got, "parsing %q", in)
	}
}

func TestParseSetErrors(t *testing.T) {
	for _, in := range []string{"a", "1-", "-3", "5-2", "1-2-3", "0-99999999999"} {
		_, err := parseSet(in)
		require.Error(t, err, "parsing %q", in)
	}
}

func TestFormatSet(t *testing.T) {
	require.Equal(t, "", formatSet(nil))
	require.Equal(t, "1-5,9", formatSet([]uint64{1, 2, 3, 4, 5, 9}))
	require.Equal(t, "1,3,5-6", formatSet([]uint64{1, 3, 5, 6}))
	set, err := parseSet("0-3,7,10-12")
	require.NoError(t, err)
	require.Equal(t, "0-3,7,10-12", formatSet(set))
}
