package ibc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/ibc"
)

func TestCompareHeights(t *testing.T) {
	testCases := []struct {
		name        string
		height1     ibc.Height
		height2     ibc.Height
		compareSign int
	}{
		{"revision number 1 is lesser", ibc.NewHeight(1, 3), ibc.NewHeight(3, 4), -1},
		{"revision number 1 is greater", ibc.NewHeight(7, 5), ibc.NewHeight(4, 5), 1},
		{"revision height 1 is lesser", ibc.NewHeight(3, 4), ibc.NewHeight(3, 9), -1},
		{"revision height 1 is greater", ibc.NewHeight(3, 8), ibc.NewHeight(3, 3), 1},
		{"revision number is MaxUint64", ibc.NewHeight(^uint64(0), 1), ibc.NewHeight(^uint64(0), 1), 0},
		{"revision height is MaxUint64", ibc.NewHeight(3, ^uint64(0)), ibc.NewHeight(3, ^uint64(0)), 0},
		{"height is equal", ibc.NewHeight(4, 4), ibc.NewHeight(4, 4), 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			compare := tc.height1.Compare(tc.height2)

			switch tc.compareSign {
			case -1:
				require.True(t, compare == -1)
				require.True(t, tc.height1.LT(tc.height2))
				require.True(t, tc.height1.LTE(tc.height2))
				require.False(t, tc.height1.GTE(tc.height2))
			case 0:
				require.True(t, compare == 0)
				require.True(t, tc.height1.EQ(tc.height2))
				require.True(t, tc.height1.GTE(tc.height2))
				require.True(t, tc.height1.LTE(tc.height2))
			case 1:
				require.True(t, compare == 1)
				require.True(t, tc.height1.GT(tc.height2))
				require.False(t, tc.height1.LTE(tc.height2))
			}
		})
	}
}

func TestParseHeight(t *testing.T) {
	h, err := ibc.ParseHeight("1-100")
	require.NoError(t, err)
	require.Equal(t, ibc.NewHeight(1, 100), h)
	require.Equal(t, "1-100", h.String())

	for _, bad := range []string{"", "100", "a-1", "1-b", "1-2-3"} {
		_, err := ibc.ParseHeight(bad)
		require.ErrorIs(t, err, ibc.ErrMalformedInput, bad)
	}
}

func TestIncrement(t *testing.T) {
	next, ok := ibc.NewHeight(2, 9).Increment()
	require.True(t, ok)
	require.Equal(t, ibc.NewHeight(2, 10), next)

	_, ok = ibc.NewHeight(2, ^uint64(0)).Increment()
	require.False(t, ok)
}

func TestParseChainID(t *testing.T) {
	testCases := []struct {
		chainID  string
		revision uint64
		format   bool
	}{
		{"gaiamainnet-3", 3, true},
		{"a-1", 1, true},
		{"gaia-mainnet-40", 40, true},
		{"gaiamainnet-3-39", 39, true},
		{"gaiamainnet-3-0", 0, false},
		{"gaiamainnet--", 0, false},
		{"gaiamainnet-03", 0, false},
		{"gaiamainnet--4", 0, false},
		{"gaiamainnet", 0, false},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.format, ibc.IsRevisionFormat(tc.chainID), tc.chainID)
		require.Equal(t, tc.revision, ibc.ParseChainID(tc.chainID), tc.chainID)
	}

	chainID, err := ibc.SetRevisionNumber("gaiamainnet-3", 4)
	require.NoError(t, err)
	require.Equal(t, "gaiamainnet-4", chainID)
	_, err = ibc.SetRevisionNumber("gaiamainnet", 4)
	require.ErrorIs(t, err, ibc.ErrMalformedInput)
}
