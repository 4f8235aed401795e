package ibc_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lightibc/lightibc/ibc"
)

func TestHasDelayElapsedBoundaries(t *testing.T) {
	updateTime := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	updateHeight := ibc.NewHeight(1, 100)
	delayTime := 10 * time.Minute
	const delayBlocks = 5

	testCases := []struct {
		name    string
		now     time.Time
		height  ibc.Height
		elapsed bool
	}{
		{"both elapsed", updateTime.Add(time.Hour), ibc.NewHeight(1, 200), true},
		{"exact boundaries", updateTime.Add(delayTime), ibc.NewHeight(1, 105), true},
		{"time one nanosecond short", updateTime.Add(delayTime - time.Nanosecond), ibc.NewHeight(1, 200), false},
		{"height one block short", updateTime.Add(time.Hour), ibc.NewHeight(1, 104), false},
		{"neither elapsed", updateTime, updateHeight, false},
		{"later revision", updateTime.Add(delayTime), ibc.NewHeight(2, 0), true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ok, err := ibc.HasDelayElapsed(tc.now, tc.height, updateTime, updateHeight, delayTime, delayBlocks)
			require.NoError(t, err)
			require.Equal(t, tc.elapsed, ok)

			err = ibc.VerifyDelayPassed(tc.now, tc.height, updateTime, updateHeight, delayTime, delayBlocks)
			if tc.elapsed {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.True(t, ibc.Retryable(err))
			}
		})
	}
}

func TestVerifyDelayPassedNamesDimension(t *testing.T) {
	updateTime := time.Unix(1_000, 0)
	updateHeight := ibc.NewHeight(0, 10)

	err := ibc.VerifyDelayPassed(updateTime, ibc.NewHeight(0, 20), updateTime, updateHeight, time.Second, 1)
	require.ErrorIs(t, err, ibc.ErrNotEnoughTimeElapsed)

	err = ibc.VerifyDelayPassed(updateTime.Add(time.Second), ibc.NewHeight(0, 10), updateTime, updateHeight, time.Second, 1)
	require.ErrorIs(t, err, ibc.ErrInsufficientHeight)
}

func TestHasDelayElapsedInvalidInput(t *testing.T) {
	now := time.Unix(0, 0)
	_, err := ibc.HasDelayElapsed(now, ibc.NewHeight(0, 1), now, ibc.NewHeight(0, math.MaxUint64), 0, 1)
	require.ErrorIs(t, err, ibc.ErrMalformedInput)

	_, err = ibc.HasDelayElapsed(now, ibc.NewHeight(0, 1), now, ibc.NewHeight(0, 1), -time.Second, 0)
	require.ErrorIs(t, err, ibc.ErrMalformedInput)
}

func TestHasDelayElapsedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		updateNanos := rapid.Int64Range(0, 1<<50).Draw(t, "updateNanos").(int64)
		delay := time.Duration(rapid.Int64Range(1, 1<<40).Draw(t, "delay").(int64))
		updateH := rapid.Uint64Range(0, 1<<40).Draw(t, "updateHeight").(uint64)
		blocks := rapid.Uint64Range(1, 1<<20).Draw(t, "blocks").(uint64)

		updateTime := time.Unix(0, updateNanos)
		updateHeight := ibc.NewHeight(0, updateH)
		enoughHeight := ibc.NewHeight(0, updateH+blocks)
		enoughTime := updateTime.Add(delay)

		// time dimension, height satisfied
		ok, err := ibc.HasDelayElapsed(enoughTime.Add(-time.Nanosecond), enoughHeight, updateTime, updateHeight, delay, blocks)
		require.NoError(t, err)
		require.False(t, ok)
		ok, err = ibc.HasDelayElapsed(enoughTime, enoughHeight, updateTime, updateHeight, delay, blocks)
		require.NoError(t, err)
		require.True(t, ok)

		// height dimension, time satisfied
		ok, err = ibc.HasDelayElapsed(enoughTime, ibc.NewHeight(0, updateH+blocks-1), updateTime, updateHeight, delay, blocks)
		require.NoError(t, err)
		require.False(t, ok)
	})
}
