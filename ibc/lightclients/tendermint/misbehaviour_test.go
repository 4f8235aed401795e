package tendermint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/internal/test/factory"
)

func TestCheckMisbehaviourAndUpdateState(t *testing.T) {
	c := testChain(t)
	now := c.Time(10)
	vals := c.Blocks[5].ValidatorSet
	keys := c.Keys[5]
	store := memStore{height(1): consensusAt(c, 1), height(4): consensusAt(c, 4)}

	// signed rewrite of height h with a different app hash and time
	rewrite := func(h, trusted, bTimeHeight int64) *tendermint.Header {
		hdr := *headerAt(c, h, trusted)
		hdr.SignedHeader = keys.GenSignedHeader(t, chainID, h, c.Time(bTimeHeight), vals, vals,
			factory.Hash("fork"), 0, len(keys))
		return &hdr
	}

	testCases := []struct {
		name         string
		misbehaviour *tendermint.Misbehaviour
		wantErr      error
	}{
		{
			name:         "fork at the same height",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", rewrite(5, 1, 5), headerAt(c, 5, 4)),
		},
		{
			name:         "time violation",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", rewrite(6, 1, 4), headerAt(c, 5, 1)),
		},
		{
			name:         "same block twice",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", headerAt(c, 5, 1), headerAt(c, 5, 4)),
			wantErr:      tendermint.ErrInvalidMisbehaviour,
		},
		{
			name:         "monotonic headers",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", headerAt(c, 6, 1), headerAt(c, 5, 1)),
			wantErr:      tendermint.ErrInvalidMisbehaviour,
		},
		{
			name:         "header 1 below header 2",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", headerAt(c, 5, 1), rewrite(6, 1, 4)),
			wantErr:      tendermint.ErrInvalidMisbehaviour,
		},
		{
			name:         "empty client id",
			misbehaviour: tendermint.NewMisbehaviour("", rewrite(5, 1, 5), headerAt(c, 5, 1)),
			wantErr:      tendermint.ErrInvalidMisbehaviour,
		},
		{
			name:         "unknown trusted height",
			misbehaviour: tendermint.NewMisbehaviour("07-tendermint-0", rewrite(5, 2, 5), headerAt(c, 5, 1)),
			wantErr:      ibc.ErrTargetNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := testClientState(8)
			newCS, err := cs.CheckMisbehaviourAndUpdateState(store, now, tc.misbehaviour)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, newCS)
				return
			}
			require.NoError(t, err)
			assert.True(t, newCS.IsFrozen())
			assert.Equal(t, ibc.FrozenHeight, newCS.FrozenHeight)
			assert.False(t, cs.IsFrozen())
		})
	}
}

func TestCheckMisbehaviourExpiredTrustedState(t *testing.T) {
	c := testChain(t)
	keys, vals := c.Keys[5], c.Blocks[5].ValidatorSet
	fork := *headerAt(c, 5, 1)
	fork.SignedHeader = keys.GenSignedHeader(t, chainID, 5, c.Time(5), vals, vals, factory.Hash("fork"), 0, len(keys))

	cs := testClientState(8)
	_, err := cs.CheckMisbehaviourAndUpdateState(memStore{height(1): consensusAt(c, 1)},
		c.Time(1).Add(trustingPeriod), tendermint.NewMisbehaviour("07-tendermint-0", &fork, headerAt(c, 5, 1)))
	assert.ErrorIs(t, err, tendermint.ErrTrustingPeriodExpired)
	assert.Equal(t, ibc.KindClockFault, ibc.KindOf(err))
}
