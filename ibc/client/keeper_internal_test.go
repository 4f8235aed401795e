package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/internal/test/factory"
)

func TestCheckConflicts(t *testing.T) {
	c := factory.NewRelayChain(t, 2000, 4, 3)
	k := NewKeeper(dbm.NewMemDB(), nil)
	cs := AnyClientState{Grandpa: c.ClientState(1)}
	at := func(h, i int) HeightConsensusState {
		return HeightConsensusState{
			Height: ibc.NewHeight(2000, uint64(h)),
			State:  AnyConsensusState{Grandpa: c.ConsensusState(i)},
		}
	}
	require.NoError(t, k.store.Commit("10-grandpa-0", nil, Update{ClientState: cs, ConsensusStates: []HeightConsensusState{at(1, 1)}}, k.processed()))
	states := k.store.ConsensusStates("10-grandpa-0")

	next := AnyClientState{Grandpa: c.ClientState(2)}

	update, err := k.checkConflicts("10-grandpa-0", cs, states, Update{ClientState: next, ConsensusStates: []HeightConsensusState{at(1, 1), at(2, 2)}})
	require.NoError(t, err)
	assert.False(t, update.Frozen)
	require.Len(t, update.ConsensusStates, 1, "the stored state is dropped")
	assert.Equal(t, ibc.NewHeight(2000, 2), update.ConsensusStates[0].Height)

	update, err = k.checkConflicts("10-grandpa-0", cs, states, Update{ClientState: next, ConsensusStates: []HeightConsensusState{at(2, 2), at(1, 3)}})
	require.NoError(t, err)
	assert.True(t, update.Frozen)
	assert.Empty(t, update.ConsensusStates)
	assert.True(t, update.ClientState.IsFrozen())
	assert.Equal(t, cs.LatestHeight(), update.ClientState.LatestHeight(), "frozen at the previous client state")
}

func TestAnyClientStateFreeze(t *testing.T) {
	c := factory.NewRelayChain(t, 2000, 4, 1)
	bc := factory.NewBeefyChain(t, 2087, 4, 100, 1)

	for _, cs := range []AnyClientState{
		{Grandpa: c.ClientState(1)},
		{Beefy: bc.ClientState(), CodeID: []byte("code")},
	} {
		frozen := cs.Freeze()
		assert.True(t, frozen.IsFrozen())
		assert.False(t, cs.IsFrozen(), "receiver is not modified")
		assert.Equal(t, cs.CodeID, frozen.CodeID)
		assert.Equal(t, ibc.Frozen, frozen.Status(nil, factory.DefaultTestTime))
	}
}
