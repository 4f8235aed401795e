package grandpa_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/internal/test/factory"
)

type memStore map[ibc.Height]*grandpa.ConsensusState

func (s memStore) ConsensusState(height ibc.Height) (*grandpa.ConsensusState, error) {
	cs, ok := s[height]
	if !ok {
		return nil, fmt.Errorf("%w: %s", grandpa.ErrConsensusStateNotFound, height)
	}
	return cs, nil
}

func TestClientStateValidate(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 1)

	testCases := []struct {
		name     string
		malleate func(cs *grandpa.ClientState)
		wantErr  error
	}{
		{"valid", func(*grandpa.ClientState) {}, nil},
		{"no relay hash", func(cs *grandpa.ClientState) { cs.LatestRelayHash = [32]byte{} }, grandpa.ErrInvalidClientState},
		{"no authorities", func(cs *grandpa.ClientState) { cs.CurrentAuthorities = nil }, ibc.ErrMalformedInput},
		{"zero weight", func(cs *grandpa.ClientState) {
			for i := range cs.CurrentAuthorities {
				cs.CurrentAuthorities[i].Weight = 0
			}
		}, grandpa.ErrEmptyAuthorities},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := c.ClientState(1)
			tc.malleate(cs)
			err := cs.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClientStateInitialize(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 1)
	cs := c.ClientState(1)

	require.NoError(t, cs.Initialize(c.ConsensusState(1)))
	assert.ErrorIs(t, cs.Initialize(nil), grandpa.ErrInvalidConsensusState)
	assert.ErrorIs(t, cs.Initialize(&grandpa.ConsensusState{Timestamp: 1}), grandpa.ErrInvalidConsensusState)
	assert.ErrorIs(t, cs.Initialize(grandpa.NewConsensusState(0, c.ParaHeaders[1].StateRoot)), grandpa.ErrInvalidConsensusState)
}

func TestStatus(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 1)
	cs := c.ClientState(1)
	assert.Equal(t, ibc.Active, cs.Status())
	assert.Equal(t, ibc.NewHeight(paraID, 1), cs.GetLatestHeight())

	cs.FrozenHeight = ibc.FrozenHeight
	assert.Equal(t, ibc.Frozen, cs.Status())
}

func TestClientStateVerifyMembership(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 3)
	store := memStore{}
	for i := 1; i <= 3; i++ {
		store[ibc.NewHeight(paraID, uint64(i))] = c.ConsensusState(i)
	}

	connPath := commitment.NewMerklePath([]byte("connections"), []byte("connection-0"))
	missingPath := commitment.NewMerklePath([]byte("connections"), []byte("connection-1"))
	connValue := []byte("connection end with counterparty connection-7")
	clientPath := commitment.NewMerklePath([]byte("clients"), []byte("10-grandpa-0"), []byte("clientState"))

	proofAt := func(i int, key string) []byte { return c.ProveIBC(t, i, []byte(key)) }

	testCases := []struct {
		name    string
		height  ibc.Height
		frozen  bool
		prefix  commitment.MerklePrefix
		proof   []byte
		path    commitment.MerklePath
		value   []byte // nil for non-membership
		wantErr error
	}{
		{
			name: "membership", height: ibc.NewHeight(paraID, 2), prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-0"), path: connPath, value: connValue,
		},
		{
			name: "membership of a per block value", height: ibc.NewHeight(paraID, 3), prefix: factory.IBCPrefix,
			proof: proofAt(3, "clients/10-grandpa-0/clientState"), path: clientPath,
			value: []byte("client state at parachain block 3"),
		},
		{
			name: "value from another height", height: ibc.NewHeight(paraID, 3), prefix: factory.IBCPrefix,
			proof: proofAt(3, "clients/10-grandpa-0/clientState"), path: clientPath,
			value: []byte("client state at parachain block 2"), wantErr: commitment.ErrValueMismatch,
		},
		{
			name: "proof against another root", height: ibc.NewHeight(paraID, 1), prefix: factory.IBCPrefix,
			proof: proofAt(3, "clients/10-grandpa-0/clientState"), path: clientPath,
			value: []byte("client state at parachain block 3"), wantErr: ibc.ErrProofVerificationFailure,
		},
		{
			name: "non-membership", height: ibc.NewHeight(paraID, 2), prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-1"), path: missingPath,
		},
		{
			name: "non-membership of a present key", height: ibc.NewHeight(paraID, 2), prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-0"), path: connPath, wantErr: commitment.ErrKeyExists,
		},
		{
			name: "height above latest", height: ibc.NewHeight(paraID, 4), prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-0"), path: connPath, value: connValue,
			wantErr: grandpa.ErrProofHeightTooHigh,
		},
		{
			name: "no consensus state", height: ibc.NewHeight(paraID, 0), prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-0"), path: connPath, value: connValue,
			wantErr: grandpa.ErrConsensusStateNotFound,
		},
		{
			name: "empty prefix", height: ibc.NewHeight(paraID, 2),
			proof: proofAt(2, "connections/connection-0"), path: connPath, value: connValue,
			wantErr: ibc.ErrMalformedInput,
		},
		{
			name: "frozen", height: ibc.NewHeight(paraID, 2), frozen: true, prefix: factory.IBCPrefix,
			proof: proofAt(2, "connections/connection-0"), path: connPath, value: connValue,
			wantErr: ibc.ErrClientFrozen,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := c.ClientState(3)
			if tc.frozen {
				cs.FrozenHeight = ibc.FrozenHeight
			}

			var err error
			if tc.value != nil {
				err = cs.VerifyMembership(c.Host, store, tc.height, tc.prefix, tc.proof, tc.path, tc.value)
			} else {
				err = cs.VerifyNonMembership(c.Host, store, tc.height, tc.prefix, tc.proof, tc.path)
			}
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// A client updated through CheckHeaderAndUpdateState verifies proofs against
// the consensus states the update produced.
func TestMembershipAfterUpdate(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 4)
	cs := c.ClientState(0)

	newCS, states, err := cs.CheckHeaderAndUpdateState(c.Host, c.UpdateHeader(t, 0, 4, 0, 1, 2), 0)
	require.NoError(t, err)
	store := memStore{}
	for _, s := range states {
		store[s.Height] = s.State
	}

	err = newCS.VerifyMembership(c.Host, store, ibc.NewHeight(paraID, 4), factory.IBCPrefix,
		c.ProveIBC(t, 4, []byte("connections/connection-0")),
		commitment.NewMerklePath([]byte("connections"), []byte("connection-0")),
		[]byte("connection end with counterparty connection-7"))
	require.NoError(t, err)
}
