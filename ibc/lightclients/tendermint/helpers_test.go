package tendermint_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/internal/test/factory"
	"github.com/lightibc/lightibc/light"
)

const (
	chainID         = "testchain-1"
	trustingPeriod  = 14 * 24 * time.Hour
	unbondingPeriod = 21 * 24 * time.Hour
	maxClockDrift   = 10 * time.Second
)

// memStore is a ConsensusStore over a map.
type memStore map[ibc.Height]*tendermint.ConsensusState

func (s memStore) ConsensusState(h ibc.Height) (*tendermint.ConsensusState, error) {
	cs, ok := s[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tendermint.ErrConsensusStateNotFound, h)
	}
	return cs, nil
}

func (s memStore) PreviousConsensusState(h ibc.Height) (*tendermint.ConsensusState, error) {
	var best *ibc.Height
	for k := range s {
		k := k
		if k.LT(h) && (best == nil || k.GT(*best)) {
			best = &k
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: below %s", tendermint.ErrConsensusStateNotFound, h)
	}
	return s[*best], nil
}

func (s memStore) NextConsensusState(h ibc.Height) (*tendermint.ConsensusState, error) {
	var best *ibc.Height
	for k := range s {
		k := k
		if k.GT(h) && (best == nil || k.LT(*best)) {
			best = &k
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: above %s", tendermint.ErrConsensusStateNotFound, h)
	}
	return s[*best], nil
}

func height(h int64) ibc.Height {
	return ibc.NewHeight(1, uint64(h))
}

// testChain is a 10 block chain signed by a static set of 4 validators.
func testChain(t testing.TB) *factory.Chain {
	keys := factory.GenPrivKeys("tendermint-client", 4)
	return factory.GenChain(t, chainID, 1, 10, func(int64) factory.PrivKeys { return keys })
}

func consensusAt(c *factory.Chain, h int64) *tendermint.ConsensusState {
	b := c.Blocks[h]
	return tendermint.NewConsensusState(b.Time, commitment.NewMerkleRoot(b.AppHash), b.NextValidatorsHash)
}

func headerAt(c *factory.Chain, h, trusted int64) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.Blocks[h].SignedHeader,
		ValidatorSet:      c.Blocks[h].ValidatorSet,
		TrustedHeight:     height(trusted),
		TrustedValidators: c.NextValidators(trusted),
	}
}

func testClientState(latest int64) *tendermint.ClientState {
	return tendermint.NewClientState(chainID, light.DefaultTrustLevel,
		trustingPeriod, unbondingPeriod, maxClockDrift, height(latest), factory.MultiStoreSpecs, nil)
}
