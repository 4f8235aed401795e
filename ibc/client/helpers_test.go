package client_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/client"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/internal/test/factory"
	"github.com/lightibc/lightibc/libs/log"
	"github.com/lightibc/lightibc/light"
)

const (
	grandpaParaID = 2000
	beefyParaID   = 2087

	tmChainID = "testchain-1"
)

var (
	connPath  = commitment.NewMerklePath([]byte("connections"), []byte("connection-0"))
	connValue = []byte("connection end with counterparty connection-7")
)

// testEnv is a keeper over a MemDB with a settable host clock and height.
type testEnv struct {
	*client.Keeper

	mtx        sync.Mutex
	now        time.Time
	hostHeight ibc.Height
}

func newTestEnv(t *testing.T, registry *client.Registry, opts ...client.Option) *testEnv {
	t.Helper()

	env := &testEnv{now: factory.DefaultTestTime, hostHeight: ibc.NewHeight(0, 100)}
	base := []client.Option{
		client.WithLogger(log.TestingLogger()),
		client.WithClock(env.clock),
		client.WithHostHeight(env.height),
	}
	env.Keeper = client.NewKeeper(dbm.NewMemDB(), registry, append(base, opts...)...)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.now
}

func (e *testEnv) height() ibc.Height {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.hostHeight
}

func (e *testEnv) set(now time.Time, height uint64) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.now = now
	e.hostHeight = ibc.NewHeight(0, height)
}

func grandpaClient(c *factory.RelayChain) (client.AnyClientState, client.AnyConsensusState) {
	return client.AnyClientState{Grandpa: c.ClientState(0)},
		client.AnyConsensusState{Grandpa: c.ConsensusState(0)}
}

func beefyClient(c *factory.BeefyChain) (client.AnyClientState, client.AnyConsensusState) {
	return client.AnyClientState{Beefy: c.ClientState()},
		client.AnyConsensusState{Beefy: c.ConsensusState(0)}
}

// tendermintChain is a 10 block chain signed by a static set of 4 validators.
func tendermintChain(t testing.TB) *factory.Chain {
	keys := factory.GenPrivKeys("ibc-client", 4)
	return factory.GenChain(t, tmChainID, 1, 10, func(int64) factory.PrivKeys { return keys })
}

func tmHeight(h int64) ibc.Height { return ibc.NewHeight(1, uint64(h)) }

func tendermintClient(c *factory.Chain, h int64) (client.AnyClientState, client.AnyConsensusState) {
	cs := tendermint.NewClientState(tmChainID, light.DefaultTrustLevel,
		14*24*time.Hour, 21*24*time.Hour, 10*time.Second, tmHeight(h), factory.MultiStoreSpecs, nil)
	return client.AnyClientState{Tendermint: cs}, client.AnyConsensusState{Tendermint: tmConsensusAt(c, h)}
}

func tmConsensusAt(c *factory.Chain, h int64) *tendermint.ConsensusState {
	b := c.Blocks[h]
	return tendermint.NewConsensusState(b.Time, commitment.NewMerkleRoot(b.AppHash), b.NextValidatorsHash)
}

func tmHeader(c *factory.Chain, h, trusted int64) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.Blocks[h].SignedHeader,
		ValidatorSet:      c.Blocks[h].ValidatorSet,
		TrustedHeight:     tmHeight(trusted),
		TrustedValidators: c.NextValidators(trusted),
	}
}

func createClient(t *testing.T, k *client.Keeper, cs client.AnyClientState, consState client.AnyConsensusState) string {
	t.Helper()
	id, err := k.CreateClient(context.Background(), cs, consState)
	require.NoError(t, err)
	return id
}

func createGrandpa(t *testing.T, k *client.Keeper, c *factory.RelayChain) string {
	t.Helper()
	cs, consState := grandpaClient(c)
	return createClient(t, k, cs, consState)
}

func createBeefy(t *testing.T, k *client.Keeper, c *factory.BeefyChain) string {
	t.Helper()
	cs, consState := beefyClient(c)
	return createClient(t, k, cs, consState)
}

func createTendermint(t *testing.T, k *client.Keeper, c *factory.Chain, h int64) string {
	t.Helper()
	cs, consState := tendermintClient(c, h)
	return createClient(t, k, cs, consState)
}
