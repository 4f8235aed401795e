package factory

import (
	"fmt"
	"testing"

	"github.com/ChainSafe/gossamer/pkg/scale"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/ed25519"
	"github.com/lightibc/lightibc/crypto/native"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/trie"
)

const (
	// ParaBlockTime separates parachain timestamps.
	ParaBlockTime uint64 = 12_000
	// TimestampPallet and TimestampCall index the timestamp.set call.
	TimestampPallet uint8 = 3
	TimestampCall   uint8 = 0
)

// IBCPrefix names the child trie holding parachain IBC state.
var IBCPrefix = commitment.NewMerklePrefix([]byte("ibc"))

// RelayChain is a relay chain whose every block includes a new head of one
// parachain, finalized by equal weight ed25519 GRANDPA authorities. Block
// n of both chains is at index n.
type RelayChain struct {
	Host   native.Host
	ParaID uint32
	SetID  uint64
	Keys   []ed25519.PrivKey

	Headers     []grandpa.Header
	ParaHeaders []grandpa.Header

	relayStates []*trie.Trie
	paraStates  []*paraState
}

type paraState struct {
	main       *trie.Trie
	ibc        *trie.Trie
	extrinsics *trie.Trie
	extrinsic  []byte
}

// NewRelayChain builds blocks 0 through n. The parachain IBC child trie
// stores "connections/connection-0" and "clients/10-grandpa-0/clientState".
func NewRelayChain(t testing.TB, paraID uint32, authorities, n int) *RelayChain {
	t.Helper()

	c := &RelayChain{Host: native.New(), ParaID: paraID, SetID: 1}
	for i := 0; i < authorities; i++ {
		c.Keys = append(c.Keys, ed25519.GenPrivKeyFromSecret([]byte{byte(i), 'g'}))
	}

	var relayParent, paraParent crypto.Hash
	for i := 0; i <= n; i++ {
		ps := newParaState(c.Host, i)
		para := ps.header(paraParent, i)
		paraEnc, err := para.Encode()
		require.NoError(t, err)
		headData, err := scale.Marshal(paraEnc)
		require.NoError(t, err)

		relayState := trie.New(c.Host.Blake2b256)
		relayState.Put([]byte(":code"), []byte("relay runtime"))
		relayState.Put(grandpa.ParasHeadsKey(c.Host, paraID), headData)
		relayState.Put(grandpa.ParasHeadsKey(c.Host, paraID+1), headData[:len(headData)/2])

		relay := grandpa.Header{
			ParentHash:     relayParent,
			Number:         uint(i),
			StateRoot:      relayState.Root(),
			ExtrinsicsRoot: trie.EmptyRoot(c.Host.Blake2b256),
			Digest: []grandpa.DigestItem{
				{Kind: grandpa.DigestPreRuntime, EngineID: [4]byte{'B', 'A', 'B', 'E'}, Data: []byte{byte(i)}},
			},
		}

		c.Headers = append(c.Headers, relay)
		c.ParaHeaders = append(c.ParaHeaders, para)
		c.relayStates = append(c.relayStates, relayState)
		c.paraStates = append(c.paraStates, ps)
		relayParent = relay.Hash(c.Host)
		paraParent = para.Hash(c.Host)
	}
	return c
}

func newParaState(host native.Host, i int) *paraState {
	ps := &paraState{
		main:       trie.New(host.Blake2b256),
		ibc:        trie.New(host.Blake2b256),
		extrinsics: trie.New(host.Blake2b256),
		extrinsic:  grandpa.EncodeTimestamp(TimestampPallet, TimestampCall, ParaTimestamp(i)),
	}
	ps.ibc.Put([]byte("connections/connection-0"), []byte("connection end with counterparty connection-7"))
	ps.ibc.Put([]byte("clients/10-grandpa-0/clientState"), []byte(fmt.Sprintf("client state at parachain block %d", i)))
	ps.main.Put([]byte(":code"), []byte("parachain runtime"))
	ps.main.Put(trie.ChildStorageKey(IBCPrefix.Bytes()), ps.ibc.Root().Bytes())
	ps.extrinsics.Put(grandpa.ExtrinsicKey(0), ps.extrinsic)
	ps.extrinsics.Put(grandpa.ExtrinsicKey(1), []byte("a signed transfer extrinsic"))
	return ps
}

// ParaTimestamp is the timestamp inherent of parachain block i in
// milliseconds.
func ParaTimestamp(i int) uint64 {
	return uint64(DefaultTestTime.UnixMilli()) + uint64(i)*ParaBlockTime
}

// ParaTimestamp is the timestamp inherent of parachain block i.
func (c *RelayChain) ParaTimestamp(i int) uint64 { return ParaTimestamp(i) }

// Hash is the hash of relay block i.
func (c *RelayChain) Hash(i int) crypto.Hash {
	return c.Headers[i].Hash(c.Host)
}

// Authorities is the GRANDPA voter set, each voter with weight 10.
func (c *RelayChain) Authorities() []grandpa.Authority {
	out := make([]grandpa.Authority, len(c.Keys))
	for i, k := range c.Keys {
		copy(out[i].Key[:], k.PubKey().Bytes())
		out[i].Weight = 10
	}
	return out
}

// ClientState returns a client trusting relay block i.
func (c *RelayChain) ClientState(i int) *grandpa.ClientState {
	return &grandpa.ClientState{
		ParaID:             c.ParaID,
		LatestRelayHash:    c.Hash(i),
		LatestRelayHeight:  uint32(i),
		LatestParaHeight:   uint32(i),
		CurrentSetID:       c.SetID,
		CurrentAuthorities: c.Authorities(),
	}
}

// ConsensusState returns the consensus state of parachain block i.
func (c *RelayChain) ConsensusState(i int) *grandpa.ConsensusState {
	return grandpa.NewConsensusState(ParaTimestamp(i), c.ParaHeaders[i].StateRoot)
}

// SignPrecommit signs a precommit for relay block target with key signer.
func (c *RelayChain) SignPrecommit(t testing.TB, round uint64, target, signer int) grandpa.SignedPrecommit {
	t.Helper()

	p := grandpa.Precommit{TargetHash: c.Hash(target), TargetNumber: uint32(target)}
	sig, err := c.Keys[signer].Sign(grandpa.PrecommitSignBytes(p, round, c.SetID))
	require.NoError(t, err)

	sp := grandpa.SignedPrecommit{Precommit: p}
	copy(sp.Signature[:], sig)
	copy(sp.ID[:], c.Keys[signer].PubKey().Bytes())
	return sp
}

// Justify returns a justification of relay block target with a precommit
// for target by every signer.
func (c *RelayChain) Justify(t testing.TB, round uint64, target int, signers ...int) grandpa.Justification {
	t.Helper()

	j := grandpa.Justification{
		Round: round,
		Commit: grandpa.Commit{
			TargetHash:   c.Hash(target),
			TargetNumber: uint32(target),
		},
	}
	for _, s := range signers {
		j.Commit.Precommits = append(j.Commit.Precommits, c.SignPrecommit(t, round, target, s))
	}
	return j
}

// ParachainHeader proves parachain block i through relay block i.
func (c *RelayChain) ParachainHeader(t testing.TB, i int) grandpa.ParachainHeader {
	t.Helper()

	stateProof, err := c.relayStates[i].Prove(grandpa.ParasHeadsKey(c.Host, c.ParaID))
	require.NoError(t, err)
	ps := c.paraStates[i]
	extProof, err := ps.extrinsics.Prove(grandpa.ExtrinsicKey(0))
	require.NoError(t, err)

	return grandpa.ParachainHeader{
		RelayHash: c.Hash(i),
		Proofs: grandpa.ParachainHeaderProofs{
			StateProof:     stateProof,
			Extrinsic:      ps.extrinsic,
			ExtrinsicProof: extProof,
		},
	}
}

// UpdateHeader finalizes relay block to for a client trusting relay block
// from, signed by signers, with the parachain headers of every block in
// (from, to].
func (c *RelayChain) UpdateHeader(t testing.TB, from, to int, signers ...int) *grandpa.ClientMessage {
	t.Helper()

	justification, err := c.Justify(t, 1, to, signers...).Encode()
	require.NoError(t, err)

	h := &grandpa.ClientMessage{
		FinalityProof: grandpa.FinalityProof{
			Block:          c.Hash(to),
			Justification:  justification,
			UnknownHeaders: append([]grandpa.Header(nil), c.Headers[from+1:to+1]...),
		},
	}
	for i := from + 1; i <= to; i++ {
		h.ParachainHeaders = append(h.ParachainHeaders, c.ParachainHeader(t, i))
	}
	return h
}

// ProveIBC returns a SCALE encoded storage proof of keys in the IBC child
// trie of parachain block i.
func (c *RelayChain) ProveIBC(t testing.TB, i int, keys ...[]byte) []byte {
	t.Helper()

	return c.paraStates[i].proveIBC(t, keys...)
}

func (ps *paraState) proveIBC(t testing.TB, keys ...[]byte) []byte {
	t.Helper()

	mainProof, err := ps.main.Prove(trie.ChildStorageKey(IBCPrefix.Bytes()))
	require.NoError(t, err)
	childProof, err := ps.ibc.Prove(keys...)
	require.NoError(t, err)
	bz, err := commitment.StorageProof{TrieNodes: trie.MergeProofs(mainProof, childProof)}.Encode()
	require.NoError(t, err)
	return bz
}

// header returns parachain block i with the given parent.
func (ps *paraState) header(parent crypto.Hash, i int) grandpa.Header {
	return grandpa.Header{
		ParentHash:     parent,
		Number:         uint(i),
		StateRoot:      ps.main.Root(),
		ExtrinsicsRoot: ps.extrinsics.Root(),
	}
}
