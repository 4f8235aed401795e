package factory

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/merkle"
	"github.com/lightibc/lightibc/crypto/mmr"
	"github.com/lightibc/lightibc/crypto/native"
	"github.com/lightibc/lightibc/crypto/secp256k1"
	"github.com/lightibc/lightibc/ibc/lightclients/beefy"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
)

// BeefyChain is a relay chain with an MMR leaf at every block from block 1
// and one parachain with a new head at every relay block. The authority set
// changes every SessionLength blocks: blocks of session s are signed by set
// s, and their leaves announce set s+1 as the next set.
type BeefyChain struct {
	Host          native.Host
	ParaID        uint32
	SessionLength int

	// SetKeys holds the keys of every authority set by set id.
	SetKeys [][]secp256k1.PrivKey
	Sets    []beefy.AuthoritySet
	// Leaves holds the MMR leaf of relay block b at index b-1.
	Leaves      []beefy.MmrLeaf
	ParaHeaders []grandpa.Header

	paraStates []*paraState
	heads      [][][]byte
}

// NewBeefyChain builds relay blocks 1 through n, with parachain block b
// included in relay block b.
func NewBeefyChain(t testing.TB, paraID uint32, authorities, sessionLength, n int) *BeefyChain {
	t.Helper()

	c := &BeefyChain{Host: native.New(), ParaID: paraID, SessionLength: sessionLength}
	for s := 0; s <= n/sessionLength+1; s++ {
		var (
			keys    []secp256k1.PrivKey
			pubKeys [][]byte
		)
		for i := 0; i < authorities; i++ {
			key := secp256k1.PrivKey(crypto.Checksum([]byte(fmt.Sprintf("beefy-%d-%d", s, i))))
			keys = append(keys, key)
			pubKeys = append(pubKeys, key.PubKeyCompressed())
		}
		c.SetKeys = append(c.SetKeys, keys)
		c.Sets = append(c.Sets, beefy.AuthoritySet{
			ID:   uint64(s),
			Len:  uint32(authorities),
			Root: beefy.AuthoritySetRoot(c.Host, pubKeys),
		})
	}

	var paraParent crypto.Hash
	c.paraStates = append(c.paraStates, newParaState(c.Host, 0))
	c.ParaHeaders = append(c.ParaHeaders, c.paraStates[0].header(paraParent, 0))
	c.heads = append(c.heads, nil)
	for b := 1; b <= n; b++ {
		paraParent = c.ParaHeaders[b-1].Hash(c.Host)
		ps := newParaState(c.Host, b)
		para := ps.header(paraParent, b)
		enc, err := para.Encode()
		require.NoError(t, err)

		// heads are sorted by para id
		heads := [][]byte{
			beefy.HeadsLeaf(paraID, enc),
			beefy.HeadsLeaf(paraID+1, []byte("head of another parachain")),
		}
		var parentHash crypto.Hash
		binary.BigEndian.PutUint32(parentHash[:], uint32(b-1))

		c.paraStates = append(c.paraStates, ps)
		c.ParaHeaders = append(c.ParaHeaders, para)
		c.heads = append(c.heads, heads)
		c.Leaves = append(c.Leaves, beefy.MmrLeaf{
			ParentNumber:          uint32(b - 1),
			ParentHash:            parentHash,
			BeefyNextAuthoritySet: c.Sets[c.session(b)+1],
			ParachainHeads:        merkle.BinaryRoot(c.Host.Keccak256, heads),
		})
	}
	return c
}

func (c *BeefyChain) session(block int) int { return block / c.SessionLength }

// ClientState returns a client created before the first MMR leaf, trusting
// sets 0 and 1.
func (c *BeefyChain) ClientState() *beefy.ClientState {
	return &beefy.ClientState{
		ParaID:           c.ParaID,
		Authority:        c.Sets[0],
		NextAuthoritySet: c.Sets[1],
	}
}

// ConsensusState returns the consensus state of parachain block i.
func (c *BeefyChain) ConsensusState(i int) *beefy.ConsensusState {
	return beefy.NewConsensusState(ParaTimestamp(i), c.ParaHeaders[i].StateRoot)
}

// MmrRoot returns the MMR root at relay block latest.
func (c *BeefyChain) MmrRoot(latest int) crypto.Hash {
	return c.mmrAt(latest).Root()
}

func (c *BeefyChain) mmrAt(latest int) *mmr.MMR {
	m := mmr.New(c.Host.Keccak256)
	for _, leaf := range c.Leaves[:latest] {
		m.Push(leaf.Hash(c.Host))
	}
	return m
}

func (c *BeefyChain) mmrProof(t testing.TB, block, latest int) mmr.Proof {
	t.Helper()
	proof, err := c.mmrAt(latest).Prove(uint64(block - 1))
	require.NoError(t, err)
	return proof
}

// Commitment returns the commitment of the MMR root at block for set id.
func (c *BeefyChain) Commitment(block int, setID uint64) beefy.Commitment {
	root := c.MmrRoot(block)
	return beefy.Commitment{
		Payload:        []beefy.PayloadItem{{ID: beefy.MmrRootID, Data: root[:]}},
		BlockNumber:    uint32(block),
		ValidatorSetID: setID,
	}
}

// Sign signs commitment with the keys of set at the given indices and
// returns the signed commitment with each signer's authority proof.
func (c *BeefyChain) Sign(
	t testing.TB, commitment beefy.Commitment, set int, signers ...int,
) (beefy.SignedCommitment, [][]crypto.Hash) {
	t.Helper()

	var pubKeys [][]byte
	for _, k := range c.SetKeys[set] {
		pubKeys = append(pubKeys, k.PubKeyCompressed())
	}
	msg := commitment.Hash(c.Host)
	sc := beefy.SignedCommitment{Commitment: commitment}
	var proofs [][]crypto.Hash
	for _, i := range signers {
		sig, err := c.SetKeys[set][i].SignRecoverable(msg[:])
		require.NoError(t, err)
		s := beefy.Signature{Index: uint32(i)}
		copy(s.Signature[:], sig)
		sc.Signatures = append(sc.Signatures, s)

		_, proof, err := merkle.BinaryProofOf(c.Host.Keccak256, pubKeys, uint32(i))
		require.NoError(t, err)
		proofs = append(proofs, proof.Proof)
	}
	return sc, proofs
}

// MmrUpdate moves a client to the MMR root at block, signed by the given
// authorities of the set whose session block is in.
func (c *BeefyChain) MmrUpdate(t testing.TB, block int, signers ...int) *beefy.MmrUpdateProof {
	t.Helper()

	set := c.session(block)
	sc, proofs := c.Sign(t, c.Commitment(block, uint64(set)), set, signers...)
	return &beefy.MmrUpdateProof{
		SignedCommitment: sc,
		AuthorityProofs:  proofs,
		LatestMmrLeaf:    c.Leaves[block-1],
		MmrProof:         c.mmrProof(t, block, block),
	}
}

// ParachainHeader proves parachain block b through the MMR root at relay
// block latest.
func (c *BeefyChain) ParachainHeader(t testing.TB, b, latest int) beefy.ParachainHeader {
	t.Helper()

	enc, err := c.ParaHeaders[b].Encode()
	require.NoError(t, err)
	_, headsProof, err := merkle.BinaryProofOf(c.Host.Keccak256, c.heads[b], 0)
	require.NoError(t, err)
	ps := c.paraStates[b]
	extProof, err := ps.extrinsics.Prove(grandpa.ExtrinsicKey(0))
	require.NoError(t, err)

	return beefy.ParachainHeader{
		ParachainHeader: enc,
		MmrLeaf:         c.Leaves[b-1],
		MmrProof:        c.mmrProof(t, b, latest),
		ParaID:          c.ParaID,
		HeadsProof:      headsProof,
		Extrinsic:       ps.extrinsic,
		ExtrinsicProof:  extProof,
	}
}

// UpdateHeader moves a client to the MMR root at relay block to, signed by
// signers, with the parachain headers of every block in (from, to].
func (c *BeefyChain) UpdateHeader(t testing.TB, from, to int, signers ...int) *beefy.Header {
	t.Helper()

	h := &beefy.Header{MmrUpdate: c.MmrUpdate(t, to, signers...)}
	for b := from + 1; b <= to; b++ {
		h.ParachainHeaders = append(h.ParachainHeaders, c.ParachainHeader(t, b, to))
	}
	return h
}

// ProveIBC returns a storage proof of keys in the IBC child trie of
// parachain block i.
func (c *BeefyChain) ProveIBC(t testing.TB, i int, keys ...[]byte) []byte {
	t.Helper()
	return c.paraStates[i].proveIBC(t, keys...)
}
