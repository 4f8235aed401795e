package grandpa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/internal/test/factory"
)

func TestAncestryChain(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 1, 5)
	chain := grandpa.NewAncestryChain(c.Host, c.Headers[1:])
	assert.Equal(t, 5, chain.Len())

	route, err := chain.Ancestry(c.Hash(0), c.Hash(3))
	require.NoError(t, err)
	assert.Equal(t, []crypto.Hash{c.Hash(3), c.Hash(2), c.Hash(1)}, route)

	route, err = chain.Ancestry(c.Hash(4), c.Hash(4))
	require.NoError(t, err)
	assert.Empty(t, route)

	_, err = chain.Ancestry(c.Hash(3), c.Hash(1))
	assert.ErrorIs(t, err, grandpa.ErrNoAncestry)

	assert.True(t, chain.IsEqualOrDescendantOf(c.Hash(2), c.Hash(5)))
	assert.True(t, chain.IsEqualOrDescendantOf(c.Hash(5), c.Hash(5)))
	assert.False(t, chain.IsEqualOrDescendantOf(c.Hash(5), c.Hash(2)))

	h, ok := chain.Header(c.Hash(2))
	require.True(t, ok)
	assert.EqualValues(t, 2, h.Number)
	_, ok = chain.Header(c.Hash(0))
	assert.False(t, ok)
}

func TestJustificationVerify(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 3, 2)
	set := c.ClientState(0).AuthoritySet()
	target := grandpa.Precommit{TargetHash: c.Hash(2), TargetNumber: 2}

	// 20 of 30 is not more than two thirds
	err := c.Justify(t, 7, 2, 0, 1).Verify(c.Host, set, target)
	var weightErr grandpa.ErrInsufficientWeight
	require.ErrorAs(t, err, &weightErr)
	assert.Equal(t, grandpa.ErrInsufficientWeight{Got: 20, Total: 30}, weightErr)

	require.NoError(t, c.Justify(t, 7, 2, 0, 1, 2).Verify(c.Host, set, target))

	// weights need not be equal
	set.Authorities[2].Weight = 100
	require.NoError(t, c.Justify(t, 7, 2, 2).Verify(c.Host, set, target))
	err = c.Justify(t, 7, 2, 0, 1).Verify(c.Host, set, target)
	assert.ErrorIs(t, err, grandpa.ErrInsufficientWeight{Got: 20, Total: 120})

	set.Authorities = nil
	assert.ErrorIs(t, c.Justify(t, 7, 2, 0).Verify(c.Host, set, target), grandpa.ErrEmptyAuthorities)
}

func TestPrecommitSignBytes(t *testing.T) {
	var hash crypto.Hash
	hash[0] = 0xab
	bz := grandpa.PrecommitSignBytes(grandpa.Precommit{TargetHash: hash, TargetNumber: 0x0102}, 3, 9)

	want := []byte{0x01}
	want = append(want, hash[:]...)
	want = append(want, 0x02, 0x01, 0x00, 0x00)
	want = append(want, 3, 0, 0, 0, 0, 0, 0, 0)
	want = append(want, 9, 0, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, want, bz)
}

func TestJustificationCommitTargetIsGhost(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 6)
	set := c.ClientState(0).AuthoritySet()
	target := grandpa.Precommit{TargetHash: c.Hash(3), TargetNumber: 3}

	// every authority precommitted to a descendant of the commit target, so
	// the finalized block is that descendant
	j := c.Justify(t, 1, 3)
	for s := 0; s < 3; s++ {
		j.Commit.Precommits = append(j.Commit.Precommits, c.SignPrecommit(t, 1, 5, s))
	}
	j.VotesAncestries = []grandpa.Header{c.Headers[4], c.Headers[5]}
	assert.ErrorIs(t, j.Verify(c.Host, set, target), grandpa.ErrJustificationTarget)

	j.Commit.Precommits = append(j.Commit.Precommits[:2], c.SignPrecommit(t, 1, 3, 2))
	require.NoError(t, j.Verify(c.Host, set, target))
}

func TestJustificationPrecommitNumberMismatch(t *testing.T) {
	c := factory.NewRelayChain(t, paraID, 4, 6)
	set := c.ClientState(0).AuthoritySet()
	target := grandpa.Precommit{TargetHash: c.Hash(3), TargetNumber: 3}

	sign := func(p grandpa.Precommit, signer int) grandpa.SignedPrecommit {
		sig, err := c.Keys[signer].Sign(grandpa.PrecommitSignBytes(p, 1, c.SetID))
		require.NoError(t, err)
		sp := grandpa.SignedPrecommit{Precommit: p}
		copy(sp.Signature[:], sig)
		copy(sp.ID[:], c.Keys[signer].PubKey().Bytes())
		return sp
	}

	testCases := []struct {
		name      string
		precommit grandpa.Precommit
	}{
		{"commit block under another number", grandpa.Precommit{TargetHash: c.Hash(3), TargetNumber: 4}},
		{"descendant too high", grandpa.Precommit{TargetHash: c.Hash(5), TargetNumber: 6}},
		{"descendant too low", grandpa.Precommit{TargetHash: c.Hash(5), TargetNumber: 4}},
		{"descendant below the commit", grandpa.Precommit{TargetHash: c.Hash(5), TargetNumber: 2}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			j := c.Justify(t, 1, 3, 0, 1)
			j.Commit.Precommits = append(j.Commit.Precommits, sign(tc.precommit, 2))
			if tc.precommit.TargetHash != c.Hash(3) {
				j.VotesAncestries = []grandpa.Header{c.Headers[4], c.Headers[5]}
			}
			assert.ErrorIs(t, j.Verify(c.Host, set, target), grandpa.ErrInvalidVoteAncestry)
		})
	}
}
