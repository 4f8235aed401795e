package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
	"github.com/lightibc/lightibc/types"
)

// SignHeader signs the header with the keys from first to last exclusive.
// Validators of valSet without a signing key in that range are absent.
func (pkz PrivKeys) SignHeader(t testing.TB, header *types.Header, valSet *types.ValidatorSet, first, last int) *types.Commit {
	t.Helper()

	commitSigs := make([]types.CommitSig, valSet.Size())
	for i := range commitSigs {
		commitSigs[i] = types.NewCommitSigAbsent()
	}

	blockID := types.BlockID{
		Hash:          header.Hash(),
		PartSetHeader: types.PartSetHeader{Total: 1, Hash: crypto.Checksum(header.Hash())},
	}

	// Fill in the votes we want.
	for i := first; i < last && i < len(pkz); i++ {
		vote := MakeVote(t, header, valSet, pkz[i], blockID)
		if vote.ValidatorIndex < 0 {
			continue
		}
		commitSigs[vote.ValidatorIndex] = types.NewCommitSigForBlock(vote.Signature, vote.ValidatorAddress, vote.Timestamp)
	}

	return types.NewCommit(header.Height, 1, blockID, commitSigs)
}

// MakeVote returns a precommit for blockID signed by key. ValidatorIndex is
// -1 when key is not part of valSet.
func MakeVote(t testing.TB, header *types.Header, valSet *types.ValidatorSet, key crypto.PrivKey, blockID types.BlockID) *types.Vote {
	t.Helper()

	addr := key.PubKey().Address()
	idx, _ := valSet.GetByAddress(addr)
	vote := &types.Vote{
		ValidatorAddress: addr,
		ValidatorIndex:   idx,
		Height:           header.Height,
		Round:            1,
		Timestamp:        header.Time.Add(time.Second),
		Type:             tmproto.PrecommitType,
		BlockID:          blockID,
	}

	sig, err := key.Sign(types.VoteSignBytes(header.ChainID, vote))
	require.NoError(t, err)
	vote.Signature = sig

	return vote
}
