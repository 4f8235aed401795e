package types

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto/ed25519"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

const testChainID = "test-chain"

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// deterministicValidatorSet returns a set with the given powers and the keys
// of its members, indexed like vals.Validators.
func deterministicValidatorSet(t testingT, powers ...int64) (*ValidatorSet, []ed25519.PrivKey) {
	t.Helper()

	keys := make(map[string]ed25519.PrivKey, len(powers))
	valz := make([]*Validator, len(powers))
	for i, power := range powers {
		priv := ed25519.GenPrivKeyFromSecret([]byte(fmt.Sprintf("validator-%d", i)))
		val := NewValidator(priv.PubKey(), power)
		keys[string(val.Address)] = priv
		valz[i] = val
	}
	vals, err := NewValidatorSet(valz)
	require.NoError(t, err)

	privs := make([]ed25519.PrivKey, vals.Size())
	for i, val := range vals.Validators {
		privs[i] = keys[string(val.Address)]
	}
	return vals, privs
}

func makeBlockID(seed string) BlockID {
	hash := sha256.Sum256([]byte(seed))
	partsHash := sha256.Sum256([]byte(seed + "/parts"))
	return BlockID{
		Hash:          hash[:],
		PartSetHeader: PartSetHeader{Total: 1, Hash: partsHash[:]},
	}
}

// makeCommit builds a commit for blockID in which the validators selected by
// signs voted for the block. The rest are absent.
func makeCommit(
	t testingT,
	blockID BlockID,
	height int64,
	vals *ValidatorSet,
	privs []ed25519.PrivKey,
	now time.Time,
	signs func(idx int) bool,
) *Commit {
	t.Helper()

	sigs := make([]CommitSig, vals.Size())
	for idx, val := range vals.Validators {
		if !signs(idx) {
			sigs[idx] = NewCommitSigAbsent()
			continue
		}
		vote := &Vote{
			Type:             tmproto.PrecommitType,
			Height:           height,
			Round:            1,
			BlockID:          blockID,
			Timestamp:        now,
			ValidatorAddress: val.Address,
			ValidatorIndex:   int32(idx),
		}
		sig, err := privs[idx].Sign(VoteSignBytes(testChainID, vote))
		require.NoError(t, err)
		sigs[idx] = NewCommitSigForBlock(sig, val.Address, now)
	}
	return NewCommit(height, 1, blockID, sigs)
}

func signers(idxs ...int) func(int) bool {
	set := make(map[int]bool, len(idxs))
	for _, idx := range idxs {
		set[idx] = true
	}
	return func(idx int) bool { return set[idx] }
}

func allSign(int) bool { return true }
