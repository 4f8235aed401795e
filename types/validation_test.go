package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lightibc/lightibc/crypto/ed25519"
	"github.com/lightibc/lightibc/ibc"
	tmmath "github.com/lightibc/lightibc/libs/math"
)

var testTime = time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)

func TestVerifyCommitLightEqualPowers(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10, 10)
	blockID := makeBlockID("block")
	require.EqualValues(t, 40, vals.TotalVotingPower())

	testCases := []struct {
		name    string
		signers func(int) bool
		expErr  bool
	}{
		{"all four sign", allSign, false},
		{"three of four sign", signers(0, 1, 3), false},
		{"two of four sign", signers(1, 2), true},
		{"one signs", signers(0), true},
		{"nobody signs", signers(), true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			commit := makeCommit(t, blockID, 5, vals, privs, testTime, tc.signers)
			err := VerifyCommitLight(testChainID, vals, blockID, 5, commit)
			if tc.expErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ibc.ErrThresholdNotMet), err)
				var powerErr ErrNotEnoughVotingPowerSigned
				require.True(t, errors.As(err, &powerErr))
				assert.EqualValues(t, 40, powerErr.Total)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVerifyCommitLightInvalidSignatureNotCounted(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10, 10)
	blockID := makeBlockID("block")

	// three signatures, one of them garbage: only 20 of 40 is valid
	commit := makeCommit(t, blockID, 5, vals, privs, testTime, signers(0, 1, 2))
	commit.Signatures[2].Signature[0] ^= 0xff

	err := VerifyCommitLight(testChainID, vals, blockID, 5, commit)
	var powerErr ErrNotEnoughVotingPowerSigned
	require.True(t, errors.As(err, &powerErr), err)
	assert.EqualValues(t, 20, powerErr.Got)
	assert.Equal(t, 1, powerErr.Invalid)

	// a fourth valid signature tips it back over
	commit = makeCommit(t, blockID, 5, vals, privs, testTime, allSign)
	commit.Signatures[2].Signature[0] ^= 0xff
	require.NoError(t, VerifyCommitLight(testChainID, vals, blockID, 5, commit))
}

func TestVerifyCommitLightDescendingPower(t *testing.T) {
	// the heaviest validator alone holds more than 2/3
	vals, privs := deterministicValidatorSet(t, 1, 100, 1, 1)
	blockID := makeBlockID("block")

	require.EqualValues(t, 100, vals.Validators[0].VotingPower)
	commit := makeCommit(t, blockID, 5, vals, privs, testTime, signers(0))
	require.NoError(t, VerifyCommitLight(testChainID, vals, blockID, 5, commit))

	commit = makeCommit(t, blockID, 5, vals, privs, testTime, signers(1, 2, 3))
	require.Error(t, VerifyCommitLight(testChainID, vals, blockID, 5, commit))
}

func TestVerifyCommitLightMalformed(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10)
	blockID := makeBlockID("block")
	commit := makeCommit(t, blockID, 5, vals, privs, testTime, allSign)

	testCases := []struct {
		name   string
		vals   *ValidatorSet
		id     BlockID
		height int64
		commit *Commit
	}{
		{"nil validator set", nil, blockID, 5, commit},
		{"nil commit", vals, blockID, 5, nil},
		{"wrong height", vals, blockID, 6, commit},
		{"wrong block id", vals, makeBlockID("other"), 5, commit},
		{"wrong set size", vals, blockID, 5, NewCommit(5, 1, blockID, commit.Signatures[:2])},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := VerifyCommitLight(testChainID, tc.vals, tc.id, tc.height, tc.commit)
			require.Error(t, err)
			assert.Equal(t, ibc.KindMalformedInput, ibc.KindOf(err), err)
		})
	}
}

func TestVerifyCommitLightTrusting(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10, 10)
	blockID := makeBlockID("block")

	// a trusted set that shares two of the four validators plus one stranger
	stranger := ed25519.GenPrivKeyFromSecret([]byte("stranger"))
	trusted, err := NewValidatorSet([]*Validator{
		vals.Validators[0].Copy(),
		vals.Validators[1].Copy(),
		NewValidator(stranger.PubKey(), 30),
	})
	require.NoError(t, err)

	commit := makeCommit(t, blockID, 5, vals, privs, testTime, allSign)

	// 20 of 50 trusted power signed: enough for 1/3, not for 1/2
	require.NoError(t, VerifyCommitLightTrusting(testChainID, trusted, commit, DefaultTrustLevel))
	err = VerifyCommitLightTrusting(testChainID, trusted, commit, tmmath.Fraction{Numerator: 1, Denominator: 2})
	assert.True(t, errors.Is(err, ibc.ErrThresholdNotMet), err)

	// unknown validators are skipped, not rejected
	onlyStrangers, err := NewValidatorSet([]*Validator{NewValidator(stranger.PubKey(), 30)})
	require.NoError(t, err)
	err = VerifyCommitLightTrusting(testChainID, onlyStrangers, commit, DefaultTrustLevel)
	var powerErr ErrNotEnoughVotingPowerSigned
	require.True(t, errors.As(err, &powerErr), err)
	assert.EqualValues(t, 0, powerErr.Got)

	err = VerifyCommitLightTrusting(testChainID, trusted, commit, tmmath.Fraction{Numerator: 1})
	assert.Equal(t, ibc.KindMalformedInput, ibc.KindOf(err))
}

func TestVerifyCommitLightTrustingDoubleVote(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10, 10)
	blockID := makeBlockID("block")
	commit := makeCommit(t, blockID, 5, vals, privs, testTime, allSign)

	commit.Signatures[3] = commit.Signatures[0]
	err := VerifyCommitLightTrusting(testChainID, vals, commit, DefaultTrustLevel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double vote")
}

// The threshold accepts exactly when three times the valid signed power
// exceeds twice the total.
func TestVerifyCommitLightThresholdProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 7).Draw(t, "n").(int)
		powers := make([]int64, n)
		for i := range powers {
			powers[i] = rapid.Int64Range(1, 1000).Draw(t, "power").(int64)
		}
		signed := make([]bool, n)
		for i := range signed {
			signed[i] = rapid.Bool().Draw(t, "signed").(bool)
		}

		vals, privs := deterministicValidatorSet(t, powers...)
		blockID := makeBlockID("block")
		commit := makeCommit(t, blockID, 9, vals, privs, testTime, func(idx int) bool { return signed[idx] })

		var p int64
		for idx, val := range vals.Validators {
			if signed[idx] {
				p += val.VotingPower
			}
		}
		want := 3*p > 2*vals.TotalVotingPower()

		err := VerifyCommitLight(testChainID, vals, blockID, 9, commit)
		if want && err != nil {
			t.Fatalf("expected acceptance of %d/%d: %v", p, vals.TotalVotingPower(), err)
		}
		if !want && !errors.Is(err, ibc.ErrThresholdNotMet) {
			t.Fatalf("expected threshold failure for %d/%d, got %v", p, vals.TotalVotingPower(), err)
		}
	})
}
