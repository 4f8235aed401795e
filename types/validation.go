package types

import (
	"fmt"
	"sort"

	"github.com/lightibc/lightibc/crypto/ed25519"
	"github.com/lightibc/lightibc/ibc"
	tmmath "github.com/lightibc/lightibc/libs/math"
)

// DefaultTrustLevel is the fraction of a trusted validator set that must have
// signed a header for a non-adjacent update to be accepted.
var DefaultTrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 3}

// commitTrustLevel is the fraction of the signing set a commit needs: the
// tally P over total T must satisfy 3P > 2T.
var commitTrustLevel = tmmath.Fraction{Numerator: 2, Denominator: 3}

// VerifyCommitLight verifies +2/3 of the set had signed the given commit.
//
// This method is primarily used by the light client and does not check all
// the signatures. Signatures are tallied in descending order of voting power
// and verification stops as soon as the threshold is crossed.
func VerifyCommitLight(chainID string, vals *ValidatorSet, blockID BlockID,
	height int64, commit *Commit) error {
	if vals.IsNilOrEmpty() {
		return fmt.Errorf("%w: nil or empty validator set", ibc.ErrMalformedInput)
	}

	if commit == nil {
		return fmt.Errorf("%w: nil commit", ibc.ErrMalformedInput)
	}

	if vals.Size() != len(commit.Signatures) {
		return NewErrInvalidCommitSignatures(vals.Size(), len(commit.Signatures))
	}

	// Validate Height and BlockID.
	if height != commit.Height {
		return NewErrInvalidCommitHeight(height, commit.Height)
	}
	if !blockID.Equals(commit.BlockID) {
		return fmt.Errorf("%w: invalid commit -- wrong block ID: want %v, got %v",
			ibc.ErrMalformedInput, blockID, commit.BlockID)
	}

	return verifyCommit(chainID, vals, commit, commitTrustLevel, true)
}

// VerifyCommitLightTrusting verifies that trustLevel of the validator set signed
// this commit.
//
// NOTE the given validators do not necessarily correspond to the validator set
// for this commit, but there may be some intersection. Signatures from
// validators outside of vals are skipped.
//
// This method is primarily used by the light client and does not check all
// the signatures.
func VerifyCommitLightTrusting(chainID string, vals *ValidatorSet, commit *Commit, trustLevel tmmath.Fraction) error {
	// sanity checks
	if vals.IsNilOrEmpty() {
		return fmt.Errorf("%w: nil or empty validator set", ibc.ErrMalformedInput)
	}
	if commit == nil {
		return fmt.Errorf("%w: nil commit", ibc.ErrMalformedInput)
	}
	if trustLevel.Denominator == 0 {
		return fmt.Errorf("%w: trustLevel has zero Denominator", ibc.ErrMalformedInput)
	}

	return verifyCommit(chainID, vals, commit, trustLevel, false)
}

// tallyEntry is a commit signature attributed to a validator of the set.
type tallyEntry struct {
	val    *Validator
	sigIdx int32
}

// verifyCommit tallies the voting power of valid signatures for the block,
// heaviest validators first, until trustLevel of the total power of vals is
// exceeded. When lookUpByIndex is set, commit signatures and vals correspond
// one to one; otherwise signers are looked up by address and unknown ones are
// skipped.
//
// The smallest prefix that could cross the threshold is batch verified first.
// If the batch fails every signature is checked on its own and the invalid
// ones are left out of the tally.
func verifyCommit(
	chainID string,
	vals *ValidatorSet,
	commit *Commit,
	trustLevel tmmath.Fraction,
	lookUpByIndex bool,
) error {
	total := vals.TotalVotingPower()
	if total <= 0 {
		return fmt.Errorf("%w: validator set has no voting power", ibc.ErrMalformedInput)
	}

	entries, err := commitEntries(vals, commit, lookUpByIndex)
	if err != nil {
		return err
	}

	var claimed int64
	prefix := -1
	for i, e := range entries {
		claimed += e.val.VotingPower
		if trustLevel.Exceeds(uint64(claimed), uint64(total)) {
			prefix = i + 1
			break
		}
	}
	if prefix < 0 {
		return ErrNotEnoughVotingPowerSigned{Got: claimed, Total: total}
	}

	signBytes := make([][]byte, len(entries))
	signBytesAt := func(i int) []byte {
		if signBytes[i] == nil {
			signBytes[i] = commit.VoteSignBytes(chainID, entries[i].sigIdx)
		}
		return signBytes[i]
	}

	if prefix > 1 && batchVerify(commit, entries[:prefix], signBytesAt) {
		return nil
	}

	var (
		tallied int64
		invalid int
	)
	for i, e := range entries {
		sig := commit.Signatures[e.sigIdx].Signature
		if !e.val.PubKey.VerifySignature(signBytesAt(i), sig) {
			invalid++
			continue
		}
		tallied += e.val.VotingPower
		if trustLevel.Exceeds(uint64(tallied), uint64(total)) {
			return nil
		}
	}

	return ErrNotEnoughVotingPowerSigned{Got: tallied, Total: total, Invalid: invalid}
}

// commitEntries pairs every signature for the block with its validator and
// orders the pairs by voting power, heaviest first.
func commitEntries(vals *ValidatorSet, commit *Commit, lookUpByIndex bool) ([]tallyEntry, error) {
	var (
		entries  = make([]tallyEntry, 0, len(commit.Signatures))
		seenVals = make(map[int32]int, len(commit.Signatures))
	)
	for idx, commitSig := range commit.Signatures {
		// nil votes and absent validators do not count towards the block
		if !commitSig.ForBlock() {
			continue
		}

		var val *Validator
		if lookUpByIndex {
			val = vals.Validators[idx]
		} else {
			var valIdx int32
			valIdx, val = vals.GetByAddress(commitSig.ValidatorAddress)
			if val == nil {
				continue
			}
			// check if this validator has already voted
			if firstIndex, ok := seenVals[valIdx]; ok {
				secondIndex := idx
				return nil, fmt.Errorf("%w: double vote from %v (%d and %d)",
					ibc.ErrMalformedInput, val, firstIndex, secondIndex)
			}
			seenVals[valIdx] = idx
		}
		if val == nil || val.PubKey == nil {
			return nil, fmt.Errorf("%w: validator #%d has no public key", ibc.ErrMalformedInput, idx)
		}

		entries = append(entries, tallyEntry{val: val, sigIdx: int32(idx)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].val.VotingPower > entries[j].val.VotingPower
	})
	return entries, nil
}

func batchVerify(commit *Commit, entries []tallyEntry, signBytesAt func(int) []byte) bool {
	bv := ed25519.NewBatchVerifier()
	for i, e := range entries {
		if err := bv.Add(e.val.PubKey, signBytesAt(i), commit.Signatures[e.sigIdx].Signature); err != nil {
			return false
		}
	}
	ok, _ := bv.Verify()
	return ok
}
