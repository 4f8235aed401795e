package light

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	tmmath "github.com/lightibc/lightibc/libs/math"
	"github.com/lightibc/lightibc/types"
)

// DefaultTrustLevel is the fraction of a trusted validator set that must sign
// a non-adjacent header: at least one correct validator.
var DefaultTrustLevel = types.DefaultTrustLevel

// VerifyNonAdjacent moves trust from trustedHeader (height X) to
// untrustedHeader (height Y > X+1).
//
// The trusted header must still be inside its trusting period and
// untrustedHeader must be well formed, newer and not from the future
// (beyond maxClockDrift). trustedNextVals, which must hash to the trusted
// header's NextValidatorsHash, must have signed the new header with at least
// trustLevel of their power; otherwise ErrNewValSetCantBeTrusted is returned
// and the caller is expected to bisect. Finally more than 2/3 of
// untrustedVals must have signed it.
func VerifyNonAdjacent(
	trustedHeader *types.SignedHeader, // height=X
	trustedNextVals *types.ValidatorSet, // height=X+1
	untrustedHeader *types.SignedHeader, // height=Y
	untrustedVals *types.ValidatorSet, // height=Y
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration,
	trustLevel tmmath.Fraction) error {

	if untrustedHeader.Height == trustedHeader.Height+1 {
		return ErrInvalidHeader{errNonAdjacent}
	}
	if err := checkTransition(trustedHeader, untrustedHeader, untrustedVals,
		trustingPeriod, now, maxClockDrift); err != nil {
		return err
	}

	if !bytes.Equal(trustedNextVals.Hash(), trustedHeader.NextValidatorsHash) {
		return fmt.Errorf("%w: trusted next validators (%X) do not match the trusted header (%X)",
			ibc.ErrAuthoritySetMismatch, trustedNextVals.Hash(), trustedHeader.NextValidatorsHash)
	}

	err := types.VerifyCommitLightTrusting(trustedHeader.ChainID, trustedNextVals, untrustedHeader.Commit, trustLevel)
	var notEnough types.ErrNotEnoughVotingPowerSigned
	switch {
	case errors.As(err, &notEnough):
		return ErrNewValSetCantBeTrusted{notEnough}
	case err != nil:
		return err
	}

	// Last, because untrustedVals is attacker sized.
	return verifyQuorum(trustedHeader.ChainID, untrustedHeader, untrustedVals)
}

// VerifyAdjacent moves trust from trustedHeader (height X) to
// untrustedHeader (height X+1). Besides the checks shared with
// VerifyNonAdjacent, the new header's validators must be the ones the trusted
// header committed to as its next validators.
func VerifyAdjacent(
	trustedHeader *types.SignedHeader, // height=X
	untrustedHeader *types.SignedHeader, // height=X+1
	untrustedVals *types.ValidatorSet, // height=X+1
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration) error {

	if untrustedHeader.Height != trustedHeader.Height+1 {
		return ErrInvalidHeader{errAdjacent}
	}
	if err := checkTransition(trustedHeader, untrustedHeader, untrustedVals,
		trustingPeriod, now, maxClockDrift); err != nil {
		return err
	}

	if !bytes.Equal(untrustedHeader.ValidatorsHash, trustedHeader.NextValidatorsHash) {
		return fmt.Errorf("%w: expected old header next validators (%X) to match those from new header (%X)",
			ibc.ErrAuthoritySetMismatch,
			trustedHeader.NextValidatorsHash,
			untrustedHeader.ValidatorsHash,
		)
	}

	return verifyQuorum(trustedHeader.ChainID, untrustedHeader, untrustedVals)
}

// Verify dispatches to VerifyAdjacent or VerifyNonAdjacent depending on the
// height gap.
func Verify(
	trustedHeader *types.SignedHeader, // height=X
	trustedNextVals *types.ValidatorSet, // height=X+1
	untrustedHeader *types.SignedHeader, // height=Y
	untrustedVals *types.ValidatorSet, // height=Y
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration,
	trustLevel tmmath.Fraction) error {

	if untrustedHeader.Height == trustedHeader.Height+1 {
		return VerifyAdjacent(trustedHeader, untrustedHeader, untrustedVals, trustingPeriod, now, maxClockDrift)
	}
	return VerifyNonAdjacent(trustedHeader, trustedNextVals, untrustedHeader, untrustedVals,
		trustingPeriod, now, maxClockDrift, trustLevel)
}

// checkTransition holds the checks both verification paths run before any
// signature is looked at.
func checkTransition(
	trusted, untrusted *types.SignedHeader,
	untrustedVals *types.ValidatorSet,
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration) error {

	if HeaderExpired(trusted, trustingPeriod, now) {
		return ErrOldHeaderExpired{trusted.Time.Add(trustingPeriod), now}
	}
	if err := checkNewHeader(untrusted, untrustedVals, trusted, now, maxClockDrift); err != nil {
		return ErrInvalidHeader{err}
	}
	return nil
}

func checkNewHeader(
	untrusted *types.SignedHeader,
	untrustedVals *types.ValidatorSet,
	trusted *types.SignedHeader,
	now time.Time,
	maxClockDrift time.Duration) error {

	if err := untrusted.ValidateBasic(trusted.ChainID); err != nil {
		return fmt.Errorf("%w: untrustedHeader.ValidateBasic failed: %w", ibc.ErrMalformedInput, err)
	}

	switch {
	case untrusted.Height <= trusted.Height:
		return fmt.Errorf("%w: expected new header height %d to be greater than one of old header %d",
			ibc.ErrStaleUpdate, untrusted.Height, trusted.Height)

	case !untrusted.Time.After(trusted.Time):
		return fmt.Errorf("%w: expected new header time %v to be after old header time %v",
			ibc.ErrStaleUpdate, untrusted.Time, trusted.Time)

	case !untrusted.Time.Before(now.Add(maxClockDrift)):
		return fmt.Errorf("%w: new header has a time from the future %v (now: %v; max clock drift: %v)",
			ibc.ErrClockFault, untrusted.Time, now, maxClockDrift)

	case untrustedVals.IsNilOrEmpty():
		return fmt.Errorf("%w: missing validators for new header", ibc.ErrMalformedInput)

	case !bytes.Equal(untrusted.ValidatorsHash, untrustedVals.Hash()):
		return fmt.Errorf("%w: expected new header validators (%X) to match those that were supplied (%X) at height %d",
			ibc.ErrMalformedInput, untrusted.ValidatorsHash, untrustedVals.Hash(), untrusted.Height)
	}
	return nil
}

// verifyQuorum requires more than 2/3 of vals to have signed header.
func verifyQuorum(chainID string, header *types.SignedHeader, vals *types.ValidatorSet) error {
	err := types.VerifyCommitLight(chainID, vals, header.Commit.BlockID, header.Height, header.Commit)
	if err != nil {
		return ErrInvalidHeader{err}
	}
	return nil
}

// ValidateTrustLevel rejects trust levels outside [1/3, 1]. Less than 1/3
// would let a header signed only by faulty validators through.
func ValidateTrustLevel(lvl tmmath.Fraction) error {
	if lvl.Denominator == 0 ||
		lvl.Numerator > lvl.Denominator ||
		lvl.Numerator*3 < lvl.Denominator {
		return fmt.Errorf("%w: trustLevel must be within [1/3, 1], given %v", ibc.ErrMalformedInput, lvl)
	}
	return nil
}

// HeaderExpired reports whether h is outside its trusting period at now.
func HeaderExpired(h *types.SignedHeader, trustingPeriod time.Duration, now time.Time) bool {
	return !h.Time.Add(trustingPeriod).After(now)
}

// VerifyBackwards checks that untrustedHeader is the parent of the trusted
// trustedHeader: same chain, older, and hashing to trustedHeader.LastBlockID.
func VerifyBackwards(untrustedHeader, trustedHeader *types.Header) error {
	if err := untrustedHeader.ValidateBasic(); err != nil {
		return ErrInvalidHeader{err}
	}

	if untrustedHeader.ChainID != trustedHeader.ChainID {
		return ErrInvalidHeader{errors.New("header belongs to another chain")}
	}

	if !untrustedHeader.Time.Before(trustedHeader.Time) {
		return ErrInvalidHeader{fmt.Errorf("%w: expected older header time %v to be before new header time %v",
			ibc.ErrStaleUpdate, untrustedHeader.Time, trustedHeader.Time)}
	}

	if hash := untrustedHeader.Hash(); !bytes.Equal(hash, trustedHeader.LastBlockID.Hash) {
		return ErrInvalidHeader{fmt.Errorf("%w: older header hash %X does not match trusted header's last block %X",
			ibc.ErrProofVerificationFailure, hash, trustedHeader.LastBlockID.Hash)}
	}

	return nil
}
