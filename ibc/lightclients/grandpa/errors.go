package grandpa

import (
	"fmt"

	"github.com/lightibc/lightibc/ibc"
)

var (
	// ErrTargetHeaderNotFound is returned when the finalized block of a
	// finality proof is not among its unknown headers.
	ErrTargetHeaderNotFound = fmt.Errorf("%w: target header not found in unknown headers", ibc.ErrTargetNotFound)
	// ErrNoAncestry is returned when the supplied headers do not link two
	// blocks.
	ErrNoAncestry = fmt.Errorf("%w: no ancestry between blocks", ibc.ErrTargetNotFound)
	// ErrRelayHeaderNotFinalized is returned for parachain header proofs
	// anchored at relay blocks outside the newly finalized range.
	ErrRelayHeaderNotFinalized = fmt.Errorf("%w: relay header is not part of the finalized chain", ibc.ErrTargetNotFound)
	ErrConsensusStateNotFound  = fmt.Errorf("%w: consensus state not found", ibc.ErrTargetNotFound)
	ErrProofHeightTooHigh      = fmt.Errorf("%w: proof height is above the client's latest height", ibc.ErrTargetNotFound)

	ErrInvalidJustification  = fmt.Errorf("%w: invalid justification", ibc.ErrMalformedInput)
	ErrInvalidHeader         = fmt.Errorf("%w: invalid header", ibc.ErrMalformedInput)
	ErrInvalidClientState    = fmt.Errorf("%w: invalid client state", ibc.ErrMalformedInput)
	ErrInvalidConsensusState = fmt.Errorf("%w: invalid consensus state", ibc.ErrMalformedInput)
	ErrTooManyUnknownHeaders = fmt.Errorf("%w: too many unknown headers", ibc.ErrMalformedInput)
	ErrInvalidTimestamp      = fmt.Errorf("%w: invalid timestamp extrinsic", ibc.ErrMalformedInput)

	ErrJustificationTarget = fmt.Errorf("%w: justification does not finalize the proven block", ibc.ErrProofVerificationFailure)
	ErrInvalidSignature    = fmt.Errorf("%w: invalid precommit signature", ibc.ErrProofVerificationFailure)
	ErrInvalidVoteAncestry = fmt.Errorf("%w: invalid precommit ancestry", ibc.ErrProofVerificationFailure)
	ErrParachainHeadProof  = fmt.Errorf("%w: invalid parachain head proof", ibc.ErrProofVerificationFailure)
	ErrExtrinsicProof      = fmt.Errorf("%w: invalid timestamp extrinsic proof", ibc.ErrProofVerificationFailure)

	ErrUnknownAuthority = fmt.Errorf("%w: precommit signed by a non-authority", ibc.ErrAuthoritySetMismatch)
	ErrEmptyAuthorities = fmt.Errorf("%w: authority set has no weight", ibc.ErrAuthoritySetMismatch)
)

// ErrInsufficientWeight is returned when the distinct authorities that
// precommitted do not carry more than two thirds of the set's weight.
type ErrInsufficientWeight struct {
	Got   uint64
	Total uint64
}

func (e ErrInsufficientWeight) Error() string {
	return fmt.Sprintf("justification carries weight %d of %d, need more than 2/3", e.Got, e.Total)
}

func (e ErrInsufficientWeight) Unwrap() error { return ibc.ErrThresholdNotMet }
