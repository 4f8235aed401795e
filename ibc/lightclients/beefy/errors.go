package beefy

import (
	"fmt"

	"github.com/lightibc/lightibc/ibc"
)

var (
	ErrInvalidHeader         = fmt.Errorf("%w: invalid header", ibc.ErrMalformedInput)
	ErrInvalidClientState    = fmt.Errorf("%w: invalid client state", ibc.ErrMalformedInput)
	ErrInvalidConsensusState = fmt.Errorf("%w: invalid consensus state", ibc.ErrMalformedInput)
	// ErrMmrRootHashNotFound is returned when a commitment payload carries
	// no MMR root.
	ErrMmrRootHashNotFound = fmt.Errorf("%w: mmr root hash not found in commitment payload", ibc.ErrMalformedInput)
	ErrInvalidLeafIndex    = fmt.Errorf("%w: invalid mmr leaf index", ibc.ErrMalformedInput)
	ErrDuplicateSignature  = fmt.Errorf("%w: duplicate authority signature", ibc.ErrMalformedInput)
	ErrUnknownParachain    = fmt.Errorf("%w: header of another parachain", ibc.ErrMalformedInput)

	// ErrOutdatedCommitment is returned when a commitment does not advance
	// the latest BEEFY height.
	ErrOutdatedCommitment = fmt.Errorf("%w: outdated commitment", ibc.ErrStaleUpdate)

	ErrAuthoritySetMismatch = fmt.Errorf("%w: commitment signed by an unexpected authority set", ibc.ErrAuthoritySetMismatch)
	ErrAuthorityProof       = fmt.Errorf("%w: signer is not in the authority set", ibc.ErrAuthoritySetMismatch)

	ErrInvalidSignature    = fmt.Errorf("%w: invalid commitment signature", ibc.ErrProofVerificationFailure)
	ErrMmrLeafProof        = fmt.Errorf("%w: invalid mmr leaf proof", ibc.ErrProofVerificationFailure)
	ErrParachainHeadsProof = fmt.Errorf("%w: invalid parachain heads proof", ibc.ErrProofVerificationFailure)
	ErrExtrinsicProof      = fmt.Errorf("%w: invalid timestamp extrinsic proof", ibc.ErrProofVerificationFailure)

	ErrConsensusStateNotFound = fmt.Errorf("%w: consensus state not found", ibc.ErrTargetNotFound)
	ErrProofHeightTooHigh     = fmt.Errorf("%w: proof height is above the client's latest height", ibc.ErrTargetNotFound)
	ErrRelayBlockNotCommitted = fmt.Errorf("%w: relay block is not committed to by the mmr root", ibc.ErrTargetNotFound)
)

// ErrNotEnoughSignatures is returned when fewer than two thirds plus one of
// the authorities signed a commitment.
type ErrNotEnoughSignatures struct {
	Got   int
	Total uint32
}

func (e ErrNotEnoughSignatures) Error() string {
	return fmt.Sprintf("commitment signed by %d of %d authorities, need more than 2/3", e.Got, e.Total)
}

func (e ErrNotEnoughSignatures) Unwrap() error { return ibc.ErrThresholdNotMet }
