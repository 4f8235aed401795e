package tendermint

import (
	"fmt"

	"github.com/lightibc/lightibc/ibc"
)

// IBC tendermint client sentinel errors
var (
	ErrInvalidChainID         = fmt.Errorf("%w: invalid chain-id", ibc.ErrMalformedInput)
	ErrInvalidTrustingPeriod  = fmt.Errorf("%w: invalid trusting period", ibc.ErrMalformedInput)
	ErrInvalidUnbondingPeriod = fmt.Errorf("%w: invalid unbonding period", ibc.ErrMalformedInput)
	ErrInvalidHeaderHeight    = fmt.Errorf("%w: invalid header height", ibc.ErrMalformedInput)
	ErrInvalidHeader          = fmt.Errorf("%w: invalid header", ibc.ErrMalformedInput)
	ErrInvalidMaxClockDrift   = fmt.Errorf("%w: invalid max clock drift", ibc.ErrMalformedInput)
	ErrInvalidProofSpecs      = fmt.Errorf("%w: invalid proof specs", ibc.ErrMalformedInput)
	ErrInvalidMisbehaviour    = fmt.Errorf("%w: invalid misbehaviour", ibc.ErrMalformedInput)
	ErrInvalidConsensusState  = fmt.Errorf("%w: invalid consensus state", ibc.ErrMalformedInput)
	ErrInvalidValidatorSet    = fmt.Errorf("%w: invalid validator set", ibc.ErrAuthoritySetMismatch)
	ErrTrustingPeriodExpired  = fmt.Errorf("%w: time since latest trusted state has passed the trusting period", ibc.ErrClockFault)
	ErrProofHeightTooHigh     = fmt.Errorf("%w: proof height is above the client's latest height", ibc.ErrTargetNotFound)
	// ErrConsensusStateNotFound is returned by a ConsensusStore without a
	// consensus state at the requested height.
	ErrConsensusStateNotFound = fmt.Errorf("%w: consensus state not found", ibc.ErrTargetNotFound)
)
