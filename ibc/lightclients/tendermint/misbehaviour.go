package tendermint

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/types"
)

// Misbehaviour is a wrapper over two conflicting Headers that would both
// have been accepted by the light client.
type Misbehaviour struct {
	ClientID string
	Header1  *Header
	Header2  *Header
}

// NewMisbehaviour creates a new Misbehaviour instance.
func NewMisbehaviour(clientID string, header1, header2 *Header) *Misbehaviour {
	return &Misbehaviour{
		ClientID: clientID,
		Header1:  header1,
		Header2:  header2,
	}
}

// ClientType is Tendermint light client
func (Misbehaviour) ClientType() string {
	return ClientType
}

// GetTime returns the timestamp at which misbehaviour occurred. It uses the
// maximum value from both headers to prevent producing an invalid header outside
// of the misbehaviour age range.
func (misbehaviour Misbehaviour) GetTime() time.Time {
	t1, t2 := misbehaviour.Header1.GetTime(), misbehaviour.Header2.GetTime()
	if t1.After(t2) {
		return t1
	}
	return t2
}

// ValidateBasic implements Misbehaviour interface
func (misbehaviour Misbehaviour) ValidateBasic() error {
	if misbehaviour.Header1 == nil {
		return fmt.Errorf("%w: misbehaviour Header1 cannot be nil", ErrInvalidHeader)
	}
	if misbehaviour.Header2 == nil {
		return fmt.Errorf("%w: misbehaviour Header2 cannot be nil", ErrInvalidHeader)
	}
	if misbehaviour.Header1.TrustedHeight.RevisionHeight == 0 {
		return fmt.Errorf("%w: misbehaviour Header1 cannot have zero revision height", ErrInvalidHeaderHeight)
	}
	if misbehaviour.Header2.TrustedHeight.RevisionHeight == 0 {
		return fmt.Errorf("%w: misbehaviour Header2 cannot have zero revision height", ErrInvalidHeaderHeight)
	}
	if misbehaviour.Header1.TrustedValidators == nil {
		return fmt.Errorf("%w: trusted validator set for Header1 cannot be empty", ErrInvalidValidatorSet)
	}
	if misbehaviour.Header2.TrustedValidators == nil {
		return fmt.Errorf("%w: trusted validator set for Header2 cannot be empty", ErrInvalidValidatorSet)
	}
	if misbehaviour.Header1.Header.ChainID != misbehaviour.Header2.Header.ChainID {
		return fmt.Errorf("%w: headers must have identical chainIDs", ErrInvalidMisbehaviour)
	}
	if misbehaviour.ClientID == "" {
		return fmt.Errorf("%w: empty client id", ErrInvalidMisbehaviour)
	}

	// ValidateBasic on both validators
	if err := misbehaviour.Header1.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: header 1 failed validation: %v", ErrInvalidMisbehaviour, err)
	}
	if err := misbehaviour.Header2.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: header 2 failed validation: %v", ErrInvalidMisbehaviour, err)
	}
	// Ensure that Height1 is greater than or equal to Height2
	if misbehaviour.Header1.GetHeight().LT(misbehaviour.Header2.GetHeight()) {
		return fmt.Errorf("%w: Header1 height is less than Header2 height (%s < %s)",
			ErrInvalidMisbehaviour, misbehaviour.Header1.GetHeight(), misbehaviour.Header2.GetHeight())
	}

	if err := validCommit(misbehaviour.Header1); err != nil {
		return err
	}
	return validCommit(misbehaviour.Header2)
}

// validCommit checks if the given commit is a valid commit from the passed-in validatorset
func validCommit(h *Header) error {
	if err := types.VerifyCommitLight(h.Header.ChainID, h.ValidatorSet, h.Commit.BlockID, h.Header.Height, h.Commit); err != nil {
		return fmt.Errorf("%w: validator set did not commit to header: %w", ErrInvalidMisbehaviour, err)
	}
	return nil
}

// CheckMisbehaviourAndUpdateState determines whether or not two conflicting
// headers at the same height would have convinced the light client, or
// whether two headers break BFT time monotonicity. If so, it returns the
// client state frozen at FrozenHeight.
//
// NOTE: consensus states older than the trusting period are not usable: the
// headers' trusted consensus states must be within it.
func (cs ClientState) CheckMisbehaviourAndUpdateState(
	store ConsensusStore,
	now time.Time,
	misbehaviour *Misbehaviour,
) (*ClientState, error) {
	if cs.IsFrozen() {
		return nil, fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if err := misbehaviour.ValidateBasic(); err != nil {
		return nil, err
	}

	// if heights are equal check that this is valid misbehaviour of a fork
	// otherwise if heights are unequal check that this is valid misbehavior of BFT time violation
	if misbehaviour.Header1.GetHeight().EQ(misbehaviour.Header2.GetHeight()) {
		blockID1 := misbehaviour.Header1.Commit.BlockID
		blockID2 := misbehaviour.Header2.Commit.BlockID

		// Ensure that Commit Hashes are different
		if bytes.Equal(blockID1.Hash, blockID2.Hash) {
			return nil, fmt.Errorf("%w: headers block hashes are equal", ErrInvalidMisbehaviour)
		}
	} else if misbehaviour.Header1.GetTime().After(misbehaviour.Header2.GetTime()) {
		// Header1 is at greater height than Header2, therefore Header1 time must be less than or equal to
		// Header2 time in order to be valid misbehaviour (violation of monotonic time).
		return nil, fmt.Errorf("%w: headers are not at same height and are monotonically increasing", ErrInvalidMisbehaviour)
	}

	// Regardless of the type of misbehaviour, ensure that both headers are valid and would have been accepted by light-client

	// Retrieve trusted consensus states for each Header in misbehaviour
	consState1, err := store.ConsensusState(misbehaviour.Header1.TrustedHeight)
	if err != nil {
		return nil, fmt.Errorf("could not get trusted consensus state from store for Header1 at TrustedHeight %s: %w",
			misbehaviour.Header1.TrustedHeight, err)
	}
	consState2, err := store.ConsensusState(misbehaviour.Header2.TrustedHeight)
	if err != nil {
		return nil, fmt.Errorf("could not get trusted consensus state from store for Header2 at TrustedHeight %s: %w",
			misbehaviour.Header2.TrustedHeight, err)
	}

	// Check the validity of the two conflicting headers against their respective
	// trusted consensus states
	if err := checkMisbehaviourHeader(&cs, consState1, misbehaviour.Header1, now); err != nil {
		return nil, fmt.Errorf("verifying Header1 in Misbehaviour failed: %w", err)
	}
	if err := checkMisbehaviourHeader(&cs, consState2, misbehaviour.Header2, now); err != nil {
		return nil, fmt.Errorf("verifying Header2 in Misbehaviour failed: %w", err)
	}

	cs.FrozenHeight = ibc.FrozenHeight
	return &cs, nil
}

// checkMisbehaviourHeader checks that a Header in Misbehaviour is valid misbehaviour given
// a trusted ConsensusState
func checkMisbehaviourHeader(
	clientState *ClientState, consState *ConsensusState, header *Header, currentTimestamp time.Time,
) error {
	// check the trusted fields for the header against ConsensusState
	if err := checkTrustedHeader(header, consState); err != nil {
		return err
	}

	// assert that the age of the trusted consensus state is not older than the trusting period
	if currentTimestamp.Sub(consState.Timestamp) >= clientState.TrustingPeriod {
		return fmt.Errorf("%w: current timestamp minus the latest consensus state timestamp is greater than or equal to the trusting period (%s >= %s)",
			ErrTrustingPeriodExpired, currentTimestamp.Sub(consState.Timestamp), clientState.TrustingPeriod)
	}

	chainID := revisionChainID(clientState.ChainID, header.GetHeight())

	// - ValidatorSet must have TrustLevel similarity with trusted FromValidatorSet
	// - ValidatorSets on both headers are valid given the last trusted ValidatorSet
	if err := types.VerifyCommitLightTrusting(chainID, header.TrustedValidators, header.Commit, clientState.TrustLevel); err != nil {
		return fmt.Errorf("validator set in header has too much change from trusted validator set: %w", err)
	}
	return nil
}
