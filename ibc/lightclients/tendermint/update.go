package tendermint

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/light"
	"github.com/lightibc/lightibc/types"
)

// ConsensusStore reads the consensus states stored for one client. Lookups
// without a match return an error wrapping ErrConsensusStateNotFound.
type ConsensusStore interface {
	ConsensusState(height ibc.Height) (*ConsensusState, error)
	// PreviousConsensusState returns the consensus state at the highest
	// height below height.
	PreviousConsensusState(height ibc.Height) (*ConsensusState, error)
	// NextConsensusState returns the consensus state at the lowest height
	// above height.
	NextConsensusState(height ibc.Height) (*ConsensusState, error)
}

// CheckHeaderAndUpdateState checks if the provided header is valid, and if valid it will:
// create the consensus state for the header.Height
// and update the client state if the header height is greater than the latest client state height
// It returns an error if:
// - the client or header provided are not parseable to tendermint types
// - the header is invalid
// - header height is less than or equal to the trusted header height
// - header revision is not equal to trusted header revision
// - header valset commit verification fails
// - header timestamp is past the trusting period in relation to the consensus state
// - header timestamp is less than or equal to the consensus state timestamp
//
// UpdateClient may be used to either create a consensus state for:
// - a future height greater than the latest client state height
// - a past height that was skipped during bisection
// If we are updating to a past height, a consensus state is created for that height to be persisted in client store
// If we are updating to a future height, the consensus state is created and the client state is updated to reflect
// the new latest height
// UpdateClient must only be used to update within a single revision, thus header revision number and trusted height's revision
// number must be the same. To update to a new revision, use a separate upgrade path
//
// Misbehaviour is detected on the way: a valid header conflicting with a
// stored consensus state, or breaking the time monotonicity of its stored
// neighbours, returns the client state frozen at ibc.FrozenHeight.
//
// The receiver is not modified; callers persist the returned states.
func (cs ClientState) CheckHeaderAndUpdateState(
	store ConsensusStore, now time.Time, header *Header,
) (*ClientState, *ConsensusState, error) {
	if cs.IsFrozen() {
		return nil, nil, fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if header == nil {
		return nil, nil, fmt.Errorf("%w: nil header", ErrInvalidHeader)
	}
	if err := header.ValidateBasic(); err != nil {
		return nil, nil, err
	}

	// Check if the Client store already has a consensus state for the header's height
	// If the consensus state exists, and it matches the header then we return early
	// since header has already been submitted in a previous UpdateClient.
	var conflictingHeader bool
	prevConsState, err := store.ConsensusState(header.GetHeight())
	switch {
	case err == nil:
		// This header has already been submitted and the necessary state is already stored
		// in client store, thus we can return early without further validation.
		if prevConsState.Equal(header.ConsensusState()) {
			return &cs, prevConsState, nil
		}
		// A consensus state already exists for this height, but it does not match the provided header.
		// Thus, we must check that this header is valid, and if so we will freeze the client.
		conflictingHeader = true
	case !errors.Is(err, ErrConsensusStateNotFound):
		return nil, nil, err
	}

	trustedConsState, err := store.ConsensusState(header.TrustedHeight)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get consensus state from clientstore at TrustedHeight %s: %w",
			header.TrustedHeight, err)
	}

	if err := checkValidity(&cs, trustedConsState, header, now); err != nil {
		return nil, nil, err
	}

	consState := header.ConsensusState()
	// Header is different from existing consensus state and also valid, so freeze the client and return
	if conflictingHeader {
		cs.FrozenHeight = ibc.FrozenHeight
		return &cs, consState, nil
	}

	// Check that consensus state timestamps are monotonic
	prevCons, prevOk, err := lookupNeighbour(store.PreviousConsensusState, header.GetHeight())
	if err != nil {
		return nil, nil, err
	}
	nextCons, nextOk, err := lookupNeighbour(store.NextConsensusState, header.GetHeight())
	if err != nil {
		return nil, nil, err
	}
	// if previous consensus state exists, check consensus state time is greater than previous consensus state time
	// if previous consensus state is not before current consensus state, freeze the client and return.
	if prevOk && !prevCons.Timestamp.Before(consState.Timestamp) {
		cs.FrozenHeight = ibc.FrozenHeight
		return &cs, consState, nil
	}
	// if next consensus state exists, check consensus state time is less than next consensus state time
	// if next consensus state is not after current consensus state, freeze the client and return.
	if nextOk && !nextCons.Timestamp.After(consState.Timestamp) {
		cs.FrozenHeight = ibc.FrozenHeight
		return &cs, consState, nil
	}

	newClientState, consensusState := update(&cs, header)
	return newClientState, consensusState, nil
}

func lookupNeighbour(get func(ibc.Height) (*ConsensusState, error), height ibc.Height) (*ConsensusState, bool, error) {
	cs, err := get(height)
	switch {
	case err == nil:
		return cs, true, nil
	case errors.Is(err, ErrConsensusStateNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// checkTrustedHeader checks that consensus state matches trusted fields of Header
func checkTrustedHeader(header *Header, consState *ConsensusState) error {
	if header.TrustedValidators == nil {
		return fmt.Errorf("%w: trusted validators cannot be nil", ErrInvalidValidatorSet)
	}

	// assert that trustedVals is NextValidators of last trusted header
	// to do this, we check that trustedVals.Hash() == consState.NextValidatorsHash
	tvalHash := header.TrustedValidators.Hash()
	if !bytes.Equal(consState.NextValidatorsHash, tvalHash) {
		return fmt.Errorf("%w: trusted validators do not hash to latest trusted validators. Expected: %X, got: %X",
			ErrInvalidValidatorSet, consState.NextValidatorsHash, tvalHash)
	}
	return nil
}

// revisionChainID sets the revision of chainID to the one of height when
// chainID is in revision format. This is needed for updates at a previous
// revision rather than the latest revision of the client.
func revisionChainID(chainID string, height ibc.Height) string {
	if ibc.IsRevisionFormat(chainID) {
		chainID, _ = ibc.SetRevisionNumber(chainID, height.RevisionNumber)
	}
	return chainID
}

// checkValidity checks if the Tendermint header is valid.
// CONTRACT: consState.Height == header.TrustedHeight
func checkValidity(
	clientState *ClientState, consState *ConsensusState,
	header *Header, currentTimestamp time.Time,
) error {
	if err := checkTrustedHeader(header, consState); err != nil {
		return err
	}

	// UpdateClient only accepts updates with a header at the same revision
	// as the trusted consensus state
	if header.GetHeight().RevisionNumber != header.TrustedHeight.RevisionNumber {
		return fmt.Errorf("%w: header height revision %d does not match trusted header revision %d",
			ErrInvalidHeaderHeight, header.GetHeight().RevisionNumber, header.TrustedHeight.RevisionNumber)
	}

	// assert header height is newer than consensus state
	if header.GetHeight().LTE(header.TrustedHeight) {
		return fmt.Errorf("%w: header height ≤ consensus state height (%s ≤ %s)",
			ibc.ErrStaleUpdate, header.GetHeight(), header.TrustedHeight)
	}

	// Construct a trusted header using the fields in consensus state
	// Only Height, Time, and NextValidatorsHash are necessary for verification
	trustedHeader := types.Header{
		ChainID:            revisionChainID(clientState.ChainID, header.GetHeight()),
		Height:             int64(header.TrustedHeight.RevisionHeight),
		Time:               consState.Timestamp,
		NextValidatorsHash: consState.NextValidatorsHash,
	}
	signedHeader := types.SignedHeader{
		Header: &trustedHeader,
	}

	// Verify next header with the passed-in trustedVals
	// - asserts trusting period not passed
	// - assert header timestamp is not past the trusting period
	// - assert header timestamp is past latest stored consensus state timestamp
	// - assert that a TrustLevel proportion of TrustedValidators signed new Commit
	err := light.Verify(
		&signedHeader,
		header.TrustedValidators, header.SignedHeader, header.ValidatorSet,
		clientState.TrustingPeriod, currentTimestamp, clientState.MaxClockDrift, clientState.TrustLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to verify header: %w", err)
	}
	return nil
}

// update raises the latest height of clientState to the header's if it is
// higher and returns the consensus state derived from header.
func update(clientState *ClientState, header *Header) (*ClientState, *ConsensusState) {
	height := header.GetHeight()
	if height.GT(clientState.LatestHeight) {
		clientState.LatestHeight = height
	}
	return clientState, header.ConsensusState()
}
