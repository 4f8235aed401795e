package tendermint

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/types"
)

// Header defines the Tendermint client consensus Header.
// It encapsulates all the information necessary to update from a trusted Tendermint ConsensusState.
// The inclusion of TrustedHeight and TrustedValidators allows this update to process headers
// that are not adjacent to the trusted height.
type Header struct {
	*types.SignedHeader
	ValidatorSet      *types.ValidatorSet
	TrustedHeight     ibc.Height
	TrustedValidators *types.ValidatorSet
}

// ConsensusState returns the updated consensus state associated with the header
func (h Header) ConsensusState() *ConsensusState {
	return &ConsensusState{
		Timestamp:          h.GetTime(),
		Root:               commitment.NewMerkleRoot(h.Header.AppHash),
		NextValidatorsHash: h.Header.NextValidatorsHash,
	}
}

// ClientType defines that the Header is a Tendermint consensus algorithm
func (Header) ClientType() string {
	return ClientType
}

// GetHeight returns the current height. It returns 0 if the tendermint
// header is nil.
// NOTE: the header.Header is checked to be non nil in ValidateBasic.
func (h Header) GetHeight() ibc.Height {
	if h.SignedHeader == nil || h.Header == nil {
		return ibc.ZeroHeight()
	}
	revision := ibc.ParseChainID(h.Header.ChainID)
	return ibc.NewHeight(revision, uint64(h.Header.Height))
}

// GetTime returns the current block timestamp. It returns a zero time if
// the tendermint header is nil.
// NOTE: the header.Header is checked to be non nil in ValidateBasic.
func (h Header) GetTime() time.Time {
	if h.SignedHeader == nil || h.Header == nil {
		return time.Time{}
	}
	return h.Header.Time
}

// ValidateBasic calls the SignedHeader ValidateBasic function and checks
// that validatorsets are not nil.
// NOTE: TrustedHeight and TrustedValidators may be empty when creating client
// with MsgCreateClient
func (h Header) ValidateBasic() error {
	if h.SignedHeader == nil {
		return fmt.Errorf("%w: tendermint signed header cannot be nil", ErrInvalidHeader)
	}
	if h.Header == nil {
		return fmt.Errorf("%w: tendermint header cannot be nil", ErrInvalidHeader)
	}
	// NOTE: SignedHeader ValidateBasic checks that the header and commit are consistent
	if err := h.SignedHeader.ValidateBasic(h.Header.ChainID); err != nil {
		return fmt.Errorf("%w: header failed basic validation: %v", ErrInvalidHeader, err)
	}

	// TrustedHeight is less than Header for updates and misbehaviour
	if h.TrustedHeight.GTE(h.GetHeight()) {
		return fmt.Errorf("%w: TrustedHeight %s must be less than header height %s",
			ibc.ErrStaleUpdate, h.TrustedHeight, h.GetHeight())
	}

	if h.ValidatorSet == nil {
		return fmt.Errorf("%w: validator set is nil", ErrInvalidHeader)
	}
	if !bytes.Equal(h.Header.ValidatorsHash, h.ValidatorSet.Hash()) {
		return fmt.Errorf("%w: validator set does not match hash", ErrInvalidHeader)
	}
	return nil
}
