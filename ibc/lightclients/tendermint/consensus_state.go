package tendermint

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc/commitment"
	tmbytes "github.com/lightibc/lightibc/libs/bytes"
	"github.com/lightibc/lightibc/types"
)

// ConsensusState defines the consensus state from Tendermint.
type ConsensusState struct {
	// timestamp that corresponds to the block height in which the
	// ConsensusState was stored.
	Timestamp time.Time
	// commitment root (i.e app hash)
	Root               commitment.MerkleRoot
	NextValidatorsHash tmbytes.HexBytes
}

// NewConsensusState creates a new ConsensusState instance.
func NewConsensusState(
	timestamp time.Time, root commitment.MerkleRoot, nextValsHash tmbytes.HexBytes,
) *ConsensusState {
	return &ConsensusState{
		Timestamp:          timestamp,
		Root:               root,
		NextValidatorsHash: nextValsHash,
	}
}

// ClientType returns Tendermint
func (ConsensusState) ClientType() string {
	return ClientType
}

// GetTimestamp returns block time in nanoseconds of the header that created consensus state
func (cs ConsensusState) GetTimestamp() uint64 {
	return uint64(cs.Timestamp.UnixNano())
}

// Equal compares every field, times by instant.
func (cs *ConsensusState) Equal(other *ConsensusState) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	return cs.Timestamp.Equal(other.Timestamp) &&
		bytes.Equal(cs.Root.Hash, other.Root.Hash) &&
		bytes.Equal(cs.NextValidatorsHash, other.NextValidatorsHash)
}

// ValidateBasic defines a basic validation for the tendermint consensus state.
// NOTE: ProcessedTimestamp may be zero if this is an initial consensus state passed in by relayer
// as opposed to a consensus state constructed by the chain.
func (cs ConsensusState) ValidateBasic() error {
	if cs.Root.Empty() {
		return fmt.Errorf("%w: root cannot be empty", ErrInvalidConsensusState)
	}
	if err := types.ValidateHash(cs.NextValidatorsHash); err != nil {
		return fmt.Errorf("%w: next validators hash is invalid: %v", ErrInvalidConsensusState, err)
	}
	if cs.Timestamp.Unix() <= 0 {
		return fmt.Errorf("%w: timestamp must be a positive Unix time", ErrInvalidConsensusState)
	}
	return nil
}
