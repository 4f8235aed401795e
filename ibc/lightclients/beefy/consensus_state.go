package beefy

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc/commitment"
)

// ConsensusState is the state of a parachain block proven through BEEFY.
type ConsensusState struct {
	// Timestamp in milliseconds since the Unix epoch.
	Timestamp uint64
	Root      crypto.Hash
}

func NewConsensusState(timestampMillis uint64, root crypto.Hash) *ConsensusState {
	return &ConsensusState{Timestamp: timestampMillis, Root: root}
}

func (ConsensusState) ClientType() string {
	return ClientType
}

// GetTimestamp returns the timestamp in nanoseconds.
func (cs ConsensusState) GetTimestamp() uint64 {
	return cs.Timestamp * uint64(time.Millisecond)
}

func (cs ConsensusState) GetTime() time.Time {
	return time.UnixMilli(int64(cs.Timestamp)).UTC()
}

func (cs ConsensusState) GetRoot() commitment.MerkleRoot {
	return commitment.NewMerkleRoot(cs.Root[:])
}

func (cs *ConsensusState) Equal(other *ConsensusState) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	return cs.Timestamp == other.Timestamp && bytes.Equal(cs.Root[:], other.Root[:])
}

func (cs ConsensusState) ValidateBasic() error {
	if cs.Root.IsZero() {
		return fmt.Errorf("%w: root cannot be empty", ErrInvalidConsensusState)
	}
	if cs.Timestamp == 0 {
		return fmt.Errorf("%w: timestamp cannot be zero", ErrInvalidConsensusState)
	}
	return nil
}
