package grandpa

import (
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/ibc"
)

// Client messages travel as the SCALE encoding of their Go values.

// Marshal returns the SCALE encoding of the client state.
func (cs *ClientState) Marshal() ([]byte, error) {
	return scale.Marshal(*cs)
}

// UnmarshalClientState decodes a SCALE encoded client state.
func UnmarshalClientState(bz []byte) (*ClientState, error) {
	cs := new(ClientState)
	if err := unmarshal(bz, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Marshal returns the SCALE encoding of the consensus state.
func (cs *ConsensusState) Marshal() ([]byte, error) {
	return scale.Marshal(*cs)
}

// UnmarshalConsensusState decodes a SCALE encoded consensus state.
func UnmarshalConsensusState(bz []byte) (*ConsensusState, error) {
	cs := new(ConsensusState)
	if err := unmarshal(bz, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Marshal returns the SCALE encoding of the update message.
func (m *ClientMessage) Marshal() ([]byte, error) {
	return scale.Marshal(*m)
}

// UnmarshalClientMessage decodes a SCALE encoded update message.
func UnmarshalClientMessage(bz []byte) (*ClientMessage, error) {
	m := new(ClientMessage)
	if err := unmarshal(bz, m); err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshal(bz []byte, dst interface{}) error {
	if len(bz) == 0 {
		return fmt.Errorf("%w: empty bytes", ibc.ErrMalformedInput)
	}
	if err := scale.Unmarshal(bz, dst); err != nil {
		return fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return nil
}
