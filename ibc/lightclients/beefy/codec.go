package beefy

import (
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/ibc"
)

// Marshal returns the SCALE encoding of the client state.
func (cs *ClientState) Marshal() ([]byte, error) {
	return scale.Marshal(*cs)
}

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

func UnmarshalConsensusState(bz []byte) (*ConsensusState, error) {
	cs := new(ConsensusState)
	if err := unmarshal(bz, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Marshal returns the SCALE encoding of the header. A nil MmrUpdate encodes
// as None.
func (h *Header) Marshal() ([]byte, error) {
	return scale.Marshal(*h)
}

func UnmarshalHeader(bz []byte) (*Header, error) {
	h := new(Header)
	if err := unmarshal(bz, h); err != nil {
		return nil, err
	}
	return h, nil
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
