package client

import (
	"errors"
	"fmt"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/lightclients/beefy"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
)

// ConsensusStates reads the consensus states stored for one client. Lookups
// without a match return an error wrapping ErrConsensusStateNotFound.
type ConsensusStates interface {
	ConsensusState(height ibc.Height) (AnyConsensusState, error)
	// PreviousConsensusState returns the consensus state at the highest
	// height below height.
	PreviousConsensusState(height ibc.Height) (AnyConsensusState, error)
	// NextConsensusState returns the consensus state at the lowest height
	// above height.
	NextConsensusState(height ibc.Height) (AnyConsensusState, error)
}

// translate maps a lookup error onto the not-found sentinel of the light
// client asking.
func translate(err error, notFound error) error {
	if errors.Is(err, ErrConsensusStateNotFound) {
		return fmt.Errorf("%w: %v", notFound, err)
	}
	return err
}

type tendermintStore struct{ states ConsensusStates }

var _ tendermint.ConsensusStore = tendermintStore{}

func (s tendermintStore) get(lookup func(ibc.Height) (AnyConsensusState, error), height ibc.Height) (*tendermint.ConsensusState, error) {
	cs, err := lookup(height)
	if err != nil {
		return nil, translate(err, tendermint.ErrConsensusStateNotFound)
	}
	if cs.Tendermint == nil {
		return nil, fmt.Errorf("%w: stored %s consensus state", ErrKindMismatch, cs.Kind())
	}
	return cs.Tendermint, nil
}

func (s tendermintStore) ConsensusState(height ibc.Height) (*tendermint.ConsensusState, error) {
	return s.get(s.states.ConsensusState, height)
}

func (s tendermintStore) PreviousConsensusState(height ibc.Height) (*tendermint.ConsensusState, error) {
	return s.get(s.states.PreviousConsensusState, height)
}

func (s tendermintStore) NextConsensusState(height ibc.Height) (*tendermint.ConsensusState, error) {
	return s.get(s.states.NextConsensusState, height)
}

type grandpaStore struct{ states ConsensusStates }

var _ grandpa.ConsensusStore = grandpaStore{}

func (s grandpaStore) ConsensusState(height ibc.Height) (*grandpa.ConsensusState, error) {
	cs, err := s.states.ConsensusState(height)
	if err != nil {
		return nil, translate(err, grandpa.ErrConsensusStateNotFound)
	}
	if cs.Grandpa == nil {
		return nil, fmt.Errorf("%w: stored %s consensus state", ErrKindMismatch, cs.Kind())
	}
	return cs.Grandpa, nil
}

type beefyStore struct{ states ConsensusStates }

var _ beefy.ConsensusStore = beefyStore{}

func (s beefyStore) ConsensusState(height ibc.Height) (*beefy.ConsensusState, error) {
	cs, err := s.states.ConsensusState(height)
	if err != nil {
		return nil, translate(err, beefy.ErrConsensusStateNotFound)
	}
	if cs.Beefy == nil {
		return nil, fmt.Errorf("%w: stored %s consensus state", ErrKindMismatch, cs.Kind())
	}
	return cs.Beefy, nil
}
