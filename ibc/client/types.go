package client

import (
	"fmt"
	"time"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/beefy"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
)

// Kind identifies the light client algorithm behind a client. The set is
// closed: supporting a new algorithm means adding a Kind and a case to every
// switch on it in this package.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTendermint
	KindGrandpa
	KindBeefy
)

// ClientType returns the ICS client type of k.
func (k Kind) ClientType() string {
	switch k {
	case KindTendermint:
		return tendermint.ClientType
	case KindGrandpa:
		return grandpa.ClientType
	case KindBeefy:
		return beefy.ClientType
	default:
		return "unknown"
	}
}

func (k Kind) String() string { return k.ClientType() }

// KindOfClientType returns the kind of an ICS client type.
func KindOfClientType(clientType string) Kind {
	switch clientType {
	case tendermint.ClientType:
		return KindTendermint
	case grandpa.ClientType:
		return KindGrandpa
	case beefy.ClientType:
		return KindBeefy
	default:
		return KindUnknown
	}
}

// AnyClientState holds the client state of exactly one kind.
type AnyClientState struct {
	Tendermint *tendermint.ClientState
	Grandpa    *grandpa.ClientState
	Beefy      *beefy.ClientState

	// CodeID is set for clients running as an 08-wasm contract. Encode wraps
	// such client states in a wasm client state.
	CodeID []byte
}

// Kind returns the kind of the set variant.
func (cs AnyClientState) Kind() Kind {
	switch {
	case cs.Tendermint != nil:
		return KindTendermint
	case cs.Grandpa != nil:
		return KindGrandpa
	case cs.Beefy != nil:
		return KindBeefy
	default:
		return KindUnknown
	}
}

func (cs AnyClientState) ClientType() string { return cs.Kind().ClientType() }

// LatestHeight returns the latest height the client has verified.
func (cs AnyClientState) LatestHeight() ibc.Height {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.GetLatestHeight()
	case KindGrandpa:
		return cs.Grandpa.GetLatestHeight()
	case KindBeefy:
		return cs.Beefy.GetLatestHeight()
	default:
		return ibc.Height{}
	}
}

func (cs AnyClientState) IsFrozen() bool {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.IsFrozen()
	case KindGrandpa:
		return cs.Grandpa.IsFrozen()
	case KindBeefy:
		return cs.Beefy.IsFrozen()
	default:
		return false
	}
}

// Freeze returns a copy of cs frozen at ibc.FrozenHeight.
func (cs AnyClientState) Freeze() AnyClientState {
	frozen := AnyClientState{CodeID: cs.CodeID}
	switch cs.Kind() {
	case KindTendermint:
		c := *cs.Tendermint
		c.FrozenHeight = ibc.FrozenHeight
		frozen.Tendermint = &c
	case KindGrandpa:
		c := *cs.Grandpa
		c.FrozenHeight = ibc.FrozenHeight
		frozen.Grandpa = &c
	case KindBeefy:
		c := *cs.Beefy
		c.FrozenHeight = ibc.FrozenHeight
		frozen.Beefy = &c
	}
	return frozen
}

// Validate checks that exactly one variant is set and that it is valid.
func (cs AnyClientState) Validate() error {
	if err := exactlyOne(cs.Tendermint != nil, cs.Grandpa != nil, cs.Beefy != nil); err != nil {
		return fmt.Errorf("client state: %w", err)
	}
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.Validate()
	case KindGrandpa:
		return cs.Grandpa.Validate()
	case KindBeefy:
		return cs.Beefy.Validate()
	default:
		return ErrUnknownClientKind
	}
}

// Initialize checks the initial consensus state against the client state.
func (cs AnyClientState) Initialize(consState AnyConsensusState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if consState.Kind() != cs.Kind() {
		return fmt.Errorf("%w: %s consensus state for a %s client", ErrKindMismatch, consState.Kind(), cs.Kind())
	}
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.Initialize(consState.Tendermint)
	case KindGrandpa:
		return cs.Grandpa.Initialize(consState.Grandpa)
	case KindBeefy:
		return cs.Beefy.Initialize(consState.Beefy)
	default:
		return ErrUnknownClientKind
	}
}

// Status returns the status of the client. Only Tendermint clients expire.
func (cs AnyClientState) Status(states ConsensusStates, now time.Time) ibc.Status {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.Status(tendermintStore{states}, now)
	case KindGrandpa:
		return cs.Grandpa.Status()
	case KindBeefy:
		return cs.Beefy.Status()
	default:
		return ibc.Unknown
	}
}

// Env carries what header verification needs beyond the client's own
// state.
type Env struct {
	Host crypto.HostFunctions
	Now  time.Time
	// MaxUnknownHeaders bounds GRANDPA finality proofs. Zero selects
	// grandpa.DefaultMaxUnknownHeaders.
	MaxUnknownHeaders int
}

// HeightConsensusState is a consensus state and the height it is stored at.
type HeightConsensusState struct {
	Height ibc.Height
	State  AnyConsensusState
}

// Update is the outcome of a verified header: the new client state and the
// consensus states to store. Frozen is set when the header proved
// misbehaviour; the returned client state is then frozen and no consensus
// state is stored.
type Update struct {
	ClientState     AnyClientState
	ConsensusStates []HeightConsensusState
	Frozen          bool
}

// VerifyHeader verifies header against the client state and the stored
// consensus states, and returns the update to persist. The receiver is not
// modified.
func (cs AnyClientState) VerifyHeader(env Env, states ConsensusStates, header AnyHeader) (Update, error) {
	if err := exactlyOne(header.Tendermint != nil, header.Grandpa != nil, header.Beefy != nil); err != nil {
		return Update{}, fmt.Errorf("header: %w", err)
	}
	if header.Kind() != cs.Kind() {
		return Update{}, fmt.Errorf("%w: %s header for a %s client", ErrKindMismatch, header.Kind(), cs.Kind())
	}

	switch cs.Kind() {
	case KindTendermint:
		newCS, consState, err := cs.Tendermint.CheckHeaderAndUpdateState(tendermintStore{states}, env.Now, header.Tendermint)
		if err != nil {
			return Update{}, err
		}
		u := Update{ClientState: AnyClientState{Tendermint: newCS, CodeID: cs.CodeID}}
		if newCS.IsFrozen() {
			u.Frozen = true
			return u, nil
		}
		u.ConsensusStates = []HeightConsensusState{{
			Height: header.Tendermint.GetHeight(),
			State:  AnyConsensusState{Tendermint: consState},
		}}
		return u, nil

	case KindGrandpa:
		newCS, consStates, err := cs.Grandpa.CheckHeaderAndUpdateState(env.Host, header.Grandpa, env.MaxUnknownHeaders)
		if err != nil {
			return Update{}, err
		}
		u := Update{ClientState: AnyClientState{Grandpa: newCS, CodeID: cs.CodeID}}
		for _, s := range consStates {
			u.ConsensusStates = append(u.ConsensusStates, HeightConsensusState{
				Height: s.Height,
				State:  AnyConsensusState{Grandpa: s.State},
			})
		}
		return u, nil

	case KindBeefy:
		newCS, consStates, err := cs.Beefy.CheckHeaderAndUpdateState(env.Host, header.Beefy)
		if err != nil {
			return Update{}, err
		}
		u := Update{ClientState: AnyClientState{Beefy: newCS, CodeID: cs.CodeID}}
		for _, s := range consStates {
			u.ConsensusStates = append(u.ConsensusStates, HeightConsensusState{
				Height: s.Height,
				State:  AnyConsensusState{Beefy: s.State},
			})
		}
		return u, nil

	default:
		return Update{}, ErrUnknownClientKind
	}
}

// VerifyMembership verifies a proof of path = value in the counterparty
// state at height.
func (cs AnyClientState) VerifyMembership(
	host crypto.HostFunctions,
	states ConsensusStates,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
	value []byte,
) error {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.VerifyMembership(tendermintStore{states}, height, prefix, proof, path, value)
	case KindGrandpa:
		return cs.Grandpa.VerifyMembership(host, grandpaStore{states}, height, prefix, proof, path, value)
	case KindBeefy:
		return cs.Beefy.VerifyMembership(host, beefyStore{states}, height, prefix, proof, path, value)
	default:
		return ErrUnknownClientKind
	}
}

// VerifyNonMembership verifies a proof that path is absent from the
// counterparty state at height.
func (cs AnyClientState) VerifyNonMembership(
	host crypto.HostFunctions,
	states ConsensusStates,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
) error {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.VerifyNonMembership(tendermintStore{states}, height, prefix, proof, path)
	case KindGrandpa:
		return cs.Grandpa.VerifyNonMembership(host, grandpaStore{states}, height, prefix, proof, path)
	case KindBeefy:
		return cs.Beefy.VerifyNonMembership(host, beefyStore{states}, height, prefix, proof, path)
	default:
		return ErrUnknownClientKind
	}
}

// AnyConsensusState holds the consensus state of exactly one kind.
type AnyConsensusState struct {
	Tendermint *tendermint.ConsensusState
	Grandpa    *grandpa.ConsensusState
	Beefy      *beefy.ConsensusState
}

func (cs AnyConsensusState) Kind() Kind {
	switch {
	case cs.Tendermint != nil:
		return KindTendermint
	case cs.Grandpa != nil:
		return KindGrandpa
	case cs.Beefy != nil:
		return KindBeefy
	default:
		return KindUnknown
	}
}

func (cs AnyConsensusState) ClientType() string { return cs.Kind().ClientType() }

// Timestamp returns the time of the block the consensus state was taken at.
func (cs AnyConsensusState) Timestamp() time.Time {
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.Timestamp
	case KindGrandpa:
		return cs.Grandpa.GetTime()
	case KindBeefy:
		return cs.Beefy.GetTime()
	default:
		return time.Time{}
	}
}

func (cs AnyConsensusState) ValidateBasic() error {
	if err := exactlyOne(cs.Tendermint != nil, cs.Grandpa != nil, cs.Beefy != nil); err != nil {
		return fmt.Errorf("consensus state: %w", err)
	}
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.ValidateBasic()
	case KindGrandpa:
		return cs.Grandpa.ValidateBasic()
	case KindBeefy:
		return cs.Beefy.ValidateBasic()
	default:
		return ErrUnknownClientKind
	}
}

// Equal reports whether both hold equal consensus states of the same kind.
func (cs AnyConsensusState) Equal(other AnyConsensusState) bool {
	if cs.Kind() != other.Kind() {
		return false
	}
	switch cs.Kind() {
	case KindTendermint:
		return cs.Tendermint.Equal(other.Tendermint)
	case KindGrandpa:
		return cs.Grandpa.Equal(other.Grandpa)
	case KindBeefy:
		return cs.Beefy.Equal(other.Beefy)
	default:
		return true
	}
}

// AnyHeader holds the client update message of exactly one kind.
type AnyHeader struct {
	Tendermint *tendermint.Header
	Grandpa    *grandpa.ClientMessage
	Beefy      *beefy.Header
}

func (h AnyHeader) Kind() Kind {
	switch {
	case h.Tendermint != nil:
		return KindTendermint
	case h.Grandpa != nil:
		return KindGrandpa
	case h.Beefy != nil:
		return KindBeefy
	default:
		return KindUnknown
	}
}

func (h AnyHeader) ClientType() string { return h.Kind().ClientType() }

func exactlyOne(set ...bool) error {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrUnknownClientKind
	default:
		return fmt.Errorf("%w: %d variants set", ibc.ErrMalformedInput, n)
	}
}
