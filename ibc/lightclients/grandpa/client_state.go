package grandpa

import (
	"bytes"
	"fmt"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
)

// ClientType is the GRANDPA light client type.
const ClientType = "10-grandpa"

// Any type URLs of the GRANDPA client messages.
const (
	TypeURLClientState    = "/ibc.lightclients.grandpa.v1.ClientState"
	TypeURLConsensusState = "/ibc.lightclients.grandpa.v1.ConsensusState"
	TypeURLHeader         = "/ibc.lightclients.grandpa.v1.Header"
)

// ClientState tracks the finalized relay chain and the parachain ParaID
// whose headers are proven through it. Client heights are parachain block
// numbers with the para id as revision.
type ClientState struct {
	ParaID             uint32
	LatestRelayHash    crypto.Hash
	LatestRelayHeight  uint32
	LatestParaHeight   uint32
	CurrentSetID       uint64
	CurrentAuthorities []Authority
	FrozenHeight       ibc.Height
}

// ConsensusStore reads stored consensus states. Lookups without a match
// return an error wrapping ErrConsensusStateNotFound.
type ConsensusStore interface {
	ConsensusState(height ibc.Height) (*ConsensusState, error)
}

func (ClientState) ClientType() string {
	return ClientType
}

// GetLatestHeight returns the latest parachain height.
func (cs ClientState) GetLatestHeight() ibc.Height {
	return ibc.NewHeight(uint64(cs.ParaID), uint64(cs.LatestParaHeight))
}

// IsFrozen returns true if the frozen height has been set.
func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// AuthoritySet returns the current authority set.
func (cs ClientState) AuthoritySet() AuthoritySet {
	return AuthoritySet{SetID: cs.CurrentSetID, Authorities: cs.CurrentAuthorities}
}

// Status is Frozen or Active. Finality does not expire: the authority set
// only changes through enacted set changes.
func (cs ClientState) Status() ibc.Status {
	if cs.IsFrozen() {
		return ibc.Frozen
	}
	return ibc.Active
}

// Validate checks the stateless invariants of the client state.
func (cs ClientState) Validate() error {
	if cs.LatestRelayHash.IsZero() {
		return fmt.Errorf("%w: latest relay hash cannot be empty", ErrInvalidClientState)
	}
	if len(cs.CurrentAuthorities) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidClientState, ErrEmptyAuthorities)
	}
	if _, _, err := cs.AuthoritySet().weights(); err != nil {
		return err
	}
	return nil
}

// Initialize checks the initial consensus state against the client state.
func (cs ClientState) Initialize(consState *ConsensusState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if consState == nil {
		return fmt.Errorf("%w: nil consensus state", ErrInvalidConsensusState)
	}
	return consState.ValidateBasic()
}

// VerifyMembership checks a pallet-ibc storage proof of path = value against
// the parachain state root at height. Path segments are joined with "/".
func (cs ClientState) VerifyMembership(
	host crypto.HostFunctions,
	store ConsensusStore,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
	value []byte,
) error {
	root, err := cs.proofRoot(store, height)
	if err != nil {
		return err
	}
	return commitment.NewSubstrateVerifier(host.Blake2b256).
		VerifyMembership(prefix, root, proof, storageKey(path), value)
}

// VerifyNonMembership checks a pallet-ibc storage proof that path is absent
// at height.
func (cs ClientState) VerifyNonMembership(
	host crypto.HostFunctions,
	store ConsensusStore,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
) error {
	root, err := cs.proofRoot(store, height)
	if err != nil {
		return err
	}
	return commitment.NewSubstrateVerifier(host.Blake2b256).
		VerifyNonMembership(prefix, root, proof, storageKey(path))
}

func (cs ClientState) proofRoot(store ConsensusStore, height ibc.Height) (commitment.MerkleRoot, error) {
	if cs.IsFrozen() {
		return commitment.MerkleRoot{}, fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if cs.GetLatestHeight().LT(height) {
		return commitment.MerkleRoot{}, fmt.Errorf("%w: client state height < proof height (%s < %s)",
			ErrProofHeightTooHigh, cs.GetLatestHeight(), height)
	}
	consState, err := store.ConsensusState(height)
	if err != nil {
		return commitment.MerkleRoot{}, err
	}
	return consState.GetRoot(), nil
}

func storageKey(path commitment.MerklePath) []byte {
	return bytes.Join(path.KeyPath, []byte("/"))
}
