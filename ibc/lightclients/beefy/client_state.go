package beefy

import (
	"bytes"
	"fmt"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
)

// ClientType is the BEEFY light client type.
const ClientType = "11-beefy"

// Any type URLs of the BEEFY client messages.
const (
	TypeURLClientState    = "/ibc.lightclients.beefy.v1.ClientState"
	TypeURLConsensusState = "/ibc.lightclients.beefy.v1.ConsensusState"
	TypeURLHeader         = "/ibc.lightclients.beefy.v1.Header"
)

// ClientState tracks the relay chain MMR through BEEFY commitments and the
// parachain ParaID proven through it. Client heights are parachain block
// numbers with the para id as revision.
type ClientState struct {
	ParaID           uint32
	LatestParaHeight uint32
	// MmrRootHash is the MMR root of the latest verified commitment, at
	// relay block LatestBeefyHeight.
	MmrRootHash       crypto.Hash
	LatestBeefyHeight uint32
	// BeefyActivationBlock is the relay block of the first MMR leaf.
	BeefyActivationBlock uint32
	Authority            AuthoritySet
	NextAuthoritySet     AuthoritySet
	FrozenHeight         ibc.Height
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

func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// Status is Frozen or Active.
func (cs ClientState) Status() ibc.Status {
	if cs.IsFrozen() {
		return ibc.Frozen
	}
	return ibc.Active
}

// Validate checks the stateless invariants of the client state.
func (cs ClientState) Validate() error {
	if cs.Authority.Len == 0 || cs.NextAuthoritySet.Len == 0 {
		return fmt.Errorf("%w: empty authority set", ErrInvalidClientState)
	}
	if cs.NextAuthoritySet.ID != cs.Authority.ID+1 {
		return fmt.Errorf("%w: next authority set id %d does not follow %d",
			ErrInvalidClientState, cs.NextAuthoritySet.ID, cs.Authority.ID)
	}
	if cs.LatestBeefyHeight < cs.BeefyActivationBlock {
		return fmt.Errorf("%w: latest beefy height %d precedes activation block %d",
			ErrInvalidClientState, cs.LatestBeefyHeight, cs.BeefyActivationBlock)
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
// the parachain state root at height.
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
		VerifyMembership(prefix, root, proof, bytes.Join(path.KeyPath, []byte("/")), value)
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
		VerifyNonMembership(prefix, root, proof, bytes.Join(path.KeyPath, []byte("/")))
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
