// Package tendermint implements the 07-tendermint light client: it tracks a
// Tendermint chain through signed headers verified with the skipping
// verification of package light, and proves counterparty state with ICS-23
// proofs against the app hash.
package tendermint

import (
	"fmt"
	"strings"
	"time"

	ics23 "github.com/confio/ics23/go"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	tmmath "github.com/lightibc/lightibc/libs/math"
	"github.com/lightibc/lightibc/light"
	"github.com/lightibc/lightibc/types"
)

// ClientType is the 02-client type of this light client.
const ClientType = "07-tendermint"

// Wire type URLs of the messages of this client.
const (
	TypeURLClientState    = "/ibc.lightclients.tendermint.v1.ClientState"
	TypeURLConsensusState = "/ibc.lightclients.tendermint.v1.ConsensusState"
	TypeURLHeader         = "/ibc.lightclients.tendermint.v1.Header"
	TypeURLMisbehaviour   = "/ibc.lightclients.tendermint.v1.Misbehaviour"
)

// ClientState from Tendermint tracks the current validator set, latest height,
// and a possible frozen height.
type ClientState struct {
	ChainID    string
	TrustLevel tmmath.Fraction
	// duration of the period since the latest timestamp during which the
	// submitted headers are valid
	TrustingPeriod time.Duration
	// duration of the staking unbonding period
	UnbondingPeriod time.Duration
	// defines how much new (untrusted) header's Time can drift into the future.
	MaxClockDrift time.Duration
	// Block height when the client was frozen due to a misbehaviour
	FrozenHeight ibc.Height
	// Latest height the client was updated to
	LatestHeight ibc.Height
	// Proof specifications used in verifying counterparty state
	ProofSpecs  []*ics23.ProofSpec
	UpgradePath []string
}

// NewClientState creates a new ClientState instance
func NewClientState(
	chainID string, trustLevel tmmath.Fraction,
	trustingPeriod, ubdPeriod, maxClockDrift time.Duration,
	latestHeight ibc.Height, specs []*ics23.ProofSpec,
	upgradePath []string,
) *ClientState {
	return &ClientState{
		ChainID:         chainID,
		TrustLevel:      trustLevel,
		TrustingPeriod:  trustingPeriod,
		UnbondingPeriod: ubdPeriod,
		MaxClockDrift:   maxClockDrift,
		LatestHeight:    latestHeight,
		FrozenHeight:    ibc.ZeroHeight(),
		ProofSpecs:      specs,
		UpgradePath:     upgradePath,
	}
}

// ClientType is tendermint.
func (ClientState) ClientType() string {
	return ClientType
}

// GetLatestHeight returns latest block height.
func (cs ClientState) GetLatestHeight() ibc.Height {
	return cs.LatestHeight
}

// IsFrozen reports whether misbehaviour froze the client.
func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// Status returns the status of the tendermint client.
// The client may be:
// - Active: FrozenHeight is zero and client is not expired
// - Frozen: Frozen Height is not zero
// - Expired: the latest consensus state timestamp + trusting period <= current time
//
// A frozen client will become expired, so the Frozen status
// has higher precedence.
func (cs ClientState) Status(store ConsensusStore, now time.Time) ibc.Status {
	if cs.IsFrozen() {
		return ibc.Frozen
	}

	// get latest consensus state from clientStore to check for expiry
	consState, err := store.ConsensusState(cs.LatestHeight)
	if err != nil {
		// if the client state does not have an associated consensus state for its latest height
		// then it must be expired
		return ibc.Expired
	}

	if cs.IsExpired(consState.Timestamp, now) {
		return ibc.Expired
	}

	return ibc.Active
}

// IsExpired returns whether or not the client has passed the trusting period since the last
// update (in which case no headers are considered valid).
func (cs ClientState) IsExpired(latestTimestamp, now time.Time) bool {
	expirationTime := latestTimestamp.Add(cs.TrustingPeriod)
	return !expirationTime.After(now)
}

// Validate performs a basic validation of the client state fields.
func (cs ClientState) Validate() error {
	if strings.TrimSpace(cs.ChainID) == "" {
		return fmt.Errorf("%w: chain id cannot be empty string", ErrInvalidChainID)
	}
	if len(cs.ChainID) > types.MaxChainIDLen {
		return fmt.Errorf("%w: chainID is too long; got: %d, max: %d", ErrInvalidChainID, len(cs.ChainID), types.MaxChainIDLen)
	}
	if err := light.ValidateTrustLevel(cs.TrustLevel); err != nil {
		return err
	}
	if cs.TrustingPeriod <= 0 {
		return fmt.Errorf("%w: trusting period must be greater than zero", ErrInvalidTrustingPeriod)
	}
	if cs.UnbondingPeriod <= 0 {
		return fmt.Errorf("%w: unbonding period must be greater than zero", ErrInvalidUnbondingPeriod)
	}
	if cs.MaxClockDrift <= 0 {
		return fmt.Errorf("%w: max clock drift must be greater than zero", ErrInvalidMaxClockDrift)
	}

	// the latest height revision number must match the chain id revision number
	if cs.LatestHeight.RevisionNumber != ibc.ParseChainID(cs.ChainID) {
		return fmt.Errorf("%w: latest height revision number must match chain id revision number (%d != %d)",
			ErrInvalidHeaderHeight, cs.LatestHeight.RevisionNumber, ibc.ParseChainID(cs.ChainID))
	}
	if cs.LatestHeight.RevisionHeight == 0 {
		return fmt.Errorf("%w: tendermint client's latest height revision height cannot be zero", ErrInvalidHeaderHeight)
	}
	if cs.TrustingPeriod >= cs.UnbondingPeriod {
		return fmt.Errorf("%w: trusting period (%s) should be < unbonding period (%s)",
			ErrInvalidTrustingPeriod, cs.TrustingPeriod, cs.UnbondingPeriod)
	}

	if cs.ProofSpecs == nil {
		return fmt.Errorf("%w: proof specs cannot be nil for tm client", ErrInvalidProofSpecs)
	}
	for i, spec := range cs.ProofSpecs {
		if spec == nil {
			return fmt.Errorf("%w: proof spec cannot be nil at index: %d", ErrInvalidProofSpecs, i)
		}
	}
	for i, k := range cs.UpgradePath {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: key in upgrade path at index %d cannot be empty", ibc.ErrMalformedInput, i)
		}
	}

	return nil
}

// Initialize checks that the initial consensus state is valid for this
// client.
func (cs ClientState) Initialize(consState *ConsensusState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if consState == nil {
		return fmt.Errorf("%w: nil consensus state", ErrInvalidConsensusState)
	}
	return consState.ValidateBasic()
}

// VerifyMembership verifies a proof of the existence of value at path in the
// counterparty's store, against the root of the consensus state at height.
func (cs ClientState) VerifyMembership(
	store ConsensusStore,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
	value []byte,
) error {
	merkleProof, root, merklePath, err := cs.proofArgs(store, height, prefix, proof, path)
	if err != nil {
		return err
	}
	return merkleProof.VerifyMembership(cs.ProofSpecs, root, merklePath, value)
}

// VerifyNonMembership verifies a proof of the absence of path in the
// counterparty's store.
func (cs ClientState) VerifyNonMembership(
	store ConsensusStore,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
) error {
	merkleProof, root, merklePath, err := cs.proofArgs(store, height, prefix, proof, path)
	if err != nil {
		return err
	}
	return merkleProof.VerifyNonMembership(cs.ProofSpecs, root, merklePath)
}

func (cs ClientState) proofArgs(
	store ConsensusStore,
	height ibc.Height,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
) (commitment.MerkleProof, commitment.MerkleRoot, commitment.MerklePath, error) {
	if cs.IsFrozen() {
		return commitment.MerkleProof{}, commitment.MerkleRoot{}, commitment.MerklePath{},
			fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if cs.LatestHeight.LT(height) {
		return commitment.MerkleProof{}, commitment.MerkleRoot{}, commitment.MerklePath{},
			fmt.Errorf("%w: client state height < proof height (%s < %s), please ensure the client has been updated",
				ErrProofHeightTooHigh, cs.LatestHeight, height)
	}

	merklePath, err := commitment.ApplyPrefix(prefix, path)
	if err != nil {
		return commitment.MerkleProof{}, commitment.MerkleRoot{}, commitment.MerklePath{}, err
	}
	merkleProof, err := commitment.DecodeMerkleProof(proof)
	if err != nil {
		return commitment.MerkleProof{}, commitment.MerkleRoot{}, commitment.MerklePath{}, err
	}
	consState, err := store.ConsensusState(height)
	if err != nil {
		return commitment.MerkleProof{}, commitment.MerkleRoot{}, commitment.MerklePath{},
			fmt.Errorf("please ensure the proof was constructed against a height that exists on the client: %w", err)
	}
	return merkleProof, consState.Root, merklePath, nil
}
