package beefy

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/merkle"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/trie"
)

// Header is the BEEFY client update message: an optional move to a newer
// MMR root and parachain headers proven against the resulting root.
type Header struct {
	MmrUpdate        *MmrUpdateProof
	ParachainHeaders []ParachainHeader
}

func (Header) ClientType() string {
	return ClientType
}

// ParachainConsensusState is a consensus state produced by an update, with
// the client height it is stored at.
type ParachainConsensusState struct {
	Height ibc.Height
	State  *ConsensusState
}

// CheckHeaderAndUpdateState verifies header and returns the advanced client
// state with the consensus states of the proven parachain headers, in
// height order. Any failure returns no state.
func (cs ClientState) CheckHeaderAndUpdateState(
	host crypto.HostFunctions, header *Header,
) (*ClientState, []ParachainConsensusState, error) {
	if cs.IsFrozen() {
		return nil, nil, fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if header == nil || (header.MmrUpdate == nil && len(header.ParachainHeaders) == 0) {
		return nil, nil, fmt.Errorf("%w: empty header", ErrInvalidHeader)
	}

	newCS := cs
	if header.MmrUpdate != nil {
		if err := newCS.verifyMmrUpdate(host, *header.MmrUpdate); err != nil {
			return nil, nil, err
		}
		updated, err := newCS.GetUpdatedClientState(host, *header.MmrUpdate)
		if err != nil {
			return nil, nil, err
		}
		newCS = *updated
	}

	states, err := newCS.parachainStates(host, header.ParachainHeaders)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range states {
		if h := uint32(s.Height.RevisionHeight); h > newCS.LatestParaHeight {
			newCS.LatestParaHeight = h
		}
	}
	return &newCS, states, nil
}

// authoritySetFor returns the set expected to sign commitments of setID:
// the current or the next one.
func (cs ClientState) authoritySetFor(setID uint64) (AuthoritySet, error) {
	switch setID {
	case cs.Authority.ID:
		return cs.Authority, nil
	case cs.NextAuthoritySet.ID:
		return cs.NextAuthoritySet, nil
	default:
		return AuthoritySet{}, fmt.Errorf("%w: commitment set id %d, current %d, next %d",
			ErrAuthoritySetMismatch, setID, cs.Authority.ID, cs.NextAuthoritySet.ID)
	}
}

// verifyMmrUpdate checks the signed commitment and the inclusion of the
// latest leaf under the commitment's MMR root.
func (cs ClientState) verifyMmrUpdate(host crypto.HostFunctions, update MmrUpdateProof) error {
	c := update.SignedCommitment.Commitment
	set, err := cs.authoritySetFor(c.ValidatorSetID)
	if err != nil {
		return err
	}
	if c.BlockNumber <= cs.LatestBeefyHeight {
		return fmt.Errorf("%w: block #%d, latest #%d", ErrOutdatedCommitment, c.BlockNumber, cs.LatestBeefyHeight)
	}
	root, err := c.MmrRoot()
	if err != nil {
		return err
	}
	if err := VerifySignedCommitment(host, set, update.SignedCommitment, update.AuthorityProofs); err != nil {
		return err
	}
	if update.LatestMmrLeaf.ParentNumber+1 != c.BlockNumber {
		return fmt.Errorf("%w: latest leaf has parent #%d, commitment is at #%d",
			ErrInvalidLeafIndex, update.LatestMmrLeaf.ParentNumber, c.BlockNumber)
	}
	return verifyLeaf(host, root, cs.BeefyActivationBlock, c.BlockNumber, update.LatestMmrLeaf, update.MmrProof)
}

// GetUpdatedClientState applies a verified MMR update: the client moves to
// the commitment's MMR root and height, and rotates its authority sets when
// the commitment is signed by the next set. Commitments of any other set,
// and commitments not above the latest height, are rejected.
func (cs ClientState) GetUpdatedClientState(host crypto.HostFunctions, update MmrUpdateProof) (*ClientState, error) {
	c := update.SignedCommitment.Commitment
	if _, err := cs.authoritySetFor(c.ValidatorSetID); err != nil {
		return nil, err
	}
	if c.BlockNumber <= cs.LatestBeefyHeight {
		return nil, fmt.Errorf("%w: block #%d, latest #%d", ErrOutdatedCommitment, c.BlockNumber, cs.LatestBeefyHeight)
	}
	root, err := c.MmrRoot()
	if err != nil {
		return nil, err
	}

	newCS := cs
	if c.ValidatorSetID == cs.NextAuthoritySet.ID {
		newCS.Authority = cs.NextAuthoritySet
		newCS.NextAuthoritySet = update.LatestMmrLeaf.BeefyNextAuthoritySet
	}
	newCS.LatestBeefyHeight = c.BlockNumber
	newCS.MmrRootHash = root
	return &newCS, nil
}

func (cs ClientState) parachainStates(host crypto.HostFunctions, headers []ParachainHeader) ([]ParachainConsensusState, error) {
	states := make([]ParachainConsensusState, 0, len(headers))
	seen := make(map[uint32]struct{}, len(headers))

	for _, ph := range headers {
		if ph.ParaID != cs.ParaID {
			return nil, fmt.Errorf("%w: para id %d, client tracks %d", ErrUnknownParachain, ph.ParaID, cs.ParaID)
		}
		relayBlock := ph.MmrLeaf.ParentNumber + 1
		if relayBlock > cs.LatestBeefyHeight {
			return nil, fmt.Errorf("%w: relay block #%d, latest #%d", ErrRelayBlockNotCommitted, relayBlock, cs.LatestBeefyHeight)
		}
		if _, dup := seen[relayBlock]; dup {
			return nil, fmt.Errorf("%w: duplicate parachain header for relay block #%d", ErrInvalidHeader, relayBlock)
		}
		seen[relayBlock] = struct{}{}

		if !merkle.VerifyBinaryProof(host.Keccak256, ph.MmrLeaf.ParachainHeads, HeadsLeaf(ph.ParaID, ph.ParachainHeader), ph.HeadsProof) {
			return nil, fmt.Errorf("%w: relay block #%d", ErrParachainHeadsProof, relayBlock)
		}
		if err := verifyLeaf(host, cs.MmrRootHash, cs.BeefyActivationBlock, cs.LatestBeefyHeight, ph.MmrLeaf, ph.MmrProof); err != nil {
			return nil, err
		}

		paraHeader, err := grandpa.DecodeHeader(ph.ParachainHeader)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if paraHeader.Number > math.MaxUint32 {
			return nil, fmt.Errorf("%w: parachain block number %d overflows u32", ErrInvalidHeader, paraHeader.Number)
		}
		ext, found, err := trie.VerifyProof(host.Blake2b256, paraHeader.ExtrinsicsRoot, ph.ExtrinsicProof, grandpa.ExtrinsicKey(0))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtrinsicProof, err)
		}
		if !found || !bytes.Equal(ext, ph.Extrinsic) {
			return nil, fmt.Errorf("%w: extrinsic 0 of parachain block #%d does not match", ErrExtrinsicProof, paraHeader.Number)
		}
		millis, err := grandpa.DecodeTimestamp(ext)
		if err != nil {
			return nil, err
		}

		states = append(states, ParachainConsensusState{
			Height: ibc.NewHeight(uint64(cs.ParaID), uint64(paraHeader.Number)),
			State:  NewConsensusState(millis, paraHeader.StateRoot),
		})
	}

	sort.SliceStable(states, func(i, j int) bool { return states[i].Height.LT(states[j].Height) })
	return states, nil
}
