package grandpa

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/trie"
)

// DefaultMaxUnknownHeaders bounds the headers a finality proof may carry.
const DefaultMaxUnknownHeaders = 100_000

// ClientMessage is the GRANDPA client update message: a relay chain finality
// proof and the parachain headers included in the newly finalized relay
// blocks.
type ClientMessage struct {
	FinalityProof    FinalityProof
	ParachainHeaders []ParachainHeader
}

func (ClientMessage) ClientType() string {
	return ClientType
}

// ParachainConsensusState is a consensus state produced by an update, with
// the client height it is stored at.
type ParachainConsensusState struct {
	Height ibc.Height
	State  *ConsensusState
}

// CheckHeaderAndUpdateState verifies header against the client state and
// returns the advanced client state with the consensus states of every
// proven parachain header, in height order. Any failure returns no state:
// the receiver is never modified.
//
// The steps are:
//  1. the finality proof's block must be one of its unknown headers,
//  2. the unknown headers must link the latest finalized relay block to it,
//  3. the justification must finalize it under the current authority set,
//  4. every parachain header must be proven by Paras::Heads in a newly
//     finalized relay block, with its timestamp inherent proven against its
//     extrinsics root.
//
// Authority set changes are not detected: the current set is kept as is.
func (cs ClientState) CheckHeaderAndUpdateState(
	host crypto.HostFunctions, header *ClientMessage, maxUnknownHeaders int,
) (*ClientState, []ParachainConsensusState, error) {
	if cs.IsFrozen() {
		return nil, nil, fmt.Errorf("%w: frozen at %s", ibc.ErrClientFrozen, cs.FrozenHeight)
	}
	if header == nil {
		return nil, nil, fmt.Errorf("%w: nil header", ErrInvalidHeader)
	}
	if maxUnknownHeaders <= 0 {
		maxUnknownHeaders = DefaultMaxUnknownHeaders
	}

	proof := header.FinalityProof
	if len(proof.UnknownHeaders) > maxUnknownHeaders {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrTooManyUnknownHeaders, len(proof.UnknownHeaders), maxUnknownHeaders)
	}

	chain := NewAncestryChain(host, proof.UnknownHeaders)
	target, ok := chain.Header(proof.Block)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrTargetHeaderNotFound, proof.Block)
	}
	if target.Number > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: block number %d overflows u32", ErrInvalidHeader, target.Number)
	}
	targetNumber := uint32(target.Number)
	if targetNumber <= cs.LatestRelayHeight {
		return nil, nil, fmt.Errorf("%w: relay block #%d is not above latest finalized #%d",
			ibc.ErrStaleUpdate, targetNumber, cs.LatestRelayHeight)
	}

	route, err := chain.Ancestry(cs.LatestRelayHash, proof.Block)
	if err != nil {
		return nil, nil, err
	}

	justification, err := DecodeJustification(proof.Justification)
	if err != nil {
		return nil, nil, err
	}
	err = justification.Verify(host, cs.AuthoritySet(), Precommit{TargetHash: proof.Block, TargetNumber: targetNumber})
	if err != nil {
		return nil, nil, err
	}

	finalized := make(map[crypto.Hash]struct{}, len(route))
	for _, h := range route {
		finalized[h] = struct{}{}
	}
	states, err := cs.parachainStates(host, chain, finalized, header.ParachainHeaders)
	if err != nil {
		return nil, nil, err
	}

	newCS := cs
	newCS.LatestRelayHash = proof.Block
	newCS.LatestRelayHeight = targetNumber
	for _, s := range states {
		if h := uint32(s.Height.RevisionHeight); h > newCS.LatestParaHeight {
			newCS.LatestParaHeight = h
		}
	}
	return &newCS, states, nil
}

func (cs ClientState) parachainStates(
	host crypto.HostFunctions,
	chain *AncestryChain,
	finalized map[crypto.Hash]struct{},
	headers []ParachainHeader,
) ([]ParachainConsensusState, error) {
	headsKey := ParasHeadsKey(host, cs.ParaID)
	seen := make(map[crypto.Hash]struct{}, len(headers))
	states := make([]ParachainConsensusState, 0, len(headers))

	for _, ph := range headers {
		if _, ok := finalized[ph.RelayHash]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrRelayHeaderNotFinalized, ph.RelayHash)
		}
		if _, dup := seen[ph.RelayHash]; dup {
			return nil, fmt.Errorf("%w: duplicate parachain header for relay block %s", ErrInvalidHeader, ph.RelayHash)
		}
		seen[ph.RelayHash] = struct{}{}
		relay, _ := chain.Header(ph.RelayHash)

		paraHeader, err := provenParachainHeader(host, relay.StateRoot, headsKey, ph.Proofs.StateProof)
		if err != nil {
			return nil, fmt.Errorf("relay block %s: %w", ph.RelayHash, err)
		}
		if paraHeader.Number > math.MaxUint32 {
			return nil, fmt.Errorf("%w: parachain block number %d overflows u32", ErrInvalidHeader, paraHeader.Number)
		}

		ext, found, err := trie.VerifyProof(host.Blake2b256, paraHeader.ExtrinsicsRoot, ph.Proofs.ExtrinsicProof, ExtrinsicKey(0))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtrinsicProof, err)
		}
		if !found || !bytes.Equal(ext, ph.Proofs.Extrinsic) {
			return nil, fmt.Errorf("%w: extrinsic 0 of parachain block #%d does not match", ErrExtrinsicProof, paraHeader.Number)
		}
		millis, err := DecodeTimestamp(ext)
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

// provenParachainHeader reads and decodes the head data stored under
// headsKey in the relay state.
func provenParachainHeader(host crypto.HostFunctions, relayStateRoot crypto.Hash, headsKey []byte, proof [][]byte) (Header, error) {
	value, found, err := trie.VerifyProof(host.Blake2b256, relayStateRoot, proof, headsKey)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrParachainHeadProof, err)
	}
	if !found {
		return Header{}, fmt.Errorf("%w: no head stored for the parachain", ErrParachainHeadProof)
	}
	var headData []byte
	if err := scale.Unmarshal(value, &headData); err != nil {
		return Header{}, fmt.Errorf("%w: head data: %v", ErrInvalidHeader, err)
	}
	return DecodeHeader(headData)
}
