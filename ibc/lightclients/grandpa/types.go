package grandpa

import (
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/crypto"
)

// Digest item kinds carrying a consensus engine id.
const (
	DigestConsensus  uint8 = 4
	DigestSeal       uint8 = 5
	DigestPreRuntime uint8 = 6
)

// DigestItem is an engine tagged header digest entry. Only the PreRuntime,
// Consensus and Seal variants are representable.
type DigestItem struct {
	Kind     uint8
	EngineID [4]byte
	Data     []byte
}

// Header is a Substrate block header with a 32-bit block number. It is used
// for both relay chain and parachain headers.
type Header struct {
	ParentHash     crypto.Hash
	Number         uint // Compact<u32>
	StateRoot      crypto.Hash
	ExtrinsicsRoot crypto.Hash
	Digest         []DigestItem
}

// Encode returns the SCALE encoding of the header.
func (h Header) Encode() ([]byte, error) {
	return scale.Marshal(h)
}

// Hash returns the blake2b-256 hash of the encoded header.
func (h Header) Hash(host crypto.HostFunctions) crypto.Hash {
	bz, err := h.Encode()
	if err != nil {
		// every field has a fixed SCALE representation
		panic(fmt.Sprintf("encode header: %v", err))
	}
	return host.Blake2b256(bz)
}

// DecodeHeader decodes a SCALE encoded header.
func DecodeHeader(bz []byte) (Header, error) {
	var h Header
	if err := scale.Unmarshal(bz, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return h, nil
}

// Authority is a GRANDPA voter: an ed25519 public key and its weight.
type Authority struct {
	Key    [32]byte
	Weight uint64
}

// Precommit is a vote for a block and, implicitly, all its ancestors.
type Precommit struct {
	TargetHash   crypto.Hash
	TargetNumber uint32
}

// SignedPrecommit is a precommit signed by authority ID.
type SignedPrecommit struct {
	Precommit Precommit
	Signature [64]byte
	ID        [32]byte
}

// Commit is a set of precommits finalizing the target block.
type Commit struct {
	TargetHash   crypto.Hash
	TargetNumber uint32
	Precommits   []SignedPrecommit
}

// Justification proves the finality of Commit's target: the commit plus the
// headers routing every precommit target back to the commit target.
type Justification struct {
	Round           uint64
	Commit          Commit
	VotesAncestries []Header
}

// DecodeJustification decodes a SCALE encoded justification.
func DecodeJustification(bz []byte) (Justification, error) {
	var j Justification
	if err := scale.Unmarshal(bz, &j); err != nil {
		return Justification{}, fmt.Errorf("%w: %v", ErrInvalidJustification, err)
	}
	return j, nil
}

// Encode returns the SCALE encoding of the justification.
func (j Justification) Encode() ([]byte, error) {
	return scale.Marshal(j)
}

// precommitMessage is the grandpa Message::Precommit variant.
const precommitMessage uint8 = 1

// localizedPayload is what an authority signs for a precommit: the message
// bound to a round and an authority set.
type localizedPayload struct {
	MessageKind uint8
	Precommit   Precommit
	Round       uint64
	SetID       uint64
}

// PrecommitSignBytes returns the bytes an authority signs when precommitting
// in round under authority set setID.
func PrecommitSignBytes(p Precommit, round, setID uint64) []byte {
	return scale.MustMarshal(localizedPayload{
		MessageKind: precommitMessage,
		Precommit:   p,
		Round:       round,
		SetID:       setID,
	})
}

// FinalityProof proves the finality of Block: a justification for it and
// the headers between the verifier's last finalized block and Block.
type FinalityProof struct {
	Block          crypto.Hash
	Justification  []byte
	UnknownHeaders []Header
}

// ParachainHeaderProofs binds a parachain header to a relay chain block.
type ParachainHeaderProofs struct {
	// StateProof proves Paras::Heads(para_id) in the relay block's state.
	StateProof [][]byte
	// Extrinsic is the timestamp inherent, the parachain block's first
	// extrinsic.
	Extrinsic []byte
	// ExtrinsicProof proves Extrinsic at index 0 of the parachain block's
	// extrinsics trie.
	ExtrinsicProof [][]byte
}

// ParachainHeader is the proof set for one relay block.
type ParachainHeader struct {
	RelayHash crypto.Hash
	Proofs    ParachainHeaderProofs
}
