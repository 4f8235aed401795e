package beefy

import (
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/merkle"
	"github.com/lightibc/lightibc/crypto/mmr"
)

// MmrRootID is the payload id of the MMR root in a BEEFY commitment.
var MmrRootID = [2]byte{'m', 'h'}

// PayloadItem is one entry of a commitment payload.
type PayloadItem struct {
	ID   [2]byte
	Data []byte
}

// Commitment is what BEEFY authorities sign: a payload (the MMR root among
// others) at a relay block, for an authority set.
type Commitment struct {
	Payload        []PayloadItem
	BlockNumber    uint32
	ValidatorSetID uint64
}

// Hash returns keccak256 of the SCALE encoded commitment, the message BEEFY
// authorities sign.
func (c Commitment) Hash(host crypto.HostFunctions) crypto.Hash {
	return host.Keccak256(scale.MustMarshal(c))
}

// MmrRoot returns the MMR root carried by the payload.
func (c Commitment) MmrRoot() (crypto.Hash, error) {
	for _, item := range c.Payload {
		if item.ID != MmrRootID {
			continue
		}
		if h, ok := crypto.HashFromBytes(item.Data); ok {
			return h, nil
		}
		return crypto.Hash{}, fmt.Errorf("%w: %d byte payload", ErrMmrRootHashNotFound, len(item.Data))
	}
	return crypto.Hash{}, ErrMmrRootHashNotFound
}

// Signature is a recoverable secp256k1 signature by the authority at Index.
type Signature struct {
	Index     uint32
	Signature [65]byte
}

// SignedCommitment is a commitment with the signatures collected for it.
type SignedCommitment struct {
	Commitment Commitment
	Signatures []Signature
}

// AuthoritySet identifies a BEEFY authority set by id, size and the binary
// Merkle root of its compressed public keys.
type AuthoritySet struct {
	ID   uint64
	Len  uint32
	Root crypto.Hash
}

// MmrLeaf is the leaf the MMR pallet appends for every relay block.
type MmrLeaf struct {
	Version               uint8
	ParentNumber          uint32
	ParentHash            crypto.Hash
	BeefyNextAuthoritySet AuthoritySet
	// ParachainHeads is the binary Merkle root of the parachain heads
	// included in the parent block.
	ParachainHeads crypto.Hash
}

// Hash returns keccak256 of the SCALE encoded leaf.
func (l MmrLeaf) Hash(host crypto.HostFunctions) crypto.Hash {
	return host.Keccak256(scale.MustMarshal(l))
}

// MmrUpdateProof moves the client to a newer MMR root.
type MmrUpdateProof struct {
	SignedCommitment SignedCommitment
	// AuthorityProofs holds a binary Merkle proof of each signer's public
	// key, in signature order.
	AuthorityProofs [][]crypto.Hash
	// LatestMmrLeaf is the leaf of the commitment's block.
	LatestMmrLeaf MmrLeaf
	MmrProof      mmr.Proof
}

// ParachainHeader proves a parachain header through an MMR leaf.
type ParachainHeader struct {
	// ParachainHeader is the SCALE encoded parachain header.
	ParachainHeader []byte
	MmrLeaf         MmrLeaf
	MmrProof        mmr.Proof
	ParaID          uint32
	// HeadsProof proves the (ParaID, head) leaf under MmrLeaf.ParachainHeads.
	HeadsProof merkle.BinaryProof
	// Extrinsic is the timestamp inherent and ExtrinsicProof its proof at
	// index 0 of the parachain block's extrinsics trie.
	Extrinsic      []byte
	ExtrinsicProof [][]byte
}

// HeadsLeaf returns the parachain heads tree leaf of paraID with the given
// SCALE encoded header: u32 para id ++ Vec<u8> head data.
func HeadsLeaf(paraID uint32, header []byte) []byte {
	return scale.MustMarshal(struct {
		ParaID   uint32
		HeadData []byte
	}{paraID, header})
}
