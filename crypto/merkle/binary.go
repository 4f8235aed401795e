package merkle

import (
	"errors"
	"fmt"

	"github.com/lightibc/lightibc/crypto"
)

// HashFn hashes the concatenation of its arguments.
type HashFn = crypto.HashFn

// ErrLeafIndexOutOfRange is returned when a proof is requested for a leaf
// the tree does not have.
var ErrLeafIndexOutOfRange = errors.New("merkle: leaf index out of range")

// BinaryProof proves that Leaf is the LeafIndex-th of NumberOfLeaves leaves
// under a Substrate binary Merkle root.
type BinaryProof struct {
	Proof          []crypto.Hash
	NumberOfLeaves uint32
	LeafIndex      uint32
}

// BinaryRoot computes the root of a Substrate style binary Merkle tree. Leaves
// are hashed, pairs are combined left to right and an odd trailing node is
// promoted to the next level unchanged. The empty tree has a zero root.
func BinaryRoot(hash HashFn, leaves [][]byte) crypto.Hash {
	if len(leaves) == 0 {
		return crypto.Hash{}
	}

	level := make([]crypto.Hash, len(leaves))
	for i, leaf := range leaves {
		level[i] = hash(leaf)
	}

	for len(level) > 1 {
		level = nextLevel(hash, level)
	}
	return level[0]
}

// BinaryProofOf builds the proof of the leaf at index.
func BinaryProofOf(hash HashFn, leaves [][]byte, index uint32) (crypto.Hash, BinaryProof, error) {
	if int(index) >= len(leaves) {
		return crypto.Hash{}, BinaryProof{}, fmt.Errorf("%w: %d >= %d", ErrLeafIndexOutOfRange, index, len(leaves))
	}

	level := make([]crypto.Hash, len(leaves))
	for i, leaf := range leaves {
		level[i] = hash(leaf)
	}

	proof := BinaryProof{
		NumberOfLeaves: uint32(len(leaves)),
		LeafIndex:      index,
	}
	pos := int(index)
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof.Proof = append(proof.Proof, level[sibling])
		}
		level = nextLevel(hash, level)
		pos /= 2
	}
	return level[0], proof, nil
}

// VerifyBinaryProof reports whether leaf is committed to by root at the
// position described by proof. Every proof item must be consumed.
func VerifyBinaryProof(hash HashFn, root crypto.Hash, leaf []byte, proof BinaryProof) bool {
	if proof.NumberOfLeaves == 0 || proof.LeafIndex >= proof.NumberOfLeaves {
		return false
	}

	computed := hash(leaf)
	pos, width := proof.LeafIndex, proof.NumberOfLeaves
	items := proof.Proof
	for width > 1 {
		switch {
		case pos%2 == 1:
			if len(items) == 0 {
				return false
			}
			computed = hash(items[0][:], computed[:])
			items = items[1:]
		case pos+1 < width:
			if len(items) == 0 {
				return false
			}
			computed = hash(computed[:], items[0][:])
			items = items[1:]
		}
		pos /= 2
		width = (width + 1) / 2
	}

	return len(items) == 0 && computed == root
}

func nextLevel(hash HashFn, level []crypto.Hash) []crypto.Hash {
	next := make([]crypto.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, hash(level[i][:], level[i+1][:]))
		} else {
			next = append(next, level[i])
		}
	}
	return next
}
