package commitment

import (
	"bytes"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/trie"
)

// StorageProof is a Substrate read proof: the encoded trie nodes visited
// while reading a set of keys, SCALE encoded as Vec<Vec<u8>>.
type StorageProof struct {
	TrieNodes [][]byte
}

// DecodeStorageProof decodes a SCALE encoded StorageProof.
func DecodeStorageProof(bz []byte) (StorageProof, error) {
	if len(bz) == 0 {
		return StorageProof{}, ErrEmptyMerkleProof
	}
	var p StorageProof
	if err := scale.Unmarshal(bz, &p.TrieNodes); err != nil {
		return StorageProof{}, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	if len(p.TrieNodes) == 0 {
		return StorageProof{}, ErrEmptyMerkleProof
	}
	return p, nil
}

// Encode returns the SCALE encoding of the proof.
func (p StorageProof) Encode() ([]byte, error) {
	return scale.Marshal(p.TrieNodes)
}

// SubstrateVerifier checks proofs of IBC state kept by pallet-ibc, which
// stores every commitment in a default child trie named after the
// commitment prefix.
type SubstrateVerifier struct {
	hash crypto.HashFn
}

// NewSubstrateVerifier returns a verifier hashing trie nodes with hash,
// typically host.Blake2b256.
func NewSubstrateVerifier(hash crypto.HashFn) SubstrateVerifier {
	return SubstrateVerifier{hash: hash}
}

func (v SubstrateVerifier) read(prefix MerklePrefix, root MerkleRoot, proof []byte, key []byte) ([]byte, bool, error) {
	if prefix.Empty() {
		return nil, false, ErrEmptyCommitmentPrefix
	}
	if root.Empty() {
		return nil, false, ErrEmptyMerkleRoot
	}
	h, ok := crypto.HashFromBytes(root.Hash)
	if !ok {
		return nil, false, fmt.Errorf("%w: root must be %d bytes, got %d", ErrInvalidProof, crypto.HashSize, len(root.Hash))
	}
	p, err := DecodeStorageProof(proof)
	if err != nil {
		return nil, false, err
	}
	value, found, err := trie.VerifyChildProof(v.hash, h, p.TrieNodes, prefix.Bytes(), key)
	if err != nil {
		return nil, false, wrapTrieErr(err)
	}
	return value, found, nil
}

// VerifyMembership checks that key maps to value in the child trie named by
// prefix, under the state root.
func (v SubstrateVerifier) VerifyMembership(prefix MerklePrefix, root MerkleRoot, proof []byte, key, value []byte) error {
	if len(value) == 0 {
		return ErrEmptyValue
	}
	got, found, err := v.read(prefix, root, proof, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if !bytes.Equal(got, value) {
		return fmt.Errorf("%w: key %q", ErrValueMismatch, key)
	}
	return nil
}

// VerifyNonMembership checks that key is absent from the child trie named by
// prefix.
func (v SubstrateVerifier) VerifyNonMembership(prefix MerklePrefix, root MerkleRoot, proof []byte, key []byte) error {
	_, found, err := v.read(prefix, root, proof, key)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}
	return nil
}
