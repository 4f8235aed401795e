package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lightibc/lightibc/crypto"
)

var (
	// ErrHashMismatch is returned when no proof node hashes to the expected
	// root.
	ErrHashMismatch = errors.New("trie: no proof node matches the root hash")
	// ErrDecodeNode is returned when a proof node is malformed.
	ErrDecodeNode = errors.New("trie: malformed node")
	// ErrIncompleteProof is returned when the lookup needs a node the proof
	// does not carry.
	ErrIncompleteProof = errors.New("trie: incomplete proof")
	// ErrEmptyProof is returned for a proof with no nodes.
	ErrEmptyProof = errors.New("trie: empty proof")
	// ErrInvalidChildRoot is returned when the value stored under a child
	// storage key is not a hash.
	ErrInvalidChildRoot = errors.New("trie: invalid child trie root")
)

// ProofDB indexes encoded proof nodes by hash.
type ProofDB map[crypto.Hash][]byte

// NewProofDB hashes every node of proof.
func NewProofDB(hash crypto.HashFn, proof [][]byte) (ProofDB, error) {
	if len(proof) == 0 {
		return nil, ErrEmptyProof
	}
	db := make(ProofDB, len(proof))
	for _, n := range proof {
		db[hash(n)] = n
	}
	return db, nil
}

// Lookup returns the value stored under key in the trie rooted at root.
// found is false when the proof shows the key is absent.
func (db ProofDB) Lookup(root crypto.Hash, key []byte) (value []byte, found bool, err error) {
	return lookup(db, root, key, nil)
}

// VerifyProof looks key up in the trie rooted at root using only the nodes
// in proof.
func VerifyProof(hash crypto.HashFn, root crypto.Hash, proof [][]byte, key []byte) ([]byte, bool, error) {
	db, err := NewProofDB(hash, proof)
	if err != nil {
		return nil, false, err
	}
	return db.Lookup(root, key)
}

// ReadProofCheck looks up every key and returns the values found, keyed by
// the raw key. Absent keys map to nil.
func ReadProofCheck(hash crypto.HashFn, root crypto.Hash, proof [][]byte, keys [][]byte) (map[string][]byte, error) {
	db, err := NewProofDB(hash, proof)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, found, err := db.Lookup(root, key)
		if err != nil {
			return nil, err
		}
		if found {
			out[string(key)] = value
		} else {
			out[string(key)] = nil
		}
	}
	return out, nil
}

// VerifyChildProof looks key up in the default child trie called name, whose
// root is itself proven against the main trie root.
func VerifyChildProof(hash crypto.HashFn, root crypto.Hash, proof [][]byte, name, key []byte) ([]byte, bool, error) {
	db, err := NewProofDB(hash, proof)
	if err != nil {
		return nil, false, err
	}
	childRoot, found, err := db.Lookup(root, ChildStorageKey(name))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	h, ok := crypto.HashFromBytes(childRoot)
	if !ok {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrInvalidChildRoot, len(childRoot))
	}
	return db.Lookup(h, key)
}

func lookup(
	db map[crypto.Hash][]byte,
	root crypto.Hash,
	key []byte,
	record func(crypto.Hash, []byte),
) ([]byte, bool, error) {
	enc, ok := db[root]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrHashMismatch, root)
	}
	if record != nil {
		record(root, enc)
	}

	nibbles := toNibbles(key)
	for {
		n, err := decodeNode(enc)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrDecodeNode, err)
		}

		switch n.kind {
		case kindEmpty:
			return nil, false, nil

		case kindLeaf:
			if bytes.Equal(n.partial, nibbles) {
				return present(n.value), true, nil
			}
			return nil, false, nil

		case kindBranch:
			if !bytes.HasPrefix(nibbles, n.partial) {
				return nil, false, nil
			}
			nibbles = nibbles[len(n.partial):]
			if len(nibbles) == 0 {
				if n.hasValue {
					return present(n.value), true, nil
				}
				return nil, false, nil
			}

			child := n.children[nibbles[0]]
			if child == nil {
				return nil, false, nil
			}
			nibbles = nibbles[1:]

			if len(child) != crypto.HashSize {
				enc = child
				continue
			}
			h, _ := crypto.HashFromBytes(child)
			next, ok := db[h]
			if !ok {
				return nil, false, fmt.Errorf("%w: missing node %s", ErrIncompleteProof, h)
			}
			if record != nil {
				record(h, next)
			}
			enc = next
		}
	}
}

// present keeps a stored empty value distinct from an absent one.
func present(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}
