// Package trie implements the base-16 Patricia-Merkle trie used for Substrate
// state and extrinsic roots: its node codec, an in-memory builder able to
// produce storage proofs, and stateless proof verification.
package trie

import (
	"bytes"
	"sort"

	"github.com/lightibc/lightibc/crypto"
)

// ChildStorageKeyPrefix prefixes the key under which the root of a default
// child trie is stored in the main trie.
const ChildStorageKeyPrefix = ":child_storage:default:"

// ChildStorageKey returns the main trie key holding the root of the child
// trie identified by name.
func ChildStorageKey(name []byte) []byte {
	return append([]byte(ChildStorageKeyPrefix), name...)
}

// EmptyRoot returns the root of a trie without entries.
func EmptyRoot(hash crypto.HashFn) crypto.Hash {
	return hash([]byte{emptyTrie})
}

// Trie is an in-memory trie. It is rebuilt on every Root or Prove call and
// is meant for proof generation in relayers and tests, not for large state.
// It is not safe for concurrent use.
type Trie struct {
	hash    crypto.HashFn
	entries map[string][]byte
}

// New returns an empty trie hashing nodes with hash (blake2b-256 on
// Substrate chains).
func New(hash crypto.HashFn) *Trie {
	return &Trie{hash: hash, entries: make(map[string][]byte)}
}

// Put inserts or replaces the value stored under key.
func (t *Trie) Put(key, value []byte) {
	t.entries[string(key)] = append([]byte(nil), value...)
}

// Delete removes key.
func (t *Trie) Delete(key []byte) {
	delete(t.entries, string(key))
}

// Get returns the value stored under key.
func (t *Trie) Get(key []byte) ([]byte, bool) {
	v, ok := t.entries[string(key)]
	return v, ok
}

// Root returns the trie root.
func (t *Trie) Root() crypto.Hash {
	root, _ := t.build()
	return root
}

// Prove returns the nodes needed to look up every key, including keys that
// are absent from the trie. Nodes are deduplicated and sorted.
func (t *Trie) Prove(keys ...[]byte) ([][]byte, error) {
	root, db := t.build()

	seen := make(map[crypto.Hash]struct{})
	var proof [][]byte
	for _, key := range keys {
		_, _, err := lookup(db, root, key, func(h crypto.Hash, enc []byte) {
			if _, ok := seen[h]; ok {
				return
			}
			seen[h] = struct{}{}
			proof = append(proof, enc)
		})
		if err != nil {
			return nil, err
		}
	}

	sortNodes(proof)
	return proof, nil
}

type entry struct {
	nibbles []byte
	value   []byte
}

func (t *Trie) build() (crypto.Hash, map[crypto.Hash][]byte) {
	db := make(map[crypto.Hash][]byte)

	if len(t.entries) == 0 {
		enc := []byte{emptyTrie}
		root := t.hash(enc)
		db[root] = enc
		return root, db
	}

	entries := make([]entry, 0, len(t.entries))
	for k, v := range t.entries {
		entries = append(entries, entry{nibbles: toNibbles([]byte(k)), value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].nibbles, entries[j].nibbles) < 0
	})

	enc := t.encode(entries, 0, db)
	root := t.hash(enc)
	db[root] = enc
	return root, db
}

// encode returns the encoding of the node holding entries, all of which share
// their first depth nibbles. Hashed descendants are stored in db.
func (t *Trie) encode(entries []entry, depth int, db map[crypto.Hash][]byte) []byte {
	if len(entries) == 1 {
		return encodeLeaf(entries[0].nibbles[depth:], entries[0].value)
	}

	// entries are sorted, so the common prefix of the first and last is
	// shared by all of them
	first, last := entries[0].nibbles[depth:], entries[len(entries)-1].nibbles[depth:]
	common := commonPrefix(first, last)
	partial := first[:common]
	split := depth + common

	var (
		value    []byte
		hasValue bool
	)
	if len(entries[0].nibbles) == split {
		value, hasValue = entries[0].value, true
		entries = entries[1:]
	}

	var children [childCount][]byte
	for len(entries) > 0 {
		idx := entries[0].nibbles[split]
		end := 1
		for end < len(entries) && entries[end].nibbles[split] == idx {
			end++
		}
		children[idx] = t.reference(t.encode(entries[:end], split+1, db), db)
		entries = entries[end:]
	}

	return encodeBranch(partial, value, hasValue, &children)
}

// reference inlines encodings shorter than a hash and stores the rest.
func (t *Trie) reference(enc []byte, db map[crypto.Hash][]byte) []byte {
	if len(enc) < crypto.HashSize {
		return enc
	}
	h := t.hash(enc)
	db[h] = enc
	return h[:]
}

func toNibbles(key []byte) []byte {
	out := make([]byte, 0, 2*len(key))
	for _, b := range key {
		out = append(out, b>>4, b&0x0f)
	}
	return out
}

func commonPrefix(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func sortNodes(nodes [][]byte) {
	sort.Slice(nodes, func(i, j int) bool { return bytes.Compare(nodes[i], nodes[j]) < 0 })
}

// MergeProofs combines proofs, for instance a main trie proof of a child
// root with a proof from that child trie. Duplicate nodes are dropped.
func MergeProofs(proofs ...[][]byte) [][]byte {
	seen := make(map[string]struct{})
	var out [][]byte
	for _, proof := range proofs {
		for _, n := range proof {
			if _, ok := seen[string(n)]; ok {
				continue
			}
			seen[string(n)] = struct{}{}
			out = append(out, n)
		}
	}
	sortNodes(out)
	return out
}
