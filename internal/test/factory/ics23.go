package factory

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	ics23 "github.com/confio/ics23/go"

	"github.com/lightibc/lightibc/crypto/merkle"
	"github.com/lightibc/lightibc/ibc/commitment"
)

// MerkleStore is an RFC 6962 tree over sorted key/value pairs, proven with
// ics23.TendermintSpec. Its root matches merkle.HashFromByteSlices over the
// encoded leaves.
type MerkleStore struct {
	keys   [][]byte
	values map[string][]byte
}

// NewMerkleStore builds a store from kvs.
func NewMerkleStore(kvs map[string][]byte) *MerkleStore {
	s := &MerkleStore{values: make(map[string][]byte, len(kvs))}
	for k, v := range kvs {
		s.keys = append(s.keys, []byte(k))
		s.values[k] = v
	}
	sort.Slice(s.keys, func(i, j int) bool { return bytes.Compare(s.keys[i], s.keys[j]) < 0 })
	return s
}

func (s *MerkleStore) items() [][]byte {
	items := make([][]byte, len(s.keys))
	for i, k := range s.keys {
		items[i] = leafBytes(k, s.values[string(k)])
	}
	return items
}

// Root returns the tree root.
func (s *MerkleStore) Root() []byte {
	return merkle.HashFromByteSlices(s.items())
}

// Prove returns an existence proof for a present key and a non-existence
// proof otherwise.
func (s *MerkleStore) Prove(key []byte) (*ics23.CommitmentProof, error) {
	if len(s.keys) == 0 {
		return nil, fmt.Errorf("empty store")
	}
	i := sort.Search(len(s.keys), func(i int) bool { return bytes.Compare(s.keys[i], key) >= 0 })
	if i < len(s.keys) && bytes.Equal(s.keys[i], key) {
		return &ics23.CommitmentProof{
			Proof: &ics23.CommitmentProof_Exist{Exist: s.existence(i)},
		}, nil
	}
	nonexist := &ics23.NonExistenceProof{Key: key}
	if i > 0 {
		nonexist.Left = s.existence(i - 1)
	}
	if i < len(s.keys) {
		nonexist.Right = s.existence(i)
	}
	return &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Nonexist{Nonexist: nonexist},
	}, nil
}

func (s *MerkleStore) existence(i int) *ics23.ExistenceProof {
	key := s.keys[i]
	return &ics23.ExistenceProof{
		Key:   append([]byte{}, key...),
		Value: append([]byte{}, s.values[string(key)]...),
		Leaf: &ics23.LeafOp{
			Hash:         ics23.HashOp_SHA256,
			PrehashKey:   ics23.HashOp_NO_HASH,
			PrehashValue: ics23.HashOp_SHA256,
			Length:       ics23.LengthOp_VAR_PROTO,
			Prefix:       []byte{0},
		},
		Path: innerPath(s.items(), i),
	}
}

// innerPath returns the inner ops from leaf i to the root.
func innerPath(items [][]byte, i int) []*ics23.InnerOp {
	if len(items) <= 1 {
		return nil
	}
	k := splitPoint(len(items))
	if i < k {
		return append(innerPath(items[:k], i), &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: []byte{1},
			Suffix: merkle.HashFromByteSlices(items[k:]),
		})
	}
	return append(innerPath(items[k:], i-k), &ics23.InnerOp{
		Hash:   ics23.HashOp_SHA256,
		Prefix: append([]byte{1}, merkle.HashFromByteSlices(items[:k])...),
	})
}

func splitPoint(n int) int {
	k := 1 << uint(bits.Len(uint(n))-1)
	if k == n {
		k >>= 1
	}
	return k
}

func leafBytes(key, value []byte) []byte {
	vh := sha256.Sum256(value)
	buf := binary.AppendUvarint(nil, uint64(len(key)))
	buf = append(buf, key...)
	buf = binary.AppendUvarint(buf, uint64(len(vh)))
	return append(buf, vh[:]...)
}

// MultiStore mimics a Cosmos SDK root store: one MerkleStore per module and
// a root MerkleStore over the module roots.
type MultiStore struct {
	stores map[string]*MerkleStore
}

// MultiStoreSpecs are the proof specs of a MultiStore, lowest tree first.
var MultiStoreSpecs = []*ics23.ProofSpec{ics23.TendermintSpec, ics23.TendermintSpec}

// NewMultiStore builds a MultiStore from per-module key/value maps.
func NewMultiStore(modules map[string]map[string][]byte) *MultiStore {
	ms := &MultiStore{stores: make(map[string]*MerkleStore, len(modules))}
	for name, kvs := range modules {
		ms.stores[name] = NewMerkleStore(kvs)
	}
	return ms
}

func (ms *MultiStore) rootStore() *MerkleStore {
	roots := make(map[string][]byte, len(ms.stores))
	for name, s := range ms.stores {
		roots[name] = s.Root()
	}
	return NewMerkleStore(roots)
}

// Root returns the app hash.
func (ms *MultiStore) Root() commitment.MerkleRoot {
	return commitment.NewMerkleRoot(ms.rootStore().Root())
}

// Prove returns a chained proof of key in module, ordered leaf to root.
func (ms *MultiStore) Prove(module string, key []byte) (commitment.MerkleProof, error) {
	s, ok := ms.stores[module]
	if !ok {
		return commitment.MerkleProof{}, fmt.Errorf("no store %q", module)
	}
	inner, err := s.Prove(key)
	if err != nil {
		return commitment.MerkleProof{}, err
	}
	outer, err := ms.rootStore().Prove([]byte(module))
	if err != nil {
		return commitment.MerkleProof{}, err
	}
	return commitment.MerkleProof{Proofs: []*ics23.CommitmentProof{inner, outer}}, nil
}
