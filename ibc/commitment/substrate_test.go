package commitment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lightibc/lightibc/crypto/native"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/trie"
)

type substrateState struct {
	root  commitment.MerkleRoot
	proof []byte
}

// genSubstrateState stores kvs in the child trie named prefix and proves
// keys against the resulting state root.
func genSubstrateState(t require.TestingT, prefix []byte, kvs map[string][]byte, keys ...[]byte) substrateState {
	host := native.New()
	child := trie.New(host.Blake2b256)
	for k, v := range kvs {
		child.Put([]byte(k), v)
	}
	state := trie.New(host.Blake2b256)
	state.Put([]byte(":code"), []byte("runtime"))
	state.Put(trie.ChildStorageKey(prefix), child.Root().Bytes())

	mainProof, err := state.Prove(trie.ChildStorageKey(prefix))
	require.NoError(t, err)
	childProof, err := child.Prove(keys...)
	require.NoError(t, err)
	bz, err := commitment.StorageProof{TrieNodes: trie.MergeProofs(mainProof, childProof)}.Encode()
	require.NoError(t, err)

	return substrateState{root: commitment.NewMerkleRoot(state.Root().Bytes()), proof: bz}
}

// long enough that its leaf is stored by hash rather than inlined
var connectionEnd = []byte("connection end with counterparty connection-7")

func TestSubstrateVerifier(t *testing.T) {
	v := commitment.NewSubstrateVerifier(native.New().Blake2b256)
	absentKey := []byte("clients/07-tendermint-1/clientState")
	st := genSubstrateState(t, ibcPrefix.Bytes(), map[string][]byte{
		string(clientKey):          clientValue,
		"connections/connection-0": connectionEnd,
	}, clientKey, absentKey)

	require.NoError(t, v.VerifyMembership(ibcPrefix, st.root, st.proof, clientKey, clientValue))
	require.NoError(t, v.VerifyNonMembership(ibcPrefix, st.root, st.proof, absentKey))

	testCases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"wrong value", v.VerifyMembership(ibcPrefix, st.root, st.proof, clientKey, []byte("other")),
			commitment.ErrValueMismatch},
		{"absent key", v.VerifyMembership(ibcPrefix, st.root, st.proof, absentKey, clientValue),
			commitment.ErrKeyNotFound},
		{"present key", v.VerifyNonMembership(ibcPrefix, st.root, st.proof, clientKey),
			commitment.ErrKeyExists},
		{"unproven key", v.VerifyMembership(ibcPrefix, st.root, st.proof, []byte("connections/connection-0"), connectionEnd),
			ibc.ErrProofVerificationFailure},
		{"other child trie", v.VerifyMembership(commitment.NewMerklePrefix([]byte("other")), st.root, st.proof, clientKey, clientValue),
			ibc.ErrProofVerificationFailure},
		{"wrong root", v.VerifyMembership(ibcPrefix, commitment.NewMerkleRoot(make([]byte, 32)), st.proof, clientKey, clientValue),
			ibc.ErrProofVerificationFailure},
		{"short root", v.VerifyMembership(ibcPrefix, commitment.NewMerkleRoot([]byte{1}), st.proof, clientKey, clientValue),
			commitment.ErrInvalidProof},
		{"empty prefix", v.VerifyMembership(commitment.MerklePrefix{}, st.root, st.proof, clientKey, clientValue),
			commitment.ErrEmptyCommitmentPrefix},
		{"empty root", v.VerifyMembership(ibcPrefix, commitment.MerkleRoot{}, st.proof, clientKey, clientValue),
			commitment.ErrEmptyMerkleRoot},
		{"empty proof", v.VerifyMembership(ibcPrefix, st.root, nil, clientKey, clientValue),
			commitment.ErrEmptyMerkleProof},
		{"empty value", v.VerifyMembership(ibcPrefix, st.root, st.proof, clientKey, nil),
			commitment.ErrEmptyValue},
		{"undecodable proof", v.VerifyMembership(ibcPrefix, st.root, []byte{0xff}, clientKey, clientValue),
			commitment.ErrInvalidProof},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.err)
			assert.ErrorIs(t, tc.err, tc.wantErr)
		})
	}
}

func TestSubstrateProofMutationProperty(t *testing.T) {
	v := commitment.NewSubstrateVerifier(native.New().Blake2b256)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n").(int)
		kvs := make(map[string][]byte, n)
		for i := 0; i < n; i++ {
			kvs[string(rune('a'+i))+"/key"] = []byte{byte(i), 1, 2, 3}
		}
		key := []byte(string(rune('a'+rapid.IntRange(0, n-1).Draw(t, "key").(int))) + "/key")
		st := genSubstrateState(t, ibcPrefix.Bytes(), kvs, key)
		require.NoError(t, v.VerifyMembership(ibcPrefix, st.root, st.proof, key, kvs[string(key)]))

		p, err := commitment.DecodeStorageProof(st.proof)
		require.NoError(t, err)
		root := append([]byte{}, st.root.Hash...)
		if rapid.Bool().Draw(t, "mutateRoot").(bool) {
			flip(t, root, "root")
		} else {
			node := p.TrieNodes[rapid.IntRange(0, len(p.TrieNodes)-1).Draw(t, "node").(int)]
			flip(t, node, "node")
		}
		bz, err := p.Encode()
		require.NoError(t, err)

		var verr error
		require.NotPanics(t, func() {
			verr = v.VerifyMembership(ibcPrefix, commitment.NewMerkleRoot(root), bz, key, kvs[string(key)])
		})
		require.Error(t, verr)
	})
}

func TestSubstrateExclusionProperty(t *testing.T) {
	v := commitment.NewSubstrateVerifier(native.New().Blake2b256)
	rapid.Check(t, func(t *rapid.T) {
		kvs := make(map[string][]byte)
		for i := 0; i < 8; i++ {
			if rapid.Bool().Draw(t, "present").(bool) {
				kvs[string(rune('a'+i))] = []byte{byte(i) + 1}
			}
		}
		key := []byte{byte('a' + rapid.IntRange(0, 8).Draw(t, "key").(int))}
		value, present := kvs[string(key)]
		if !present {
			value = []byte("anything")
		}
		st := genSubstrateState(t, ibcPrefix.Bytes(), kvs, key)

		memErr := v.VerifyMembership(ibcPrefix, st.root, st.proof, key, value)
		nonErr := v.VerifyNonMembership(ibcPrefix, st.root, st.proof, key)
		require.NotEqual(t, memErr == nil, nonErr == nil, "membership: %v, non-membership: %v", memErr, nonErr)
		require.Equal(t, present, memErr == nil)
	})
}
