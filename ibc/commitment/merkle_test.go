package commitment_test

import (
	"fmt"
	"sort"
	"testing"

	ics23 "github.com/confio/ics23/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/internal/test/factory"
)

var (
	ibcPrefix   = commitment.NewMerklePrefix([]byte("ibc"))
	clientKey   = []byte("clients/07-tendermint-0/clientState")
	clientValue = []byte("client state")
)

func testStore() *factory.MultiStore {
	return factory.NewMultiStore(map[string]map[string][]byte{
		"ibc": {
			string(clientKey):                   clientValue,
			"connections/connection-0":          []byte("connection end"),
			"channelEnds/ports/transfer/chan-0": []byte("channel end"),
		},
		"bank": {
			"balances/alice": []byte("100"),
		},
	})
}

func prefixed(t *testing.T, key []byte) commitment.MerklePath {
	path, err := commitment.ApplyPrefix(ibcPrefix, commitment.NewMerklePath(key))
	require.NoError(t, err)
	return path
}

func TestVerifyMembership(t *testing.T) {
	ms := testStore()
	root := ms.Root()
	proof, err := ms.Prove("ibc", clientKey)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		proof   commitment.MerkleProof
		specs   []*ics23.ProofSpec
		root    commitment.MerkleRoot
		path    commitment.MerklePath
		value   []byte
		wantErr error
	}{
		{"valid", proof, factory.MultiStoreSpecs, root, prefixed(t, clientKey), clientValue, nil},
		{"wrong value", proof, factory.MultiStoreSpecs, root, prefixed(t, clientKey), []byte("other"),
			ibc.ErrProofVerificationFailure},
		{"wrong key", proof, factory.MultiStoreSpecs, root, prefixed(t, []byte("clients/other")), clientValue,
			ibc.ErrProofVerificationFailure},
		{"wrong store", proof, factory.MultiStoreSpecs, root,
			commitment.NewMerklePath([]byte("bank"), clientKey), clientValue, ibc.ErrProofVerificationFailure},
		{"wrong root", proof, factory.MultiStoreSpecs, commitment.NewMerkleRoot(factory.Hash("root")),
			prefixed(t, clientKey), clientValue, ibc.ErrProofVerificationFailure},
		{"empty proof", commitment.MerkleProof{}, factory.MultiStoreSpecs, root, prefixed(t, clientKey), clientValue,
			commitment.ErrEmptyMerkleProof},
		{"empty root", proof, factory.MultiStoreSpecs, commitment.MerkleRoot{}, prefixed(t, clientKey), clientValue,
			commitment.ErrEmptyMerkleRoot},
		{"empty value", proof, factory.MultiStoreSpecs, root, prefixed(t, clientKey), nil,
			commitment.ErrEmptyValue},
		{"spec count", proof, factory.MultiStoreSpecs[:1], root, prefixed(t, clientKey), clientValue,
			commitment.ErrInvalidProof},
		{"nil spec", proof, []*ics23.ProofSpec{nil, ics23.TendermintSpec}, root, prefixed(t, clientKey), clientValue,
			commitment.ErrInvalidProof},
		{"path too short", proof, factory.MultiStoreSpecs, root, commitment.NewMerklePath(clientKey), clientValue,
			commitment.ErrInvalidProof},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.proof.VerifyMembership(tc.specs, tc.root, tc.path, tc.value)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestVerifyNonMembership(t *testing.T) {
	ms := testStore()
	root := ms.Root()

	for _, key := range []string{"a", "clients/07-tendermint-1/clientState", "zzz"} {
		key := key
		t.Run(key, func(t *testing.T) {
			proof, err := ms.Prove("ibc", []byte(key))
			require.NoError(t, err)
			require.NoError(t, proof.VerifyNonMembership(factory.MultiStoreSpecs, root, prefixed(t, []byte(key))))

			// the absence proof does not prove any other key absent
			err = proof.VerifyNonMembership(factory.MultiStoreSpecs, root, prefixed(t, clientKey))
			assert.ErrorIs(t, err, ibc.ErrProofVerificationFailure)
		})
	}

	proof, err := ms.Prove("ibc", clientKey)
	require.NoError(t, err)
	err = proof.VerifyNonMembership(factory.MultiStoreSpecs, root, prefixed(t, clientKey))
	assert.ErrorIs(t, err, commitment.ErrKeyExists)
}

func TestApplyPrefix(t *testing.T) {
	_, err := commitment.ApplyPrefix(commitment.MerklePrefix{}, commitment.NewMerklePath(clientKey))
	require.ErrorIs(t, err, commitment.ErrEmptyCommitmentPrefix)
	require.ErrorIs(t, err, ibc.ErrMalformedInput)

	path := prefixed(t, clientKey)
	assert.Equal(t, "/ibc/clients/07-tendermint-0/clientState", path.String())
	key, err := path.GetKey(1)
	require.NoError(t, err)
	assert.Equal(t, clientKey, key)
	_, err = path.GetKey(2)
	assert.Error(t, err)
}

func TestMerkleProofEncoding(t *testing.T) {
	ms := testStore()
	proof, err := ms.Prove("ibc", clientKey)
	require.NoError(t, err)

	bz, err := proof.Encode()
	require.NoError(t, err)
	decoded, err := commitment.DecodeMerkleProof(bz)
	require.NoError(t, err)
	require.NoError(t, decoded.VerifyMembership(factory.MultiStoreSpecs, ms.Root(), prefixed(t, clientKey), clientValue))

	_, err = commitment.DecodeMerkleProof(nil)
	require.ErrorIs(t, err, commitment.ErrEmptyMerkleProof)
	_, err = commitment.DecodeMerkleProof([]byte{0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ibc.ErrProofVerificationFailure)
}

// drawStore draws a store over a subset of 16 fixed keys.
func drawStore(t *rapid.T) (*factory.MultiStore, map[string][]byte) {
	kvs := make(map[string][]byte)
	for i := 0; i < 16; i++ {
		if rapid.Bool().Draw(t, "present").(bool) {
			kvs[fmt.Sprintf("key/%02d", i)] = []byte(fmt.Sprintf("value-%d", i))
		}
	}
	if len(kvs) == 0 {
		kvs["key/00"] = []byte("value-0")
	}
	return factory.NewMultiStore(map[string]map[string][]byte{"ibc": kvs, "bank": {"supply": []byte("1")}}), kvs
}

func flip(t *rapid.T, bz []byte, label string) {
	i := rapid.IntRange(0, len(bz)-1).Draw(t, label+"Index").(int)
	bz[i] ^= byte(rapid.IntRange(1, 255).Draw(t, label+"Mask").(int))
}

func TestMembershipMutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms, kvs := drawStore(t)
		var keys []string
		for k := range kvs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		key := rapid.SampledFrom(keys).Draw(t, "key").(string)
		path := commitment.NewMerklePath([]byte("ibc"), []byte(key))

		proof, err := ms.Prove("ibc", []byte(key))
		require.NoError(t, err)
		require.NoError(t, proof.VerifyMembership(factory.MultiStoreSpecs, ms.Root(), path, kvs[key]))

		root := ms.Root()
		switch rapid.IntRange(0, 3).Draw(t, "target").(int) {
		case 0:
			flip(t, root.Hash, "root")
		case 1:
			level := rapid.IntRange(0, 1).Draw(t, "level").(int)
			flip(t, proof.Proofs[level].GetExist().Value, "value")
		case 2:
			level := rapid.IntRange(0, 1).Draw(t, "level").(int)
			flip(t, proof.Proofs[level].GetExist().Key, "key")
		case 3:
			level := rapid.IntRange(0, 1).Draw(t, "level").(int)
			ops := proof.Proofs[level].GetExist().Path
			if len(ops) == 0 {
				flip(t, proof.Proofs[level].GetExist().Value, "value")
				break
			}
			op := ops[rapid.IntRange(0, len(ops)-1).Draw(t, "op").(int)]
			if len(op.Suffix) > 0 {
				flip(t, op.Suffix, "suffix")
			} else {
				flip(t, op.Prefix, "prefix")
			}
		}

		var verr error
		require.NotPanics(t, func() {
			verr = proof.VerifyMembership(factory.MultiStoreSpecs, root, path, kvs[key])
		})
		require.Error(t, verr)
	})
}

func TestMembershipExclusionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms, kvs := drawStore(t)
		key := fmt.Sprintf("key/%02d", rapid.IntRange(0, 16).Draw(t, "key").(int))
		value, present := kvs[key]
		if !present {
			value = []byte("anything")
		}
		path := commitment.NewMerklePath([]byte("ibc"), []byte(key))
		root := ms.Root()

		proof, err := ms.Prove("ibc", []byte(key))
		require.NoError(t, err)

		memErr := proof.VerifyMembership(factory.MultiStoreSpecs, root, path, value)
		nonErr := proof.VerifyNonMembership(factory.MultiStoreSpecs, root, path)
		require.NotEqual(t, memErr == nil, nonErr == nil, "membership: %v, non-membership: %v", memErr, nonErr)
		require.Equal(t, present, memErr == nil)
	})
}
