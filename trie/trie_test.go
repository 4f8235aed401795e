package trie

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/native"
)

func blake2() crypto.HashFn { return native.New().Blake2b256 }

func TestEncodeSizeRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 61, 62, 63, 64, 316, 317, 318, 600, nibbleSizeBound} {
		enc := encodeSize(leafPrefix, size)
		r := &reader{data: enc}
		first, err := r.readByte()
		require.NoError(t, err)
		require.Equal(t, leafPrefix, first&prefixMask)
		got, err := r.readSize(first)
		require.NoError(t, err, "size %d", size)
		require.Equal(t, size, got, "size %d", size)
		require.Equal(t, len(enc), r.pos)
	}
}

func TestNodeCodecRoundTrip(t *testing.T) {
	leaf := encodeLeaf([]byte{1, 2, 3}, []byte("value"))
	n, err := decodeNode(leaf)
	require.NoError(t, err)
	require.Equal(t, kindLeaf, n.kind)
	require.Equal(t, []byte{1, 2, 3}, n.partial)
	require.Equal(t, []byte("value"), n.value)

	var children [childCount][]byte
	children[3] = make([]byte, crypto.HashSize)
	children[15] = []byte{0x41, 0x00}
	branch := encodeBranch([]byte{7}, []byte("v"), true, &children)
	n, err = decodeNode(branch)
	require.NoError(t, err)
	require.Equal(t, kindBranch, n.kind)
	require.True(t, n.hasValue)
	require.Equal(t, children, n.children)

	_, err = decodeNode(append(leaf, 0x00))
	require.Error(t, err, "trailing bytes")
	_, err = decodeNode(leaf[:len(leaf)-1])
	require.Error(t, err, "truncated")
	_, err = decodeNode([]byte{branchNoValue, 0x00, 0x00})
	require.Error(t, err, "branch without children")
	_, err = decodeNode([]byte{leafPrefix | 1, 0x10, 0x00})
	require.Error(t, err, "non zero padding")
}

func TestEmptyTrie(t *testing.T) {
	tr := New(blake2())
	require.Equal(t, EmptyRoot(blake2()), tr.Root())

	proof, err := tr.Prove([]byte("missing"))
	require.NoError(t, err)
	_, found, err := VerifyProof(blake2(), tr.Root(), proof, []byte("missing"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestProofMembershipAndAbsence(t *testing.T) {
	tr := New(blake2())
	kvs := map[string]string{
		"a":                                "short",
		"ab":                               "prefix sibling",
		"abc":                              "nested",
		"b":                                "other branch",
		"zz":                               "value that is long enough to force the leaf to be hashed not inlined",
		"long/" + string(make([]byte, 64)): "long partial key",
	}
	for k, v := range kvs {
		tr.Put([]byte(k), []byte(v))
	}
	root := tr.Root()

	for k, v := range kvs {
		proof, err := tr.Prove([]byte(k))
		require.NoError(t, err)
		got, found, err := VerifyProof(blake2(), root, proof, []byte(k))
		require.NoError(t, err)
		require.True(t, found, k)
		require.Equal(t, v, string(got))
	}

	for _, k := range []string{"", "abd", "c", "zzz", "ab\x00"} {
		proof, err := tr.Prove([]byte(k))
		require.NoError(t, err)
		_, found, err := VerifyProof(blake2(), root, proof, []byte(k))
		require.NoError(t, err)
		require.False(t, found, k)
	}
}

func TestProofEmptyValue(t *testing.T) {
	tr := New(blake2())
	tr.Put(nil, nil)
	tr.Put([]byte("a"), []byte{})
	tr.Put([]byte("ab"), []byte("set"))
	root := tr.Root()

	absent := []byte("b")
	proof, err := tr.Prove(nil, []byte("a"), absent)
	require.NoError(t, err)

	for _, key := range [][]byte{nil, []byte("a")} {
		got, found, err := VerifyProof(blake2(), root, proof, key)
		require.NoError(t, err)
		require.True(t, found, "%q", key)
		require.NotNil(t, got, "%q", key)
		require.Empty(t, got, "%q", key)
	}

	values, err := ReadProofCheck(blake2(), root, proof, [][]byte{nil, []byte("a"), absent})
	require.NoError(t, err)
	require.NotNil(t, values[""])
	require.NotNil(t, values["a"])
	v, ok := values["b"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestProofErrors(t *testing.T) {
	tr := New(blake2())
	for i := 0; i < 64; i++ {
		tr.Put([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("value-%03d-with-some-padding-bytes", i)))
	}
	root := tr.Root()
	key := []byte("key-042")
	proof, err := tr.Prove(key)
	require.NoError(t, err)
	require.Greater(t, len(proof), 1)

	_, _, err = VerifyProof(blake2(), root, nil, key)
	require.ErrorIs(t, err, ErrEmptyProof)

	wrongRoot := root
	wrongRoot[0] ^= 0x01
	_, _, err = VerifyProof(blake2(), wrongRoot, proof, key)
	require.ErrorIs(t, err, ErrHashMismatch)

	// drop every node but the root
	rootNode := tr.rootNode(t)
	_, _, err = VerifyProof(blake2(), root, [][]byte{rootNode}, key)
	require.ErrorIs(t, err, ErrIncompleteProof)

	garbage := []byte{0xff, 0x01}
	_, _, err = VerifyProof(blake2(), blake2()(garbage), [][]byte{garbage}, key)
	require.ErrorIs(t, err, ErrDecodeNode)
}

func (tr *Trie) rootNode(t *testing.T) []byte {
	root, db := tr.build()
	enc, ok := db[root]
	require.True(t, ok)
	return enc
}

func TestProofRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := New(blake2())
		n := rapid.IntRange(1, 30).Draw(t, "n").(int)
		keys := make([][]byte, n)
		for i := range keys {
			keys[i] = rapid.SliceOfN(rapid.Byte(), 0, 6).Draw(t, fmt.Sprintf("key%d", i)).([]byte)
			tr.Put(keys[i], rapid.SliceOfN(rapid.Byte(), 0, 40).Draw(t, fmt.Sprintf("value%d", i)).([]byte))
		}
		root := tr.Root()
		key := keys[rapid.IntRange(0, n-1).Draw(t, "pick").(int)]
		want, _ := tr.Get(key)

		proof, err := tr.Prove(key)
		require.NoError(t, err)
		got, found, err := VerifyProof(blake2(), root, proof, key)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, got)
		require.Equal(t, want, got)

		// flipping any byte of any proof node breaks the lookup
		node := rapid.IntRange(0, len(proof)-1).Draw(t, "node").(int)
		pos := rapid.IntRange(0, len(proof[node])-1).Draw(t, "pos").(int)
		mutated := make([][]byte, len(proof))
		for i := range proof {
			mutated[i] = append([]byte(nil), proof[i]...)
		}
		mutated[node][pos] ^= 0x01
		got, found, err = VerifyProof(blake2(), root, mutated, key)
		require.False(t, err == nil && found && string(got) == string(want))
	})
}

func TestChildTrieProof(t *testing.T) {
	child := New(blake2())
	child.Put([]byte("connections/connection-0"), []byte("open"))
	child.Put([]byte("clients/07-tendermint-0/clientState"), []byte("state"))

	mainTrie := New(blake2())
	mainTrie.Put([]byte("unrelated"), []byte("x"))
	mainTrie.Put(ChildStorageKey([]byte("ibc/")), child.Root().Bytes())

	mainProof, err := mainTrie.Prove(ChildStorageKey([]byte("ibc/")))
	require.NoError(t, err)
	childProof, err := child.Prove([]byte("connections/connection-0"), []byte("connections/connection-1"))
	require.NoError(t, err)
	proof := MergeProofs(mainProof, childProof)

	value, found, err := VerifyChildProof(blake2(), mainTrie.Root(), proof, []byte("ibc/"), []byte("connections/connection-0"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("open"), value)

	_, found, err = VerifyChildProof(blake2(), mainTrie.Root(), proof, []byte("ibc/"), []byte("connections/connection-1"))
	require.NoError(t, err)
	require.False(t, found)

	values, err := ReadProofCheck(blake2(), child.Root(), childProof, [][]byte{
		[]byte("connections/connection-0"), []byte("connections/connection-1"),
	})
	require.NoError(t, err)
	require.Equal(t, []byte("open"), values["connections/connection-0"])
	require.Nil(t, values["connections/connection-1"])
}
