// Package commitment verifies that a key/value pair is (or is not) committed
// to by a counterparty chain's state root. Three proof formats are supported:
// chained ICS-23 proofs for Cosmos chains, Substrate child-trie proofs and
// Ethereum Merkle-Patricia account/storage proofs.
package commitment

import (
	"bytes"
	"fmt"
	"strings"

	ics23 "github.com/confio/ics23/go"
	"github.com/gogo/protobuf/proto"
)

// DefaultProofSpecs are the specs of a Cosmos SDK store: an IAVL tree per
// module committed to by a simple merkle tree over the store names.
var DefaultProofSpecs = []*ics23.ProofSpec{ics23.IavlSpec, ics23.TendermintSpec}

// MerkleRoot is the root of a commitment tree.
type MerkleRoot struct {
	Hash []byte `json:"hash"`
}

// NewMerkleRoot constructs a new MerkleRoot
func NewMerkleRoot(hash []byte) MerkleRoot {
	return MerkleRoot{Hash: hash}
}

// GetHash implements RootI interface
func (mr MerkleRoot) GetHash() []byte {
	return mr.Hash
}

// Empty returns true if the root is empty
func (mr MerkleRoot) Empty() bool {
	return len(mr.GetHash()) == 0
}

// MerklePrefix is the store key under which the counterparty keeps its IBC
// state.
type MerklePrefix struct {
	KeyPrefix []byte `json:"key_prefix"`
}

// NewMerklePrefix constructs new MerklePrefix instance
func NewMerklePrefix(keyPrefix []byte) MerklePrefix {
	return MerklePrefix{
		KeyPrefix: keyPrefix,
	}
}

// Bytes returns the key prefix bytes
func (mp MerklePrefix) Bytes() []byte {
	return mp.KeyPrefix
}

// Empty returns true if the prefix is empty
func (mp MerklePrefix) Empty() bool {
	return len(mp.Bytes()) == 0
}

// MerklePath is the path used to verify commitment proofs, which can be an
// arbitrary structured object (defined by a commitment type). KeyPath runs
// from the outermost store to the key inside it.
type MerklePath struct {
	KeyPath [][]byte `json:"key_path"`
}

// NewMerklePath creates a new MerklePath instance
// The keys must be passed in from root-to-leaf order
func NewMerklePath(keyPath ...[]byte) MerklePath {
	return MerklePath{
		KeyPath: keyPath,
	}
}

// String implements fmt.Stringer.
func (mp MerklePath) String() string {
	parts := make([]string, len(mp.KeyPath))
	for i, k := range mp.KeyPath {
		parts[i] = string(k)
	}
	return "/" + strings.Join(parts, "/")
}

// GetKey will return a byte representation of the key
func (mp MerklePath) GetKey(i uint64) ([]byte, error) {
	if i >= uint64(len(mp.KeyPath)) {
		return nil, fmt.Errorf("index out of range. %d (index) >= %d (len)", i, len(mp.KeyPath))
	}
	return mp.KeyPath[i], nil
}

// Empty returns true if the path is empty
func (mp MerklePath) Empty() bool {
	return len(mp.KeyPath) == 0
}

// ApplyPrefix constructs a new commitment path from the arguments. It prepends the prefix key
// with the given path.
func ApplyPrefix(prefix MerklePrefix, path MerklePath) (MerklePath, error) {
	if prefix.Empty() {
		return MerklePath{}, ErrEmptyCommitmentPrefix
	}
	return NewMerklePath(append([][]byte{prefix.KeyPrefix}, path.KeyPath...)...), nil
}

// MerkleProof is a wrapper type over a chain of CommitmentProofs.
// It demonstrates membership or non-membership for an element or set of elements,
// verifiable in conjunction with a known commitment root. Proofs should be
// succinct.
// MerkleProofs are ordered from leaf-to-root
type MerkleProof struct {
	Proofs []*ics23.CommitmentProof `protobuf:"bytes,1,rep,name=proofs,proto3" json:"proofs,omitempty"`
}

func (m *MerkleProof) Reset()         { *m = MerkleProof{} }
func (m *MerkleProof) String() string { return proto.CompactTextString(m) }
func (*MerkleProof) ProtoMessage()    {}

// DecodeMerkleProof decodes the protobuf encoding of a MerkleProof.
func DecodeMerkleProof(bz []byte) (MerkleProof, error) {
	if len(bz) == 0 {
		return MerkleProof{}, ErrEmptyMerkleProof
	}
	var proof MerkleProof
	if err := proto.Unmarshal(bz, &proof); err != nil {
		return MerkleProof{}, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return proof, nil
}

// Encode returns the protobuf encoding of the proof.
func (proof MerkleProof) Encode() ([]byte, error) {
	return proto.Marshal(&proof)
}

// Empty returns true if the root is empty
func (proof MerkleProof) Empty() bool {
	return len(proof.Proofs) == 0
}

// VerifyMembership verifies the membership of a merkle proof against the given root, path, and value.
// Note that the path is expected as []byte{<store key of module>, <key corresponding to requested value>}.
func (proof MerkleProof) VerifyMembership(specs []*ics23.ProofSpec, root MerkleRoot, path MerklePath, value []byte) error {
	if err := proof.validateVerificationArgs(specs, root); err != nil {
		return err
	}

	// VerifyMembership specific argument validation
	if len(path.KeyPath) != len(specs) {
		return fmt.Errorf("%w: path length %d not same as proof %d", ErrInvalidProof, len(path.KeyPath), len(specs))
	}
	if len(value) == 0 {
		return ErrEmptyValue
	}

	// Since every proof in chain is a membership proof we can use verifyChainedMembershipProof from index 0
	// to validate entire proof
	return verifyChainedMembershipProof(root.GetHash(), specs, proof.Proofs, path, value, 0)
}

// VerifyNonMembership verifies the absence of a merkle proof against the given root and path.
// VerifyNonMembership verifies a chained proof where the absence of a given path is proven
// at the lowest subtree and then each subtree's inclusion is proved up to the final root.
func (proof MerkleProof) VerifyNonMembership(specs []*ics23.ProofSpec, root MerkleRoot, path MerklePath) error {
	if err := proof.validateVerificationArgs(specs, root); err != nil {
		return err
	}

	// VerifyNonMembership specific argument validation
	if len(path.KeyPath) != len(specs) {
		return fmt.Errorf("%w: path length %d not same as proof %d", ErrInvalidProof, len(path.KeyPath), len(specs))
	}

	switch proof.Proofs[0].Proof.(type) {
	case *ics23.CommitmentProof_Nonexist:
		// VerifyNonMembership will verify the absence of key in lowest subtree, and then chain inclusion proofs
		// of all subroots up to final root
		subroot, err := proof.Proofs[0].Calculate()
		if err != nil {
			return fmt.Errorf("%w: could not calculate root for proof index 0, merkle tree is likely empty: %v", ErrInvalidProof, err)
		}
		key, err := path.GetKey(uint64(len(path.KeyPath) - 1))
		if err != nil {
			return fmt.Errorf("%w: could not retrieve key bytes for key %s: %v", ErrInvalidProof, path.KeyPath[len(path.KeyPath)-1], err)
		}
		if ok := ics23.VerifyNonMembership(specs[0], subroot, proof.Proofs[0], key); !ok {
			return fmt.Errorf("%w: could not verify absence of key %s. Please ensure that the path is correct", ErrInvalidProof, key)
		}

		// Verify chained membership proof starting from index 1 with value = subroot
		if err := verifyChainedMembershipProof(root.GetHash(), specs, proof.Proofs, path, subroot, 1); err != nil {
			return err
		}
	case *ics23.CommitmentProof_Exist:
		return fmt.Errorf("%w: got ExistenceProof in VerifyNonMembership", ErrKeyExists)
	default:
		return fmt.Errorf("%w: expected proof type: %T, got: %T", ErrInvalidProof, &ics23.CommitmentProof_Exist{}, proof.Proofs[0].Proof)
	}
	return nil
}

// verifyChainedMembershipProof takes a list of proofs and specs and verifies each proof sequentially ensuring that the value is committed to
// by first proof and each subsequent subroot is committed to by the next subroot and checking that the final calculated root is equal to the given roothash.
// The proofs and specs are passed in from lowest subtree to the highest subtree, but the keys are passed in from highest subtree to lowest.
// The index specifies what index to start chaining the membership proofs, this is useful since the lowest proof may not be a membership proof, thus we
// will want to start the membership proof chaining from index 1 with value being the lowest subroot
func verifyChainedMembershipProof(root []byte, specs []*ics23.ProofSpec, proofs []*ics23.CommitmentProof, keys MerklePath, value []byte, index int) error {
	var (
		subroot []byte
		err     error
	)
	// Initialize subroot to value since the proofs list may be empty.
	// This may happen if this call is verifying intermediate proofs after the lowest proof has been executed.
	// In this case, there may be no intermediate proofs to verify and we just check that lowest proof root equals final root
	subroot = value
	for i := index; i < len(proofs); i++ {
		switch proofs[i].Proof.(type) {
		case *ics23.CommitmentProof_Exist:
			subroot, err = proofs[i].Calculate()
			if err != nil {
				return fmt.Errorf("%w: could not calculate proof root at index %d, merkle tree may be empty: %v", ErrInvalidProof, i, err)
			}
			// Since keys are passed in from highest to lowest, we must grab their indices in reverse order
			// from the proofs and specs which are lowest to highest
			key, err := keys.GetKey(uint64(len(keys.KeyPath) - 1 - i))
			if err != nil {
				return fmt.Errorf("%w: could not retrieve key bytes for key at index %d: %v", ErrInvalidProof, i, err)
			}

			// verify membership of the proof at this index with appropriate key and value
			if ok := ics23.VerifyMembership(specs[i], subroot, proofs[i], key, value); !ok {
				return fmt.Errorf("%w: chained membership proof failed to verify membership of value %X in subroot %X at index %d",
					ErrInvalidProof, value, subroot, i)
			}
			// Set value to subroot so that we verify next proof in chain commits to this subroot
			value = subroot
		case *ics23.CommitmentProof_Nonexist:
			return fmt.Errorf("%w: chained membership proof contains nonexistence proof at index %d", ErrKeyNotFound, i)
		default:
			return fmt.Errorf("%w: expected proof type: %T, got: %T", ErrInvalidProof, &ics23.CommitmentProof_Exist{}, proofs[i].Proof)
		}
	}
	// Check that chained proof root equals passed-in root
	if !bytes.Equal(root, subroot) {
		return fmt.Errorf("%w: proof did not commit to expected root: %X, got: %X", ErrInvalidProof, root, subroot)
	}
	return nil
}

// validateVerificationArgs verifies the proof arguments are valid
func (proof MerkleProof) validateVerificationArgs(specs []*ics23.ProofSpec, root MerkleRoot) error {
	if proof.Empty() {
		return ErrEmptyMerkleProof
	}

	if root.Empty() {
		return ErrEmptyMerkleRoot
	}

	if len(specs) != len(proof.Proofs) {
		return fmt.Errorf("%w: length of specs: %d not equal to length of proof: %d",
			ErrInvalidProof, len(specs), len(proof.Proofs))
	}

	for i, spec := range specs {
		if spec == nil {
			return fmt.Errorf("%w: spec at position %d is nil", ErrInvalidProof, i)
		}
		if proof.Proofs[i] == nil {
			return fmt.Errorf("%w: proof at position %d is nil", ErrInvalidProof, i)
		}
	}
	return nil
}
