package commitment

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"golang.org/x/crypto/sha3"
)

// EthereumProof is an eth_getProof response for a single storage slot of the
// IBC handler contract, RLP encoded.
type EthereumProof struct {
	Address      common.Address
	AccountProof [][]byte
	StorageProof [][]byte
}

// stateAccount is the RLP layout of an account leaf in the state trie.
type stateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash
	CodeHash []byte
}

// DecodeEthereumProof decodes an RLP encoded EthereumProof.
func DecodeEthereumProof(bz []byte) (EthereumProof, error) {
	if len(bz) == 0 {
		return EthereumProof{}, ErrEmptyMerkleProof
	}
	var p EthereumProof
	if err := rlp.DecodeBytes(bz, &p); err != nil {
		return EthereumProof{}, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	if len(p.AccountProof) == 0 {
		return EthereumProof{}, ErrEmptyMerkleProof
	}
	return p, nil
}

// Encode returns the RLP encoding of the proof.
func (p EthereumProof) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// StorageSlot returns the slot of the commitments mapping entry for path:
// keccak256(path || slot index).
func StorageSlot(path []byte, mappingSlot uint64) common.Hash {
	var idx common.Hash
	new(big.Int).SetUint64(mappingSlot).FillBytes(idx[:])
	return common.BytesToHash(keccak256(append(append([]byte{}, path...), idx[:]...)))
}

func proofDB(nodes [][]byte) (*memorydb.Database, error) {
	db := memorydb.New()
	for _, n := range nodes {
		if err := db.Put(keccak256(n), n); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// readStorage proves the storage root of p.Address against stateRoot and
// returns the raw value of slot, nil when the slot is empty.
func readStorage(stateRoot MerkleRoot, proof []byte, slot common.Hash) ([]byte, error) {
	if stateRoot.Empty() {
		return nil, ErrEmptyMerkleRoot
	}
	if len(stateRoot.Hash) != common.HashLength {
		return nil, fmt.Errorf("%w: root must be %d bytes, got %d", ErrInvalidProof, common.HashLength, len(stateRoot.Hash))
	}
	p, err := DecodeEthereumProof(proof)
	if err != nil {
		return nil, err
	}

	accounts, err := proofDB(p.AccountProof)
	if err != nil {
		return nil, err
	}
	accountRLP, err := gethtrie.VerifyProof(common.BytesToHash(stateRoot.Hash), keccak256(p.Address.Bytes()), accounts)
	if err != nil {
		return nil, fmt.Errorf("%w: account proof: %w", ErrInvalidProof, err)
	}
	if accountRLP == nil {
		return nil, fmt.Errorf("%w: account %s", ErrKeyNotFound, p.Address)
	}
	var account stateAccount
	if err := rlp.DecodeBytes(accountRLP, &account); err != nil {
		return nil, fmt.Errorf("%w: account: %w", ErrInvalidProof, err)
	}

	if len(p.StorageProof) == 0 {
		return nil, ErrEmptyMerkleProof
	}
	slots, err := proofDB(p.StorageProof)
	if err != nil {
		return nil, err
	}
	raw, err := gethtrie.VerifyProof(account.Root, keccak256(slot.Bytes()), slots)
	if err != nil {
		return nil, fmt.Errorf("%w: storage proof: %w", ErrInvalidProof, err)
	}
	if raw == nil {
		return nil, nil
	}
	var value []byte
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: storage value: %w", ErrInvalidProof, err)
	}
	return value, nil
}

// VerifyEthereumMembership checks that slot of the proven account holds
// value. value is compared as a 32 byte word, so leading zeros do not matter.
func VerifyEthereumMembership(stateRoot MerkleRoot, proof []byte, slot common.Hash, value []byte) error {
	if len(value) == 0 {
		return ErrEmptyValue
	}
	got, err := readStorage(stateRoot, proof, slot)
	if err != nil {
		return err
	}
	if got == nil {
		return fmt.Errorf("%w: slot %s", ErrKeyNotFound, slot)
	}
	if !bytes.Equal(bytes.TrimLeft(got, "\x00"), bytes.TrimLeft(value, "\x00")) {
		return fmt.Errorf("%w: slot %s", ErrValueMismatch, slot)
	}
	return nil
}

// VerifyEthereumNonMembership checks that slot of the proven account is
// empty.
func VerifyEthereumNonMembership(stateRoot MerkleRoot, proof []byte, slot common.Hash) error {
	got, err := readStorage(stateRoot, proof, slot)
	if err != nil {
		return err
	}
	if got != nil {
		return fmt.Errorf("%w: slot %s", ErrKeyExists, slot)
	}
	return nil
}
