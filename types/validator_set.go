package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lightibc/lightibc/crypto/merkle"
	tmbytes "github.com/lightibc/lightibc/libs/bytes"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

// MaxTotalVotingPower bounds the summed power of a set. Tallies are multiplied
// by small trust level terms and must not overflow.
const MaxTotalVotingPower = int64(math.MaxInt64) / 8

// ValidatorSet is the weighted authority set of a Tendermint chain at one
// height. The order of Validators is committed to by Hash, so a set decoded
// from the wire keeps the order it was sent in.
//
// NOTE: Not goroutine-safe.
type ValidatorSet struct {
	Validators []*Validator `json:"validators"`

	totalVotingPower int64
}

// NewValidatorSet copies valz into a set ordered by voting power (descending)
// then address (ascending). It returns an error if the list is empty,
// contains duplicates, or its total power exceeds MaxTotalVotingPower.
func NewValidatorSet(valz []*Validator) (*ValidatorSet, error) {
	vals := &ValidatorSet{Validators: make([]*Validator, len(valz))}
	for i, val := range valz {
		if val == nil {
			return nil, fmt.Errorf("invalid validator #%d: nil validator", i)
		}
		vals.Validators[i] = val.Copy()
	}
	sort.SliceStable(vals.Validators, func(i, j int) bool {
		a, b := vals.Validators[i], vals.Validators[j]
		if a.VotingPower != b.VotingPower {
			return a.VotingPower > b.VotingPower
		}
		return bytes.Compare(a.Address, b.Address) < 0
	})
	if err := vals.ValidateBasic(); err != nil {
		return nil, err
	}
	return vals, nil
}

// ValidateBasic checks every validator, rejects duplicate addresses and caches
// the total voting power.
func (vals *ValidatorSet) ValidateBasic() error {
	if vals.IsNilOrEmpty() {
		return errors.New("validator set is nil or empty")
	}

	seen := make(map[string]struct{}, len(vals.Validators))
	var sum int64
	for i, val := range vals.Validators {
		if err := val.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid validator #%d: %w", i, err)
		}
		if _, ok := seen[string(val.Address)]; ok {
			return fmt.Errorf("duplicate validator %v", val.Address)
		}
		seen[string(val.Address)] = struct{}{}

		sum += val.VotingPower
		if sum > MaxTotalVotingPower {
			return fmt.Errorf("total voting power %d exceeds maximum %d", sum, MaxTotalVotingPower)
		}
	}
	vals.totalVotingPower = sum
	return nil
}

func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// GetByAddress returns the index of the validator with the given address and
// a copy of it, or -1 and nil.
func (vals *ValidatorSet) GetByAddress(address []byte) (int32, *Validator) {
	for i, val := range vals.Validators {
		if bytes.Equal(val.Address, address) {
			return int32(i), val.Copy()
		}
	}
	return -1, nil
}

func (vals *ValidatorSet) Size() int {
	return len(vals.Validators)
}

// TotalVotingPower returns the sum of the voting powers of all validators.
func (vals *ValidatorSet) TotalVotingPower() int64 {
	if vals.totalVotingPower == 0 {
		for _, val := range vals.Validators {
			vals.totalVotingPower += val.VotingPower
		}
	}
	return vals.totalVotingPower
}

// Hash is the RFC-6962 root over the proto encoding of each validator, in
// set order. Headers commit to it as ValidatorsHash and NextValidatorsHash.
func (vals *ValidatorSet) Hash() tmbytes.HexBytes {
	leaves := make([][]byte, len(vals.Validators))
	for i, val := range vals.Validators {
		leaves[i] = val.Bytes()
	}
	return merkle.HashFromByteSlices(leaves)
}

func (vals *ValidatorSet) String() string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	parts := make([]string, len(vals.Validators))
	for i, val := range vals.Validators {
		parts[i] = val.String()
	}
	return fmt.Sprintf("ValidatorSet{Validators:[%s]}", strings.Join(parts, " "))
}

// ToProto converts ValidatorSet to protobuf. An empty set converts to an
// empty message.
func (vals *ValidatorSet) ToProto() (*tmproto.ValidatorSet, error) {
	if vals.IsNilOrEmpty() {
		return &tmproto.ValidatorSet{}, nil
	}

	pb := &tmproto.ValidatorSet{
		Validators:       make([]*tmproto.Validator, len(vals.Validators)),
		TotalVotingPower: vals.TotalVotingPower(),
	}
	for i, val := range vals.Validators {
		v, err := val.ToProto()
		if err != nil {
			return nil, err
		}
		pb.Validators[i] = v
	}
	return pb, nil
}

// ValidatorSetFromProto decodes a validator set without reordering it. A
// claimed total voting power must match the computed one.
func ValidatorSetFromProto(pb *tmproto.ValidatorSet) (*ValidatorSet, error) {
	if pb == nil {
		return nil, errors.New("nil validator set")
	}

	vals := &ValidatorSet{Validators: make([]*Validator, len(pb.Validators))}
	for i, v := range pb.Validators {
		val, err := ValidatorFromProto(v)
		if err != nil {
			return nil, err
		}
		vals.Validators[i] = val
	}

	if err := vals.ValidateBasic(); err != nil {
		return nil, err
	}
	if pb.TotalVotingPower != 0 && pb.TotalVotingPower != vals.totalVotingPower {
		return nil, fmt.Errorf("total voting power mismatch: claimed %d, computed %d",
			pb.TotalVotingPower, vals.totalVotingPower)
	}
	return vals, nil
}
