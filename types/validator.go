package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogo/protobuf/proto"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/ed25519"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

// Validator is a consensus participant as seen by a light client: an
// address, the key it signs with and the power its signature carries.
type Validator struct {
	Address     crypto.Address `json:"address"`
	PubKey      crypto.PubKey  `json:"pub_key"`
	VotingPower int64          `json:"voting_power"`
}

// NewValidator returns a new validator with the given pubkey and voting power.
func NewValidator(pubKey crypto.PubKey, votingPower int64) *Validator {
	return &Validator{
		Address:     pubKey.Address(),
		PubKey:      pubKey,
		VotingPower: votingPower,
	}
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.PubKey == nil {
		return errors.New("validator does not have a public key")
	}

	if v.VotingPower < 0 {
		return errors.New("validator has negative voting power")
	}

	if len(v.Address) != crypto.AddressSize {
		return fmt.Errorf("validator address is the wrong size: %v", v.Address)
	}

	if !bytes.Equal(v.PubKey.Address(), v.Address) {
		return fmt.Errorf("validator address %v does not match its public key", v.Address)
	}

	return nil
}

// Copy creates a new copy of the validator so we can mutate VotingPower.
// Panics if the validator is nil.
func (v *Validator) Copy() *Validator {
	vCopy := *v
	return &vCopy
}

func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v VP:%v}",
		v.Address,
		v.PubKey,
		v.VotingPower)
}

// Bytes computes the unique encoding of a validator with a given voting power.
// These are the bytes that gets hashed in consensus. It excludes address
// as its redundant with the pubkey.
func (v *Validator) Bytes() []byte {
	pbv := tmproto.SimpleValidator{
		PubKey:      &tmproto.PublicKey{Ed25519: v.PubKey.Bytes()},
		VotingPower: v.VotingPower,
	}

	bz, err := proto.Marshal(&pbv)
	if err != nil {
		panic(err)
	}
	return bz
}

// ToProto converts Validator to protobuf
func (v *Validator) ToProto() (*tmproto.Validator, error) {
	if v == nil {
		return nil, errors.New("nil validator")
	}

	return &tmproto.Validator{
		Address:     v.Address,
		PubKey:      &tmproto.PublicKey{Ed25519: v.PubKey.Bytes()},
		VotingPower: v.VotingPower,
	}, nil
}

// ValidatorFromProto sets a protobuf Validator to the given pointer.
// It returns an error if the public key is invalid.
func ValidatorFromProto(vp *tmproto.Validator) (*Validator, error) {
	if vp == nil {
		return nil, errors.New("nil validator")
	}
	if vp.PubKey == nil || len(vp.PubKey.Ed25519) != ed25519.PubKeySize {
		return nil, errors.New("validator public key is not a valid ed25519 key")
	}

	v := new(Validator)
	v.Address = vp.Address
	v.PubKey = ed25519.PubKey(vp.PubKey.Ed25519)
	v.VotingPower = vp.VotingPower

	return v, nil
}
