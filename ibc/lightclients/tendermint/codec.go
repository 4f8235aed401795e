package tendermint

import (
	"fmt"
	"time"

	"github.com/gogo/protobuf/proto"
	gogotypes "github.com/gogo/protobuf/types"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	tmmath "github.com/lightibc/lightibc/libs/math"
	ibcproto "github.com/lightibc/lightibc/proto/ibc"
	ibctmproto "github.com/lightibc/lightibc/proto/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/types"
)

func heightToProto(h ibc.Height) *ibcproto.Height {
	return &ibcproto.Height{RevisionNumber: h.RevisionNumber, RevisionHeight: h.RevisionHeight}
}

func heightFromProto(h *ibcproto.Height) ibc.Height {
	if h == nil {
		return ibc.ZeroHeight()
	}
	return ibc.NewHeight(h.RevisionNumber, h.RevisionHeight)
}

func durationFromProto(d *gogotypes.Duration) (time.Duration, error) {
	if d == nil {
		return 0, nil
	}
	return gogotypes.DurationFromProto(d)
}

// ToProto converts the client state to its wire form.
func (cs *ClientState) ToProto() *ibctmproto.ClientState {
	return &ibctmproto.ClientState{
		ChainId:         cs.ChainID,
		TrustLevel:      &ibctmproto.Fraction{Numerator: cs.TrustLevel.Numerator, Denominator: cs.TrustLevel.Denominator},
		TrustingPeriod:  gogotypes.DurationProto(cs.TrustingPeriod),
		UnbondingPeriod: gogotypes.DurationProto(cs.UnbondingPeriod),
		MaxClockDrift:   gogotypes.DurationProto(cs.MaxClockDrift),
		FrozenHeight:    heightToProto(cs.FrozenHeight),
		LatestHeight:    heightToProto(cs.LatestHeight),
		ProofSpecs:      cs.ProofSpecs,
		UpgradePath:     cs.UpgradePath,
	}
}

// ClientStateFromProto converts a wire client state. The result is not
// validated.
func ClientStateFromProto(pb *ibctmproto.ClientState) (*ClientState, error) {
	if pb == nil {
		return nil, fmt.Errorf("%w: nil client state", ibc.ErrMalformedInput)
	}
	cs := &ClientState{
		ChainID:      pb.ChainId,
		FrozenHeight: heightFromProto(pb.FrozenHeight),
		LatestHeight: heightFromProto(pb.LatestHeight),
		ProofSpecs:   pb.ProofSpecs,
		UpgradePath:  pb.UpgradePath,
	}
	if pb.TrustLevel != nil {
		cs.TrustLevel = tmmath.Fraction{Numerator: pb.TrustLevel.Numerator, Denominator: pb.TrustLevel.Denominator}
	}
	var err error
	if cs.TrustingPeriod, err = durationFromProto(pb.TrustingPeriod); err != nil {
		return nil, fmt.Errorf("%w: trusting period: %v", ibc.ErrMalformedInput, err)
	}
	if cs.UnbondingPeriod, err = durationFromProto(pb.UnbondingPeriod); err != nil {
		return nil, fmt.Errorf("%w: unbonding period: %v", ibc.ErrMalformedInput, err)
	}
	if cs.MaxClockDrift, err = durationFromProto(pb.MaxClockDrift); err != nil {
		return nil, fmt.Errorf("%w: max clock drift: %v", ibc.ErrMalformedInput, err)
	}
	return cs, nil
}

// ToProto converts the consensus state to its wire form.
func (cs *ConsensusState) ToProto() (*ibctmproto.ConsensusState, error) {
	ts, err := gogotypes.TimestampProto(cs.Timestamp)
	if err != nil {
		return nil, err
	}
	return &ibctmproto.ConsensusState{
		Timestamp:          ts,
		Root:               &ibcproto.MerkleRoot{Hash: cs.Root.Hash},
		NextValidatorsHash: cs.NextValidatorsHash,
	}, nil
}

// ConsensusStateFromProto converts a wire consensus state.
func ConsensusStateFromProto(pb *ibctmproto.ConsensusState) (*ConsensusState, error) {
	if pb == nil {
		return nil, fmt.Errorf("%w: nil consensus state", ibc.ErrMalformedInput)
	}
	cs := &ConsensusState{NextValidatorsHash: pb.NextValidatorsHash}
	if pb.Timestamp != nil {
		ts, err := gogotypes.TimestampFromProto(pb.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", ibc.ErrMalformedInput, err)
		}
		cs.Timestamp = ts
	}
	if pb.Root != nil {
		cs.Root = commitment.NewMerkleRoot(pb.Root.Hash)
	}
	return cs, nil
}

// ToProto converts the header to its wire form.
func (h *Header) ToProto() (*ibctmproto.Header, error) {
	pb := &ibctmproto.Header{
		SignedHeader:  h.SignedHeader.ToProto(),
		TrustedHeight: heightToProto(h.TrustedHeight),
	}
	var err error
	if h.ValidatorSet != nil {
		if pb.ValidatorSet, err = h.ValidatorSet.ToProto(); err != nil {
			return nil, err
		}
	}
	if h.TrustedValidators != nil {
		if pb.TrustedValidators, err = h.TrustedValidators.ToProto(); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

// HeaderFromProto converts a wire header. Validator sets and the signed
// header are decoded, but the header is not validated.
func HeaderFromProto(pb *ibctmproto.Header) (*Header, error) {
	if pb == nil {
		return nil, fmt.Errorf("%w: nil header", ibc.ErrMalformedInput)
	}
	h := &Header{TrustedHeight: heightFromProto(pb.TrustedHeight)}
	var err error
	if pb.SignedHeader != nil {
		if h.SignedHeader, err = types.SignedHeaderFromProto(pb.SignedHeader); err != nil {
			return nil, fmt.Errorf("%w: signed header: %v", ibc.ErrMalformedInput, err)
		}
	}
	if pb.ValidatorSet != nil {
		if h.ValidatorSet, err = types.ValidatorSetFromProto(pb.ValidatorSet); err != nil {
			return nil, fmt.Errorf("%w: validator set: %v", ibc.ErrMalformedInput, err)
		}
	}
	if pb.TrustedValidators != nil {
		if h.TrustedValidators, err = types.ValidatorSetFromProto(pb.TrustedValidators); err != nil {
			return nil, fmt.Errorf("%w: trusted validators: %v", ibc.ErrMalformedInput, err)
		}
	}
	return h, nil
}

// ToProto converts the misbehaviour to its wire form.
func (misbehaviour *Misbehaviour) ToProto() (*ibctmproto.Misbehaviour, error) {
	pb := &ibctmproto.Misbehaviour{ClientId: misbehaviour.ClientID}
	var err error
	if misbehaviour.Header1 != nil {
		if pb.Header1, err = misbehaviour.Header1.ToProto(); err != nil {
			return nil, err
		}
	}
	if misbehaviour.Header2 != nil {
		if pb.Header2, err = misbehaviour.Header2.ToProto(); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

// MisbehaviourFromProto converts a wire misbehaviour.
func MisbehaviourFromProto(pb *ibctmproto.Misbehaviour) (*Misbehaviour, error) {
	if pb == nil {
		return nil, fmt.Errorf("%w: nil misbehaviour", ibc.ErrMalformedInput)
	}
	m := &Misbehaviour{ClientID: pb.ClientId}
	var err error
	if pb.Header1 != nil {
		if m.Header1, err = HeaderFromProto(pb.Header1); err != nil {
			return nil, err
		}
	}
	if pb.Header2 != nil {
		if m.Header2, err = HeaderFromProto(pb.Header2); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Marshal returns the protobuf encoding of the client state.
func (cs *ClientState) Marshal() ([]byte, error) {
	return proto.Marshal(cs.ToProto())
}

// UnmarshalClientState decodes a protobuf encoded client state.
func UnmarshalClientState(bz []byte) (*ClientState, error) {
	var pb ibctmproto.ClientState
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return nil, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return ClientStateFromProto(&pb)
}

// Marshal returns the protobuf encoding of the consensus state.
func (cs *ConsensusState) Marshal() ([]byte, error) {
	pb, err := cs.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

// UnmarshalConsensusState decodes a protobuf encoded consensus state.
func UnmarshalConsensusState(bz []byte) (*ConsensusState, error) {
	var pb ibctmproto.ConsensusState
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return nil, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return ConsensusStateFromProto(&pb)
}

// Marshal returns the protobuf encoding of the header.
func (h *Header) Marshal() ([]byte, error) {
	pb, err := h.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

// UnmarshalHeader decodes a protobuf encoded header.
func UnmarshalHeader(bz []byte) (*Header, error) {
	var pb ibctmproto.Header
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return nil, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return HeaderFromProto(&pb)
}

// Marshal returns the protobuf encoding of the misbehaviour.
func (misbehaviour *Misbehaviour) Marshal() ([]byte, error) {
	pb, err := misbehaviour.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

// UnmarshalMisbehaviour decodes a protobuf encoded misbehaviour.
func UnmarshalMisbehaviour(bz []byte) (*Misbehaviour, error) {
	var pb ibctmproto.Misbehaviour
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return nil, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return MisbehaviourFromProto(&pb)
}
