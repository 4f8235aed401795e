package client

import (
	"fmt"

	"github.com/gogo/protobuf/proto"
	gogotypes "github.com/gogo/protobuf/types"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/lightclients/beefy"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	ibcproto "github.com/lightibc/lightibc/proto/ibc"
)

// Type URLs of the 08-wasm envelopes.
const (
	TypeURLWasmClientState    = "/ibc.lightclients.wasm.v1.ClientState"
	TypeURLWasmConsensusState = "/ibc.lightclients.wasm.v1.ConsensusState"
	TypeURLWasmClientMessage  = "/ibc.lightclients.wasm.v1.ClientMessage"
)

// Codec converts client values from and to protobuf Any. Tendermint values
// are protobuf encoded; GRANDPA and BEEFY values are SCALE encoded. Values
// of wasm clients are wrapped in the 08-wasm envelopes, whose Data field
// holds the encoded inner Any.
type Codec struct {
	registry *Registry
}

// NewCodec returns a codec resolving wasm code ids with registry. A nil
// registry rejects every wasm client state.
func NewCodec(registry *Registry) *Codec {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Codec{registry: registry}
}

func (c *Codec) Registry() *Registry { return c.registry }

// EncodeClientState returns the Any of cs, wrapped in a wasm client state
// when cs.CodeID is set.
func (c *Codec) EncodeClientState(cs AnyClientState) (*gogotypes.Any, error) {
	var (
		msg *gogotypes.Any
		err error
	)
	switch cs.Kind() {
	case KindTendermint:
		msg, err = newAny(tendermint.TypeURLClientState, cs.Tendermint.Marshal)
	case KindGrandpa:
		msg, err = newAny(grandpa.TypeURLClientState, cs.Grandpa.Marshal)
	case KindBeefy:
		msg, err = newAny(beefy.TypeURLClientState, cs.Beefy.Marshal)
	default:
		return nil, ErrUnknownClientKind
	}
	if err != nil || len(cs.CodeID) == 0 {
		return msg, err
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	h := cs.LatestHeight()
	return newAny(TypeURLWasmClientState, func() ([]byte, error) {
		return proto.Marshal(&ibcproto.WasmClientState{
			Data:         data,
			CodeId:       cs.CodeID,
			LatestHeight: &ibcproto.Height{RevisionNumber: h.RevisionNumber, RevisionHeight: h.RevisionHeight},
		})
	})
}

// DecodeClientState decodes an Any produced by EncodeClientState. The code
// id of a wasm client state must be registered for the client type of the
// wrapped state.
func (c *Codec) DecodeClientState(msg *gogotypes.Any) (AnyClientState, error) {
	if msg == nil {
		return AnyClientState{}, fmt.Errorf("%w: nil client state", ibc.ErrMalformedInput)
	}

	switch msg.TypeUrl {
	case tendermint.TypeURLClientState:
		cs, err := tendermint.UnmarshalClientState(msg.Value)
		return AnyClientState{Tendermint: cs}, err

	case grandpa.TypeURLClientState:
		cs, err := grandpa.UnmarshalClientState(msg.Value)
		return AnyClientState{Grandpa: cs}, err

	case beefy.TypeURLClientState:
		cs, err := beefy.UnmarshalClientState(msg.Value)
		return AnyClientState{Beefy: cs}, err

	case TypeURLWasmClientState:
		var wasm ibcproto.WasmClientState
		if err := proto.Unmarshal(msg.Value, &wasm); err != nil {
			return AnyClientState{}, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
		}
		clientType, ok := c.registry.ClientType(wasm.CodeId)
		if !ok {
			return AnyClientState{}, fmt.Errorf("%w: %X", ErrUnknownCodeID, wasm.CodeId)
		}
		inner, err := unmarshalAny(wasm.Data)
		if err != nil {
			return AnyClientState{}, err
		}
		if inner.TypeUrl == TypeURLWasmClientState {
			return AnyClientState{}, fmt.Errorf("%w: nested wasm client state", ibc.ErrMalformedInput)
		}
		cs, err := c.DecodeClientState(inner)
		if err != nil {
			return AnyClientState{}, err
		}
		if cs.ClientType() != clientType {
			return AnyClientState{}, fmt.Errorf("%w: code id %X runs %s, wraps %s",
				ErrKindMismatch, wasm.CodeId, clientType, cs.ClientType())
		}
		cs.CodeID = wasm.CodeId
		return cs, nil

	default:
		return AnyClientState{}, fmt.Errorf("%w: %q", ErrUnknownTypeURL, msg.TypeUrl)
	}
}

// EncodeConsensusState returns the Any of cs. Consensus states of wasm
// clients are wrapped when wasm is set.
func (c *Codec) EncodeConsensusState(cs AnyConsensusState, wasm bool) (*gogotypes.Any, error) {
	var (
		msg *gogotypes.Any
		err error
	)
	switch cs.Kind() {
	case KindTendermint:
		msg, err = newAny(tendermint.TypeURLConsensusState, cs.Tendermint.Marshal)
	case KindGrandpa:
		msg, err = newAny(grandpa.TypeURLConsensusState, cs.Grandpa.Marshal)
	case KindBeefy:
		msg, err = newAny(beefy.TypeURLConsensusState, cs.Beefy.Marshal)
	default:
		return nil, ErrUnknownClientKind
	}
	if err != nil || !wasm {
		return msg, err
	}
	return wrap(TypeURLWasmConsensusState, msg, func(data []byte) proto.Message {
		return &ibcproto.WasmConsensusState{Data: data}
	})
}

// DecodeConsensusState decodes an Any produced by EncodeConsensusState.
func (c *Codec) DecodeConsensusState(msg *gogotypes.Any) (AnyConsensusState, error) {
	if msg == nil {
		return AnyConsensusState{}, fmt.Errorf("%w: nil consensus state", ibc.ErrMalformedInput)
	}

	switch msg.TypeUrl {
	case tendermint.TypeURLConsensusState:
		cs, err := tendermint.UnmarshalConsensusState(msg.Value)
		return AnyConsensusState{Tendermint: cs}, err

	case grandpa.TypeURLConsensusState:
		cs, err := grandpa.UnmarshalConsensusState(msg.Value)
		return AnyConsensusState{Grandpa: cs}, err

	case beefy.TypeURLConsensusState:
		cs, err := beefy.UnmarshalConsensusState(msg.Value)
		return AnyConsensusState{Beefy: cs}, err

	case TypeURLWasmConsensusState:
		var wasm ibcproto.WasmConsensusState
		if err := proto.Unmarshal(msg.Value, &wasm); err != nil {
			return AnyConsensusState{}, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
		}
		inner, err := unmarshalAny(wasm.Data)
		if err != nil {
			return AnyConsensusState{}, err
		}
		if inner.TypeUrl == TypeURLWasmConsensusState {
			return AnyConsensusState{}, fmt.Errorf("%w: nested wasm consensus state", ibc.ErrMalformedInput)
		}
		return c.DecodeConsensusState(inner)

	default:
		return AnyConsensusState{}, fmt.Errorf("%w: %q", ErrUnknownTypeURL, msg.TypeUrl)
	}
}

// EncodeHeader returns the Any of h, wrapped in a wasm client message when
// wasm is set.
func (c *Codec) EncodeHeader(h AnyHeader, wasm bool) (*gogotypes.Any, error) {
	var (
		msg *gogotypes.Any
		err error
	)
	switch h.Kind() {
	case KindTendermint:
		msg, err = newAny(tendermint.TypeURLHeader, h.Tendermint.Marshal)
	case KindGrandpa:
		msg, err = newAny(grandpa.TypeURLHeader, h.Grandpa.Marshal)
	case KindBeefy:
		msg, err = newAny(beefy.TypeURLHeader, h.Beefy.Marshal)
	default:
		return nil, ErrUnknownClientKind
	}
	if err != nil || !wasm {
		return msg, err
	}
	return wrap(TypeURLWasmClientMessage, msg, func(data []byte) proto.Message {
		return &ibcproto.WasmClientMessage{Data: data}
	})
}

// DecodeHeader decodes an Any produced by EncodeHeader.
func (c *Codec) DecodeHeader(msg *gogotypes.Any) (AnyHeader, error) {
	if msg == nil {
		return AnyHeader{}, fmt.Errorf("%w: nil header", ibc.ErrMalformedInput)
	}

	switch msg.TypeUrl {
	case tendermint.TypeURLHeader:
		h, err := tendermint.UnmarshalHeader(msg.Value)
		return AnyHeader{Tendermint: h}, err

	case grandpa.TypeURLHeader:
		h, err := grandpa.UnmarshalClientMessage(msg.Value)
		return AnyHeader{Grandpa: h}, err

	case beefy.TypeURLHeader:
		h, err := beefy.UnmarshalHeader(msg.Value)
		return AnyHeader{Beefy: h}, err

	case TypeURLWasmClientMessage:
		var wasm ibcproto.WasmClientMessage
		if err := proto.Unmarshal(msg.Value, &wasm); err != nil {
			return AnyHeader{}, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
		}
		inner, err := unmarshalAny(wasm.Data)
		if err != nil {
			return AnyHeader{}, err
		}
		if inner.TypeUrl == TypeURLWasmClientMessage {
			return AnyHeader{}, fmt.Errorf("%w: nested wasm client message", ibc.ErrMalformedInput)
		}
		return c.DecodeHeader(inner)

	default:
		return AnyHeader{}, fmt.Errorf("%w: %q", ErrUnknownTypeURL, msg.TypeUrl)
	}
}

// DecodeMisbehaviour decodes a Tendermint misbehaviour Any. No other client
// accepts misbehaviour submissions.
func (c *Codec) DecodeMisbehaviour(msg *gogotypes.Any) (*tendermint.Misbehaviour, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil misbehaviour", ibc.ErrMalformedInput)
	}
	if msg.TypeUrl != tendermint.TypeURLMisbehaviour {
		return nil, fmt.Errorf("%w: %q", ErrMisbehaviourUnsupported, msg.TypeUrl)
	}
	return tendermint.UnmarshalMisbehaviour(msg.Value)
}

func newAny(typeURL string, marshal func() ([]byte, error)) (*gogotypes.Any, error) {
	bz, err := marshal()
	if err != nil {
		return nil, err
	}
	return &gogotypes.Any{TypeUrl: typeURL, Value: bz}, nil
}

func wrap(typeURL string, inner *gogotypes.Any, envelope func([]byte) proto.Message) (*gogotypes.Any, error) {
	data, err := proto.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return newAny(typeURL, func() ([]byte, error) { return proto.Marshal(envelope(data)) })
}

func unmarshalAny(bz []byte) (*gogotypes.Any, error) {
	var msg gogotypes.Any
	if err := proto.Unmarshal(bz, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return &msg, nil
}
