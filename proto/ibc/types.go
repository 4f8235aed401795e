// Package ibc holds the protobuf wire messages shared by every light client:
// heights, commitment roots and the 08-wasm envelopes. Field numbers follow
// the ibc-go proto definitions.
package ibc

import (
	"github.com/gogo/protobuf/proto"
)

// Height is a monotonically increasing data type
// that can be compared against another Height for the purposes of updating and
// freezing clients
type Height struct {
	RevisionNumber uint64 `protobuf:"varint,1,opt,name=revision_number,json=revisionNumber,proto3" json:"revision_number,omitempty"`
	RevisionHeight uint64 `protobuf:"varint,2,opt,name=revision_height,json=revisionHeight,proto3" json:"revision_height,omitempty"`
}

func (m *Height) Reset()         { *m = Height{} }
func (m *Height) String() string { return proto.CompactTextString(m) }
func (*Height) ProtoMessage()    {}

// MerkleRoot defines a merkle root hash.
type MerkleRoot struct {
	Hash []byte `protobuf:"bytes,1,opt,name=hash,proto3" json:"hash,omitempty"`
}

func (m *MerkleRoot) Reset()         { *m = MerkleRoot{} }
func (m *MerkleRoot) String() string { return proto.CompactTextString(m) }
func (*MerkleRoot) ProtoMessage()    {}

// WasmClientState wraps the client state of a light client running as a
// wasm contract.
type WasmClientState struct {
	Data         []byte  `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	CodeId       []byte  `protobuf:"bytes,2,opt,name=code_id,json=codeId,proto3" json:"code_id,omitempty"`
	LatestHeight *Height `protobuf:"bytes,3,opt,name=latest_height,json=latestHeight,proto3" json:"latest_height,omitempty"`
}

func (m *WasmClientState) Reset()         { *m = WasmClientState{} }
func (m *WasmClientState) String() string { return proto.CompactTextString(m) }
func (*WasmClientState) ProtoMessage()    {}

// WasmConsensusState wraps the consensus state of a wasm light client.
type WasmConsensusState struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *WasmConsensusState) Reset()         { *m = WasmConsensusState{} }
func (m *WasmConsensusState) String() string { return proto.CompactTextString(m) }
func (*WasmConsensusState) ProtoMessage()    {}

// WasmClientMessage wraps a header or misbehaviour of a wasm light client.
type WasmClientMessage struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *WasmClientMessage) Reset()         { *m = WasmClientMessage{} }
func (m *WasmClientMessage) String() string { return proto.CompactTextString(m) }
func (*WasmClientMessage) ProtoMessage()    {}
