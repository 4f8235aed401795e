package trie

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"
)

// Node header layout (two high bits of the first byte):
//
//	00 000000  empty trie
//	01 nnnnnn  leaf
//	10 nnnnnn  branch without value
//	11 nnnnnn  branch with value
//
// nnnnnn is the partial key length in nibbles; 63 means the length continues
// in the following bytes.
const (
	emptyTrie       byte = 0x00
	leafPrefix      byte = 0b01 << 6
	branchNoValue   byte = 0b10 << 6
	branchWithValue byte = 0b11 << 6

	prefixMask   = 0b11 << 6
	maxSizeFirst = 0xff >> 2

	bitmapLength = 2
	childCount   = 16

	// nibbleSizeBound caps partial keys so decoding never loops on hostile
	// input.
	nibbleSizeBound = 0xffff
)

var errUnexpectedEOF = errors.New("unexpected end of input")

type nodeKind uint8

const (
	kindEmpty nodeKind = iota
	kindLeaf
	kindBranch
)

// node is a decoded trie node. Children hold either a 32 byte hash or an
// inline encoded node.
type node struct {
	kind     nodeKind
	partial  []byte
	value    []byte
	hasValue bool
	children [childCount][]byte
}

func encodeSize(prefix byte, size int) []byte {
	l1 := size
	if l1 > maxSizeFirst-1 {
		l1 = maxSizeFirst - 1
	}
	if size == l1 {
		return []byte{prefix | byte(l1)}
	}

	out := []byte{prefix | maxSizeFirst}
	rem := size - l1
	for rem >= 256 {
		out = append(out, 255)
		rem -= 255
	}
	return append(out, byte(rem-1))
}

func encodePartial(nibbles []byte) []byte {
	out := make([]byte, 0, (len(nibbles)+1)/2)
	if len(nibbles)%2 == 1 {
		out = append(out, nibbles[0])
		nibbles = nibbles[1:]
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

// encodeBytes writes a SCALE Vec<u8>: compact length then the bytes.
func encodeBytes(b []byte) []byte {
	enc, err := scale.Marshal(b)
	if err != nil {
		// a byte slice always encodes
		panic(err)
	}
	return enc
}

func encodeLeaf(partial, value []byte) []byte {
	out := encodeSize(leafPrefix, len(partial))
	out = append(out, encodePartial(partial)...)
	return append(out, encodeBytes(value)...)
}

func encodeBranch(partial []byte, value []byte, hasValue bool, children *[childCount][]byte) []byte {
	prefix := branchNoValue
	if hasValue {
		prefix = branchWithValue
	}
	out := encodeSize(prefix, len(partial))
	out = append(out, encodePartial(partial)...)

	var bitmap uint16
	for i, child := range children {
		if child != nil {
			bitmap |= 1 << uint(i)
		}
	}
	out = binary.LittleEndian.AppendUint16(out, bitmap)

	if hasValue {
		out = append(out, encodeBytes(value)...)
	}
	for _, child := range children {
		if child != nil {
			out = append(out, encodeBytes(child)...)
		}
	}
	return out
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.pos < n {
		return nil, errUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readCompact reads a SCALE compact integer that must fit in a uint32.
func (r *reader) readCompact() (int, error) {
	first, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return int(first >> 2), nil
	case 0b01:
		second, err := r.readByte()
		if err != nil {
			return 0, err
		}
		v := uint16(first) | uint16(second)<<8
		if v>>2 < 1<<6 {
			return 0, errors.New("non canonical compact encoding")
		}
		return int(v >> 2), nil
	case 0b10:
		b, err := r.take(3)
		if err != nil {
			return 0, err
		}
		v := uint32(first) | uint32(b[0])<<8 | uint32(b[1])<<16 | uint32(b[2])<<24
		if v>>2 < 1<<14 {
			return 0, errors.New("non canonical compact encoding")
		}
		return int(v >> 2), nil
	default:
		if first>>2 != 0 {
			return 0, errors.New("compact length exceeds 32 bits")
		}
		b, err := r.take(4)
		if err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint32(b)
		if v < 1<<30 {
			return 0, errors.New("non canonical compact encoding")
		}
		return int(v), nil
	}
}

func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readCompact()
	if err != nil {
		return nil, err
	}
	return r.take(n)
}

func (r *reader) readSize(first byte) (int, error) {
	size := int(first &^ prefixMask)
	if size < maxSizeFirst {
		return size, nil
	}
	size--
	for {
		n, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if n < 255 {
			size += int(n) + 1
			break
		}
		size += 255
		if size > nibbleSizeBound {
			return 0, fmt.Errorf("partial key of %d nibbles exceeds bound", size)
		}
	}
	if size > nibbleSizeBound {
		return 0, fmt.Errorf("partial key of %d nibbles exceeds bound", size)
	}
	return size, nil
}

func (r *reader) readPartial(nibbleCount int) ([]byte, error) {
	packed, err := r.take((nibbleCount + 1) / 2)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, nibbleCount)
	if nibbleCount%2 == 1 {
		if packed[0]>>4 != 0 {
			return nil, errors.New("partial key padding is not zero")
		}
		out = append(out, packed[0])
		packed = packed[1:]
	}
	for _, b := range packed {
		out = append(out, b>>4, b&0x0f)
	}
	return out, nil
}

// decodeNode decodes a single encoded node. Trailing bytes are rejected.
func decodeNode(data []byte) (*node, error) {
	r := &reader{data: data}
	first, err := r.readByte()
	if err != nil {
		return nil, err
	}

	n := &node{}
	switch first & prefixMask {
	case 0:
		if first != emptyTrie {
			return nil, fmt.Errorf("unknown node header %#x", first)
		}
		n.kind = kindEmpty

	case leafPrefix:
		size, err := r.readSize(first)
		if err != nil {
			return nil, err
		}
		if n.partial, err = r.readPartial(size); err != nil {
			return nil, err
		}
		if n.value, err = r.readBytes(); err != nil {
			return nil, err
		}
		n.kind, n.hasValue = kindLeaf, true

	default:
		size, err := r.readSize(first)
		if err != nil {
			return nil, err
		}
		if n.partial, err = r.readPartial(size); err != nil {
			return nil, err
		}
		raw, err := r.take(bitmapLength)
		if err != nil {
			return nil, err
		}
		bitmap := binary.LittleEndian.Uint16(raw)
		if bitmap == 0 {
			return nil, errors.New("branch without children")
		}
		if first&prefixMask == branchWithValue {
			if n.value, err = r.readBytes(); err != nil {
				return nil, err
			}
			n.hasValue = true
		}
		for i := 0; i < childCount; i++ {
			if bitmap&(1<<uint(i)) == 0 {
				continue
			}
			if n.children[i], err = r.readBytes(); err != nil {
				return nil, err
			}
		}
		n.kind = kindBranch
	}

	if r.pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after node", len(data)-r.pos)
	}
	return n, nil
}
