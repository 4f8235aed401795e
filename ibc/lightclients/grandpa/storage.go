package grandpa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/lightibc/lightibc/crypto"
)

// ParasHeadsKey returns the relay chain storage key of Paras::Heads(paraID),
// a Twox64Concat map entry.
func ParasHeadsKey(host crypto.HostFunctions, paraID uint32) []byte {
	pallet := host.Twox128([]byte("Paras"))
	item := host.Twox128([]byte("Heads"))

	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], paraID)
	idHash := host.Twox64(id[:])

	key := make([]byte, 0, 16+16+8+4)
	key = append(key, pallet[:]...)
	key = append(key, item[:]...)
	key = append(key, idHash[:]...)
	return append(key, id[:]...)
}

// ExtrinsicKey returns the extrinsics trie key of the index-th extrinsic.
func ExtrinsicKey(index uint) []byte {
	return scale.MustMarshal(index)
}

// extrinsicV4Unsigned is the version byte of an unsigned (inherent)
// extrinsic.
const extrinsicV4Unsigned = 0x04

// DecodeTimestamp extracts the moment, in milliseconds since the Unix epoch,
// from an encoded timestamp.set inherent:
//
//	Compact<len> ++ version ++ pallet index ++ call index ++ Compact<u64>
func DecodeTimestamp(extrinsic []byte) (uint64, error) {
	var body []byte
	if err := scale.Unmarshal(extrinsic, &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	if len(body) < 4 {
		return 0, fmt.Errorf("%w: %d byte extrinsic", ErrInvalidTimestamp, len(body))
	}
	if body[0] != extrinsicV4Unsigned {
		return 0, fmt.Errorf("%w: not an unsigned extrinsic (version %#x)", ErrInvalidTimestamp, body[0])
	}
	// moments past 2^30 use the big-integer compact mode, which the decoder
	// only reads into a big.Int
	var moment *big.Int
	if err := scale.Unmarshal(body[3:], &moment); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	if !moment.IsUint64() {
		return 0, fmt.Errorf("%w: moment %s overflows u64", ErrInvalidTimestamp, moment)
	}
	// a short read is not an error for the decoder
	if !bytes.Equal(scale.MustMarshal(moment), body[3:]) {
		return 0, fmt.Errorf("%w: truncated or non-canonical moment", ErrInvalidTimestamp)
	}
	return moment.Uint64(), nil
}

// EncodeTimestamp builds a timestamp.set inherent for the given pallet and
// call indices.
func EncodeTimestamp(pallet, call uint8, moment uint64) []byte {
	body := []byte{extrinsicV4Unsigned, pallet, call}
	body = append(body, scale.MustMarshal(new(big.Int).SetUint64(moment))...)
	return scale.MustMarshal(body)
}
