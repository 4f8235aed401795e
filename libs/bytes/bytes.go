package bytes

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice that prints and encodes as upper-case hex. Hashes
// and addresses use it so logs and errors stay readable.
type HexBytes []byte

// MarshalText encodes a HexBytes value as hexadecimal digits.
func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(bz.String()), nil
}

// UnmarshalText decodes hexadecimal digits. An empty or "null" input leaves
// bz unchanged.
func (bz *HexBytes) UnmarshalText(data []byte) error {
	if input := string(data); input == "" || input == "null" {
		return nil
	}
	dec, err := hex.DecodeString(string(data))
	if err != nil {
		return err
	}
	*bz = dec
	return nil
}

func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return strings.ToUpper(hex.EncodeToString(bz))
}

// Format prints the slice address for %p and upper-case hex otherwise.
func (bz HexBytes) Format(s fmt.State, verb rune) {
	if verb == 'p' {
		fmt.Fprintf(s, "%p", []byte(bz))
		return
	}
	fmt.Fprintf(s, "%X", []byte(bz))
}

// Fingerprint returns the first 6 bytes of slice, zero padded.
func Fingerprint(slice []byte) []byte {
	fingerprint := make([]byte, 6)
	copy(fingerprint, slice)
	return fingerprint
}
