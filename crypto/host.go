package crypto

// HostFunctions is the set of primitives the light clients need from the
// runtime they are embedded in. A native implementation lives in
// crypto/native; on-chain hosts may substitute their own precompiles.
type HostFunctions interface {
	// Ed25519Verify reports whether sig is a valid signature of msg by pubKey.
	Ed25519Verify(pubKey, msg, sig []byte) bool
	// Secp256k1RecoverCompressed recovers the 33 byte compressed public key
	// from a 65 byte r||s||v signature over a 32 byte message hash.
	Secp256k1RecoverCompressed(sig, msgHash []byte) ([]byte, error)

	Keccak256(data ...[]byte) Hash
	Blake2b256(data ...[]byte) Hash
	Sha256(data ...[]byte) Hash

	// Twox128 and Twox64 are the xxhash64 based hashers used for Substrate
	// storage keys.
	Twox128(data []byte) [16]byte
	Twox64(data []byte) [8]byte
}

// HashFn hashes the concatenation of its arguments. Method values such as
// host.Keccak256 satisfy it.
type HashFn func(data ...[]byte) Hash
