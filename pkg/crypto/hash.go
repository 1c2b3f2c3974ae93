package crypto

import (
	"encoding/hex"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Transform returns the lowercase hex encoding of the Keccak-256 digest of the
// input. All content addressing in the ledger goes through this function.
func Transform(input string) string {
	return hex.EncodeToString(ethcrypto.Keccak256([]byte(input)))
}

// VerifyTransform reports whether hexDigest is the Keccak-256 hex digest of input.
func VerifyTransform(input, hexDigest string) bool {
	return Transform(input) == hexDigest
}

// Keccak256 hashes arbitrary bytes to a raw 32-byte digest.
func Keccak256(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(data))
	return out
}

// FoldKey folds a hex digest string into a 32-byte key: the string's ASCII
// bytes truncated to 32, zero-padded when shorter.
func FoldKey(hexDigest string) [32]byte {
	var key [32]byte
	copy(key[:], hexDigest)
	return key
}

// ToHex returns the lowercase hex encoding of bytes.
func ToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// FromHex decodes a hex string back into bytes.
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
