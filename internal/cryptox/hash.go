package cryptox

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Keccak256 is the legacy (pre-NIST) Keccak used by the ledger.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hex returns Keccak256 as 0x-prefixed lowercase hex.
func Keccak256Hex(data ...[]byte) string {
	return "0x" + hex.EncodeToString(Keccak256(data...))
}

// ThreadID derives the id of a new thread from the content hash of its first
// manifest. Same manifest hash, same id.
func ThreadID(manifestHash string) string {
	return Keccak256Hex([]byte(manifestHash))
}

// AddressFromPublicKey is the last 20 bytes of keccak256(publicKey).
func AddressFromPublicKey(pub *[32]byte) string {
	sum := Keccak256(pub[:])
	return "0x" + hex.EncodeToString(sum[12:])
}

// SameAddress compares two addresses ignoring hex case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
