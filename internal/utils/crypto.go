// internal/utils/crypto.go
package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy Keccak-256 digest used by EVM contracts.
func Keccak256(data ...[]byte) [32]byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hasher.Write(d)
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// BookIDHash converts a "<author>-<slug>" book id into the bytes32 key the
// registry contract indexes books by.
func BookIDHash(bookID string) [32]byte {
	return Keccak256([]byte(bookID))
}

func Keccak256Hex(data []byte) string {
	sum := Keccak256(data)
	return "0x" + hex.EncodeToString(sum[:])
}
