// internal/utils/format.go
package utils

import "math/big"

// FormatBigInt renders chain integers as decimal strings for API responses.
// JSON numbers lose precision above 2^53, so values are never emitted raw.
func FormatBigInt(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
