// internal/models/book.go
package models

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// FreeChapterLimit is the highest chapter number readable without an unlock.
const FreeChapterLimit = 3

// IsFreeChapter reports whether a chapter is in the free tier. The result is
// derived from the chapter number and never persisted.
func IsFreeChapter(chapterNumber int) bool {
	return chapterNumber <= FreeChapterLimit
}

// BookRegistration mirrors the on-chain book record.
type BookRegistration struct {
	BookID        string         `json:"book_id"`
	BookHash      common.Hash    `json:"book_hash"`
	Curator       common.Address `json:"curator"`
	IsDerivative  bool           `json:"is_derivative"`
	ParentBookID  common.Hash    `json:"parent_book_id"`
	TotalChapters *big.Int       `json:"total_chapters"`
	IsActive      bool           `json:"is_active"`
	MetadataHash  string         `json:"metadata_hash"`
}

// HasCurator is false when the registry holds the zero address as curator.
func (b *BookRegistration) HasCurator() bool {
	return b != nil && b.Curator != (common.Address{})
}

// ParseBookAuthor extracts the author address from a "<address>-<slug>" book id.
func ParseBookAuthor(bookID string) (string, bool) {
	prefix := bookID
	if idx := strings.Index(bookID, "-"); idx >= 0 {
		prefix = bookID[:idx]
	}
	if !strings.HasPrefix(prefix, "0x") || !common.IsHexAddress(prefix) {
		return "", false
	}
	return strings.ToLower(prefix), true
}

// NormalizeAddress lower-cases and trims a wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
