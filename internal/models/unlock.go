// internal/models/unlock.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UnlockRecord is written once per (user, book, chapter).
type UnlockRecord struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserAddress    string    `json:"user_address" gorm:"size:42;not null;uniqueIndex:idx_unlock_records_key,priority:1"`
	BookID         string    `json:"book_id" gorm:"size:255;not null;uniqueIndex:idx_unlock_records_key,priority:2;index"`
	ChapterNumber  int       `json:"chapter_number" gorm:"not null;uniqueIndex:idx_unlock_records_key,priority:3"`
	UnlockedAt     time.Time `json:"unlocked_at" gorm:"not null;index"`
	ProofReference string    `json:"proof_reference" gorm:"size:255"`
	IsFree         bool      `json:"is_free" gorm:"default:false"`
}

// Key is the normalized ledger key for the record.
func (r UnlockRecord) Key() string {
	return UnlockKey(r.UserAddress, r.BookID, r.ChapterNumber)
}

// UnlockKey builds the ledger key with the user address case-normalized.
func UnlockKey(userAddress, bookID string, chapterNumber int) string {
	return fmt.Sprintf("%s:%s:%d", NormalizeAddress(userAddress), bookID, chapterNumber)
}

type UnlockStats struct {
	Total       int64 `json:"total"`
	Free        int64 `json:"free"`
	Paid        int64 `json:"paid"`
	UniqueUsers int64 `json:"unique_users"`
}
