// internal/ledger/ledger.go
package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// Store records which chapters a user has unlocked. RecordUnlock is an
// insert-if-absent: repeating it for an existing key returns the stored record
// untouched and created=false.
type Store interface {
	RecordUnlock(ctx context.Context, userAddress, bookID string, chapterNumber int, proofRef string, isFree bool) (*models.UnlockRecord, bool, error)
	HasUnlocked(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error)
	// ListByUser returns the user's unlocks, newest first.
	ListByUser(ctx context.Context, userAddress string) ([]models.UnlockRecord, error)
	// ListByBook returns unlocks for a book ordered by chapter, then user.
	ListByBook(ctx context.Context, bookID string) ([]models.UnlockRecord, error)
	Stats(ctx context.Context) (models.UnlockStats, error)
}

// Clock lets tests pin unlock timestamps.
type Clock func() time.Time

func validateKey(userAddress, bookID string, chapterNumber int) error {
	if err := utils.ValidateWalletAddress("user_address", userAddress); err != nil {
		return err
	}
	if strings.TrimSpace(bookID) == "" {
		return utils.NewValidationError("book_id", "book_id is required")
	}
	if chapterNumber < 1 {
		return utils.NewValidationError("chapter_number", "chapter_number must be at least 1")
	}
	return nil
}

func sortByUnlockedDesc(records []models.UnlockRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UnlockedAt.Equal(records[j].UnlockedAt) {
			return records[i].Key() < records[j].Key()
		}
		return records[i].UnlockedAt.After(records[j].UnlockedAt)
	})
}

func sortByChapter(records []models.UnlockRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ChapterNumber == records[j].ChapterNumber {
			return records[i].UserAddress < records[j].UserAddress
		}
		return records[i].ChapterNumber < records[j].ChapterNumber
	})
}
