// internal/ledger/gorm.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storyline-backend/internal/models"
)

// GormStore persists unlocks in the unlock_records table. The composite unique
// index on (user_address, book_id, chapter_number) makes inserts idempotent.
type GormStore struct {
	db  *gorm.DB
	now Clock
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) WithClock(now Clock) *GormStore {
	s.now = now
	return s
}

func (s *GormStore) RecordUnlock(ctx context.Context, userAddress, bookID string, chapterNumber int, proofRef string, isFree bool) (*models.UnlockRecord, bool, error) {
	if err := validateKey(userAddress, bookID, chapterNumber); err != nil {
		return nil, false, err
	}

	record := &models.UnlockRecord{
		ID:             uuid.New(),
		UserAddress:    models.NormalizeAddress(userAddress),
		BookID:         bookID,
		ChapterNumber:  chapterNumber,
		UnlockedAt:     s.now().UTC(),
		ProofReference: proofRef,
		IsFree:         isFree,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_address"}, {Name: "book_id"}, {Name: "chapter_number"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to record unlock: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return record, true, nil
	}

	var existing models.UnlockRecord
	if err := s.db.WithContext(ctx).
		Where("user_address = ? AND book_id = ? AND chapter_number = ?", record.UserAddress, bookID, chapterNumber).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load existing unlock: %w", err)
	}
	return &existing, false, nil
}

func (s *GormStore) HasUnlocked(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UnlockRecord{}).
		Where("user_address = ? AND book_id = ? AND chapter_number = ?", models.NormalizeAddress(userAddress), bookID, chapterNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) ListByUser(ctx context.Context, userAddress string) ([]models.UnlockRecord, error) {
	var records []models.UnlockRecord
	err := s.db.WithContext(ctx).
		Where("user_address = ?", models.NormalizeAddress(userAddress)).
		Order("unlocked_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	sortByUnlockedDesc(records)
	return records, nil
}

func (s *GormStore) ListByBook(ctx context.Context, bookID string) ([]models.UnlockRecord, error) {
	var records []models.UnlockRecord
	err := s.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("chapter_number ASC, user_address ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	return records, nil
}

func (s *GormStore) Stats(ctx context.Context) (models.UnlockStats, error) {
	var stats models.UnlockStats
	db := s.db.WithContext(ctx).Model(&models.UnlockRecord{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("failed to count unlocks: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.UnlockRecord{}).Where("is_free = ?", true).Count(&stats.Free).Error; err != nil {
		return stats, fmt.Errorf("failed to count free unlocks: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.UnlockRecord{}).Distinct("user_address").Count(&stats.UniqueUsers).Error; err != nil {
		return stats, fmt.Errorf("failed to count unlock users: %w", err)
	}
	stats.Paid = stats.Total - stats.Free
	return stats, nil
}
