// internal/ledger/memory.go
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storyline-backend/internal/models"
)

// MemoryStore keeps unlocks in process. Writes to different keys never
// contend; writes to the same key resolve through LoadOrStore.
type MemoryStore struct {
	records sync.Map // key -> *models.UnlockRecord
	now     Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *MemoryStore) WithClock(now Clock) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) RecordUnlock(ctx context.Context, userAddress, bookID string, chapterNumber int, proofRef string, isFree bool) (*models.UnlockRecord, bool, error) {
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

	actual, loaded := s.records.LoadOrStore(record.Key(), record)
	stored := *actual.(*models.UnlockRecord)
	return &stored, !loaded, nil
}

func (s *MemoryStore) HasUnlocked(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error) {
	_, ok := s.records.Load(models.UnlockKey(userAddress, bookID, chapterNumber))
	return ok, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userAddress string) ([]models.UnlockRecord, error) {
	user := models.NormalizeAddress(userAddress)
	records := s.collect(func(r *models.UnlockRecord) bool { return r.UserAddress == user })
	sortByUnlockedDesc(records)
	return records, nil
}

func (s *MemoryStore) ListByBook(ctx context.Context, bookID string) ([]models.UnlockRecord, error) {
	records := s.collect(func(r *models.UnlockRecord) bool { return r.BookID == bookID })
	sortByChapter(records)
	return records, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (models.UnlockStats, error) {
	var stats models.UnlockStats
	users := make(map[string]struct{})
	s.records.Range(func(_, v any) bool {
		r := v.(*models.UnlockRecord)
		stats.Total++
		if r.IsFree {
			stats.Free++
		} else {
			stats.Paid++
		}
		users[r.UserAddress] = struct{}{}
		return true
	})
	stats.UniqueUsers = int64(len(users))
	return stats, nil
}

func (s *MemoryStore) collect(match func(*models.UnlockRecord) bool) []models.UnlockRecord {
	records := make([]models.UnlockRecord, 0)
	s.records.Range(func(_, v any) bool {
		r := v.(*models.UnlockRecord)
		if match(r) {
			records = append(records, *r)
		}
		return true
	})
	return records
}
