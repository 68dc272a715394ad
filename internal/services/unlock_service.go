// internal/services/unlock_service.go
package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/ledger"
	"github.com/javajoker/storyline-backend/internal/metrics"
	"github.com/javajoker/storyline-backend/internal/models"
)

// ErrUnlockNotOnChain means the registry has no unlock for the claimed key.
var ErrUnlockNotOnChain = errors.New("chapter unlock not found on chain")

type RecordUnlockRequest struct {
	BookID          string `json:"book_id" binding:"required"`
	ChapterNumber   int    `json:"chapter_number" binding:"required,min=1"`
	TransactionHash string `json:"transaction_hash"`
}

// UnlockService copies unlocks into the local ledger so later access checks
// can skip the chain.
type UnlockService struct {
	store ledger.Store
	chain ChainRegistry
	log   *logrus.Logger
}

func NewUnlockService(store ledger.Store, chain ChainRegistry, log *logrus.Logger) *UnlockService {
	return &UnlockService{store: store, chain: chain, log: log}
}

// RecordUnlock records a free-chapter read, or a paid unlock the user has
// already made on chain via unlockChapter.
func (s *UnlockService) RecordUnlock(ctx context.Context, userAddress string, req RecordUnlockRequest) (*models.UnlockRecord, bool, error) {
	if models.IsFreeChapter(req.ChapterNumber) {
		return s.Record(ctx, userAddress, req.BookID, req.ChapterNumber, "free", true)
	}

	ok, err := s.chain.HasUnlockedChapter(ctx, userAddress, req.BookID, req.ChapterNumber)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrUnlockNotOnChain
	}

	proof := req.TransactionHash
	if proof == "" {
		proof = "chain"
	}
	return s.Record(ctx, userAddress, req.BookID, req.ChapterNumber, proof, false)
}

// Record writes an already verified unlock.
func (s *UnlockService) Record(ctx context.Context, userAddress, bookID string, chapterNumber int, proofRef string, isFree bool) (*models.UnlockRecord, bool, error) {
	record, created, err := s.store.RecordUnlock(ctx, userAddress, bookID, chapterNumber, proofRef, isFree)
	if err != nil {
		return nil, false, err
	}
	metrics.RecordUnlock(isFree, created)

	s.log.WithFields(logrus.Fields{
		"user":    record.UserAddress,
		"book_id": bookID,
		"chapter": chapterNumber,
		"created": created,
	}).Info("Unlock recorded")
	return record, created, nil
}

func (s *UnlockService) HasUnlocked(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error) {
	return s.store.HasUnlocked(ctx, userAddress, bookID, chapterNumber)
}

func (s *UnlockService) ListByUser(ctx context.Context, userAddress string) ([]models.UnlockRecord, error) {
	return s.store.ListByUser(ctx, userAddress)
}

func (s *UnlockService) ListByBook(ctx context.Context, bookID string) ([]models.UnlockRecord, error) {
	return s.store.ListByBook(ctx, bookID)
}

func (s *UnlockService) Stats(ctx context.Context) (models.UnlockStats, error) {
	return s.store.Stats(ctx)
}
