// internal/services/chapter_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

var ErrChapterRecordExists = errors.New("chapter record already published")

type chapterRecordStore interface {
	PutChapterRecord(ctx context.Context, rec models.ChapterRecord) (string, error)
	GetChapterRecord(ctx context.Context, bookID string, chapterNumber int) (*models.ChapterRecord, error)
}

type chapterLicenseIndex interface {
	RegisterChapterLicense(ctx context.Context, req *RegisterChapterLicenseRequest) (*models.ChapterLicense, error)
	RemoveChapterLicense(ctx context.Context, license *models.ChapterLicense) error
}

// ChapterService publishes chapter records and applies append-only updates
// to them. Updates to one record are serialized in process.
type ChapterService struct {
	versioner *MetadataVersioner
	records   chapterRecordStore
	licenses  chapterLicenseIndex
	log       *logrus.Logger

	locks sync.Map // record key -> *sync.Mutex
}

type PublishResult struct {
	Record       models.ChapterRecord `json:"record"`
	StorageKey   string               `json:"storage_key"`
	MetadataHash string               `json:"metadata_hash"`
}

func NewChapterService(versioner *MetadataVersioner, records chapterRecordStore, licenses chapterLicenseIndex, log *logrus.Logger) *ChapterService {
	return &ChapterService{
		versioner: versioner,
		records:   records,
		licenses:  licenses,
		log:       log,
	}
}

// Publish indexes the license of a chapter the author has already registered
// on chain, then stores its record. A failed store removes the license again.
func (s *ChapterService) Publish(ctx context.Context, callerAddress string, in PublishInput) (*PublishResult, error) {
	if err := s.authorize(callerAddress, in.BookID, "publish chapter"); err != nil {
		return nil, err
	}
	if !strings.EqualFold(in.AuthorAddress, callerAddress) {
		return nil, utils.NewValidationError("author_address", "author_address must match the signed-in wallet")
	}

	unlock := s.lock(in.BookID, in.ChapterNumber)
	defer unlock()

	if _, err := s.records.GetChapterRecord(ctx, in.BookID, in.ChapterNumber); err == nil {
		return nil, ErrChapterRecordExists
	} else if !utils.IsNotFound(err) {
		return nil, err
	}

	rec, err := s.versioner.BuildChapterRecord(in)
	if err != nil {
		return nil, err
	}
	hash, err := s.versioner.MetadataHash(rec)
	if err != nil {
		return nil, err
	}

	// The license goes in first: a taken IP asset must not leave a record
	// behind that blocks every retry.
	license, err := s.licenses.RegisterChapterLicense(ctx, &RegisterChapterLicenseRequest{
		IPAssetID:       rec.Blockchain.IPAssetID,
		BookID:          rec.Metadata.BookID,
		ChapterNumber:   rec.Metadata.ChapterNumber,
		OwnerAddress:    rec.Metadata.AuthorAddress,
		TransactionHash: rec.Blockchain.TransactionHash,
		Terms:           rec.LicenseTerms,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index chapter license: %w", err)
	}

	key, err := s.records.PutChapterRecord(ctx, rec)
	if err != nil {
		if rmErr := s.licenses.RemoveChapterLicense(ctx, license); rmErr != nil {
			s.log.WithError(rmErr).WithField("ip_asset_id", license.IPAssetID).Error("Failed to roll back chapter license")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"book_id":     rec.Metadata.BookID,
		"chapter":     rec.Metadata.ChapterNumber,
		"ip_asset_id": rec.Blockchain.IPAssetID,
		"tier":        rec.LicenseTerms.Tier,
	}).Info("Chapter record published")

	return &PublishResult{Record: rec, StorageKey: key, MetadataHash: hash}, nil
}

// GetRecord loads a record and upgrades it to the current schema. The
// upgraded form is not written back until the next update.
func (s *ChapterService) GetRecord(ctx context.Context, bookID string, chapterNumber int) (*models.ChapterRecord, error) {
	rec, err := s.records.GetChapterRecord(ctx, bookID, chapterNumber)
	if err != nil {
		return nil, err
	}
	migrated, err := s.versioner.Migrate(*rec)
	if err != nil {
		return nil, err
	}
	return &migrated, nil
}

func (s *ChapterService) UpdatePrice(ctx context.Context, callerAddress, bookID string, chapterNumber int, price, royalty decimal.Decimal, reason string) (*models.ChapterRecord, error) {
	if err := s.authorize(callerAddress, bookID, "reprice chapter"); err != nil {
		return nil, err
	}
	return s.update(ctx, bookID, chapterNumber, func(rec models.ChapterRecord) (models.ChapterRecord, error) {
		return s.versioner.AppendPrice(rec, price, royalty, reason)
	})
}

// RecordUnlockRevenue adds a settled unlock payment to the chapter's counters.
func (s *ChapterService) RecordUnlockRevenue(ctx context.Context, bookID string, chapterNumber int, amount decimal.Decimal) (*models.ChapterRecord, error) {
	return s.update(ctx, bookID, chapterNumber, func(rec models.ChapterRecord) (models.ChapterRecord, error) {
		return s.versioner.RecordUnlockRevenue(rec, amount)
	})
}

// RecordRoyalty adds settled derivative royalties to the chapter's counters.
// Cumulative payouts may never exceed what was earned.
func (s *ChapterService) RecordRoyalty(ctx context.Context, callerAddress, bookID string, chapterNumber int, earned, paid decimal.Decimal) (*models.ChapterRecord, error) {
	if err := s.authorize(callerAddress, bookID, "record royalties"); err != nil {
		return nil, err
	}
	if earned.IsNegative() || paid.IsNegative() {
		return nil, utils.NewValidationError("amount", "royalty amounts must not be negative")
	}
	return s.update(ctx, bookID, chapterNumber, func(rec models.ChapterRecord) (models.ChapterRecord, error) {
		econ := rec.Economics
		if econ != nil && econ.TotalRoyaltiesPaid.Add(paid).GreaterThan(econ.TotalRoyaltiesEarned.Add(earned)) {
			return models.ChapterRecord{}, utils.NewValidationError("paid", "royalties paid would exceed royalties earned")
		}
		return s.versioner.RecordRoyalty(rec, earned, paid)
	})
}

func (s *ChapterService) update(ctx context.Context, bookID string, chapterNumber int, apply func(models.ChapterRecord) (models.ChapterRecord, error)) (*models.ChapterRecord, error) {
	unlock := s.lock(bookID, chapterNumber)
	defer unlock()

	rec, err := s.GetRecord(ctx, bookID, chapterNumber)
	if err != nil {
		return nil, err
	}
	updated, err := apply(*rec)
	if err != nil {
		return nil, err
	}
	if _, err := s.records.PutChapterRecord(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ChapterService) authorize(callerAddress, bookID, action string) error {
	author, ok := models.ParseBookAuthor(bookID)
	if !ok {
		return utils.NewValidationError("book_id", "book_id must start with the author's wallet address")
	}
	if !strings.EqualFold(author, callerAddress) {
		return &utils.UnauthorizedError{Action: action, Reason: "only the book's author can do this"}
	}
	return nil
}

func (s *ChapterService) lock(bookID string, chapterNumber int) func() {
	m, _ := s.locks.LoadOrStore(ChapterRecordKey(bookID, chapterNumber), &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
