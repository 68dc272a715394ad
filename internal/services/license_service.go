// internal/services/license_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/storyline-backend/internal/database"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// ErrChapterLicenseExists is returned when an IP asset is indexed twice.
var ErrChapterLicenseExists = errors.New("chapter license already registered")

// LicenseService indexes published chapters by IP asset id. Rows are written
// once at publish time; a new chapter version gets a new IP asset.
type LicenseService struct {
	db *gorm.DB
}

type RegisterChapterLicenseRequest struct {
	IPAssetID       string `validate:"required,ip_asset_id"`
	BookID          string `validate:"required"`
	ChapterNumber   int    `validate:"required,min=1"`
	OwnerAddress    string `validate:"required,wallet_address"`
	TransactionHash string
	Terms           models.LicenseTerms
}

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

func (s *LicenseService) RegisterChapterLicense(ctx context.Context, req *RegisterChapterLicenseRequest) (*models.ChapterLicense, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	row := &models.ChapterLicense{
		IPAssetID:       req.IPAssetID,
		BookID:          req.BookID,
		ChapterNumber:   req.ChapterNumber,
		OwnerAddress:    models.NormalizeAddress(req.OwnerAddress),
		TransactionHash: req.TransactionHash,
	}
	row.SetTerms(req.Terms)

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ChapterLicense{}).Where("ip_asset_id = ?", req.IPAssetID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrChapterLicenseExists
		}
		return tx.Create(row).Error
	})
	if err != nil {
		if errors.Is(err, ErrChapterLicenseExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register chapter license: %w", err)
	}

	return row, nil
}

// RemoveChapterLicense hard-deletes a license row so its IP asset can be
// indexed again.
func (s *LicenseService) RemoveChapterLicense(ctx context.Context, license *models.ChapterLicense) error {
	if err := s.db.WithContext(ctx).Unscoped().Delete(&models.ChapterLicense{}, "id = ?", license.ID).Error; err != nil {
		return fmt.Errorf("failed to remove chapter license: %w", err)
	}
	return nil
}

// GetParentLicense implements ChapterLicenseSource.
func (s *LicenseService) GetParentLicense(ctx context.Context, ipAssetID string) (*models.ParentLicense, error) {
	var row models.ChapterLicense
	if err := s.db.WithContext(ctx).Where("ip_asset_id = ?", ipAssetID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &utils.NotFoundError{
				Resource: "parent license",
				ID:       ipAssetID,
				Hint:     "Check the parent IP asset id or ask the author to publish the chapter",
			}
		}
		return nil, fmt.Errorf("failed to load chapter license: %w", err)
	}
	if err := checkStoredTerms(row); err != nil {
		return nil, err
	}

	return &models.ParentLicense{
		IPAssetID:     row.IPAssetID,
		BookID:        row.BookID,
		ChapterNumber: row.ChapterNumber,
		OwnerAddress:  row.OwnerAddress,
		Terms:         row.Terms(),
	}, nil
}

// checkStoredTerms rejects rows whose terms could not have come from a valid
// publish, such as a tier this service does not know.
func checkStoredTerms(row models.ChapterLicense) error {
	if _, ok := defaultTerms[row.Tier]; !ok {
		return fmt.Errorf("%w: unknown tier %q on %s", utils.ErrInvalidLicense, row.Tier, row.IPAssetID)
	}
	if row.RoyaltyPercentage.IsNegative() || row.RoyaltyPercentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: royalty %s on %s", utils.ErrInvalidLicense, row.RoyaltyPercentage, row.IPAssetID)
	}
	return nil
}

func (s *LicenseService) ListByBook(ctx context.Context, bookID string) ([]models.ChapterLicense, error) {
	var rows []models.ChapterLicense
	if err := s.db.WithContext(ctx).Where("book_id = ?", bookID).Order("chapter_number ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list chapter licenses: %w", err)
	}
	return rows, nil
}
