// internal/services/license_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

func TestLicenseService_RegisterAndResolve(t *testing.T) {
	svc := NewLicenseService(newTestDB(t))
	ctx := context.Background()
	premium := NewLicenseCatalog(false).DefaultTerms(models.LicenseTierPremium)
	premium.Territories = []string{"US", "CA"}

	row, err := svc.RegisterChapterLicense(ctx, &RegisterChapterLicenseRequest{
		IPAssetID:       testIPID,
		BookID:          testBookID,
		ChapterNumber:   4,
		OwnerAddress:    testAuthor,
		TransactionHash: "0xabc",
		Terms:           premium,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)

	parent, err := svc.GetParentLicense(ctx, testIPID)
	require.NoError(t, err)
	assert.Equal(t, testBookID, parent.BookID)
	assert.Equal(t, 4, parent.ChapterNumber)
	assert.Equal(t, models.LicenseTierPremium, parent.Terms.Tier)
	assert.True(t, parent.Terms.RoyaltyPercentage.Equal(premium.RoyaltyPercentage))
	assert.Equal(t, premium.Distribution, parent.Terms.Distribution)
	assert.Equal(t, []string{"US", "CA"}, parent.Terms.Territories)

	rows, err := svc.ListByBook(ctx, testBookID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLicenseService_RegisterTwiceConflicts(t *testing.T) {
	svc := NewLicenseService(newTestDB(t))
	ctx := context.Background()
	req := &RegisterChapterLicenseRequest{
		IPAssetID:     testIPID,
		BookID:        testBookID,
		ChapterNumber: 4,
		OwnerAddress:  testAuthor,
		Terms:         NewLicenseCatalog(false).DefaultTerms(models.LicenseTierFree),
	}

	_, err := svc.RegisterChapterLicense(ctx, req)
	require.NoError(t, err)
	_, err = svc.RegisterChapterLicense(ctx, req)
	assert.ErrorIs(t, err, ErrChapterLicenseExists)
}

func TestLicenseService_RegisterValidates(t *testing.T) {
	svc := NewLicenseService(newTestDB(t))

	_, err := svc.RegisterChapterLicense(context.Background(), &RegisterChapterLicenseRequest{
		IPAssetID:     "short",
		BookID:        testBookID,
		ChapterNumber: 4,
		OwnerAddress:  "0x123",
	})
	require.Error(t, err)
	fields := utils.GetValidationErrors(err)
	assert.Len(t, fields, 2)
}

func TestLicenseService_MissingParentIsNotFound(t *testing.T) {
	svc := NewLicenseService(newTestDB(t))

	_, err := svc.GetParentLicense(context.Background(), testIPID)
	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))

	var nf *utils.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.NotEmpty(t, nf.Hint)
}

func TestLicenseService_UnknownStoredTierIsInvalid(t *testing.T) {
	svc := NewLicenseService(newTestDB(t))
	ctx := context.Background()
	terms := NewLicenseCatalog(false).DefaultTerms(models.LicenseTierPremium)
	terms.Tier = "platinum"

	_, err := svc.RegisterChapterLicense(ctx, &RegisterChapterLicenseRequest{
		IPAssetID:     testIPID,
		BookID:        testBookID,
		ChapterNumber: 4,
		OwnerAddress:  testAuthor,
		Terms:         terms,
	})
	require.NoError(t, err)

	_, err = svc.GetParentLicense(ctx, testIPID)
	assert.ErrorIs(t, err, utils.ErrInvalidLicense)
}
