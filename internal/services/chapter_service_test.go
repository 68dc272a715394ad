// internal/services/chapter_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type ChapterServiceTestSuite struct {
	suite.Suite
	storage  *StorageService
	licenses *LicenseService
	chapters *ChapterService
	ctx      context.Context
}

func (suite *ChapterServiceTestSuite) SetupTest() {
	storage, err := NewStorageService(config.AWSConfig{S3Bucket: "records"})
	suite.Require().NoError(err)
	suite.storage = storage
	suite.licenses = NewLicenseService(newTestDB(suite.T()))
	suite.chapters = NewChapterService(newTestVersioner(), suite.storage, suite.licenses, testLogger())
	suite.ctx = context.Background()
}

func (suite *ChapterServiceTestSuite) publish(chapter int) *PublishResult {
	res, err := suite.chapters.Publish(suite.ctx, testAuthor, publishInput(chapter))
	suite.Require().NoError(err)
	return res
}

func (suite *ChapterServiceTestSuite) TestPublishStoresRecordAndIndexesLicense() {
	res := suite.publish(4)

	suite.Equal(ChapterRecordKey(testBookID, 4), res.StorageKey)
	suite.Len(res.MetadataHash, 66)

	stored, err := suite.chapters.GetRecord(suite.ctx, testBookID, 4)
	suite.Require().NoError(err)
	suite.Equal(res.Record.Metadata, stored.Metadata)

	parent, err := suite.licenses.GetParentLicense(suite.ctx, testIPID)
	suite.Require().NoError(err)
	suite.Equal(testBookID, parent.BookID)
	suite.Equal(models.LicenseTierPremium, parent.Terms.Tier)
	suite.Equal(testAuthor, parent.OwnerAddress)
}

func (suite *ChapterServiceTestSuite) TestPublishRequiresTheAuthor() {
	_, err := suite.chapters.Publish(suite.ctx, testReader, publishInput(4))
	suite.True(utils.IsUnauthorized(err))

	in := publishInput(4)
	in.BookID = "not-an-address-book"
	_, err = suite.chapters.Publish(suite.ctx, testAuthor, in)
	suite.True(utils.IsValidationError(err))

	in = publishInput(4)
	in.AuthorAddress = testReader
	_, err = suite.chapters.Publish(suite.ctx, testAuthor, in)
	suite.True(utils.IsValidationError(err))
}

func (suite *ChapterServiceTestSuite) TestPublishTwiceConflicts() {
	suite.publish(4)

	_, err := suite.chapters.Publish(suite.ctx, testAuthor, publishInput(4))
	suite.ErrorIs(err, ErrChapterRecordExists)
}

func (suite *ChapterServiceTestSuite) TestPublishWithTakenIPAssetLeavesNoRecord() {
	suite.publish(4)

	_, err := suite.chapters.Publish(suite.ctx, testAuthor, publishInput(5))
	suite.ErrorIs(err, ErrChapterLicenseExists)

	_, err = suite.chapters.GetRecord(suite.ctx, testBookID, 5)
	suite.True(utils.IsNotFound(err))

	in := publishInput(5)
	in.IPAssetID = "0x5555555555555555555555555555555555555555"
	res, err := suite.chapters.Publish(suite.ctx, testAuthor, in)
	suite.Require().NoError(err)
	suite.Equal(5, res.Record.Metadata.ChapterNumber)

	parent, err := suite.licenses.GetParentLicense(suite.ctx, in.IPAssetID)
	suite.Require().NoError(err)
	suite.Equal(5, parent.ChapterNumber)
}

func (suite *ChapterServiceTestSuite) TestPublishRemovesLicenseWhenRecordWriteFails() {
	broken := NewChapterService(newTestVersioner(), failingRecordStore{suite.storage}, suite.licenses, testLogger())

	_, err := broken.Publish(suite.ctx, testAuthor, publishInput(4))
	suite.Require().Error(err)

	_, err = suite.licenses.GetParentLicense(suite.ctx, testIPID)
	suite.True(utils.IsNotFound(err))

	suite.publish(4)
}

func (suite *ChapterServiceTestSuite) TestGetRecordMissing() {
	_, err := suite.chapters.GetRecord(suite.ctx, testBookID, 12)
	suite.True(utils.IsNotFound(err))
}

func (suite *ChapterServiceTestSuite) TestGetRecordMigratesLegacyDocuments() {
	legacy := models.ChapterRecord{
		Metadata: models.ChapterMetadata{BookID: testBookID, ChapterNumber: 5, Title: "Old"},
		LicenseTerms: models.LicenseTerms{
			Tier:              models.LicenseTierPremium,
			RoyaltyPercentage: decimal.NewFromInt(10),
			Price:             decimal.NewFromInt(100),
		},
	}
	_, err := suite.storage.PutChapterRecord(suite.ctx, legacy)
	suite.Require().NoError(err)

	rec, err := suite.chapters.GetRecord(suite.ctx, testBookID, 5)
	suite.Require().NoError(err)
	suite.Equal(CurrentSchemaVersion, rec.Version.SchemaVersion)
	suite.Len(rec.Version.MigrationHistory, 2)
	suite.Equal(PremiumLicenseTermsID, rec.LicenseTerms.LicenseTermsID)
	suite.NotNil(rec.Protection)
	suite.Require().NotNil(rec.Economics)
}

func (suite *ChapterServiceTestSuite) TestUpdatePriceAppendsHistory() {
	suite.publish(4)

	rec, err := suite.chapters.UpdatePrice(suite.ctx, testAuthor, testBookID, 4, decimal.NewFromInt(8), decimal.NewFromInt(12), "launch week over")
	suite.Require().NoError(err)
	suite.True(rec.Economics.CurrentUnlockPrice.Equal(decimal.NewFromInt(8)))
	suite.Len(rec.Economics.PriceHistory, 2)
	suite.Equal(int64(2), rec.Version.DataVersion)

	stored, err := suite.chapters.GetRecord(suite.ctx, testBookID, 4)
	suite.Require().NoError(err)
	suite.Len(stored.Economics.PriceHistory, 2)

	_, err = suite.chapters.UpdatePrice(suite.ctx, testReader, testBookID, 4, decimal.NewFromInt(1), decimal.Zero, "")
	suite.True(utils.IsUnauthorized(err))
}

func (suite *ChapterServiceTestSuite) TestFreeChapterCannotBePriced() {
	suite.publish(2)

	_, err := suite.chapters.UpdatePrice(suite.ctx, testAuthor, testBookID, 2, decimal.NewFromInt(3), decimal.Zero, "")
	suite.True(utils.IsValidationError(err))
}

func (suite *ChapterServiceTestSuite) TestConcurrentRevenueUpdatesAreNotLost() {
	suite.publish(4)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.chapters.RecordUnlockRevenue(suite.ctx, testBookID, 4, decimal.NewFromInt(5))
			suite.NoError(err)
		}()
	}
	wg.Wait()

	rec, err := suite.chapters.GetRecord(suite.ctx, testBookID, 4)
	suite.Require().NoError(err)
	suite.Equal(int64(20), rec.Economics.UnlockCount)
	suite.True(rec.Economics.TotalUnlockRevenue.Equal(decimal.NewFromInt(100)))
}

func (suite *ChapterServiceTestSuite) TestRecordRoyalty() {
	suite.publish(4)

	rec, err := suite.chapters.RecordRoyalty(suite.ctx, testAuthor, testBookID, 4, decimal.NewFromInt(8), decimal.NewFromInt(3))
	suite.Require().NoError(err)
	suite.True(rec.Economics.TotalRoyaltiesEarned.Equal(decimal.NewFromInt(8)))
	suite.True(rec.Economics.TotalRoyaltiesPaid.Equal(decimal.NewFromInt(3)))

	_, err = suite.chapters.RecordRoyalty(suite.ctx, testAuthor, testBookID, 4, decimal.Zero, decimal.NewFromInt(6))
	suite.True(utils.IsValidationError(err))

	_, err = suite.chapters.RecordRoyalty(suite.ctx, testAuthor, testBookID, 4, decimal.NewFromInt(-1), decimal.Zero)
	suite.True(utils.IsValidationError(err))

	_, err = suite.chapters.RecordRoyalty(suite.ctx, testReader, testBookID, 4, decimal.NewFromInt(1), decimal.Zero)
	suite.True(utils.IsUnauthorized(err))

	stored, err := suite.chapters.GetRecord(suite.ctx, testBookID, 4)
	suite.Require().NoError(err)
	suite.True(stored.Economics.TotalRoyaltiesPaid.Equal(decimal.NewFromInt(3)))
}

type failingRecordStore struct {
	*StorageService
}

func (failingRecordStore) PutChapterRecord(ctx context.Context, rec models.ChapterRecord) (string, error) {
	return "", utils.NewExternalDependencyError("s3", "PutObject", errors.New("access denied"))
}

func TestChapterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChapterServiceTestSuite))
}
