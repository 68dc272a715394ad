// internal/services/unlock_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storyline-backend/internal/ledger"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type UnlockServiceTestSuite struct {
	suite.Suite
	chain   *fakeChain
	store   *ledger.MemoryStore
	unlocks *UnlockService
	ctx     context.Context
}

func (suite *UnlockServiceTestSuite) SetupTest() {
	suite.chain = newFakeChain()
	suite.store = ledger.NewMemoryStore()
	suite.unlocks = NewUnlockService(suite.store, newTestBlockchainService(suite.chain), testLogger())
	suite.ctx = context.Background()
}

func (suite *UnlockServiceTestSuite) TestFreeChapterSkipsChain() {
	rec, created, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{BookID: testBookID, ChapterNumber: 2})
	suite.Require().NoError(err)
	suite.True(created)
	suite.True(rec.IsFree)
	suite.Equal("free", rec.ProofReference)
	suite.Empty(suite.chain.called())
}

func (suite *UnlockServiceTestSuite) TestPaidChapterIsVerifiedOnChain() {
	suite.chain.returns("hasUnlockedChapter", true)

	rec, created, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{
		BookID:          testBookID,
		ChapterNumber:   6,
		TransactionHash: "0xabc",
	})
	suite.Require().NoError(err)
	suite.True(created)
	suite.False(rec.IsFree)
	suite.Equal("0xabc", rec.ProofReference)

	ok, err := suite.unlocks.HasUnlocked(suite.ctx, testReader, testBookID, 6)
	suite.Require().NoError(err)
	suite.True(ok)
}

func (suite *UnlockServiceTestSuite) TestPaidChapterNotOnChainIsRejected() {
	suite.chain.returns("hasUnlockedChapter", false)

	_, _, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{BookID: testBookID, ChapterNumber: 6})
	suite.ErrorIs(err, ErrUnlockNotOnChain)

	stats, err := suite.unlocks.Stats(suite.ctx)
	suite.Require().NoError(err)
	suite.Zero(stats.Total)
}

func (suite *UnlockServiceTestSuite) TestChainFailureIsReported() {
	suite.chain.hangs("hasUnlockedChapter")

	_, _, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{BookID: testBookID, ChapterNumber: 6})
	suite.ErrorIs(err, utils.ErrExternalDependency)
}

func (suite *UnlockServiceTestSuite) TestRecordingTwiceKeepsFirstProof() {
	suite.chain.returns("hasUnlockedChapter", true)

	_, _, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{BookID: testBookID, ChapterNumber: 6, TransactionHash: "0x1"})
	suite.Require().NoError(err)
	rec, created, err := suite.unlocks.RecordUnlock(suite.ctx, testReader, RecordUnlockRequest{BookID: testBookID, ChapterNumber: 6, TransactionHash: "0x2"})
	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal("0x1", rec.ProofReference)

	byUser, err := suite.unlocks.ListByUser(suite.ctx, testReader)
	suite.Require().NoError(err)
	suite.Len(byUser, 1)

	byBook, err := suite.unlocks.ListByBook(suite.ctx, testBookID)
	suite.Require().NoError(err)
	suite.Len(byBook, 1)
}

func TestUnlockServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UnlockServiceTestSuite))
}
