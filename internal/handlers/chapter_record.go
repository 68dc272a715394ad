// internal/handlers/chapter_record.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type ChapterHandler struct {
	chapterService *services.ChapterService
	catalog        *services.LicenseCatalog
}

func NewChapterHandler(chapterService *services.ChapterService, catalog *services.LicenseCatalog) *ChapterHandler {
	return &ChapterHandler{
		chapterService: chapterService,
		catalog:        catalog,
	}
}

// PublishChapterRequest carries the proof of a chapter the author has
// already registered on chain.
type PublishChapterRequest struct {
	Title           string               `json:"title" binding:"required,max=255"`
	ContentRef      string               `json:"content_ref" binding:"required"`
	WordCount       int                  `json:"word_count" binding:"min=0"`
	Tier            string               `json:"tier"`
	UnlockPrice     decimal.Decimal      `json:"unlock_price"`
	TransactionHash string               `json:"transaction_hash" binding:"required"`
	IPAssetID       string               `json:"ip_asset_id" binding:"required"`
	BlockNumber     uint64               `json:"block_number"`
	LicenseTerms    *models.LicenseTerms `json:"license_terms"`
}

type RecordRoyaltyRequest struct {
	Earned decimal.Decimal `json:"earned"`
	Paid   decimal.Decimal `json:"paid"`
}

type UpdatePriceRequest struct {
	Price             decimal.Decimal `json:"price"`
	RoyaltyPercentage decimal.Decimal `json:"royalty_percentage"`
	Reason            string          `json:"reason" binding:"max=255"`
}

// POST /books/:bookId/chapters/:chapterNumber/record
func (h *ChapterHandler) PublishRecord(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}
	chapter, ok := chapterParam(c)
	if !ok {
		return
	}

	var req PublishChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	tier, err := h.catalog.ParseTier(req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.chapterService.Publish(c.Request.Context(), wallet, services.PublishInput{
		BookID:          c.Param("bookId"),
		ChapterNumber:   chapter,
		Title:           req.Title,
		AuthorAddress:   wallet,
		ContentRef:      req.ContentRef,
		WordCount:       req.WordCount,
		Tier:            tier,
		UnlockPrice:     req.UnlockPrice,
		TransactionHash: req.TransactionHash,
		IPAssetID:       req.IPAssetID,
		BlockNumber:     req.BlockNumber,
		Terms:           req.LicenseTerms,
	})
	if err != nil {
		if errors.Is(err, services.ErrChapterRecordExists) || errors.Is(err, services.ErrChapterLicenseExists) {
			utils.ConflictResponse(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyChapterRecordStored),
		"record":        result.Record,
		"storage_key":   result.StorageKey,
		"metadata_hash": result.MetadataHash,
	})
}

// GET /books/:bookId/chapters/:chapterNumber/record
func (h *ChapterHandler) GetRecord(c *gin.Context) {
	chapter, ok := chapterParam(c)
	if !ok {
		return
	}

	rec, err := h.chapterService.GetRecord(c.Request.Context(), c.Param("bookId"), chapter)
	if err != nil {
		if utils.IsNotFound(err) {
			utils.NotFoundResponse(c, "chapter_record")
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"record": rec})
}

// PUT /books/:bookId/chapters/:chapterNumber/price
func (h *ChapterHandler) UpdatePrice(c *gin.Context) {
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}
	chapter, ok := chapterParam(c)
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.chapterService.UpdatePrice(c.Request.Context(), wallet, c.Param("bookId"), chapter, req.Price, req.RoyaltyPercentage, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"record": rec})
}

// POST /books/:bookId/chapters/:chapterNumber/royalties
func (h *ChapterHandler) RecordRoyalty(c *gin.Context) {
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}
	chapter, ok := chapterParam(c)
	if !ok {
		return
	}

	var req RecordRoyaltyRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.chapterService.RecordRoyalty(c.Request.Context(), wallet, c.Param("bookId"), chapter, req.Earned, req.Paid)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"record": rec})
}
