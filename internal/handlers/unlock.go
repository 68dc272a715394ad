// internal/handlers/unlock.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type UnlockHandler struct {
	unlockService *services.UnlockService
}

func NewUnlockHandler(unlockService *services.UnlockService) *UnlockHandler {
	return &UnlockHandler{
		unlockService: unlockService,
	}
}

// POST /unlocks
func (h *UnlockHandler) RecordUnlock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	var req services.RecordUnlockRequest
	if !bindJSON(c, &req) {
		return
	}

	record, created, err := h.unlockService.RecordUnlock(c.Request.Context(), wallet, req)
	if err != nil {
		if errors.Is(err, services.ErrUnlockNotOnChain) {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	if !created {
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyUnlockDuplicate),
			"unlock":  record,
		})
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUnlockRecorded),
		"unlock":  record,
	})
}

// GET /unlocks/me
func (h *UnlockHandler) GetMyUnlocks(c *gin.Context) {
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	records, err := h.unlockService.ListByUser(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	start, end := utils.PageBounds(len(records), params)
	utils.PaginatedResponse(c, utils.CreatePaginationResult(records[start:end], int64(len(records)), params))
}

// GET /books/:bookId/unlocks
func (h *UnlockHandler) GetBookUnlocks(c *gin.Context) {
	records, err := h.unlockService.ListByBook(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		respondError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	start, end := utils.PageBounds(len(records), params)
	utils.PaginatedResponse(c, utils.CreatePaginationResult(records[start:end], int64(len(records)), params))
}

// GET /unlocks/stats
func (h *UnlockHandler) GetStats(c *gin.Context) {
	stats, err := h.unlockService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}
