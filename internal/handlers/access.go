// internal/handlers/access.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type AccessHandler struct {
	accessService *services.AccessService
	chain         services.ChainRegistry
}

func NewAccessHandler(accessService *services.AccessService, chain services.ChainRegistry) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		chain:         chain,
	}
}

// BookRegistrationResponse renders chain integers as decimal strings.
type BookRegistrationResponse struct {
	BookID        string `json:"book_id"`
	BookHash      string `json:"book_hash"`
	Curator       string `json:"curator,omitempty"`
	HasCurator    bool   `json:"has_curator"`
	IsDerivative  bool   `json:"is_derivative"`
	ParentBookID  string `json:"parent_book_id,omitempty"`
	TotalChapters string `json:"total_chapters"`
	IsActive      bool   `json:"is_active"`
	MetadataHash  string `json:"metadata_hash"`
}

func newBookRegistrationResponse(b *models.BookRegistration) BookRegistrationResponse {
	resp := BookRegistrationResponse{
		BookID:        b.BookID,
		BookHash:      b.BookHash.Hex(),
		HasCurator:    b.HasCurator(),
		IsDerivative:  b.IsDerivative,
		TotalChapters: utils.FormatBigInt(b.TotalChapters),
		IsActive:      b.IsActive,
		MetadataHash:  b.MetadataHash,
	}
	if resp.HasCurator {
		resp.Curator = models.NormalizeAddress(b.Curator.Hex())
	}
	if b.IsDerivative {
		resp.ParentBookID = b.ParentBookID.Hex()
	}
	return resp
}

// GET /books/:bookId/chapters/:chapterNumber/access
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	chapter, ok := chapterParam(c)
	if !ok {
		return
	}

	wallet, _ := utils.GetWalletFromContext(c)
	decision := h.accessService.Evaluate(c.Request.Context(), services.AccessRequest{
		BookID:        c.Param("bookId"),
		ChapterNumber: chapter,
		UserAddress:   wallet,
		IPAssetID:     c.Query("ip_asset_id"),
	})

	utils.SuccessResponse(c, decision)
}

// GET /books/:bookId/registration
func (h *AccessHandler) GetBookRegistration(c *gin.Context) {
	book, err := h.chain.GetBook(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, newBookRegistrationResponse(book))
}
