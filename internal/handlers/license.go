// internal/handlers/license.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type LicenseHandler struct {
	catalog        *services.LicenseCatalog
	licenseService *services.LicenseService
}

func NewLicenseHandler(catalog *services.LicenseCatalog, licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		catalog:        catalog,
		licenseService: licenseService,
	}
}

// GET /licenses/tiers
func (h *LicenseHandler) GetTiers(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"tiers": h.catalog.All(),
	})
}

// GET /licenses/tiers/:tier
func (h *LicenseHandler) GetTier(c *gin.Context) {
	tier, err := h.catalog.ParseTier(c.Param("tier"))
	if err != nil {
		utils.NotFoundResponse(c, "license")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"terms": h.catalog.DefaultTerms(tier),
	})
}

// GET /books/:bookId/licenses
func (h *LicenseHandler) GetBookLicenses(c *gin.Context) {
	rows, err := h.licenseService.ListByBook(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": rows,
	})
}
