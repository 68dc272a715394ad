// internal/handlers/license_inheritance.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type InheritanceHandler struct {
	inheritanceService *services.InheritanceService
	economics          *services.EconomicsCalculator
	log                *logrus.Logger
}

func NewInheritanceHandler(inheritanceService *services.InheritanceService, economics *services.EconomicsCalculator, log *logrus.Logger) *InheritanceHandler {
	return &InheritanceHandler{
		inheritanceService: inheritanceService,
		economics:          economics,
		log:                log,
	}
}

type AnalyzeDerivativeRequest struct {
	DerivativeCreator    string   `json:"derivativeCreator" binding:"required"`
	DerivativeContent    string   `json:"derivativeContent" binding:"required"`
	DerivativeType       string   `json:"derivativeType" binding:"required"`
	IntendedUse          string   `json:"intendedUse" binding:"required,oneof=commercial educational personal non-commercial"`
	TargetAudience       string   `json:"targetAudience" binding:"omitempty,oneof=general children young_adult adult"`
	DistributionChannels []string `json:"distributionChannels"`
	QualityScore         *int     `json:"qualityScore" binding:"omitempty,min=0,max=100"`
}

// GET /license-inheritance/:parentIpId
func (h *InheritanceHandler) GetInheritance(c *gin.Context) {
	intent := models.DerivativeIntent{
		CreatorAddress: c.Query("derivativeCreator"),
		IntendedUse:    models.IntendedUse(c.DefaultQuery("intendedUse", string(models.IntendedUsePersonal))),
	}
	if !intent.IntendedUse.Valid() {
		h.respondInheritanceError(c, utils.NewValidationError("intendedUse",
			"intendedUse must be one of commercial, educational, personal, non-commercial"))
		return
	}

	parent, result, err := h.inheritanceService.AnalyzeByIPAsset(c.Request.Context(), c.Param("parentIpId"), intent)
	if err != nil {
		h.respondInheritanceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"parent":          parent,
		"inheritance":     result,
		"insights":        h.inheritanceService.Insights(*parent, result),
		"recommendations": h.inheritanceService.Recommendations(result, nil, nil),
	})
}

// POST /license-inheritance/:parentIpId
func (h *InheritanceHandler) AnalyzeDerivative(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	var req AnalyzeDerivativeRequest
	if !bindJSON(c, &req) {
		return
	}

	// Malformed input is a 400 before any ownership check.
	if err := utils.ValidateIPAssetID("parentIpId", c.Param("parentIpId")); err != nil {
		h.respondInheritanceError(c, err)
		return
	}
	if err := utils.ValidateWalletAddress("derivativeCreator", req.DerivativeCreator); err != nil {
		h.respondInheritanceError(c, err)
		return
	}

	if !strings.EqualFold(wallet, req.DerivativeCreator) {
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", i18n.T(lang, i18n.KeyInheritanceUnauthorized), nil)
		return
	}

	use := models.IntendedUse(req.IntendedUse)
	parent, result, err := h.inheritanceService.AnalyzeByIPAsset(c.Request.Context(), c.Param("parentIpId"), models.DerivativeIntent{
		CreatorAddress: req.DerivativeCreator,
		IntendedUse:    use,
	})
	if err != nil {
		h.respondInheritanceError(c, err)
		return
	}

	compatibility := h.inheritanceService.AnalyzeCompatibility(result, models.DerivativeParams{
		IntendedUse:          use,
		TargetAudience:       models.TargetAudience(req.TargetAudience),
		DistributionChannels: req.DistributionChannels,
	})

	quality := services.DefaultQualityScore
	if req.QualityScore != nil {
		quality = *req.QualityScore
	}
	base := h.economics.EstimateBaseRevenue(quality, use)
	economics := h.economics.ProjectDerivativeEconomics(base, result.EconomicImplications)

	utils.SuccessResponse(c, gin.H{
		"parent":          parent,
		"inheritance":     result,
		"compatibility":   compatibility,
		"economics":       economics,
		"recommendations": h.inheritanceService.Recommendations(result, &compatibility, &economics),
	})
}

// respondInheritanceError only ever surfaces the fixed inheritance messages,
// plus field errors for malformed input.
func (h *InheritanceHandler) respondInheritanceError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var notFound *utils.NotFoundError
	switch {
	case utils.IsValidationError(err):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	case errors.As(err, &notFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyInheritanceNotFound), gin.H{"hint": notFound.Hint})
	case utils.IsUnauthorized(err):
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", i18n.T(lang, i18n.KeyInheritanceUnauthorized), nil)
	case errors.Is(err, utils.ErrInvalidLicense):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INVALID_LICENSE", i18n.T(lang, i18n.KeyInheritanceInvalidLicense), nil)
	default:
		h.log.WithError(err).WithField("parent_ip_asset_id", c.Param("parentIpId")).Error("License inheritance analysis failed")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInheritanceGeneric))
	}
}
