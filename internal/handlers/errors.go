// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	var (
		validation *utils.ValidationError
		notFound   *utils.NotFoundError
		denied     *utils.UnauthorizedError
		external   *utils.ExternalDependencyError
	)

	switch {
	case errors.As(err, &validation), len(utils.GetValidationErrors(err)) > 0:
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	case errors.As(err, &notFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", notFound.Error(), gin.H{"hint": notFound.Hint})
	case errors.As(err, &denied):
		utils.ForbiddenResponse(c, denied.Error())
	case errors.As(err, &external):
		utils.BadGatewayResponse(c, external.Dependency+" is unavailable")
	default:
		utils.InternalErrorResponse(c, "")
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := utils.GetValidationErrors(err); len(fields) > 0 {
			utils.ValidationErrorResponse(c, fields)
			return false
		}
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

func chapterParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("chapterNumber"))
	if err != nil || n < 1 {
		utils.ValidationErrorResponse(c, []utils.FieldError{{
			Field:   "chapterNumber",
			Tag:     "min",
			Message: "chapterNumber must be a positive integer",
		}})
		return 0, false
	}
	return n, true
}

func requireWallet(c *gin.Context) (string, bool) {
	wallet, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return wallet, ok
}
