// internal/handlers/payment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

// NewPaymentHandler accepts a nil service when Stripe is not configured; the
// routes then answer 503.
func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) ready(c *gin.Context) bool {
	if h.paymentService == nil {
		lang := utils.GetLangFromContext(c)
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyPaymentNotReady))
		return false
	}
	return true
}

// POST /payments/unlock-intent
func (h *PaymentHandler) CreateUnlockIntent(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	var req services.CreateUnlockIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.CreateUnlockIntent(c.Request.Context(), wallet, req)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyUnlocked) {
			utils.ConflictResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyUnlockDuplicate))
			return
		}
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, resp)
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmUnlock(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	lang := utils.GetLangFromContext(c)
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	var req services.ConfirmUnlockRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.ConfirmUnlock(c.Request.Context(), wallet, req)
	if err != nil {
		if errors.Is(err, services.ErrPaymentCanceled) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		respondError(c, err)
		return
	}

	if !resp.Unlocked {
		utils.AcceptedResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyPaymentPending),
			"payment": resp,
		})
		return
	}

	utils.SuccessResponse(c, gin.H{"payment": resp})
}
