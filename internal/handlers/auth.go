// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/nonce
func (h *AuthHandler) IssueNonce(c *gin.Context) {
	var req services.NonceRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := h.authService.IssueNonce(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, challenge)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if utils.IsUnauthorized(err) {
			utils.UnauthorizedResponse(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// GET /auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	wallet, ok := requireWallet(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"wallet_address": wallet,
	})
}
