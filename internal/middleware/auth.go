// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthRequired), nil)
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthInvalidToken), nil)
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthTokenExpired), nil)
			c.Abort()
			return
		}

		c.Set("wallet_address", claims.WalletAddress)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}

// OptionalAuth binds the wallet when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			c.Next()
			return
		}

		c.Set("wallet_address", claims.WalletAddress)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}
