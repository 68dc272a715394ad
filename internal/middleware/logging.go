// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storyline-backend/internal/models"
)

// RequestLogger tags each request with an id and logs it once finished.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		wallet, _ := c.Get("wallet_address")
		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"wallet":     wallet,
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request processed")
			return
		}
		entry.Info("Request processed")
	}
}

// AuditLogMiddleware stores one audit row per write request. Rows are saved
// asynchronously and failures are only logged.
func AuditLogMiddleware(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		var requestData map[string]interface{}
		if len(requestBody) > 0 {
			json.Unmarshal(requestBody, &requestData)
		}
		delete(requestData, "signature")

		wallet, _ := c.Get("wallet_address")
		walletStr, _ := wallet.(string)

		auditLog := &models.AuditLog{
			WalletAddress: walletStr,
			Action:        c.Request.Method + " " + c.FullPath(),
			ResourceType:  extractResourceType(c.Request.URL.Path),
			ResourceID:    extractResourceID(c),
			StatusCode:    c.Writer.Status(),
			NewValues:     models.JSONB(requestData),
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
		}

		go func() {
			if err := db.Create(auditLog).Error; err != nil {
				log.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(c *gin.Context) string {
	for _, name := range []string{"bookId", "parentIpId"} {
		if v := c.Param(name); v != "" {
			if n := c.Param("chapterNumber"); n != "" {
				return v + "/" + n
			}
			return v
		}
	}
	return ""
}
