// internal/middleware/middleware_test.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/database"
	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

const wallet = "0x1111111111111111111111111111111111111111"

type MiddlewareTestSuite struct {
	suite.Suite
	log *logrus.Logger
}

func (suite *MiddlewareTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize())
	utils.SetJWTSecret("middleware-test-secret")

	suite.log = logrus.New()
	suite.log.SetOutput(io.Discard)
}

func (suite *MiddlewareTestSuite) echoWallet(r *gin.Engine) {
	r.GET("/whoami", func(c *gin.Context) {
		w, _ := utils.GetWalletFromContext(c)
		c.JSON(http.StatusOK, gin.H{"wallet": w})
	})
}

func (suite *MiddlewareTestSuite) get(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (suite *MiddlewareTestSuite) TestAuthRequired() {
	r := gin.New()
	r.Use(I18nMiddleware("en"), AuthRequired())
	suite.echoWallet(r)

	w := suite.get(r, "/whoami", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Contains(w.Body.String(), "Authentication required")

	w = suite.get(r, "/whoami", map[string]string{"Authorization": "Token abc"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Contains(w.Body.String(), "Invalid authorization header")

	w = suite.get(r, "/whoami", map[string]string{"Authorization": "Bearer not-a-jwt"})
	suite.Equal(http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT(wallet, 1)
	suite.Require().NoError(err)
	w = suite.get(r, "/whoami", map[string]string{"Authorization": "Bearer " + token})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), wallet)
}

func (suite *MiddlewareTestSuite) TestOptionalAuthLetsAnonymousThrough() {
	r := gin.New()
	r.Use(OptionalAuth())
	suite.echoWallet(r)

	w := suite.get(r, "/whoami", map[string]string{"Authorization": "Bearer expired"})
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"wallet":""}`, w.Body.String())
}

func (suite *MiddlewareTestSuite) TestRateLimiterRejectsBurst() {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	suite.echoWallet(r)

	suite.Equal(http.StatusOK, suite.get(r, "/whoami", nil).Code)
	suite.Equal(http.StatusOK, suite.get(r, "/whoami", nil).Code)

	w := suite.get(r, "/whoami", nil)
	suite.Equal(http.StatusTooManyRequests, w.Code)
	suite.Contains(w.Body.String(), "RATE_LIMITED")
}

func (suite *MiddlewareTestSuite) TestCleanupVisitorsStops() {
	limiter := NewRateLimiter(rate.Limit(1), 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		limiter.CleanupVisitors(stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.Fail("cleanup goroutine did not stop")
	}
}

func (suite *MiddlewareTestSuite) TestCORS() {
	r := gin.New()
	r.Use(CORS("https://reader.example"))
	suite.echoWallet(r)

	w := suite.get(r, "/whoami", map[string]string{"Origin": "https://reader.example"})
	suite.Equal("https://reader.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = suite.get(r, "/whoami", map[string]string{"Origin": "https://elsewhere.example"})
	suite.Equal(http.StatusForbidden, w.Code)

	open := gin.New()
	open.Use(CORS("*"))
	suite.echoWallet(open)
	w = suite.get(open, "/whoami", map[string]string{"Origin": "https://elsewhere.example"})
	suite.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}

func (suite *MiddlewareTestSuite) TestRequestLoggerEchoesRequestID() {
	r := gin.New()
	r.Use(RequestLogger(suite.log))
	suite.echoWallet(r)

	w := suite.get(r, "/whoami", map[string]string{"X-Request-ID": "req-42"})
	suite.Equal("req-42", w.Header().Get("X-Request-ID"))

	w = suite.get(r, "/whoami", nil)
	suite.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (suite *MiddlewareTestSuite) TestAuditLogStripsSignature() {
	db, err := database.Initialize(config.DatabaseConfig{SQLitePath: "file:audit_test?mode=memory&cache=shared"}, suite.log)
	suite.Require().NoError(err)
	suite.Require().NoError(database.RunMigrations(db, suite.log))
	defer database.Close(db, suite.log)

	r := gin.New()
	r.Use(AuditLogMiddleware(db, suite.log))
	r.POST("/v1/books/:bookId/chapters/:chapterNumber/record", func(c *gin.Context) {
		c.Set("wallet_address", wallet)
		c.JSON(http.StatusCreated, gin.H{})
	})

	body, _ := json.Marshal(map[string]string{"title": "The Crossing", "signature": "0xdead"})
	req, _ := http.NewRequest("POST", "/v1/books/book-1/chapters/4/record", bytes.NewBuffer(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry models.AuditLog
	suite.Eventually(func() bool {
		return db.Where("resource_id = ?", "book-1/4").First(&entry).Error == nil
	}, 2*time.Second, 10*time.Millisecond)

	suite.Equal(wallet, entry.WalletAddress)
	suite.Equal("books", entry.ResourceType)
	suite.Equal(http.StatusCreated, entry.StatusCode)
	suite.Equal("The Crossing", entry.NewValues["title"])
	suite.NotContains(entry.NewValues, "signature")
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func TestNegotiateLanguage(t *testing.T) {
	require.NoError(t, i18n.Initialize())

	assert.Equal(t, "zh_TW", negotiateLanguage("zh-TW,zh;q=0.9,en;q=0.8", "en"))
	assert.Equal(t, "zh_TW", negotiateLanguage("zh", "en"))
	assert.Equal(t, "en", negotiateLanguage("en-GB;q=0.8", "zh_TW"))
	assert.Equal(t, "en", negotiateLanguage("fr-FR", "en"))
	assert.Equal(t, "zh_TW", negotiateLanguage("fr-FR, zh-Hant;q=0.5", "en"))
	assert.Equal(t, "en", negotiateLanguage("", "en"))
}
