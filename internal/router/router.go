// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/handlers"
	"github.com/javajoker/storyline-backend/internal/ledger"
	"github.com/javajoker/storyline-backend/internal/middleware"
	"github.com/javajoker/storyline-backend/internal/services"
	"github.com/javajoker/storyline-backend/internal/utils"
)

const Version = "1.0.0"

// Dependencies are the external resources the router wires services onto.
// Intents may be nil when Stripe is not configured.
type Dependencies struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     *logrus.Logger
	Chain   services.ChainRegistry
	Ledger  ledger.Store
	Storage *services.StorageService
	Intents services.PaymentIntentClient
	Nonces  services.NonceStore
	// Done stops background cleanup when closed.
	Done <-chan struct{}
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Initialize services
	catalog := services.NewLicenseCatalog(cfg.Licensing.StrictTiers)
	economics := services.NewEconomicsCalculator()
	versioner := services.NewMetadataVersioner(catalog)
	licenseService := services.NewLicenseService(deps.DB)
	accessService := services.NewAccessService(deps.Chain, deps.Ledger, deps.Log)
	unlockService := services.NewUnlockService(deps.Ledger, deps.Chain, deps.Log)
	inheritanceService := services.NewInheritanceService(catalog, economics, licenseService, deps.Log)
	chapterService := services.NewChapterService(versioner, deps.Storage, licenseService, deps.Log)
	authService := services.NewAuthService(deps.Nonces, cfg.JWT)

	var paymentService *services.PaymentService
	if deps.Intents != nil {
		paymentService = services.NewPaymentService(cfg.Payment, deps.Intents, unlockService, chapterService, deps.Chain, economics, deps.Log)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	accessHandler := handlers.NewAccessHandler(accessService, deps.Chain)
	unlockHandler := handlers.NewUnlockHandler(unlockService)
	licenseHandler := handlers.NewLicenseHandler(catalog, licenseService)
	inheritanceHandler := handlers.NewInheritanceHandler(inheritanceService, economics, deps.Log)
	chapterHandler := handlers.NewChapterHandler(chapterService, catalog)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	if deps.Done != nil {
		go limiter.CleanupVisitors(deps.Done)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(limiter.Middleware())
	v1.Use(middleware.AuditLogMiddleware(deps.DB, deps.Log))
	{
		// Wallet sign-in
		auth := v1.Group("/auth")
		{
			auth.POST("/nonce", authHandler.IssueNonce)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Books and chapters
		books := v1.Group("/books/:bookId")
		{
			books.GET("/registration", accessHandler.GetBookRegistration)
			books.GET("/unlocks", unlockHandler.GetBookUnlocks)
			books.GET("/licenses", licenseHandler.GetBookLicenses)

			chapters := books.Group("/chapters/:chapterNumber")
			{
				chapters.GET("/access", middleware.OptionalAuth(), accessHandler.CheckAccess)
				chapters.GET("/record", chapterHandler.GetRecord)
				chapters.POST("/record", middleware.AuthRequired(), chapterHandler.PublishRecord)
				chapters.PUT("/price", middleware.AuthRequired(), chapterHandler.UpdatePrice)
				chapters.POST("/royalties", middleware.AuthRequired(), chapterHandler.RecordRoyalty)
			}
		}

		// Unlock ledger
		unlocks := v1.Group("/unlocks")
		{
			unlocks.GET("/stats", unlockHandler.GetStats)

			protected := unlocks.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", unlockHandler.RecordUnlock)
				protected.GET("/me", unlockHandler.GetMyUnlocks)
			}
		}

		// License catalog
		licenses := v1.Group("/licenses")
		{
			licenses.GET("/tiers", licenseHandler.GetTiers)
			licenses.GET("/tiers/:tier", licenseHandler.GetTier)
		}

		// License inheritance
		inheritance := v1.Group("/license-inheritance")
		{
			inheritance.GET("/:parentIpId", inheritanceHandler.GetInheritance)
			inheritance.POST("/:parentIpId", middleware.AuthRequired(), inheritanceHandler.AnalyzeDerivative)
		}

		// Fiat unlock payments
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/unlock-intent", paymentHandler.CreateUnlockIntent)
			payments.POST("/confirm", paymentHandler.ConfirmUnlock)
		}
	}

	return r
}
