// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/database"
	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/ledger"
	"github.com/javajoker/storyline-backend/internal/router"
	"github.com/javajoker/storyline-backend/internal/services"
)

func main() {
	log := logrus.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(log, cfg.Log, cfg.Environment)

	// Initialize database
	db, err := database.Initialize(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db, log)

	// Run database migrations
	if err := database.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}
	for _, lang := range i18n.Languages() {
		if missing := i18n.MissingKeys(lang); len(missing) > 0 {
			log.WithFields(logrus.Fields{"lang": lang, "keys": missing}).Warn("Locale is missing translations")
		}
	}

	var redisClient *redis.Client
	if cfg.Ledger.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to redis")
		}
	}

	var store ledger.Store
	var nonces services.NonceStore
	switch cfg.Ledger.Backend {
	case "postgres":
		store = ledger.NewGormStore(db)
		nonces = services.NewMemoryNonceStore()
	case "redis":
		store = ledger.NewRedisStore(redisClient, cfg.Redis.KeyPrefix)
		nonces = services.NewRedisNonceStore(redisClient, cfg.Redis.KeyPrefix)
	default:
		store = ledger.NewMemoryStore()
		nonces = services.NewMemoryNonceStore()
	}
	log.WithField("backend", cfg.Ledger.Backend).Info("Unlock ledger ready")

	// A missing RPC URL leaves the gateway without a caller; every chain read
	// then fails and access checks degrade to no access.
	var caller bind.ContractCaller
	if cfg.Blockchain.RPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := services.DialBlockchain(ctx, cfg.Blockchain)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to blockchain")
		}
		defer client.Close()
		caller = client
	} else {
		log.Warn("BLOCKCHAIN_RPC_URL not set, chain checks will fail closed")
	}

	chain, err := services.NewBlockchainService(cfg.Blockchain, caller, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize blockchain service")
	}

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage service")
	}

	var intents services.PaymentIntentClient
	if cfg.Payment.StripeSecretKey != "" {
		intents = services.NewStripeIntentClient(cfg.Payment.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, fiat unlocks are disabled")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	done := make(chan struct{})
	defer close(done)

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Chain:   chain,
		Ledger:  store,
		Storage: storage,
		Intents: intents,
		Nonces:  nonces,
		Done:    done,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
		return
	}

	log.Info("Server exited")
}

func configureLogger(log *logrus.Logger, cfg config.LogConfig, environment string) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(cfg.Format, "json") || environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
