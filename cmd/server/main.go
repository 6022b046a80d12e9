package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/account"
	"github.com/devshare/devshare/internal/api"
	"github.com/devshare/devshare/internal/billing"
	"github.com/devshare/devshare/internal/mailer"
	"github.com/devshare/devshare/internal/notify"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage/gormstore"
	"github.com/devshare/devshare/internal/uploads"
	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
	"github.com/devshare/devshare/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting DevShare API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Open the database and run migrations
	db, err := gormstore.Open(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := gormstore.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	store := gormstore.New(db)

	// Change bus: redis bridge when configured, in-process otherwise
	bus, err := notify.NewBus(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect change bus", zap.Error(err))
	}
	defer bus.Close()

	postSvc := posts.NewService(store, bus, cfg.Posts)
	watcher := posts.NewWatcher(store, bus, cfg.Posts)
	defer watcher.Close()

	uploadStore := uploads.New(cfg.Uploads)
	accountSvc := account.New(postSvc, uploadStore)
	mailSvc := mailer.New(cfg.Mail)

	// Billing is optional: without a Stripe key the methods stay unregistered
	var billingSvc *billing.Service
	if cfg.Billing.StripeSecretKey != "" {
		var priceCache *redis.Client
		if cfg.Redis.Enabled {
			if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
				priceCache = redis.NewClient(opt)
				defer priceCache.Close()
			} else {
				logger.Warn("Invalid Redis URL, price cache disabled", zap.Error(err))
			}
		}
		billingSvc = billing.New(cfg.Billing, priceCache)
	} else {
		logger.Info("Stripe key not set, billing methods disabled")
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	router := api.NewRouter(cfg, api.Deps{
		Posts:   postSvc,
		Watcher: watcher,
		Billing: billingSvc,
		Account: accountSvc,
		Mailer:  mailSvc,
		Uploads: uploadStore,
	})
	router.SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
