package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/therafiali/internal-app-sub000/api/swagger"
	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/handler"
	"github.com/therafiali/internal-app-sub000/internal/middleware"
	"github.com/therafiali/internal-app-sub000/internal/realtime"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	"github.com/therafiali/internal-app-sub000/internal/service"
	"github.com/therafiali/internal-app-sub000/pkg/cache"
	"github.com/therafiali/internal-app-sub000/pkg/config"
	"github.com/therafiali/internal-app-sub000/pkg/database"
	"github.com/therafiali/internal-app-sub000/pkg/jobs"
	"github.com/therafiali/internal-app-sub000/pkg/logger"
	"github.com/therafiali/internal-app-sub000/pkg/messenger"
	corsmiddleware "github.com/therafiali/internal-app-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/therafiali/internal-app-sub000/pkg/middleware/requestid"
	"github.com/therafiali/internal-app-sub000/pkg/storage"
)

// @title ENT Back Office API
// @version 1.0.0
// @description Recharge, redeem, transfer and password reset processing for back-office operators
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable; caching and cross-instance events disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()

	userRepo := repository.NewUserRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	rechargeRepo := repository.NewRechargeRepository(db)
	redeemRepo := repository.NewRedeemRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	identifierRepo := repository.NewIdentifierRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	lockRepo := repository.NewLockRepository(db)
	tx := repository.NewTxManager(db)

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Promotions.CacheTTL, logr, cfg.Promotions.CacheEnabled && redisClient != nil)

	hub := realtime.NewHub(cfg.Events.Backlog, metrics, logr)
	defer hub.Close()
	bridge := realtime.NewRedisBridge(redisClient, hub, cfg.Events.RedisChannel, logr)
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("event bridge stopped", zap.Error(err))
		}
	}()

	deps := service.FlowDeps{
		Tx:        tx,
		Audit:     userRepo,
		Events:    bridge,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	}

	if cfg.Messenger.Enabled {
		sender := messenger.NewClient(messenger.Config{
			BaseURL:    cfg.Messenger.BaseURL,
			TeamTokens: cfg.Messenger.TeamTokens,
			Timeout:    cfg.Messenger.Timeout,
			RPS:        cfg.Messenger.RPS,
			Burst:      cfg.Messenger.Burst,
		})
		notifications := service.NewNotificationService(sender, metrics, jobs.QueueConfig{
			Workers:    cfg.Messenger.Workers,
			MaxRetries: cfg.Messenger.MaxRetries,
			RetryDelay: 2 * time.Second,
		}, logr)
		notifications.Start(ctx)
		defer notifications.Stop()
		deps.Notifier = notifications
	}

	limits := service.DefaultRedeemLimits()
	if cfg.RedeemLimits.DailyCap > 0 {
		limits.DailyCap = decimal.NewFromFloat(cfg.RedeemLimits.DailyCap)
	}
	if cfg.RedeemLimits.GameCap > 0 {
		limits.GameCap = decimal.NewFromFloat(cfg.RedeemLimits.GameCap)
	}
	limits.Window = cfg.RedeemLimits.Window

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	promotionSvc := service.NewPromotionService(promotionRepo, cacheSvc, logr)
	rechargeSvc := service.NewRechargeService(rechargeRepo, redeemRepo, identifierRepo, playerRepo, promotionSvc, deps)
	redeemSvc := service.NewRedeemService(redeemRepo, playerRepo, limits, deps)
	transferSvc := service.NewTransferService(transferRepo, playerRepo, deps)
	resetSvc := service.NewPasswordResetService(resetRepo, playerRepo, deps)

	loader := service.NewRequestLoader(rechargeRepo, redeemRepo, transferRepo, resetRepo)
	lockSvc := service.NewLockService(lockRepo, loader, cfg.Locks.TTL, deps)
	go lockSvc.RunSweeper(ctx, cfg.Locks.SweepInterval)

	files, err := storage.NewLocalStorage(cfg.Screenshots.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare screenshot storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Screenshots.SignedURLSecret, cfg.Screenshots.SignedURLTTL)
	screenshotSvc := service.NewScreenshotService(rechargeSvc, files, signer, service.ScreenshotConfig{
		PublicBaseURL: cfg.Screenshots.PublicBaseURL,
		MaxFileSize:   cfg.Screenshots.MaxFileSize,
		AllowedMIMEs:  cfg.Screenshots.AllowedMIMEs,
	}, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}

	handlers := handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		Promotions:     handler.NewPromotionHandler(promotionSvc),
		Recharges:      handler.NewRechargeHandler(rechargeSvc, screenshotSvc, cfg.Screenshots.MaxFileSize),
		Redeems:        handler.NewRedeemHandler(redeemSvc),
		Transfers:      handler.NewTransferHandler(transferSvc),
		PasswordResets: handler.NewPasswordResetHandler(resetSvc),
		Locks:          handler.NewLockHandler(lockSvc),
		Events:         handler.NewEventHandler(hub, cfg.Events.KeepAliveInterval, logr),
		Files:          handler.NewFileHandler(screenshotSvc),
		Metrics:        handler.NewMetricsHandler(metrics, checks),
	}
	if cfg.Exports.Enabled {
		exportSvc := service.NewExportService(service.ExportSources{
			Recharges: rechargeRepo,
			Redeems:   redeemRepo,
			Transfers: transferRepo,
			Resets:    resetRepo,
		}, userRepo, cfg.Exports.MaxRows, logr, nil, nil)
		handlers.Exports = handler.NewExportHandler(exportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	handler.Register(r, handlers, handler.RouteOptions{
		Prefix:       cfg.APIPrefix,
		Tokens:       authSvc,
		Audit:        userRepo,
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginThrottle.RPS, cfg.LoginThrottle.Burst),
		EnableDocs:   cfg.Env != config.EnvProduction,
		Logger:       logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	// open event streams end when the hub closes
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
