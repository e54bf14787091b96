package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heesms/carizon/internal/batch"
	"github.com/heesms/carizon/internal/config"
	cronrunner "github.com/heesms/carizon/internal/cron"
	"github.com/heesms/carizon/internal/db"
	"github.com/heesms/carizon/internal/handler"
	"github.com/heesms/carizon/internal/lifecycle"
	"github.com/heesms/carizon/internal/linker"
	"github.com/heesms/carizon/internal/lock"
	"github.com/heesms/carizon/internal/logger"
	"github.com/heesms/carizon/internal/merge"
	gormrepository "github.com/heesms/carizon/internal/repository/gorm"
	"github.com/heesms/carizon/internal/resolver"
	"github.com/heesms/carizon/internal/retry"
)

func main() {
	cfgPath := os.Getenv("CARIZON_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CARIZON_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}
	if err := db.SeedPlatformPriorities(dbConn, cfg.Sources.Priorities); err != nil {
		logger.Warn("platform priority seed failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	locker, err := lock.New(cfg.Lock.Backend, dbConn.Gorm)
	if err != nil {
		logger.Fatal("lock backend init failed", zap.Error(err))
	}

	merger := merge.NewMerger(store, locker, cfg.Merge, cfg.Lock, logger)
	merger.Register(merge.ChachachaAdapter{})
	merger.Register(merge.EncarAdapter{})
	merger.Register(merge.KcarAdapter{})
	merger.Register(merge.ChutchaAdapter{})

	resolverSvc := resolver.NewService(store, cfg.Resolver, logger)
	linkerSvc := linker.NewService(store, cfg.Linker, logger)
	lifecycleSvc := lifecycle.NewService(store, cfg.Lifecycle, logger)
	recorder := batch.NewRecorder(store, logger)

	loc, err := time.LoadLocation(cfg.DB.Timezone)
	if err != nil {
		logger.Warn("bad timezone, using UTC", zap.String("timezone", cfg.DB.Timezone))
		loc = time.UTC
	}

	orchestrator := batch.NewOrchestrator(
		store,
		merger,
		resolverSvc,
		linkerSvc,
		lifecycleSvc,
		recorder,
		retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.Retry.Backoff,
			Jitter:      cfg.Retry.Jitter,
		},
		cfg.Sources.Enabled,
		loc,
		logger,
	)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	adminHandler := &handler.AdminHandler{Orchestrator: orchestrator}
	adminHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.FullBatch, func(ctx context.Context) {
			orchestrator.RunFullBatch(ctx)
		})
		if err != nil {
			logger.Warn("cron register full batch failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
