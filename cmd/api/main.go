package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/muchasmas/scholarship-api/api/swagger"
	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/handler"
	"github.com/muchasmas/scholarship-api/internal/middleware"
	"github.com/muchasmas/scholarship-api/internal/repository"
	"github.com/muchasmas/scholarship-api/internal/service"
	"github.com/muchasmas/scholarship-api/pkg/cache"
	"github.com/muchasmas/scholarship-api/pkg/config"
	"github.com/muchasmas/scholarship-api/pkg/database"
	"github.com/muchasmas/scholarship-api/pkg/logger"
	corsmiddleware "github.com/muchasmas/scholarship-api/pkg/middleware/cors"
	reqidmiddleware "github.com/muchasmas/scholarship-api/pkg/middleware/requestid"
	"github.com/muchasmas/scholarship-api/pkg/storage"
)

// @title Scholarship API
// @version 1.0.0
// @description Back office for a scholarship program: scholars, staff accounts, logbook, catalogs and reports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()

	var cacheSvc *service.CacheService
	readiness := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo := repository.NewCacheRepository(client, "scholarship:", logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, true)
			readiness["cache"] = cacheRepo.Ping
		}
	}

	files, err := storage.NewLocalStorage(cfg.Storage.Dir, storage.Options{
		MaxBytes:    cfg.Storage.MaxImageBytes,
		AllowedExts: cfg.Storage.AllowedImageExt,
	})
	if err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}
	signer := storage.NewURLSigner(cfg.Storage.SigningSecret, cfg.Storage.URLTTL)

	uow := repository.NewUnitOfWork(db, metrics, logr)
	accounts := repository.NewAccountRepository(db)

	identity := service.NewIdentityService(repository.NewIdentityRepository(db), accounts, nil, validate, logr, service.IdentityConfig{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		AccessTTL: cfg.JWT.Expiration,
	})
	compensation := service.NewCompensationService(identity, metrics, logr, service.CompensationConfig{
		Workers:    cfg.Compensation.Workers,
		MaxRetries: cfg.Compensation.MaxRetries,
		RetryDelay: cfg.Compensation.RetryDelay,
		Timeout:    cfg.Identity.Timeout,
	})
	// Workers outlive the signal context so requests still draining can enqueue.
	compensation.Start(context.Background())

	scholars := service.NewScholarService(uow, identity, compensation, metrics, validate, logr, service.ScholarServiceConfig{
		IdentityTimeout: cfg.Identity.Timeout,
	})
	users := service.NewUserService(uow, identity, compensation, files, signer, validate, logr, service.UserServiceConfig{
		FilesURL:        cfg.APIPrefix + "/files/",
		IdentityTimeout: cfg.Identity.Timeout,
	})
	logbook := service.NewLogbookService(uow, validate, logr)
	catalogs := service.NewCatalogService(repository.NewCatalogRepository(db), cacheSvc, logr).
		WithLogos(files, signer, cfg.APIPrefix+"/files/")
	reports := service.NewReportService(uow, accounts, logr)

	created, err := users.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logr.Info("bootstrap admin account created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	registerRoutes(r, cfg, routeHandlers{
		auth:     handler.NewAuthHandler(identity),
		scholars: handler.NewScholarHandler(scholars),
		logbook:  handler.NewLogbookHandler(logbook),
		users:    handler.NewUserHandler(users),
		catalogs: handler.NewCatalogHandler(catalogs),
		reports:  handler.NewReportHandler(reports),
		files:    handler.NewFileHandler(signer, files),
		metrics:  handler.NewMetricsHandler(metrics, readiness),
	}, middleware.JWT(identity))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logr.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	compensation.Stop()
	return err
}
