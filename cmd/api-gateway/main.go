package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/justikon/jcm-api/api/swagger"
	"github.com/justikon/jcm-api/internal/handler"
	"github.com/justikon/jcm-api/internal/middleware"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/repository"
	"github.com/justikon/jcm-api/internal/service"
	"github.com/justikon/jcm-api/pkg/cache"
	"github.com/justikon/jcm-api/pkg/config"
	"github.com/justikon/jcm-api/pkg/database"
	"github.com/justikon/jcm-api/pkg/logger"
	corsmiddleware "github.com/justikon/jcm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/justikon/jcm-api/pkg/middleware/requestid"
	"github.com/justikon/jcm-api/pkg/storage"
)

// @title Justice Case Management API
// @version 1.0.0
// @description Case lifecycle and access policy API for criminal justice institutions
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	rulingStorage, err := storage.NewDocumentStore(cfg.Rulings.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare ruling storage", "error", err)
	}
	rulingSigner := storage.NewSignedURLSigner(cfg.Rulings.SignedURLSecret, cfg.Rulings.SignedURLTTL)

	validate := validator.New()
	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "jcm-api",
		Audience:           []string{"jcm-clients"},
	})

	notificationService := service.NewNotificationService(
		service.NotifierFunc(func(_ context.Context, event models.CaseEvent) error {
			logr.Info("case transitioned",
				zap.String("case_id", event.CaseID),
				zap.String("transition", string(event.Transition)),
				zap.String("new_state", string(event.NewState)))
			return nil
		}),
		service.NotificationConfig{
			Workers:    cfg.Notifications.Concurrency,
			BufferSize: cfg.Notifications.QueueSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: time.Second,
		},
		logr,
	)
	if cfg.Notifications.Enabled {
		notificationService.Start(ctx)
		defer notificationService.Stop()
	}

	caseOpts := []service.CaseServiceOption{
		service.WithCaseListCache(cacheRepo, cfg.Cases.ListCacheTTL),
		service.WithCaseMetrics(metricsService),
	}
	if cfg.Notifications.Enabled {
		caseOpts = append(caseOpts, service.WithTransitionNotifier(notificationService))
	}
	caseService := service.NewCaseService(caseRepo, userRepo, logr, caseOpts...)
	exportService := service.NewExportService(caseRepo, rulingStorage, rulingSigner, userRepo, logr)
	userService := service.NewUserService(userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	caseHandler := handler.NewCaseHandler(caseService, exportService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	cases := api.Group("/cases", middleware.JWT(authService))
	{
		cases.GET("", caseHandler.List)
		cases.GET("/export", caseHandler.Export)
		cases.POST("", caseHandler.Create)
		cases.GET("/:id", caseHandler.Get)
		cases.PUT("/:id", caseHandler.Update)
		cases.POST("/:id/transitions", caseHandler.Transition)
		cases.POST("/:id/appeal-decisions", caseHandler.AppealDecision)
		cases.GET("/:id/ruling", caseHandler.Ruling)
	}

	users := api.Group("/users", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", middleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
		users.PUT("/:id", middleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
		users.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionUserDeactivate, "users"), userHandler.Deactivate)
	}

	// The signed token is the credential; a bearer token only attributes the
	// audit entry.
	api.GET("/downloads/:token", middleware.OptionalJWT(authService), caseHandler.Download)

	if cfg.Cases.EnableSnapshot {
		api.GET("/metrics/snapshot", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
