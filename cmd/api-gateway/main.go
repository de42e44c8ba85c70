package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/qrmark/qrmark-api/api/swagger"
	"github.com/qrmark/qrmark-api/internal/handler"
	"github.com/qrmark/qrmark-api/internal/middleware"
	"github.com/qrmark/qrmark-api/internal/repository"
	"github.com/qrmark/qrmark-api/internal/service"
	"github.com/qrmark/qrmark-api/pkg/cache"
	"github.com/qrmark/qrmark-api/pkg/config"
	"github.com/qrmark/qrmark-api/pkg/database"
	"github.com/qrmark/qrmark-api/pkg/jobs"
	"github.com/qrmark/qrmark-api/pkg/logger"
	corsmiddleware "github.com/qrmark/qrmark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/qrmark/qrmark-api/pkg/middleware/requestid"
	"github.com/qrmark/qrmark-api/pkg/qr"
	"github.com/qrmark/qrmark-api/pkg/storage"
	"github.com/qrmark/qrmark-api/pkg/unlock"
)

// @title QRMark API
// @version 1.0.0
// @description QR based class attendance with anti-fraud admission gates
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	qrStore, err := storage.NewLocalStorage(cfg.QR.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare qr storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	codeRepo := repository.NewSessionCodeRepository(db)
	tokenRepo := repository.NewSessionTokenRepository(db)
	lockRepo := repository.NewDeviceLockRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(teacherRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	renderer := qr.NewRenderer(cfg.QR.CheckinURL, cfg.QR.Size)
	qrQueue := jobs.NewQueue("qr-render", service.NewQRRenderHandler(renderer, qrStore), jobs.QueueConfig{Workers: 2, Logger: logr})
	codeSvc := service.NewSessionCodeService(codeRepo, qrQueue, renderer, qrStore, validate, logr, cfg.Session.CodeLength)

	tokenSvc := service.NewSessionTokenService(tokenRepo, validate, logr, cfg.Session.TokenLength)
	lockSvc := service.NewDeviceLockService(lockRepo, logr)
	admissionSvc := service.NewAdmissionService(studentRepo, codeRepo, tokenRepo, attendanceRepo, validate, logr, metricsSvc, cfg.Admission)
	unlockSvc := service.NewUnlockService(studentRepo, unlock.NewSigner(cfg.Unlock.Secret, cfg.Unlock.TTL), logr, cfg.QR.CheckinURL)
	reportSvc := service.NewReportService(attendanceRepo, studentRepo, cacheRepo, metricsSvc, logr, cfg.Reports.SummaryCacheTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	qrQueue.Start(ctx)
	defer qrQueue.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	scanHandler := handler.NewScanHandler(codeSvc, tokenSvc, lockSvc)
	checkinHandler := handler.NewCheckinHandler(admissionSvc, cfg.Admission)
	unlockHandler := handler.NewUnlockHandler(unlockSvc)
	codeHandler := handler.NewSessionCodeHandler(codeSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)
	{
		// Student-facing, no auth: reached from the printed QR.
		v1.GET("/scan", scanHandler.Scan)
		v1.POST("/attendance/checkin", checkinHandler.Checkin)
		v1.GET("/unlock/:token", unlockHandler.Redeem)

		v1.POST("/auth/login", authHandler.Login)

		authed := v1.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.POST("/codes", codeHandler.Issue)
			authed.GET("/codes", codeHandler.List)
			authed.GET("/codes/current", codeHandler.Current)
			authed.GET("/codes/:id", codeHandler.Get)
			authed.GET("/codes/:id/qr", codeHandler.QR)

			authed.GET("/attendance", reportHandler.List)
			authed.GET("/attendance/summary", reportHandler.Summary)
			authed.GET("/attendance/export", reportHandler.Export)
			authed.GET("/classes", reportHandler.Classes)

			authed.POST("/unlock-links", unlockHandler.Issue)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
