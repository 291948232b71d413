package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sepandmal/karname-api/api/swagger"
	"github.com/sepandmal/karname-api/internal/handler"
	"github.com/sepandmal/karname-api/internal/middleware"
	"github.com/sepandmal/karname-api/internal/models"
	"github.com/sepandmal/karname-api/internal/repository"
	"github.com/sepandmal/karname-api/internal/service"
	"github.com/sepandmal/karname-api/pkg/cache"
	"github.com/sepandmal/karname-api/pkg/config"
	"github.com/sepandmal/karname-api/pkg/database"
	"github.com/sepandmal/karname-api/pkg/logger"
	corsmiddleware "github.com/sepandmal/karname-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sepandmal/karname-api/pkg/middleware/requestid"
	"github.com/sepandmal/karname-api/pkg/storage"
)

// @title Karname API
// @version 0.1.0
// @description Student performance ranking service
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Rankings.CacheTTL, logr, redisClient != nil)

	sessionRepo := repository.NewSessionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	weightRepo := repository.NewWeightTableRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	validate := validator.New()
	rankingSvc := service.NewRankingService(sessionRepo, courseRepo, weightRepo, studentRepo, cacheSvc, metricsSvc, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(rankingSvc, studentRepo, localStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	var rankingHandler *handler.RankingHandler
	if exportSvc != nil {
		rankingHandler = handler.NewRankingHandler(rankingSvc, exportSvc, cfg.Rankings.MaxPageSize)
	} else {
		rankingHandler = handler.NewRankingHandler(rankingSvc, nil, cfg.Rankings.MaxPageSize)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Rankings.Enabled {
		api := r.Group(cfg.APIPrefix)
		api.Use(middleware.JWT(cfg.JWT.Secret))

		rankings := api.Group("/rankings")
		rankings.GET("", rankingHandler.List)
		rankings.GET("/courses/:courseId", rankingHandler.CourseRanking)
		rankings.GET("/export", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), rankingHandler.Export)
		rankings.GET("/export/download", rankingHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
