package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduops/class-review-api/api/swagger"
	"github.com/eduops/class-review-api/internal/handler"
	"github.com/eduops/class-review-api/internal/llm"
	"github.com/eduops/class-review-api/internal/middleware"
	"github.com/eduops/class-review-api/internal/models"
	"github.com/eduops/class-review-api/internal/repository"
	"github.com/eduops/class-review-api/internal/service"
	"github.com/eduops/class-review-api/pkg/cache"
	"github.com/eduops/class-review-api/pkg/config"
	"github.com/eduops/class-review-api/pkg/database"
	"github.com/eduops/class-review-api/pkg/export"
	"github.com/eduops/class-review-api/pkg/logger"
	corsmiddleware "github.com/eduops/class-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduops/class-review-api/pkg/middleware/requestid"
)

// @title Class Review API
// @version 0.1.0
// @description Weekly class inspection review aggregation and analysis
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine degrades to uncached reads when redis is away.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Review.CacheTTL, logr, cfg.Review.CacheEnabled && redisClient != nil)

	recordRepo := repository.NewRecordRepository(db)
	classRepo := repository.NewClassRepository(db)
	itemRepo := repository.NewCheckItemRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	analysisRepo := repository.NewAnalysisCacheRepository(db)

	var llmClient service.LLMClient
	if cfg.LLM.Enabled {
		llmClient = llm.NewClient(cfg.LLM)
	}

	calendarSvc := service.NewCalendarService(calendarRepo, logr)
	riskSvc := service.NewRiskService()
	analysisSvc := service.NewAnalysisService(analysisRepo, llmClient, riskSvc, metricsSvc, logr, cfg.LLM)
	reviewSvc := service.NewReviewService(service.ReviewServiceParams{
		Records:     recordRepo,
		Classes:     classRepo,
		Items:       itemRepo,
		Calendar:    calendarSvc,
		Rates:       service.NewRateService(),
		Streaks:     service.NewStreakService(),
		Risk:        riskSvc,
		Suggestions: service.NewSuggestionService(),
		Analysis:    analysisSvc,
		Deadline:    service.NewDeadlineService(cfg.Deadline),
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config:      cfg.Review,
	})
	exportSvc := service.NewExportService(reviewSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	reviewHandler := handler.NewReviewHandler(reviewSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	api.Use(middleware.WithResponseMeta())

	review := api.Group("/review")
	{
		review.GET("/overview", reviewHandler.Overview)
		review.GET("/analysis", reviewHandler.Analysis)
		review.GET("/suggestion", reviewHandler.Suggestion)
		review.GET("/deadline", reviewHandler.Deadline)
		review.POST("/weekly-grade",
			middleware.RequireRoles(models.RoleAdmin, models.RoleDutyTeacher, models.RoleClassTeacher),
			reviewHandler.SubmitWeeklyGrade)
		if cfg.Export.Enabled {
			review.GET("/export",
				middleware.RequireRoles(models.RoleAdmin, models.RoleGradeLeader),
				exportHandler.Download)
		}
	}

	system := api.Group("/system")
	system.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		system.GET("/metrics", metricsHandler.Snapshot)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
