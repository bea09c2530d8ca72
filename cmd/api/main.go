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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/room-allocation-api/api/swagger"
	"github.com/noah-isme/room-allocation-api/internal/handler"
	"github.com/noah-isme/room-allocation-api/internal/middleware"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	"github.com/noah-isme/room-allocation-api/internal/service"
	"github.com/noah-isme/room-allocation-api/internal/timeslot"
	"github.com/noah-isme/room-allocation-api/pkg/cache"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	"github.com/noah-isme/room-allocation-api/pkg/database"
	"github.com/noah-isme/room-allocation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/room-allocation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/room-allocation-api/pkg/middleware/requestid"
	"github.com/noah-isme/room-allocation-api/pkg/tracing"
)

// @title Room Allocation API
// @version 0.1.0
// @description Scheduling conflict resolution and room allocation lifecycle.
// @BasePath /api/v1
// @schemes http
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Allocation.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, allocation cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	table, err := timeslot.NewTable(cfg.Slots.Shifts())
	if err != nil {
		return fmt.Errorf("build slot table: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	roomRepo := repository.NewRoomRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	scheduleRepo := repository.NewTeachingScheduleRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Allocation.CacheTTL, logr, redisClient != nil)
	conflicts := service.NewConflictService(table, allocationRepo, scheduleRepo)
	allocationSvc := service.NewAllocationService(db, roomRepo, scheduleRepo, allocationRepo, conflicts, cacheSvc, metrics,
		service.PolicyFromConfig(cfg.Allocation), validate, logr)
	scheduleSvc := service.NewTeachingScheduleService(db, scheduleRepo, disciplineRepo, allocationRepo, roomRepo, conflicts,
		cacheSvc, metrics, cfg.Allocation.ReleasePolicy, validate, logr)
	termCopySvc := service.NewTermCopyService(scheduleRepo, metrics, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"database": db,
		"cache":    handler.PingFunc(cacheRepo.Ping),
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(tokenSvc), middleware.WithResponseMeta())
	registerRoutes(api, handler.NewAllocationHandler(allocationSvc), handler.NewTeachingScheduleHandler(scheduleSvc, termCopySvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func registerRoutes(api *gin.RouterGroup, allocations *handler.AllocationHandler, schedules *handler.TeachingScheduleHandler) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	const allocationKeyPath = "/:roomNumber/:roomType/:professorId/:discipline/:shift/:year/:half"

	allocationRoutes := api.Group("/allocations")
	allocationRoutes.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent), allocations.List)
	allocationRoutes.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor), allocations.Create)
	allocationRoutes.PUT(allocationKeyPath+"/status", admin, allocations.UpdateStatus)
	allocationRoutes.PUT(allocationKeyPath+"/room", admin, allocations.ChangeRoom)
	allocationRoutes.DELETE(allocationKeyPath, admin, allocations.Delete)

	scheduleRoutes := api.Group("/teaching-schedules")
	scheduleRoutes.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent), schedules.List)
	scheduleRoutes.POST("", admin, schedules.Create)
	scheduleRoutes.POST("/copy", admin, schedules.CopyTerm)
	scheduleRoutes.PUT("/:professorId/:discipline/:shift/:year/:half", admin, schedules.Reschedule)
	scheduleRoutes.DELETE("/:professorId/:discipline/:shift/:year/:half", admin, schedules.Delete)
}
