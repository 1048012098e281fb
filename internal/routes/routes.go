package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"workshop-system/internal/controllers"
	"workshop-system/internal/repositories"
	"workshop-system/internal/services"
	"workshop-system/pkg/config"
	"workshop-system/pkg/middleware"
	"workshop-system/pkg/service"
	"workshop-system/pkg/telegram"
)

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, logger *zap.Logger, cfg *config.Config) {
	logger.Info("InitRouter: начало создания маршрутов")

	api := e.Group("/api")
	txManager := repositories.NewTxManager(dbConn)

	// --- РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn, logger)
	requestRepo := repositories.NewRequestRepository(dbConn, logger)
	orderRepo := repositories.NewWorkOrderRepository(dbConn, logger)
	executorRepo := repositories.NewWorkOrderExecutorRepository(dbConn, logger)
	numberingRepo := repositories.NewNumberingRepository()
	reportRepo := repositories.NewReportRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- СЕРВИСЫ ---
	telegramService := telegram.NewService(cfg.Telegram.BotToken)
	authService := services.NewAuthService(
		userRepo, cacheRepo, jwtSvc, logger,
		cfg.Auth.UserCacheTTL, cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutDuration,
	)
	requestService := services.NewRequestService(
		txManager, requestRepo, numberingRepo, telegramService, cfg.Telegram.ChatID, logger,
	)
	workOrderService := services.NewWorkOrderService(
		txManager, orderRepo, executorRepo, numberingRepo, requestRepo, userRepo, logger,
	)
	reportService := services.NewReportService(reportRepo, logger)

	// --- КОНТРОЛЛЕРЫ ---
	authController := controllers.NewAuthController(authService, logger)
	requestController := controllers.NewRequestController(requestService, logger)
	workOrderController := controllers.NewWorkOrderController(workOrderService, logger)
	reportController := controllers.NewReportController(reportService, logger)

	// --- РОУТЕРЫ ---
	authMW := middleware.NewAuthMiddleware(jwtSvc, authService, logger)
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, secureGroup, authController)
	runRequestRouter(api, secureGroup, requestController)
	runWorkOrderRouter(secureGroup, workOrderController)
	runReportRouter(secureGroup, reportController)

	logger.Info("InitRouter: создание маршрутов завершено")
}
