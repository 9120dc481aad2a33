package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chatroom_backend/internal/config"
	"chatroom_backend/internal/handler"
	"chatroom_backend/internal/middleware"
	"chatroom_backend/internal/repository"
	"chatroom_backend/internal/service"
	"chatroom_backend/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Репозитории и сервисы
	repos := repository.NewRepositories(dbPool, rdb, cfg, appLogger)
	services := service.NewServices(repos, cfg, appLogger)

	// Фоновый flush кэша сообщений
	services.Flush.Start()
	appLogger.Info("Flush scheduler started", "interval", cfg.Chat.FlushInterval.String())

	// Middleware и handlers
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)
	handlers := handler.NewHandlers(services, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Останавливаем планировщик и делаем финальный flush, чтобы не терять
	// буферизованные сообщения при штатной остановке
	services.Flush.Stop()
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	services.Flush.FlushAll(flushCtx)
	flushCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))

	// Health check
	router.GET("/health", handlers.Health.Check)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimitMiddleware.Limit(10, 60), handlers.Auth.Register)
			auth.POST("/login", rateLimitMiddleware.Limit(10, 60), handlers.Auth.Login)
		}

		chat := api.Group("/chat")
		{
			chat.GET("/history", handlers.Chat.GetHistory)
			chat.GET("/historyByRoom", handlers.Chat.GetHistoryByRoom)
			chat.GET("/last", handlers.Chat.GetLastMessage)
		}

		chatrooms := api.Group("/chatrooms")
		{
			chatrooms.GET("", handlers.Room.GetChatRooms)
			chatrooms.POST("/:roomId/read", handlers.Room.MarkAsRead)
			chatrooms.POST("/leave", handlers.Room.Leave)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", handlers.Post.List)
			posts.GET("/:id", handlers.Post.GetByID)
			posts.POST("", authMiddleware.RequireAuth(), handlers.Post.Create)
		}
	}

	// WebSocket endpoint для чата
	router.GET("/ws/chat", handlers.WebSocket.HandleChat)

	return router
}
