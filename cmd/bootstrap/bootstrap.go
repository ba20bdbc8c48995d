package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-opd-token-system/config"
	"go-opd-token-system/internal/allocation"
	deliveryHttp "go-opd-token-system/internal/delivery/http"
	"go-opd-token-system/internal/delivery/http/handler"
	"go-opd-token-system/internal/delivery/http/middleware"
	"go-opd-token-system/internal/infrastructure/cache"
	"go-opd-token-system/internal/infrastructure/database"
	"go-opd-token-system/internal/repository"
	"go-opd-token-system/internal/service"
	"go-opd-token-system/internal/usecase"
	"go-opd-token-system/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database migrated successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Mirror slot occupancy into Redis for the display board. A stale
	// board is tolerable; a dead API is not.
	board := service.NewBoardSyncService(db, redisClient, logrus.StandardLogger())
	if err := board.SyncOnStartup(context.Background()); err != nil {
		logrus.Warnf("Occupancy board sync failed on startup: %v", err)
	}

	// Initialize all layers
	server := initializeServer(cfg, db, redisClient, board)
	app.Server = server

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, board *service.BoardSyncService) *http.Server {
	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	doctorRepo := repository.NewDoctorRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize allocation engine
	priorityCalc := allocation.NewPriorityCalculator(cfg.Allocation)
	events := allocation.NewLogSink(log)
	engine := allocation.NewEngine(slotRepo, tokenRepo, priorityCalc, events, cfg.Allocation)

	// Initialize usecases
	tokenUsecase := usecase.NewTokenUsecase(log, engine, doctorRepo, tokenRepo, board)
	doctorUsecase := usecase.NewDoctorUsecase(log, doctorRepo)
	slotUsecase := usecase.NewTimeSlotUsecase(log, slotRepo, doctorRepo, board)

	// Initialize handlers
	tokenHandler := handler.NewTokenHandler(tokenUsecase, customValidator)
	doctorHandler := handler.NewDoctorHandler(doctorUsecase, customValidator)
	slotHandler := handler.NewSlotHandler(slotUsecase, customValidator)

	// Initialize middleware
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(tokenHandler, doctorHandler, slotHandler, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
