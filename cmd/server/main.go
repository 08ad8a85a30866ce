package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"coinledger.backend/internal/config"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/internal/infrastructure/jobs"
	"coinledger.backend/internal/infrastructure/repositories"
	"coinledger.backend/internal/infrastructure/wallet"
	"coinledger.backend/internal/interfaces/http/handlers"
	"coinledger.backend/internal/interfaces/http/middleware"
	"coinledger.backend/internal/usecases"
	"coinledger.backend/pkg/jwt"
	"coinledger.backend/pkg/logger"
	"coinledger.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis. The engine runs without it: the reconcile tick
	// lock and scrape seed cooldown degrade to no-ops.
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Warn(context.Background(), "Redis unavailable, running without tick locking", zap.Error(err))
	} else {
		logger.Info(context.Background(), "Redis initialized")
	}

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Initialize repositories
	txRepo := repositories.NewTransactionRepository(db)
	addrRepo := repositories.NewAddressRepository(db)
	currencyRepo := repositories.NewCurrencyRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	stateRepo := repositories.NewEngineStateRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Initialize wallet adapter factory
	factory := wallet.NewFactory()

	// Initialize event bus. The host hangs delivery (mail, webhooks) off
	// this; we log every ledger event.
	bus := usecases.NewEventBus()
	bus.Subscribe(func(ctx context.Context, ev entities.LedgerEvent) {
		logger.Info(ctx, "ledger event",
			zap.String("type", string(ev.Type)),
			zap.String("transaction_id", ev.Transaction.ID.String()),
			zap.Int64("amount", ev.Transaction.Amount))
	})

	// Initialize usecases
	balanceUsecase := usecases.NewBalanceUsecase(txRepo, currencyRepo)
	depositUsecase := usecases.NewDepositUsecase(txRepo, addrRepo, currencyRepo, stateRepo, bus)
	moveUsecase := usecases.NewMoveUsecase(txRepo, currencyRepo, walletRepo, uow, factory, balanceUsecase)
	withdrawalUsecase := usecases.NewWithdrawalUsecase(txRepo, addrRepo, currencyRepo, stateRepo, uow, factory, balanceUsecase, cfg.Reconcile.WithdrawalBatchSize, cfg.Reconcile.WithdrawalConfirm)
	scanUsecase := usecases.NewScanUsecase(txRepo, currencyRepo, walletRepo, factory, depositUsecase, cfg.Reconcile.ScrapeBehind)
	reconcileUsecase := usecases.NewReconcileUsecase(currencyRepo, scanUsecase, moveUsecase, withdrawalUsecase, cfg.Reconcile.TickBudget)

	// Initialize handlers
	notifyHandler := handlers.NewNotifyHandler(scanUsecase)
	ledgerHandler := handlers.NewLedgerHandler(balanceUsecase, txRepo)
	transferHandler := handlers.NewTransferHandler(withdrawalUsecase, moveUsecase, cfg.Reconcile.WithdrawalConfirm)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconcileJob := jobs.NewReconcileJob(reconcileUsecase, cfg.Reconcile.TickInterval)
	go reconcileJob.Start(ctx)

	adminHandler := handlers.NewAdminHandler(scanUsecase, stateRepo, reconcileJob)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		notifyHandler:   notifyHandler,
		ledgerHandler:   ledgerHandler,
		transferHandler: transferHandler,
		adminHandler:    adminHandler,
		authMiddleware:  middleware.AuthMiddleware(jwtService),
		notifyAuth:      middleware.NotifyAuthMiddleware(cfg.Notify.TokenHash),
	})

	// Print all registered routes for debugging
	log.Println("📋 Registered Routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		reconcileJob.Stop()
		cancel()
	}()

	// Start server
	log.Printf("🚀 CoinLedger Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
