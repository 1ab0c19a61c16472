package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/database"
	"github.com/segyhp/coop-ledger/internal/handler"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/segyhp/coop-ledger/internal/service"
	"github.com/segyhp/coop-ledger/pkg/logger"
	"github.com/segyhp/coop-ledger/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis; without it the scan runs unlocked and readiness skips redis
	var (
		redisClient *redis.Client
		redisCheck  redis.Cmdable
		locker      repository.Locker
	)
	if cfg.RedisEnabled() {
		redisClient = initRedis(cfg)
		defer redisClient.Close()
		redisCheck = redisClient
		locker = repository.NewRedisLocker(redisClient, cfg.GetScanLockTTL())
	} else {
		zlog.Warn("REDIS_HOST not set, late fine scan runs without a distributed lock")
	}

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	fineRepo := repository.NewFineRepository(db)
	transactor := repository.NewTransactor(db)
	sequence := initSequence(cfg, db, redisClient)

	// Initialize services
	clock := utils.SystemClock{}
	locks := service.NewLoanLocks()
	loanService := service.NewLoanService(loanRepo, transactor, sequence, locks, clock, cfg, zlog.Named("loans"))
	fineService := service.NewFineService(fineRepo, loanRepo, transactor, sequence, clock, cfg, zlog.Named("fines"))
	scanner := service.NewLateFineScanner(loanRepo, fineRepo, transactor, sequence, locks, locker, clock, cfg, zlog.Named("late_fine_scan"))

	// Setup routes
	router := handler.NewRouter(
		handler.NewLoanHandler(loanService, zlog),
		handler.NewFineHandler(fineService, scanner, zlog),
		handler.NewHealthHandler(db, redisCheck, cfg.GetHealthTimeout()),
		zlog,
	)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return database.Open(ctx, cfg.Database.Driver, cfg.Database.URL, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.GetConnMaxLifetime(),
	})
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// initSequence relies on Validate rejecting a redis sequence without REDIS_HOST.
func initSequence(cfg *config.Config, db *sqlx.DB, client *redis.Client) repository.SequenceGenerator {
	if cfg.UsesRedisSequence() {
		return repository.NewRedisSequenceGenerator(client)
	}
	return repository.NewSequenceGenerator(db)
}
