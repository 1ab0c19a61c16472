package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/database"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/segyhp/coop-ledger/internal/scheduler"
	"github.com/segyhp/coop-ledger/internal/service"
	"github.com/segyhp/coop-ledger/pkg/logger"
	"github.com/segyhp/coop-ledger/pkg/utils"

	"go.uber.org/zap"
)

// scanTimeout bounds one late-fine scan run.
const scanTimeout = 30 * time.Minute

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

	zlog.Info("starting late fine scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.URL, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.GetConnMaxLifetime(),
	})
	cancel()
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var sequence repository.SequenceGenerator = repository.NewSequenceGenerator(db)
	var locker repository.Locker
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		locker = repository.NewRedisLocker(redisClient, cfg.GetScanLockTTL())
		if cfg.UsesRedisSequence() {
			sequence = repository.NewRedisSequenceGenerator(redisClient)
		}
	} else {
		zlog.Warn("REDIS_HOST not set, late fine scan runs without a distributed lock")
	}

	scanner := service.NewLateFineScanner(
		repository.NewLoanRepository(db),
		repository.NewFineRepository(db),
		repository.NewTransactor(db),
		sequence,
		service.NewLoanLocks(),
		locker,
		utils.SystemClock{},
		cfg,
		zlog.Named("late_fine_scan"),
	)

	s := scheduler.New(cfg.GetSchedulerLocation(), scanTimeout, zlog.Named("scheduler"))
	if _, err := s.RegisterLateFineScan(cfg.Scheduler.LateFineCron, scanner); err != nil {
		zlog.Fatal("failed to schedule late fine scan",
			zap.String("cron", cfg.Scheduler.LateFineCron),
			zap.Error(err),
		)
	}

	s.Start()
	zlog.Info("scheduler started",
		zap.String("cron", cfg.Scheduler.LateFineCron),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down scheduler")
	<-s.Stop().Done()
	zlog.Info("scheduler stopped")
}
