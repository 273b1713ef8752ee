// The worker binary runs the sync scheduler without the HTTP server, for
// deployments that keep webhook handling and background reconciliation in
// separate processes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/cache"
	"github.com/petgourmet/ledgersync/internal/infrastructure/config"
	"github.com/petgourmet/ledgersync/internal/infrastructure/database"
	"github.com/petgourmet/ledgersync/internal/infrastructure/provider"
	"github.com/petgourmet/ledgersync/internal/infrastructure/pubsub"
	"github.com/petgourmet/ledgersync/internal/infrastructure/repository"
	"github.com/petgourmet/ledgersync/internal/infrastructure/scheduler"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger, !cfg.Server.IsRelease()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger()
	log.Infow("starting sync worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	db := database.Get()
	orderRepo := repository.NewOrderRepository(db, log)
	subRepo := repository.NewSubscriptionRepository(db, log)
	billingRepo := repository.NewBillingEntryRepository(db, log)

	client := provider.NewHTTPClient(cfg.Provider, log)
	locker := cache.NewRedisAdvisoryLock(redisClient, log)
	transitionBus := pubsub.NewRedisTransitionBus(redisClient, log)

	reconcileOrderUC := reconcileUsecases.NewReconcileOrderUseCase(orderRepo, billingRepo, client, log)
	reconcileOrderUC.SetNotifier(transitionBus)
	reconcileSubUC := reconcileUsecases.NewReconcileSubscriptionUseCase(subRepo, billingRepo, client, log)
	reconcileSubUC.SetNotifier(transitionBus)

	runSyncUC := syncUsecases.NewRunSyncUseCase(orderRepo, subRepo, billingRepo, reconcileOrderUC, reconcileSubUC, log)
	syncScheduler := scheduler.NewSyncScheduler(runSyncUC, locker, cfg.Sync, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncScheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Infow("shutting down sync worker")
	syncScheduler.Stop()
	log.Infow("sync worker exited")
}
