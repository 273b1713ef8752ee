// Package server implements the CLI command that runs the HTTP server and
// the background sync scheduler in one process.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/cache"
	"github.com/petgourmet/ledgersync/internal/infrastructure/config"
	"github.com/petgourmet/ledgersync/internal/infrastructure/database"
	"github.com/petgourmet/ledgersync/internal/infrastructure/migration"
	"github.com/petgourmet/ledgersync/internal/infrastructure/provider"
	"github.com/petgourmet/ledgersync/internal/infrastructure/pubsub"
	"github.com/petgourmet/ledgersync/internal/infrastructure/repository"
	"github.com/petgourmet/ledgersync/internal/infrastructure/scheduler"
	httpRouter "github.com/petgourmet/ledgersync/internal/interfaces/http"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
	disableSync bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the ledgersync HTTP server with the webhook endpoint, the admin facade and the periodic sync scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&disableSync, "no-sync", false, "Disable the background sync scheduler")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger, !cfg.Server.IsRelease()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate {
		if err := runMigrations(cmd.Context(), cfg); err != nil {
			logger.Fatal("migration failed", "error", err)
		}
	}

	log := logger.NewLogger()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()
	logger.Info("redis connection established")

	syncScheduler := newSyncScheduler(redisClient, cfg, log)
	if !disableSync {
		syncScheduler.Start(context.Background())
		defer syncScheduler.Stop()
	}

	router := httpRouter.NewRouter(database.Get(), redisClient, syncScheduler, cfg, log)
	router.SetupRoutes(log)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

// newSyncScheduler wires the scheduler's own use case stack. It shares the
// database and redis connections with the HTTP router but keeps its own
// reconciler instances.
func newSyncScheduler(redisClient *redis.Client, cfg *config.Config, log logger.Interface) *scheduler.SyncScheduler {
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

	return scheduler.NewSyncScheduler(runSyncUC, locker, cfg.Sync, log)
}

func runMigrations(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == "sqlite" {
		return migration.AutoMigrate(database.Get())
	}
	return migration.Up(ctx, database.Get(), cfg.Database.Driver)
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
