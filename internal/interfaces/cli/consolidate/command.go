// Package consolidate implements the CLI command that collapses duplicate
// subscription rows.
package consolidate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	consolidationUsecases "github.com/petgourmet/ledgersync/internal/application/consolidation/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/cache"
	"github.com/petgourmet/ledgersync/internal/infrastructure/config"
	"github.com/petgourmet/ledgersync/internal/infrastructure/database"
	"github.com/petgourmet/ledgersync/internal/infrastructure/repository"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

var (
	env   string
	all   bool
	limit int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate [correlation-key]",
		Short: "Collapse duplicate subscription rows",
		Long:  `Merge duplicate subscription rows sharing a correlation key into a single canonical row. Pass a correlation key to consolidate one group, or --all to sweep every duplicated key.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&all, "all", false, "Sweep every duplicated correlation key")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum keys per sweep")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if !all && len(args) == 0 {
		return fmt.Errorf("either a correlation key or --all is required")
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, !cfg.Server.IsRelease()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	log := logger.NewLogger()
	subRepo := repository.NewSubscriptionRepository(database.Get(), log)
	locker := cache.NewRedisAdvisoryLock(redisClient, log)

	consolidateUC := consolidationUsecases.NewConsolidateUseCase(subRepo, locker, log)
	consolidateUC.SetTransactionManager(db.NewTransactionManager(database.Get()))

	if !all {
		report, err := consolidateUC.Execute(cmd.Context(), consolidationUsecases.ConsolidateCommand{
			CorrelationKey: args[0],
		})
		if err != nil {
			return fmt.Errorf("consolidation failed: %w", err)
		}

		printReport(report)
		return nil
	}

	sweepUC := consolidationUsecases.NewConsolidateAllUseCase(subRepo, consolidateUC, log)
	sweep, err := sweepUC.Execute(cmd.Context(), consolidationUsecases.ConsolidateAllCommand{Limit: limit})
	if err != nil {
		return fmt.Errorf("consolidation sweep failed: %w", err)
	}

	fmt.Printf("sweep completed: keys=%d deleted=%d errors=%d\n", sweep.KeysExamined, sweep.Deleted, sweep.Errors)
	for _, report := range sweep.Reports {
		printReport(report)
	}
	return nil
}

func printReport(report *consolidationUsecases.ConsolidationReport) {
	fmt.Printf("%s: examined=%d canonical=%d deleted=%d",
		report.CorrelationKey, report.Examined, report.CanonicalID, report.Deleted)
	if report.DeleteSkipped {
		fmt.Print(" (delete skipped, rows changed mid-flight)")
	}
	fmt.Println()
}
