// Package sync implements the CLI command that runs one reconciliation
// batch and prints its report.
package sync

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/config"
	"github.com/petgourmet/ledgersync/internal/infrastructure/database"
	"github.com/petgourmet/ledgersync/internal/infrastructure/provider"
	"github.com/petgourmet/ledgersync/internal/infrastructure/repository"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

var (
	env           string
	maxAgeMinutes int
	limit         int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation batch",
		Long:  `Scan the ledger for stale or inconsistent rows, reconcile each against the provider and print the resulting report.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().IntVar(&maxAgeMinutes, "max-age", 60, "Only consider rows not verified within this many minutes")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum candidates per entity type")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
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

	log := logger.NewLogger()
	db := database.Get()

	orderRepo := repository.NewOrderRepository(db, log)
	subRepo := repository.NewSubscriptionRepository(db, log)
	billingRepo := repository.NewBillingEntryRepository(db, log)
	client := provider.NewHTTPClient(cfg.Provider, log)

	reconcileOrderUC := reconcileUsecases.NewReconcileOrderUseCase(orderRepo, billingRepo, client, log)
	reconcileSubUC := reconcileUsecases.NewReconcileSubscriptionUseCase(subRepo, billingRepo, client, log)
	runSyncUC := syncUsecases.NewRunSyncUseCase(orderRepo, subRepo, billingRepo, reconcileOrderUC, reconcileSubUC, log)

	report, err := runSyncUC.Execute(cmd.Context(), syncUsecases.RunSyncCommand{
		MaxAge: time.Duration(maxAgeMinutes) * time.Minute,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("sync run failed: %w", err)
	}

	fmt.Printf("sync completed in %s: processed=%d updated=%d errors=%d\n",
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Processed, report.Updated, report.Errors)

	for _, item := range report.Items {
		line := fmt.Sprintf("  %s %d", item.Entity, item.ID)
		if item.Error != "" {
			line += " error: " + item.Error
		} else if item.Changed {
			line += " updated"
		}
		fmt.Println(line)
	}

	return nil
}
