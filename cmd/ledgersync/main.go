package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/petgourmet/ledgersync/internal/interfaces/cli/consolidate"
	"github.com/petgourmet/ledgersync/internal/interfaces/cli/migrate"
	"github.com/petgourmet/ledgersync/internal/interfaces/cli/server"
	"github.com/petgourmet/ledgersync/internal/interfaces/cli/sync"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgersync",
		Short: "Payment and subscription reconciliation engine",
		Long:  `ledgersync keeps the local order and subscription ledger consistent with the payment provider's canonical state.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		sync.NewCommand(),
		consolidate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
