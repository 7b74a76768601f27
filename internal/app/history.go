package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/logs2eca/internal/config"
	"github.com/blackwell-systems/logs2eca/internal/output"
	"github.com/blackwell-systems/logs2eca/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent command runs",
		Long: `Show the command runs recorded by a logs2eca instance started with
--history-db, newest first.`,
		Example: `  # Last 20 runs
  logs2eca history --db ~/.logs2eca.db

  # Every recorded run
  logs2eca history --db ~/.logs2eca.db --limit 0`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().String("db", "", "history database path (default: $"+config.EnvHistoryDB+")")
	cmd.Flags().Int("limit", 20, "maximum number of runs to show (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")

	if dbPath == "" {
		dbPath = os.Getenv(config.EnvHistoryDB)
	}
	if dbPath == "" {
		return &config.MissingRequiredError{Names: []string{"db"}}
	}

	// store.New would create an empty database; report the typo instead.
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("history database not found: %w", err)
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderRunTable(runs))
	return nil
}
