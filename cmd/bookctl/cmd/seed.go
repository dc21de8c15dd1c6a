package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/config"
	"github.com/smallbooks/bookkeeper/internal/store"
)

var chartFile string

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the chart of accounts",
	Long: `Seed the account directory from a chart-of-accounts YAML file,
or from the built-in small-business chart when no file is given.

Accounts whose code is already on file are left untouched, so seeding
is safe to run repeatedly.

Example:
  bookctl seed
  bookctl seed --chart config/chart-of-accounts.yaml`,
	Run: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&chartFile, "chart", "", "chart of accounts YAML file (default is the built-in chart)")
}

func runSeed(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Open the ledger database
	slog.Debug("Opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer st.Close()

	// Open the audit trail
	rec, err := audit.Open(cfg.AuditPath, slog.Default())
	exitOnError(err, "failed to open audit trail")
	defer rec.Close()

	// Resolve the chart: flag wins over config, built-in chart as fallback
	chartPath := chartFile
	if chartPath == "" {
		chartPath = cfg.ChartPath
	}

	chart := accounts.DefaultChart()
	if chartPath != "" {
		chart, err = accounts.LoadChart(chartPath)
		exitOnError(err, "failed to load chart file")
	}

	dir := accounts.NewDirectory(st, rec)
	created, err := dir.Seed(context.Background(), chart)
	exitOnError(err, "failed to seed accounts")

	fmt.Printf("Seeded %d new accounts (%d in chart)\n", created, len(chart))
	slog.Info("chart seeded", "created", created, "chart_size", len(chart))
}
