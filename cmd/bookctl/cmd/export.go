package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smallbooks/bookkeeper/internal/config"
	"github.com/smallbooks/bookkeeper/internal/export"
	"github.com/smallbooks/bookkeeper/internal/store"
)

var (
	exportOut      string
	exportDir      string
	exportFrom     string
	exportTo       string
	exportCurrency string
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the books as Beancount files",
	Long: `Export the ledger in Beancount plain-text accounting format.

By default the whole ledger is written to stdout as one stream: open
directives for the chart of accounts followed by every journal in entry
date order. With --dir the export is split into monthly files under the
given directory instead, alongside an accounts.beancount for the chart.

Month files are rewritten from scratch on every run, so the export stays
in step with the books.

Example:
  bookctl export > ledger.beancount
  bookctl export --out ledger.beancount --from 2025-01-01 --to 2025-12-31
  bookctl export --dir books/`,
	Run: runExport,
}

func init() {
	// Flags
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "split into monthly files under this directory")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportCurrency, "currency", export.DefaultCurrency, "posting currency")

	exportCmd.MarkFlagsMutuallyExclusive("out", "dir")
}

func runExport(cmd *cobra.Command, args []string) {
	slog.Info("Starting export", "from", exportFrom, "to", exportTo, "dir", exportDir)

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Open the ledger database
	slog.Debug("Opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer st.Close()

	ctx := context.Background()
	exporter := export.NewExporter(st, exportCurrency)

	// Monthly split mode
	if exportDir != "" {
		files, err := exporter.WriteMonthly(ctx, exportDir, exportFrom, exportTo)
		exitOnError(err, "export failed")

		for _, f := range files {
			fmt.Println(f)
		}
		slog.Info("Export finished", "files", len(files))
		return
	}

	// Single stream mode
	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		exitOnError(err, "failed to create output file")
		defer f.Close()
		out = f
	}

	count, err := exporter.WriteLedger(ctx, out, exportFrom, exportTo)
	exitOnError(err, "export failed")

	if exportOut != "" {
		fmt.Printf("Exported %d journals to %s\n", count, exportOut)
	}
	slog.Info("Export finished", "journals", count)
}
