package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/config"
	"github.com/smallbooks/bookkeeper/internal/importer"
	"github.com/smallbooks/bookkeeper/internal/store"
)

var (
	importAccount string
	importFormat  string
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a bank statement CSV",
	Long: `Import a bank statement export into the given bank account.

Lines carry a reference derived from the export, so importing the same
file twice records nothing new; duplicates are counted as skipped.

Example:
  bookctl import --account 1010 --format chase statement.csv
  bookctl import --account 1010 --format generic statement.csv`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

func init() {
	// Flags
	importCmd.Flags().StringVar(&importAccount, "account", "", "bank account code (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "generic", "statement format")

	importCmd.MarkFlagRequired("account")
}

func runImport(cmd *cobra.Command, args []string) {
	slog.Info("Starting import", "file", args[0], "account", importAccount, "format", importFormat)

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

	// Resolve the account by code
	ctx := context.Background()
	dir := accounts.NewDirectory(st, rec)
	acc, err := dir.GetByCode(ctx, importAccount)
	exitOnError(err, "failed to resolve account")

	// Open the statement file
	f, err := os.Open(args[0])
	exitOnError(err, "failed to open statement file")
	defer f.Close()

	// Run the import
	svc := importer.NewService(st, nil, rec)
	result, err := svc.Import(ctx, acc.ID, importFormat, f)
	exitOnError(err, "import failed")

	fmt.Printf("Imported %d transactions, skipped %d duplicates\n", result.Imported, result.Skipped)
	slog.Info("import finished", "imported", result.Imported, "skipped", result.Skipped)
}
