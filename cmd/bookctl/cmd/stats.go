package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smallbooks/bookkeeper/internal/config"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display ledger statistics",
	Long: `Display a point-in-time summary of the books.

Shows:
- Account, vendor, and bill counts
- Bills broken down by status
- Journal and journal line counts
- Bank transactions and reconciliation sessions
- Total still owed across open and partially paid bills

Example:
  bookctl stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Open the ledger database
	slog.Debug("Opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer st.Close()

	// Get statistics
	stats, err := st.GetStats(context.Background())
	exitOnError(err, "failed to get statistics")

	// Display statistics
	fmt.Println("\n=== Ledger Statistics ===")
	fmt.Printf("Accounts:                %d\n", stats.Accounts)
	fmt.Printf("Vendors:                 %d\n", stats.Vendors)
	fmt.Printf("Bills:                   %d\n", stats.Bills)
	for status, count := range stats.BillsByStatus {
		fmt.Printf("  %-22s %d\n", status+":", count)
	}
	fmt.Printf("Journals:                %d\n", stats.Journals)
	fmt.Printf("Journal lines:           %d\n", stats.JournalLines)
	fmt.Printf("Bank transactions:       %d\n", stats.BankTransactions)
	fmt.Printf("Reconciliation sessions: %d\n", stats.Sessions)
	fmt.Printf("Open payable:            %s\n", stats.OpenPayable)
	fmt.Println()
}
