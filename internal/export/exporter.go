package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Exporter renders the books from the store.
type Exporter struct {
	store    *store.Store
	currency string
}

// NewExporter returns an Exporter over st. currency defaults to
// DefaultCurrency when empty.
func NewExporter(st *store.Store, currency string) *Exporter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Exporter{store: st, currency: currency}
}

// WriteLedger writes the whole ledger to w as one Beancount stream: open
// and close directives for the chart, then every journal in entry-date
// order. from and to optionally bound the entry dates. It returns the
// number of transactions written.
func (e *Exporter) WriteLedger(ctx context.Context, w io.Writer, from, to string) (int, error) {
	conv, journals, err := e.load(ctx, from, to)
	if err != nil {
		return 0, err
	}

	if _, err := fmt.Fprintf(w, "; Beancount export\noption \"operating_currency\" %q\n\n", e.currency); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}
	if _, err := io.WriteString(w, e.chartDirectives(conv, journals)); err != nil {
		return 0, fmt.Errorf("failed to write chart directives: %w", err)
	}

	for _, j := range journals {
		txn := conv.FormatTransaction(conv.ConvertJournal(j))
		if _, err := io.WriteString(w, txn+"\n"); err != nil {
			return 0, fmt.Errorf("failed to write transaction: %w", err)
		}
	}
	return len(journals), nil
}

// WriteMonthly writes the ledger under root, one file per month plus an
// accounts.beancount carrying the chart directives. Month files are
// rewritten from scratch, so exporting twice yields identical output. It
// returns the paths written, months in ascending order.
func (e *Exporter) WriteMonthly(ctx context.Context, root, from, to string) ([]string, error) {
	conv, journals, err := e.load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	repo := NewFileRepository(root)

	chart := "; Beancount chart of accounts\n\n" + e.chartDirectives(conv, journals)
	if err := repo.WriteRootFile("accounts.beancount", chart); err != nil {
		return nil, err
	}
	written := []string{repo.RootFilePath("accounts.beancount")}

	byMonth := groupJournalsByMonth(journals)
	for _, monthKey := range sortedMonths(byMonth) {
		if err := repo.ResetMonthFile(monthKey); err != nil {
			return nil, err
		}
		for _, j := range byMonth[monthKey] {
			txn := conv.FormatTransaction(conv.ConvertJournal(j))
			if err := repo.AppendTransaction(monthKey, txn); err != nil {
				return nil, err
			}
		}

		filePath, err := repo.MonthFilePath(monthKey)
		if err != nil {
			return nil, err
		}
		written = append(written, filePath)
	}
	return written, nil
}

// load reads the chart and the journals with their lines, oldest entry
// first.
func (e *Exporter) load(ctx context.Context, from, to string) (*Converter, []*models.Journal, error) {
	if from != "" && !models.ValidDate(from) {
		return nil, nil, errs.Validation("export", "from %q is not a valid YYYY-MM-DD date", from)
	}
	if to != "" && !models.ValidDate(to) {
		return nil, nil, errs.Validation("export", "to %q is not a valid YYYY-MM-DD date", to)
	}

	accts, err := e.store.ListAccounts(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	journals, err := e.store.ListJournals(ctx, store.JournalFilter{From: from, To: to})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(journals, func(i, k int) bool {
		if journals[i].EntryDate != journals[k].EntryDate {
			return journals[i].EntryDate < journals[k].EntryDate
		}
		return journals[i].ID < journals[k].ID
	})

	for _, j := range journals {
		lines, err := e.store.JournalLines(ctx, j.ID)
		if err != nil {
			return nil, nil, err
		}
		j.Lines = lines
	}

	return NewConverter(accts, e.currency), journals, nil
}

// chartDirectives renders open directives for the chart sorted by code,
// and close directives for deleted accounts. Opens are dated at or before
// the first journal so every posting lands on an opened account.
func (e *Exporter) chartDirectives(conv *Converter, journals []*models.Journal) string {
	accts := make([]*models.Account, 0, len(conv.accounts))
	for _, a := range conv.accounts {
		accts = append(accts, a)
	}
	sort.Slice(accts, func(i, k int) bool { return accts[i].Code < accts[k].Code })

	openDate := openDirectiveDate(accts, journals)

	var sb strings.Builder
	for _, a := range accts {
		sb.WriteString(conv.OpenDirective(openDate, a))
		sb.WriteString("\n")
	}
	for _, a := range accts {
		if a.Deleted && a.DeletedAt != nil {
			sb.WriteString(conv.CloseDirective(a.DeletedAt.Format(models.DateLayout), a))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// openDirectiveDate picks the earliest date seen in the export, falling
// back to the oldest account creation date for an empty ledger.
func openDirectiveDate(accts []*models.Account, journals []*models.Journal) string {
	var earliest string
	for _, a := range accts {
		d := a.CreatedAt.Format(models.DateLayout)
		if earliest == "" || d < earliest {
			earliest = d
		}
	}
	if len(journals) > 0 && journals[0].EntryDate < earliest {
		earliest = journals[0].EntryDate
	}
	if earliest == "" {
		earliest = "1970-01-01"
	}
	return earliest
}

func groupJournalsByMonth(journals []*models.Journal) map[string][]*models.Journal {
	groups := make(map[string][]*models.Journal)
	for _, j := range journals {
		monthKey := j.EntryDate[:7]
		groups[monthKey] = append(groups[monthKey], j)
	}
	return groups
}

func sortedMonths(groups map[string][]*models.Journal) []string {
	months := make([]string, 0, len(groups))
	for month := range groups {
		months = append(months, month)
	}
	sort.Strings(months)
	return months
}
