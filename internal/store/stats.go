package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/money"
)

// Stats is a point-in-time summary of the books, as shown by the stats
// command.
type Stats struct {
	Accounts         int64            `json:"accounts"`
	Vendors          int64            `json:"vendors"`
	Bills            int64            `json:"bills"`
	BillsByStatus    map[string]int64 `json:"bills_by_status"`
	Journals         int64            `json:"journals"`
	JournalLines     int64            `json:"journal_lines"`
	BankTransactions int64            `json:"bank_transactions"`
	Sessions         int64            `json:"reconciliation_sessions"`
	OpenPayable      string           `json:"open_payable"`
}

// GetStats gathers row counts and the total still owed across open and
// partially paid bills.
func (q *Queries) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{BillsByStatus: make(map[string]int64)}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM accounts WHERE deleted = 0", &stats.Accounts},
		{"SELECT COUNT(*) FROM vendors", &stats.Vendors},
		{"SELECT COUNT(*) FROM bills WHERE deleted = 0", &stats.Bills},
		{"SELECT COUNT(*) FROM journals", &stats.Journals},
		{"SELECT COUNT(*) FROM journal_lines", &stats.JournalLines},
		{"SELECT COUNT(*) FROM bank_transactions", &stats.BankTransactions},
		{"SELECT COUNT(*) FROM reconciliation_sessions", &stats.Sessions},
	}
	for _, c := range counts {
		if err := q.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, errs.Transient("stats", fmt.Errorf("failed to count rows: %w", err))
		}
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM bills WHERE deleted = 0 GROUP BY status")
	if err != nil {
		return nil, errs.Transient("stats", fmt.Errorf("failed to count bills by status: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errs.Transient("stats", fmt.Errorf("failed to scan bill status count: %w", err))
		}
		stats.BillsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("stats", fmt.Errorf("failed to iterate bill status counts: %w", err))
	}

	open, err := q.openPayable(ctx)
	if err != nil {
		return nil, err
	}
	stats.OpenPayable = money.String(open)
	return stats, nil
}

// openPayable sums total minus paid across bills still owed. Amounts are
// summed in decimal, not SQL, to keep the arithmetic exact.
func (q *Queries) openPayable(ctx context.Context) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT total_amount, paid_amount FROM bills WHERE deleted = 0 AND status != 'paid'`)
	if err != nil {
		return decimal.Zero, errs.Transient("stats", fmt.Errorf("failed to read open bills: %w", err))
	}
	defer rows.Close()

	sum := money.Zero
	for rows.Next() {
		var total, paid string
		if err := rows.Scan(&total, &paid); err != nil {
			return decimal.Zero, errs.Transient("stats", fmt.Errorf("failed to scan open bill: %w", err))
		}
		t, err := money.Parse(total)
		if err != nil {
			return decimal.Zero, errs.Transient("stats", err)
		}
		p, err := money.Parse(paid)
		if err != nil {
			return decimal.Zero, errs.Transient("stats", err)
		}
		sum = money.Add(sum, money.Sub(t, p))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, errs.Transient("stats", fmt.Errorf("failed to iterate open bills: %w", err))
	}
	return sum, nil
}
