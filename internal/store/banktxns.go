package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
)

// InsertBankTransaction writes one statement line. A nonempty reference is
// unique per account; re-inserting it fails with a duplicate error so
// imports can skip lines they have already seen.
func (q *Queries) InsertBankTransaction(ctx context.Context, t *models.BankTransaction) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO bank_transactions (account_id, txn_date, description, amount, direction, reference)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.TxnDate, t.Description, money.String(t.Amount), t.Direction, t.Reference)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Duplicate(errs.CodeDuplicateResource, "bank transaction",
				"reference %q already imported for account %d", t.Reference, t.AccountID)
		}
		if isFKViolation(err) {
			return errs.NotFound("account", t.AccountID)
		}
		return errs.Transient("bank transaction", fmt.Errorf("failed to insert bank transaction: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("bank transaction", fmt.Errorf("failed to read bank transaction id: %w", err))
	}
	t.ID = id
	t.CreatedAt = time.Now().UTC()
	return nil
}

// GetBankTransaction returns one statement line by ID.
func (q *Queries) GetBankTransaction(ctx context.Context, id int64) (*models.BankTransaction, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, account_id, txn_date, description, amount, direction, reference, created_at
		FROM bank_transactions WHERE id = ?`, id)
	t, err := scanBankTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bank transaction", id)
	}
	if err != nil {
		return nil, errs.Transient("bank transaction", fmt.Errorf("failed to get bank transaction: %w", err))
	}
	return t, nil
}

// BankTxnFilter narrows ListBankTransactions.
type BankTxnFilter struct {
	AccountID int64
	From      string
	To        string
}

// ListBankTransactions returns statement lines oldest first, optionally
// restricted to one account and a date window.
func (q *Queries) ListBankTransactions(ctx context.Context, f BankTxnFilter) ([]models.BankTransaction, error) {
	query := `
		SELECT id, account_id, txn_date, description, amount, direction, reference, created_at
		FROM bank_transactions WHERE 1=1`
	var args []any
	if f.AccountID != 0 {
		query += " AND account_id = ?"
		args = append(args, f.AccountID)
	}
	if f.From != "" {
		query += " AND txn_date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND txn_date <= ?"
		args = append(args, f.To)
	}
	query += " ORDER BY txn_date, id"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Transient("bank transaction", fmt.Errorf("failed to list bank transactions: %w", err))
	}
	defer rows.Close()

	var txns []models.BankTransaction
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, errs.Transient("bank transaction", fmt.Errorf("failed to scan bank transaction: %w", err))
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("bank transaction", fmt.Errorf("failed to iterate bank transactions: %w", err))
	}
	return txns, nil
}

// CountBankTransactions returns the number of statement lines on file.
func (q *Queries) CountBankTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bank_transactions").Scan(&n); err != nil {
		return 0, errs.Transient("bank transaction", fmt.Errorf("failed to count bank transactions: %w", err))
	}
	return n, nil
}

func scanBankTransaction(row rowScanner) (*models.BankTransaction, error) {
	var t models.BankTransaction
	var amount string
	err := row.Scan(&t.ID, &t.AccountID, &t.TxnDate, &t.Description, &amount, &t.Direction, &t.Reference, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if t.Amount, err = money.Parse(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount on bank transaction %d: %w", t.ID, err)
	}
	return &t, nil
}
