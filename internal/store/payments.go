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

// InsertPayment writes a payment row, filling in its ID and CreatedAt.
func (q *Queries) InsertPayment(ctx context.Context, p *models.BillPayment) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO bill_payments (bill_id, payment_date, amount, source_account_id, memo)
		VALUES (?, ?, ?, ?, ?)`,
		p.BillID, p.PaymentDate, money.String(p.Amount), p.SourceAccountID, p.Memo)
	if err != nil {
		if isFKViolation(err) {
			return errs.NotFound("account", p.SourceAccountID)
		}
		return errs.Transient("payment", fmt.Errorf("failed to insert payment: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("payment", fmt.Errorf("failed to read payment id: %w", err))
	}
	p.ID = id
	p.CreatedAt = time.Now().UTC()
	return nil
}

// GetPayment returns one payment by ID.
func (q *Queries) GetPayment(ctx context.Context, id int64) (*models.BillPayment, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, bill_id, payment_date, amount, source_account_id, journal_id, memo, created_at
		FROM bill_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("payment", id)
	}
	if err != nil {
		return nil, errs.Transient("payment", fmt.Errorf("failed to get payment: %w", err))
	}
	return p, nil
}

// ListPayments returns a bill's payments in creation order.
func (q *Queries) ListPayments(ctx context.Context, billID int64) ([]*models.BillPayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, bill_id, payment_date, amount, source_account_id, journal_id, memo, created_at
		FROM bill_payments WHERE bill_id = ? ORDER BY id`, billID)
	if err != nil {
		return nil, errs.Transient("payment", fmt.Errorf("failed to list payments: %w", err))
	}
	defer rows.Close()

	var payments []*models.BillPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errs.Transient("payment", fmt.Errorf("failed to scan payment: %w", err))
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("payment", fmt.Errorf("failed to iterate payments: %w", err))
	}
	return payments, nil
}

// DeletePayment hard-deletes a payment row.
func (q *Queries) DeletePayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM bill_payments WHERE id = ?", id)
	if err != nil {
		return errs.Transient("payment", fmt.Errorf("failed to delete payment: %w", err))
	}
	return requireRow(res, "payment", id)
}

// SetPaymentJournal links a payment to the journal it posted.
func (q *Queries) SetPaymentJournal(ctx context.Context, paymentID, journalID int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE bill_payments SET journal_id = ? WHERE id = ?", journalID, paymentID)
	if err != nil {
		return errs.Transient("payment", fmt.Errorf("failed to link payment journal: %w", err))
	}
	return requireRow(res, "payment", paymentID)
}

// InsertRefund writes a refund row, filling in its ID and CreatedAt.
func (q *Queries) InsertRefund(ctx context.Context, r *models.BillRefund) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO bill_refunds (bill_id, refund_date, amount, target_account_id, reason)
		VALUES (?, ?, ?, ?, ?)`,
		r.BillID, r.RefundDate, money.String(r.Amount), r.TargetAccountID, r.Reason)
	if err != nil {
		if isFKViolation(err) {
			return errs.NotFound("account", r.TargetAccountID)
		}
		return errs.Transient("refund", fmt.Errorf("failed to insert refund: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("refund", fmt.Errorf("failed to read refund id: %w", err))
	}
	r.ID = id
	r.CreatedAt = time.Now().UTC()
	return nil
}

// ListRefunds returns a bill's refunds in creation order.
func (q *Queries) ListRefunds(ctx context.Context, billID int64) ([]*models.BillRefund, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, bill_id, refund_date, amount, target_account_id, journal_id, reason, created_at
		FROM bill_refunds WHERE bill_id = ? ORDER BY id`, billID)
	if err != nil {
		return nil, errs.Transient("refund", fmt.Errorf("failed to list refunds: %w", err))
	}
	defer rows.Close()

	var refunds []*models.BillRefund
	for rows.Next() {
		var r models.BillRefund
		var amount string
		var journalID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.BillID, &r.RefundDate, &amount, &r.TargetAccountID, &journalID, &r.Reason, &r.CreatedAt); err != nil {
			return nil, errs.Transient("refund", fmt.Errorf("failed to scan refund: %w", err))
		}
		if r.Amount, err = money.Parse(amount); err != nil {
			return nil, errs.Transient("refund", fmt.Errorf("corrupt amount on refund %d: %w", r.ID, err))
		}
		if journalID.Valid {
			r.JournalID = &journalID.Int64
		}
		refunds = append(refunds, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("refund", fmt.Errorf("failed to iterate refunds: %w", err))
	}
	return refunds, nil
}

// SetRefundJournal links a refund to the journal it posted.
func (q *Queries) SetRefundJournal(ctx context.Context, refundID, journalID int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE bill_refunds SET journal_id = ? WHERE id = ?", journalID, refundID)
	if err != nil {
		return errs.Transient("refund", fmt.Errorf("failed to link refund journal: %w", err))
	}
	return requireRow(res, "refund", refundID)
}

func scanPayment(row rowScanner) (*models.BillPayment, error) {
	var (
		p         models.BillPayment
		amount    string
		journalID sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.BillID, &p.PaymentDate, &amount, &p.SourceAccountID, &journalID, &p.Memo, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = money.Parse(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount on payment %d: %w", p.ID, err)
	}
	if journalID.Valid {
		p.JournalID = &journalID.Int64
	}
	return &p, nil
}
