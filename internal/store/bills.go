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

const billColumns = `
	b.id, b.vendor_id, v.name, b.reference, b.bill_date, b.due_date,
	b.total_amount, b.paid_amount, b.status, b.ap_account_id, b.journal_id,
	b.memo, b.deleted, b.deleted_at, b.created_at, b.updated_at`

const billSelect = "SELECT" + billColumns + " FROM bills b JOIN vendors v ON v.id = b.vendor_id"

// InsertBill writes the bill header, filling in its ID and timestamps.
func (q *Queries) InsertBill(ctx context.Context, b *models.Bill) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO bills (vendor_id, reference, bill_date, due_date, total_amount, paid_amount, status, ap_account_id, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.VendorID, b.Reference, b.BillDate, b.DueDate,
		money.String(b.Total), money.String(b.PaidAmount), string(b.Status),
		b.PayableAccountID, b.Memo)
	if err != nil {
		if isFKViolation(err) {
			return errs.NotFound("vendor", b.VendorID)
		}
		return errs.Transient("bill", fmt.Errorf("failed to insert bill: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to read bill id: %w", err))
	}
	b.ID = id
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// InsertBillLines writes a bill's line set, filling in line IDs.
func (q *Queries) InsertBillLines(ctx context.Context, billID int64, lines []models.BillLine) error {
	for i := range lines {
		line := &lines[i]
		line.BillID = billID
		res, err := q.db.ExecContext(ctx, `
			INSERT INTO bill_lines (bill_id, account_id, description, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			billID, line.AccountID, line.Description,
			line.Quantity.String(), money.String(line.UnitPrice), money.String(line.LineTotal))
		if err != nil {
			if isFKViolation(err) {
				return errs.NotFound("account", line.AccountID)
			}
			return errs.Transient("bill", fmt.Errorf("failed to insert bill line: %w", err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errs.Transient("bill", fmt.Errorf("failed to read bill line id: %w", err))
		}
		line.ID = id
	}
	return nil
}

// DeleteBillLines removes every line of a bill, ahead of a wholesale
// replacement on update.
func (q *Queries) DeleteBillLines(ctx context.Context, billID int64) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM bill_lines WHERE bill_id = ?", billID); err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to delete bill lines: %w", err))
	}
	return nil
}

// BillLines returns a bill's lines in insertion order.
func (q *Queries) BillLines(ctx context.Context, billID int64) ([]models.BillLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, bill_id, account_id, description, quantity, unit_price, line_total
		FROM bill_lines WHERE bill_id = ? ORDER BY id`, billID)
	if err != nil {
		return nil, errs.Transient("bill", fmt.Errorf("failed to list bill lines: %w", err))
	}
	defer rows.Close()

	var lines []models.BillLine
	for rows.Next() {
		var line models.BillLine
		var qty, price, lineTotal string
		if err := rows.Scan(&line.ID, &line.BillID, &line.AccountID, &line.Description, &qty, &price, &lineTotal); err != nil {
			return nil, errs.Transient("bill", fmt.Errorf("failed to scan bill line: %w", err))
		}
		if line.Quantity, err = money.ParseQuantity(qty); err != nil {
			return nil, errs.Transient("bill", fmt.Errorf("corrupt quantity on line %d: %w", line.ID, err))
		}
		if line.UnitPrice, err = money.Parse(price); err != nil {
			return nil, errs.Transient("bill", fmt.Errorf("corrupt unit price on line %d: %w", line.ID, err))
		}
		if line.LineTotal, err = money.Parse(lineTotal); err != nil {
			return nil, errs.Transient("bill", fmt.Errorf("corrupt line total on line %d: %w", line.ID, err))
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("bill", fmt.Errorf("failed to iterate bill lines: %w", err))
	}
	return lines, nil
}

// GetBill returns one bill with its lines, deleted or not. Callers that
// must not touch deleted bills check the flag themselves.
func (q *Queries) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	row := q.db.QueryRowContext(ctx, billSelect+" WHERE b.id = ?", id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bill", id)
	}
	if err != nil {
		return nil, errs.Transient("bill", fmt.Errorf("failed to get bill: %w", err))
	}

	lines, err := q.BillLines(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Lines = lines
	return b, nil
}

// BillFilter narrows ListBills. Zero values mean "any".
type BillFilter struct {
	VendorID       int64
	Status         models.BillStatus
	IncludeDeleted bool
	Limit          int
}

// ListBills returns bill headers, newest bill date first.
func (q *Queries) ListBills(ctx context.Context, f BillFilter) ([]*models.Bill, error) {
	query := billSelect + " WHERE 1=1"
	var args []any
	if !f.IncludeDeleted {
		query += " AND b.deleted = 0"
	}
	if f.VendorID != 0 {
		query += " AND b.vendor_id = ?"
		args = append(args, f.VendorID)
	}
	if f.Status != "" {
		query += " AND b.status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY b.bill_date DESC, b.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Transient("bill", fmt.Errorf("failed to list bills: %w", err))
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, errs.Transient("bill", fmt.Errorf("failed to scan bill: %w", err))
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("bill", fmt.Errorf("failed to iterate bills: %w", err))
	}
	return bills, nil
}

// UpdateBillHeader saves the editable header fields and the recomputed
// total of an existing bill.
func (q *Queries) UpdateBillHeader(ctx context.Context, b *models.Bill) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE bills
		SET reference = ?, bill_date = ?, due_date = ?, memo = ?, total_amount = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted = 0`,
		b.Reference, b.BillDate, b.DueDate, b.Memo, money.String(b.Total), string(b.Status), b.ID)
	if err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to update bill: %w", err))
	}
	return requireRow(res, "bill", b.ID)
}

// UpdateBillPaid saves a recomputed paid amount and status.
func (q *Queries) UpdateBillPaid(ctx context.Context, id int64, paid models.BillStatus, amount string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE bills SET paid_amount = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, string(paid), id)
	if err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to update bill paid amount: %w", err))
	}
	return requireRow(res, "bill", id)
}

// SetBillJournal links a bill to its opening journal. This is the single
// mutable back-reference a posted journal permits.
func (q *Queries) SetBillJournal(ctx context.Context, billID, journalID int64) error {
	res, err := q.db.ExecContext(ctx, "UPDATE bills SET journal_id = ? WHERE id = ?", journalID, billID)
	if err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to link bill journal: %w", err))
	}
	return requireRow(res, "bill", billID)
}

// SoftDeleteBill marks a bill deleted. Rows are never physically removed.
func (q *Queries) SoftDeleteBill(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE bills SET deleted = 1, deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return errs.Transient("bill", fmt.Errorf("failed to delete bill: %w", err))
	}
	return requireRow(res, "bill", id)
}

func scanBill(row rowScanner) (*models.Bill, error) {
	var (
		b           models.Bill
		status      string
		total, paid string
		journalID   sql.NullInt64
		deletedAt   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.VendorID, &b.VendorName, &b.Reference, &b.BillDate, &b.DueDate,
		&total, &paid, &status, &b.PayableAccountID, &journalID,
		&b.Memo, &b.Deleted, &deletedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = models.BillStatus(status)
	if b.Total, err = money.Parse(total); err != nil {
		return nil, fmt.Errorf("corrupt total on bill %d: %w", b.ID, err)
	}
	if b.PaidAmount, err = money.Parse(paid); err != nil {
		return nil, fmt.Errorf("corrupt paid amount on bill %d: %w", b.ID, err)
	}
	if journalID.Valid {
		b.JournalID = &journalID.Int64
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		b.DeletedAt = &t
	}
	return &b, nil
}
