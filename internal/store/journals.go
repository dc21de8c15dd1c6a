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

// InsertJournal writes a journal header and all of its lines, filling in the
// generated IDs. Callers wrap it in Store.Tx together with whatever document
// write raised the journal.
func (q *Queries) InsertJournal(ctx context.Context, j *models.Journal) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO journals (entry_date, type, memo, posted, source_type, source_id, reverses_id, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.EntryDate, j.Type, j.Memo, j.Posted, j.SourceType, j.SourceID, j.ReversesID, j.CreatedBy)
	if err != nil {
		return errs.Transient("journal", fmt.Errorf("failed to insert journal: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("journal", fmt.Errorf("failed to read journal id: %w", err))
	}
	j.ID = id
	j.CreatedAt = time.Now().UTC()

	for i := range j.Lines {
		line := &j.Lines[i]
		line.JournalID = id
		res, err := q.db.ExecContext(ctx, `
			INSERT INTO journal_lines (journal_id, account_id, debit, credit, description)
			VALUES (?, ?, ?, ?, ?)`,
			id, line.AccountID, money.String(line.Debit), money.String(line.Credit), line.Description)
		if err != nil {
			if isFKViolation(err) {
				return errs.NotFound("account", line.AccountID)
			}
			return errs.Transient("journal", fmt.Errorf("failed to insert journal line: %w", err))
		}
		lineID, err := res.LastInsertId()
		if err != nil {
			return errs.Transient("journal", fmt.Errorf("failed to read journal line id: %w", err))
		}
		line.ID = lineID
	}
	return nil
}

// GetJournal returns a journal with its lines.
func (q *Queries) GetJournal(ctx context.Context, id int64) (*models.Journal, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, entry_date, type, memo, posted, source_type, source_id, reverses_id, created_by, created_at
		FROM journals WHERE id = ?`, id)
	j, err := scanJournal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("journal", id)
	}
	if err != nil {
		return nil, errs.Transient("journal", fmt.Errorf("failed to get journal: %w", err))
	}

	lines, err := q.JournalLines(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Lines = lines
	return j, nil
}

// JournalLines returns the lines of one journal in insertion order.
func (q *Queries) JournalLines(ctx context.Context, journalID int64) ([]models.JournalLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, journal_id, account_id, debit, credit, description
		FROM journal_lines WHERE journal_id = ? ORDER BY id`, journalID)
	if err != nil {
		return nil, errs.Transient("journal", fmt.Errorf("failed to list journal lines: %w", err))
	}
	defer rows.Close()

	var lines []models.JournalLine
	for rows.Next() {
		var (
			line          models.JournalLine
			debit, credit string
		)
		if err := rows.Scan(&line.ID, &line.JournalID, &line.AccountID, &debit, &credit, &line.Description); err != nil {
			return nil, errs.Transient("journal", fmt.Errorf("failed to scan journal line: %w", err))
		}
		if line.Debit, err = money.Parse(debit); err != nil {
			return nil, errs.Transient("journal", fmt.Errorf("corrupt debit amount on line %d: %w", line.ID, err))
		}
		if line.Credit, err = money.Parse(credit); err != nil {
			return nil, errs.Transient("journal", fmt.Errorf("corrupt credit amount on line %d: %w", line.ID, err))
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("journal", fmt.Errorf("failed to iterate journal lines: %w", err))
	}
	return lines, nil
}

// JournalFilter narrows ListJournals. Zero values mean "any".
type JournalFilter struct {
	From       string
	To         string
	Type       string
	SourceType string
	SourceID   int64
	Limit      int
}

// ListJournals returns journal headers, newest entry date first.
func (q *Queries) ListJournals(ctx context.Context, f JournalFilter) ([]*models.Journal, error) {
	query := `
		SELECT id, entry_date, type, memo, posted, source_type, source_id, reverses_id, created_by, created_at
		FROM journals WHERE 1=1`
	var args []any
	if f.From != "" {
		query += " AND entry_date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND entry_date <= ?"
		args = append(args, f.To)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.SourceType != "" {
		query += " AND source_type = ?"
		args = append(args, f.SourceType)
	}
	if f.SourceID != 0 {
		query += " AND source_id = ?"
		args = append(args, f.SourceID)
	}
	query += " ORDER BY entry_date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Transient("journal", fmt.Errorf("failed to list journals: %w", err))
	}
	defer rows.Close()

	var journals []*models.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, errs.Transient("journal", fmt.Errorf("failed to scan journal: %w", err))
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("journal", fmt.Errorf("failed to iterate journals: %w", err))
	}
	return journals, nil
}

// DeleteJournal hard-deletes a journal; its lines go with it. Reserved for
// unwinding a deleted payment, everything else reverses instead.
func (q *Queries) DeleteJournal(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM journals WHERE id = ?", id)
	if err != nil {
		return errs.Transient("journal", fmt.Errorf("failed to delete journal: %w", err))
	}
	return requireRow(res, "journal", id)
}

// LedgerFilter narrows ListLedgerLines. To is inclusive, Before exclusive.
type LedgerFilter struct {
	AccountID int64
	From      string
	To        string
	Before    string
}

const ledgerSelect = `
	SELECT jl.id, jl.journal_id, j.entry_date, j.type, jl.account_id, a.code, a.name,
	       jl.debit, jl.credit, jl.description, j.memo
	FROM journal_lines jl
	JOIN journals j ON j.id = jl.journal_id
	JOIN accounts a ON a.id = jl.account_id`

// ListLedgerLines returns posted journal lines joined with their headers,
// oldest first, optionally restricted to one account and a date window.
func (q *Queries) ListLedgerLines(ctx context.Context, f LedgerFilter) ([]models.LedgerLine, error) {
	query := ledgerSelect + " WHERE j.posted = 1"
	var args []any
	if f.AccountID != 0 {
		query += " AND jl.account_id = ?"
		args = append(args, f.AccountID)
	}
	if f.From != "" {
		query += " AND j.entry_date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND j.entry_date <= ?"
		args = append(args, f.To)
	}
	if f.Before != "" {
		query += " AND j.entry_date < ?"
		args = append(args, f.Before)
	}
	query += " ORDER BY j.entry_date, jl.journal_id, jl.id"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Transient("ledger", fmt.Errorf("failed to list ledger lines: %w", err))
	}
	defer rows.Close()

	var lines []models.LedgerLine
	for rows.Next() {
		line, err := scanLedgerLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("ledger", fmt.Errorf("failed to iterate ledger lines: %w", err))
	}
	return lines, nil
}

// GetLedgerLine returns one journal line joined with its header.
func (q *Queries) GetLedgerLine(ctx context.Context, lineID int64) (*models.LedgerLine, error) {
	row := q.db.QueryRowContext(ctx, ledgerSelect+" WHERE jl.id = ?", lineID)
	line, err := scanLedgerLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("ledger line", lineID)
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

func scanJournal(row rowScanner) (*models.Journal, error) {
	var (
		j          models.Journal
		sourceID   sql.NullInt64
		reversesID sql.NullInt64
	)
	err := row.Scan(&j.ID, &j.EntryDate, &j.Type, &j.Memo, &j.Posted,
		&j.SourceType, &sourceID, &reversesID, &j.CreatedBy, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sourceID.Valid {
		j.SourceID = &sourceID.Int64
	}
	if reversesID.Valid {
		j.ReversesID = &reversesID.Int64
	}
	return &j, nil
}

func scanLedgerLine(row rowScanner) (*models.LedgerLine, error) {
	var (
		line          models.LedgerLine
		debit, credit string
	)
	err := row.Scan(&line.LineID, &line.JournalID, &line.EntryDate, &line.JournalType,
		&line.AccountID, &line.AccountCode, &line.AccountName, &debit, &credit,
		&line.Description, &line.Memo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errs.Transient("ledger", fmt.Errorf("failed to scan ledger line: %w", err))
	}
	if line.Debit, err = money.Parse(debit); err != nil {
		return nil, errs.Transient("ledger", fmt.Errorf("corrupt debit amount on line %d: %w", line.LineID, err))
	}
	if line.Credit, err = money.Parse(credit); err != nil {
		return nil, errs.Transient("ledger", fmt.Errorf("corrupt credit amount on line %d: %w", line.LineID, err))
	}
	return &line, nil
}
