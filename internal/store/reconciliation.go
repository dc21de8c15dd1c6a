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

const sessionColumns = `id, account_id, period_start, period_end, starting_balance,
	statement_balance, status, completed_at, created_at, updated_at`

// InsertSession opens a reconciliation session, filling in its ID and
// timestamps.
func (q *Queries) InsertSession(ctx context.Context, s *models.ReconciliationSession) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO reconciliation_sessions (account_id, period_start, period_end, starting_balance, statement_balance, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.AccountID, s.PeriodStart, s.PeriodEnd,
		money.String(s.StartingBalance), money.String(s.StatementBalance), string(s.Status))
	if err != nil {
		if isFKViolation(err) {
			return errs.NotFound("account", s.AccountID)
		}
		return errs.Transient("session", fmt.Errorf("failed to insert session: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to read session id: %w", err))
	}
	s.ID = id
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// GetSession returns one session by ID.
func (q *Queries) GetSession(ctx context.Context, id int64) (*models.ReconciliationSession, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM reconciliation_sessions WHERE id = ?", id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", id)
	}
	if err != nil {
		return nil, errs.Transient("session", fmt.Errorf("failed to get session: %w", err))
	}
	return s, nil
}

// ListSessions returns sessions newest first, optionally for one account.
func (q *Queries) ListSessions(ctx context.Context, accountID int64) ([]*models.ReconciliationSession, error) {
	query := "SELECT " + sessionColumns + " FROM reconciliation_sessions"
	var args []any
	if accountID != 0 {
		query += " WHERE account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Transient("session", fmt.Errorf("failed to list sessions: %w", err))
	}
	defer rows.Close()

	var sessions []*models.ReconciliationSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errs.Transient("session", fmt.Errorf("failed to scan session: %w", err))
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("session", fmt.Errorf("failed to iterate sessions: %w", err))
	}
	return sessions, nil
}

// UpdateSessionDetails saves the statement period end and balance.
func (q *Queries) UpdateSessionDetails(ctx context.Context, s *models.ReconciliationSession) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE reconciliation_sessions
		SET period_end = ?, statement_balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		s.PeriodEnd, money.String(s.StatementBalance), s.ID)
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to update session: %w", err))
	}
	return requireRow(res, "session", s.ID)
}

// SetSessionStatus transitions a session, stamping completed_at when the
// new status is completed.
func (q *Queries) SetSessionStatus(ctx context.Context, id int64, status models.SessionStatus) error {
	var res sql.Result
	var err error
	if status == models.SessionStatusCompleted {
		res, err = q.db.ExecContext(ctx, `
			UPDATE reconciliation_sessions
			SET status = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, string(status), id)
	} else {
		res, err = q.db.ExecContext(ctx, `
			UPDATE reconciliation_sessions
			SET status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to set session status: %w", err))
	}
	return requireRow(res, "session", id)
}

// ClearItem adds one item to a session's clearing set. Clearing an already
// cleared item is a no-op.
func (q *Queries) ClearItem(ctx context.Context, sessionID int64, itemType string, itemID int64, clearedAt string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reconciliation_items (session_id, item_type, item_id, cleared_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, item_type, item_id) DO NOTHING`,
		sessionID, itemType, itemID, clearedAt)
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to clear item: %w", err))
	}
	return nil
}

// UnclearItem removes one item from a session's clearing set. Unclearing an
// item that is not cleared is a no-op.
func (q *Queries) UnclearItem(ctx context.Context, sessionID int64, itemType string, itemID int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM reconciliation_items WHERE session_id = ? AND item_type = ? AND item_id = ?`,
		sessionID, itemType, itemID)
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to unclear item: %w", err))
	}
	return nil
}

// ListClearedItems returns a session's clearing set in clearing order.
func (q *Queries) ListClearedItems(ctx context.Context, sessionID int64) ([]models.ReconciliationItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, item_type, item_id, match_id, cleared_at
		FROM reconciliation_items WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, errs.Transient("session", fmt.Errorf("failed to list cleared items: %w", err))
	}
	defer rows.Close()

	var items []models.ReconciliationItem
	for rows.Next() {
		var item models.ReconciliationItem
		var matchID sql.NullString
		if err := rows.Scan(&item.ID, &item.SessionID, &item.ItemType, &item.ItemID, &matchID, &item.ClearedAt); err != nil {
			return nil, errs.Transient("session", fmt.Errorf("failed to scan cleared item: %w", err))
		}
		if matchID.Valid {
			item.MatchID = &matchID.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("session", fmt.Errorf("failed to iterate cleared items: %w", err))
	}
	return items, nil
}

// ResetMatchIDs blanks every match id in a session ahead of a fresh
// completion.
func (q *Queries) ResetMatchIDs(ctx context.Context, sessionID int64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE reconciliation_items SET match_id = NULL WHERE session_id = ?", sessionID)
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to reset match ids: %w", err))
	}
	return nil
}

// SetMatchID stamps one cleared item with the match group it belongs to.
func (q *Queries) SetMatchID(ctx context.Context, sessionID int64, itemType string, itemID int64, matchID string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE reconciliation_items SET match_id = ?
		WHERE session_id = ? AND item_type = ? AND item_id = ?`,
		matchID, sessionID, itemType, itemID)
	if err != nil {
		return errs.Transient("session", fmt.Errorf("failed to set match id: %w", err))
	}
	return requireRow(res, "session item", itemID)
}

func scanSession(row rowScanner) (*models.ReconciliationSession, error) {
	var s models.ReconciliationSession
	var status, starting, statement string
	var completedAt sql.NullTime
	err := row.Scan(&s.ID, &s.AccountID, &s.PeriodStart, &s.PeriodEnd,
		&starting, &statement, &status, &completedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	if s.StartingBalance, err = money.Parse(starting); err != nil {
		return nil, fmt.Errorf("corrupt starting balance on session %d: %w", s.ID, err)
	}
	if s.StatementBalance, err = money.Parse(statement); err != nil {
		return nil, fmt.Errorf("corrupt statement balance on session %d: %w", s.ID, err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}
