// Package reconcile drives bank reconciliation sessions: one account and
// one statement period, a working set of cleared bank and ledger items, a
// running difference, and a lifecycle that completes into a permanent
// record and can reopen without losing it.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Engine manages reconciliation sessions.
type Engine struct {
	store *store.Store
	dir   *accounts.Directory
	audit *audit.Recorder
}

// NewEngine returns an Engine over st. rec may be nil.
func NewEngine(st *store.Store, dir *accounts.Directory, rec *audit.Recorder) *Engine {
	return &Engine{store: st, dir: dir, audit: rec}
}

// CreateSession opens a session for one account and statement period. When
// no starting balance is supplied, the account's book balance as of the
// period start is used.
func (e *Engine) CreateSession(ctx context.Context, req models.CreateSessionRequest) (s *models.ReconciliationSession, err error) {
	defer func() { e.emit(ctx, "session.create", sessionID(s), nil, audit.JSON(s), err) }()

	if req.AccountID == 0 {
		return nil, errs.Validation("session", "account_id is required")
	}
	if !models.ValidDate(req.PeriodStart) {
		return nil, errs.Validation("session", "period_start %q is not a valid YYYY-MM-DD date", req.PeriodStart)
	}
	if !models.ValidDate(req.PeriodEnd) {
		return nil, errs.Validation("session", "period_end %q is not a valid YYYY-MM-DD date", req.PeriodEnd)
	}
	if req.PeriodEnd < req.PeriodStart {
		return nil, errs.Validation("session", "period_end %s is before period_start %s", req.PeriodEnd, req.PeriodStart)
	}
	statement, err := money.Parse(req.StatementBalance)
	if err != nil {
		return nil, errs.Validation("session", "statement_balance: %v", err)
	}

	acc, err := e.dir.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if acc.Deleted {
		return nil, errs.NotFound("account", req.AccountID)
	}

	starting := money.Zero
	if req.StartingBalance != nil {
		if starting, err = money.Parse(*req.StartingBalance); err != nil {
			return nil, errs.Validation("session", "starting_balance: %v", err)
		}
		starting = money.Round2(starting)
	} else {
		if starting, err = e.dir.BalanceBefore(ctx, acc.ID, req.PeriodStart); err != nil {
			return nil, err
		}
	}

	sess := &models.ReconciliationSession{
		AccountID:        acc.ID,
		PeriodStart:      req.PeriodStart,
		PeriodEnd:        req.PeriodEnd,
		StartingBalance:  starting,
		StatementBalance: money.Round2(statement),
		Status:           models.SessionStatusDraft,
	}
	if err := e.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns one session.
func (e *Engine) GetSession(ctx context.Context, id int64) (*models.ReconciliationSession, error) {
	return e.store.GetSession(ctx, id)
}

// ListSessions returns sessions, optionally for one account.
func (e *Engine) ListSessions(ctx context.Context, accountID int64) ([]*models.ReconciliationSession, error) {
	return e.store.ListSessions(ctx, accountID)
}

// UpdateDetails patches the statement period end and balance of a session
// that is still editable. The clearing set is untouched.
func (e *Engine) UpdateDetails(ctx context.Context, id int64, req models.UpdateSessionRequest) (s *models.ReconciliationSession, err error) {
	var before json.RawMessage
	defer func() { e.emit(ctx, "session.update", strconv.FormatInt(id, 10), before, audit.JSON(s), err) }()

	sess, err := e.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	before = audit.JSON(sess)

	if req.PeriodEnd != nil {
		if !models.ValidDate(*req.PeriodEnd) {
			return nil, errs.Validation("session", "period_end %q is not a valid YYYY-MM-DD date", *req.PeriodEnd)
		}
		if *req.PeriodEnd < sess.PeriodStart {
			return nil, errs.Validation("session", "period_end %s is before period_start %s", *req.PeriodEnd, sess.PeriodStart)
		}
		sess.PeriodEnd = *req.PeriodEnd
	}
	if req.StatementBalance != nil {
		statement, err := money.Parse(*req.StatementBalance)
		if err != nil {
			return nil, errs.Validation("session", "statement_balance: %v", err)
		}
		sess.StatementBalance = money.Round2(statement)
	}

	if err := e.store.UpdateSessionDetails(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Toggle clears or unclears one item in a session's working set and
// returns the recomputed totals. Toggling is session state only; no ledger
// rows are written. The first toggle moves a fresh draft to draft-partial.
func (e *Engine) Toggle(ctx context.Context, id int64, req models.ToggleItemRequest) (totals *models.SessionTotals, err error) {
	defer func() {
		detail := fmt.Sprintf("%s %d cleared=%t", req.ItemType, req.ItemID, req.Cleared)
		e.emitDetail(ctx, "session.toggle", strconv.FormatInt(id, 10), detail, err)
	}()

	sess, err := e.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkItem(ctx, sess, req.ItemType, req.ItemID); err != nil {
		return nil, err
	}

	if req.Cleared {
		clearedAt := time.Now().UTC().Format(time.RFC3339)
		err = e.store.ClearItem(ctx, sess.ID, req.ItemType, req.ItemID, clearedAt)
	} else {
		err = e.store.UnclearItem(ctx, sess.ID, req.ItemType, req.ItemID)
	}
	if err != nil {
		return nil, err
	}

	if sess.Status == models.SessionStatusDraft {
		if err := e.store.SetSessionStatus(ctx, sess.ID, models.SessionStatusDraftPartial); err != nil {
			return nil, err
		}
		sess.Status = models.SessionStatusDraftPartial
	}

	t, err := e.totals(ctx, sess)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Totals returns the session's running arithmetic over its cleared bank
// items.
func (e *Engine) Totals(ctx context.Context, id int64) (*models.SessionTotals, error) {
	sess, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.totals(ctx, sess)
}

// Candidates returns everything a reconciliation screen needs: the
// session, its in-period bank and ledger items, the clearing set, and the
// totals.
func (e *Engine) Candidates(ctx context.Context, id int64) (*models.SessionCandidates, error) {
	sess, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	bank, err := e.store.ListBankTransactions(ctx, store.BankTxnFilter{
		AccountID: sess.AccountID, From: sess.PeriodStart, To: sess.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}
	ledgerLines, err := e.store.ListLedgerLines(ctx, store.LedgerFilter{
		AccountID: sess.AccountID, From: sess.PeriodStart, To: sess.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}
	cleared, err := e.store.ListClearedItems(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(sess, clearedBankItems(bank, cleared))
	return &models.SessionCandidates{
		Session:     *sess,
		BankItems:   bank,
		LedgerItems: ledgerLines,
		Cleared:     cleared,
		Totals:      totals,
	}, nil
}

// Complete transitions an editable session to completed. Supplied matches
// must partition the cleared items into groups that each net to zero, with
// the unreconciled lists naming what stayed uncleared. An out-of-balance
// session completes only when the caller explicitly allows it. The clearing
// set and match ids become the session's permanent record.
func (e *Engine) Complete(ctx context.Context, id int64, req models.CompleteSessionRequest) (s *models.ReconciliationSession, err error) {
	var before json.RawMessage
	defer func() { e.emit(ctx, "session.complete", strconv.FormatInt(id, 10), before, audit.JSON(s), err) }()

	sess, err := e.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	before = audit.JSON(sess)

	cleared, err := e.store.ListClearedItems(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	totals, err := e.totals(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !totals.Balanced && !req.AllowImbalance {
		return nil, errs.Invariant(errs.CodeSessionImbalance, "session",
			"session %d is out of balance by %s; set allow_imbalance to complete anyway",
			sess.ID, money.String(totals.Difference))
	}

	if len(req.Matches) > 0 {
		if err := e.validateMatches(ctx, sess, cleared, req); err != nil {
			return nil, err
		}
	}

	err = e.store.Tx(ctx, func(q *store.Queries) error {
		if err := q.ResetMatchIDs(ctx, sess.ID); err != nil {
			return err
		}
		for _, group := range req.Matches {
			matchID := uuid.NewString()
			for _, bankID := range group.BankIDs {
				if err := q.SetMatchID(ctx, sess.ID, models.ItemTypeBank, bankID, matchID); err != nil {
					return err
				}
			}
			for _, ledgerID := range group.LedgerIDs {
				if err := q.SetMatchID(ctx, sess.ID, models.ItemTypeLedger, ledgerID, matchID); err != nil {
					return err
				}
			}
		}
		return q.SetSessionStatus(ctx, sess.ID, models.SessionStatusCompleted)
	})
	if err != nil {
		return nil, err
	}
	return e.store.GetSession(ctx, sess.ID)
}

// Reopen transitions a completed session back to an editable state. The
// clearing set persisted at completion comes back as the working set, so
// reconciliation resumes where it left off.
func (e *Engine) Reopen(ctx context.Context, id int64) (s *models.ReconciliationSession, err error) {
	var before json.RawMessage
	defer func() { e.emit(ctx, "session.reopen", strconv.FormatInt(id, 10), before, audit.JSON(s), err) }()

	sess, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionStatusCompleted {
		return nil, errs.Invariant(errs.CodeSessionState, "session",
			"session %d is %s; only completed sessions reopen", id, sess.Status)
	}
	before = audit.JSON(sess)

	if err := e.store.SetSessionStatus(ctx, sess.ID, models.SessionStatusReopened); err != nil {
		return nil, err
	}
	return e.store.GetSession(ctx, sess.ID)
}

// ClearedItems returns the session's clearing set.
func (e *Engine) ClearedItems(ctx context.Context, id int64) ([]models.ReconciliationItem, error) {
	if _, err := e.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListClearedItems(ctx, id)
}

// editable loads a session and rejects edits on completed ones.
func (e *Engine) editable(ctx context.Context, id int64) (*models.ReconciliationSession, error) {
	sess, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Status.Editable() {
		return nil, errs.Invariant(errs.CodeSessionState, "session",
			"session %d is completed; reopen it before editing", id)
	}
	return sess, nil
}

// checkItem verifies a toggled item exists, belongs to the session's
// account, and falls inside the statement period.
func (e *Engine) checkItem(ctx context.Context, sess *models.ReconciliationSession, itemType string, itemID int64) error {
	switch itemType {
	case models.ItemTypeBank:
		t, err := e.store.GetBankTransaction(ctx, itemID)
		if err != nil {
			return err
		}
		if t.AccountID != sess.AccountID {
			return errs.Validation("session", "bank transaction %d belongs to another account", itemID)
		}
		if t.TxnDate < sess.PeriodStart || t.TxnDate > sess.PeriodEnd {
			return errs.Validation("session", "bank transaction %d is outside the statement period", itemID)
		}
	case models.ItemTypeLedger:
		line, err := e.store.GetLedgerLine(ctx, itemID)
		if err != nil {
			return err
		}
		if line.AccountID != sess.AccountID {
			return errs.Validation("session", "ledger line %d belongs to another account", itemID)
		}
		if line.EntryDate < sess.PeriodStart || line.EntryDate > sess.PeriodEnd {
			return errs.Validation("session", "ledger line %d is outside the statement period", itemID)
		}
	default:
		return errs.Validation("session", "item_type must be %q or %q", models.ItemTypeBank, models.ItemTypeLedger)
	}
	return nil
}

// validateMatches checks that the supplied groups partition the cleared
// set, that the unreconciled lists stay out of it, and that every group
// nets to zero.
func (e *Engine) validateMatches(ctx context.Context, sess *models.ReconciliationSession, cleared []models.ReconciliationItem, req models.CompleteSessionRequest) error {
	clearedBank := make(map[int64]bool)
	clearedLedger := make(map[int64]bool)
	for _, item := range cleared {
		switch item.ItemType {
		case models.ItemTypeBank:
			clearedBank[item.ItemID] = true
		case models.ItemTypeLedger:
			clearedLedger[item.ItemID] = true
		}
	}

	for _, bankID := range req.UnreconciledBankIDs {
		if clearedBank[bankID] {
			return errs.Invariant(errs.CodeMatchInvalid, "session",
				"bank transaction %d is cleared but listed as unreconciled", bankID)
		}
	}
	for _, ledgerID := range req.UnreconciledLedgerIDs {
		if clearedLedger[ledgerID] {
			return errs.Invariant(errs.CodeMatchInvalid, "session",
				"ledger line %d is cleared but listed as unreconciled", ledgerID)
		}
	}

	seenBank := make(map[int64]bool)
	seenLedger := make(map[int64]bool)
	for i, group := range req.Matches {
		if len(group.BankIDs) == 0 || len(group.LedgerIDs) == 0 {
			return errs.Invariant(errs.CodeMatchInvalid, "session",
				"match %d must pair at least one bank transaction with at least one ledger line", i+1)
		}

		net := money.Zero
		for _, bankID := range group.BankIDs {
			if !clearedBank[bankID] {
				return errs.Invariant(errs.CodeMatchInvalid, "session",
					"match %d references bank transaction %d which is not cleared", i+1, bankID)
			}
			if seenBank[bankID] {
				return errs.Invariant(errs.CodeMatchInvalid, "session",
					"bank transaction %d appears in more than one match", bankID)
			}
			seenBank[bankID] = true

			t, err := e.store.GetBankTransaction(ctx, bankID)
			if err != nil {
				return err
			}
			net = money.Add(net, signedBank(t))
		}
		for _, ledgerID := range group.LedgerIDs {
			if !clearedLedger[ledgerID] {
				return errs.Invariant(errs.CodeMatchInvalid, "session",
					"match %d references ledger line %d which is not cleared", i+1, ledgerID)
			}
			if seenLedger[ledgerID] {
				return errs.Invariant(errs.CodeMatchInvalid, "session",
					"ledger line %d appears in more than one match", ledgerID)
			}
			seenLedger[ledgerID] = true

			line, err := e.store.GetLedgerLine(ctx, ledgerID)
			if err != nil {
				return err
			}
			net = money.Add(net, signedLedger(line))
		}

		if !money.IsZero(net) {
			return errs.Invariant(errs.CodeMatchInvalid, "session",
				"match %d nets to %s, not zero", i+1, money.String(net))
		}
	}

	if len(seenBank) != len(clearedBank) || len(seenLedger) != len(clearedLedger) {
		return errs.Invariant(errs.CodeMatchInvalid, "session",
			"matches must cover every cleared item exactly once")
	}
	return nil
}

func (e *Engine) totals(ctx context.Context, sess *models.ReconciliationSession) (*models.SessionTotals, error) {
	bank, err := e.store.ListBankTransactions(ctx, store.BankTxnFilter{
		AccountID: sess.AccountID, From: sess.PeriodStart, To: sess.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}
	cleared, err := e.store.ListClearedItems(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	t := ComputeTotals(sess, clearedBankItems(bank, cleared))
	return &t, nil
}

// clearedBankItems filters the in-period bank items down to the cleared
// ones.
func clearedBankItems(bank []models.BankTransaction, cleared []models.ReconciliationItem) []models.BankTransaction {
	ids := make(map[int64]bool)
	for _, item := range cleared {
		if item.ItemType == models.ItemTypeBank {
			ids[item.ItemID] = true
		}
	}
	var out []models.BankTransaction
	for _, t := range bank {
		if ids[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func (e *Engine) emit(ctx context.Context, action, entityID string, before, after json.RawMessage, err error) {
	ev := audit.Event{Action: action, Entity: "session", EntityID: entityID, Before: before, After: after}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
		ev.After = nil
	}
	e.audit.Record(ctx, ev)
}

func (e *Engine) emitDetail(ctx context.Context, action, entityID, detail string, err error) {
	ev := audit.Event{Action: action, Entity: "session", EntityID: entityID, Detail: detail}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
	}
	e.audit.Record(ctx, ev)
}

func sessionID(s *models.ReconciliationSession) string {
	if s == nil {
		return ""
	}
	return strconv.FormatInt(s.ID, 10)
}
