package reconcile

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// reconFixture is one checking account with a March statement period:
// a 150.00 deposit and a 50.00 withdrawal on the bank side, the matching
// ledger lines on the book side, and noise that must stay out of the
// session (another account's transaction, an April transaction).
type reconFixture struct {
	checking     *models.Account
	other        *models.Account
	deposit      *models.BankTransaction
	withdrawal   *models.BankTransaction
	outOfPeriod  *models.BankTransaction
	foreign      *models.BankTransaction
	ledgerDebit  models.LedgerLine
	ledgerCredit models.LedgerLine
}

func newTestEngine(t *testing.T) (*Engine, *ledger.Poster, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "books.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	dir := accounts.NewDirectory(st, nil)
	poster := ledger.NewPoster(st, nil)
	return NewEngine(st, dir, nil), poster, st
}

func seedReconFixture(t *testing.T, poster *ledger.Poster, st *store.Store) reconFixture {
	t.Helper()
	ctx := context.Background()

	var f reconFixture
	f.checking = &models.Account{Code: "1010", Name: "Business Checking", Type: models.AccountTypeAsset, Active: true}
	f.other = &models.Account{Code: "1020", Name: "Savings", Type: models.AccountTypeAsset, Active: true}
	sales := &models.Account{Code: "4000", Name: "Sales Revenue", Type: models.AccountTypeRevenue, Active: true}
	rent := &models.Account{Code: "6100", Name: "Rent", Type: models.AccountTypeExpense, Active: true}
	for _, a := range []*models.Account{f.checking, f.other, sales, rent} {
		if err := st.CreateAccount(ctx, a); err != nil {
			t.Fatalf("Failed to create account %s: %v", a.Code, err)
		}
	}

	f.deposit = seedBankTxn(t, st, f.checking.ID, "2025-03-10", models.DirectionCredit, "150.00", "dep-1")
	f.withdrawal = seedBankTxn(t, st, f.checking.ID, "2025-03-15", models.DirectionDebit, "50.00", "wd-1")
	f.outOfPeriod = seedBankTxn(t, st, f.checking.ID, "2025-04-02", models.DirectionCredit, "999.00", "dep-2")
	f.foreign = seedBankTxn(t, st, f.other.ID, "2025-03-12", models.DirectionCredit, "25.00", "sav-1")

	if _, err := poster.Post(ctx, ledger.Entry{
		Date: "2025-03-10",
		Memo: "customer deposit",
		Lines: []ledger.Line{
			{AccountID: f.checking.ID, Debit: money.MustParse("150.00")},
			{AccountID: sales.ID, Credit: money.MustParse("150.00")},
		},
	}); err != nil {
		t.Fatalf("Failed to post deposit journal: %v", err)
	}
	if _, err := poster.Post(ctx, ledger.Entry{
		Date: "2025-03-15",
		Memo: "rent paid",
		Lines: []ledger.Line{
			{AccountID: rent.ID, Debit: money.MustParse("50.00")},
			{AccountID: f.checking.ID, Credit: money.MustParse("50.00")},
		},
	}); err != nil {
		t.Fatalf("Failed to post rent journal: %v", err)
	}

	lines, err := st.ListLedgerLines(ctx, store.LedgerFilter{AccountID: f.checking.ID})
	if err != nil {
		t.Fatalf("Failed to list ledger lines: %v", err)
	}
	for _, line := range lines {
		switch {
		case line.Debit.IsPositive():
			f.ledgerDebit = line
		case line.Credit.IsPositive():
			f.ledgerCredit = line
		}
	}
	if f.ledgerDebit.LineID == 0 || f.ledgerCredit.LineID == 0 {
		t.Fatal("Fixture ledger lines not found")
	}
	return f
}

func seedBankTxn(t *testing.T, st *store.Store, accountID int64, date, direction, amount, ref string) *models.BankTransaction {
	t.Helper()

	txn := &models.BankTransaction{
		AccountID: accountID,
		TxnDate:   date,
		Amount:    money.MustParse(amount),
		Direction: direction,
		Reference: ref,
	}
	if err := st.InsertBankTransaction(context.Background(), txn); err != nil {
		t.Fatalf("Failed to insert bank transaction: %v", err)
	}
	return txn
}

func marchSession(t *testing.T, e *Engine, accountID int64, statement string) *models.ReconciliationSession {
	t.Helper()

	starting := "1000.00"
	sess, err := e.CreateSession(context.Background(), models.CreateSessionRequest{
		AccountID:        accountID,
		PeriodStart:      "2025-03-01",
		PeriodEnd:        "2025-03-31",
		StartingBalance:  &starting,
		StatementBalance: statement,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return sess
}

func clear(t *testing.T, e *Engine, sessionID int64, itemType string, itemID int64) *models.SessionTotals {
	t.Helper()

	totals, err := e.Toggle(context.Background(), sessionID, models.ToggleItemRequest{
		ItemType: itemType, ItemID: itemID, Cleared: true,
	})
	if err != nil {
		t.Fatalf("Failed to clear %s %d: %v", itemType, itemID, err)
	}
	return totals
}

func TestCreateSessionValidation(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)

	tests := []struct {
		name string
		req  models.CreateSessionRequest
	}{
		{
			name: "missing account",
			req:  models.CreateSessionRequest{PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", StatementBalance: "100.00"},
		},
		{
			name: "bad period start",
			req: models.CreateSessionRequest{AccountID: f.checking.ID,
				PeriodStart: "yesterday", PeriodEnd: "2025-03-31", StatementBalance: "100.00"},
		},
		{
			name: "bad period end",
			req: models.CreateSessionRequest{AccountID: f.checking.ID,
				PeriodStart: "2025-03-01", PeriodEnd: "2025-03-32", StatementBalance: "100.00"},
		},
		{
			name: "end before start",
			req: models.CreateSessionRequest{AccountID: f.checking.ID,
				PeriodStart: "2025-03-31", PeriodEnd: "2025-03-01", StatementBalance: "100.00"},
		},
		{
			name: "bad statement balance",
			req: models.CreateSessionRequest{AccountID: f.checking.ID,
				PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", StatementBalance: "lots"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateSession(context.Background(), tt.req)
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("CreateSession() error = %v, expected a validation error", err)
			}
		})
	}

	t.Run("unknown account", func(t *testing.T) {
		_, err := e.CreateSession(context.Background(), models.CreateSessionRequest{
			AccountID: 9999, PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", StatementBalance: "100.00",
		})
		if !errs.IsNotFound(err) {
			t.Errorf("CreateSession() error = %v, expected not found", err)
		}
	})
}

func TestCreateSessionDerivedStartingBalance(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	equity := &models.Account{Code: "3000", Name: "Owner Equity", Type: models.AccountTypeEquity, Active: true}
	if err := st.CreateAccount(ctx, equity); err != nil {
		t.Fatalf("Failed to create equity account: %v", err)
	}
	// February activity counts toward the opening balance; activity on the
	// period start itself belongs to the statement period.
	for _, day := range []string{"2025-02-20", "2025-03-01"} {
		if _, err := poster.Post(ctx, ledger.Entry{
			Date: day,
			Memo: "funding",
			Lines: []ledger.Line{
				{AccountID: f.checking.ID, Debit: money.MustParse("1000.00")},
				{AccountID: equity.ID, Credit: money.MustParse("1000.00")},
			},
		}); err != nil {
			t.Fatalf("Failed to post funding journal: %v", err)
		}
	}

	sess, err := e.CreateSession(ctx, models.CreateSessionRequest{
		AccountID:        f.checking.ID,
		PeriodStart:      "2025-03-01",
		PeriodEnd:        "2025-03-31",
		StatementBalance: "2100.00",
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if sess.Status != models.SessionStatusDraft {
		t.Errorf("Status = %q, expected draft", sess.Status)
	}
	if money.String(sess.StartingBalance) != "1000.00" {
		t.Errorf("StartingBalance = %s, expected 1000.00 from the books", money.String(sess.StartingBalance))
	}
}

func TestToggleAndTotals(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")

	totals := clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	if money.String(totals.ClearedCredits) != "150.00" {
		t.Errorf("ClearedCredits = %s, expected 150.00", money.String(totals.ClearedCredits))
	}
	if money.String(totals.EndingBalance) != "1150.00" {
		t.Errorf("EndingBalance = %s, expected 1150.00", money.String(totals.EndingBalance))
	}
	if money.String(totals.Difference) != "-50.00" || totals.Balanced {
		t.Errorf("Difference = %s balanced=%v, expected -50.00 and not balanced",
			money.String(totals.Difference), totals.Balanced)
	}

	// The first toggle moves the fresh draft along.
	got, err := e.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if got.Status != models.SessionStatusDraftPartial {
		t.Errorf("Status = %q, expected draft_partial after the first toggle", got.Status)
	}

	totals = clear(t, e, sess.ID, models.ItemTypeBank, f.withdrawal.ID)
	if money.String(totals.NetCleared) != "100.00" {
		t.Errorf("NetCleared = %s, expected 100.00", money.String(totals.NetCleared))
	}
	if !totals.Balanced {
		t.Errorf("Expected session balanced, difference = %s", money.String(totals.Difference))
	}

	// Ledger items join the clearing set without moving the bank-side
	// arithmetic.
	totals = clear(t, e, sess.ID, models.ItemTypeLedger, f.ledgerDebit.LineID)
	if money.String(totals.NetCleared) != "100.00" {
		t.Errorf("NetCleared = %s after clearing a ledger item, expected 100.00", money.String(totals.NetCleared))
	}
	items, err := e.ClearedItems(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to list cleared items: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("Expected 3 cleared items, got %d", len(items))
	}

	// Clearing twice is a no-op; unclearing removes.
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	items, _ = e.ClearedItems(ctx, sess.ID)
	if len(items) != 3 {
		t.Errorf("Expected clearing to be idempotent, got %d items", len(items))
	}
	if _, err := e.Toggle(ctx, sess.ID, models.ToggleItemRequest{
		ItemType: models.ItemTypeLedger, ItemID: f.ledgerDebit.LineID, Cleared: false,
	}); err != nil {
		t.Fatalf("Failed to unclear: %v", err)
	}
	items, _ = e.ClearedItems(ctx, sess.ID)
	if len(items) != 2 {
		t.Errorf("Expected 2 cleared items after unclearing, got %d", len(items))
	}
}

func TestToggleRejectsStrayItems(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")

	tests := []struct {
		name string
		req  models.ToggleItemRequest
	}{
		{
			name: "bank item outside the period",
			req:  models.ToggleItemRequest{ItemType: models.ItemTypeBank, ItemID: f.outOfPeriod.ID, Cleared: true},
		},
		{
			name: "bank item on another account",
			req:  models.ToggleItemRequest{ItemType: models.ItemTypeBank, ItemID: f.foreign.ID, Cleared: true},
		},
		{
			name: "unknown item type",
			req:  models.ToggleItemRequest{ItemType: "receipt", ItemID: f.deposit.ID, Cleared: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Toggle(ctx, sess.ID, tt.req)
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("Toggle() error = %v, expected a validation error", err)
			}
		})
	}

	t.Run("unknown bank item", func(t *testing.T) {
		_, err := e.Toggle(ctx, sess.ID, models.ToggleItemRequest{
			ItemType: models.ItemTypeBank, ItemID: 9999, Cleared: true,
		})
		if !errs.IsNotFound(err) {
			t.Errorf("Toggle() error = %v, expected not found", err)
		}
	})
}

func TestUpdateDetails(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	clear(t, e, sess.ID, models.ItemTypeBank, f.withdrawal.ID)

	statement := "1150.00"
	updated, err := e.UpdateDetails(ctx, sess.ID, models.UpdateSessionRequest{StatementBalance: &statement})
	if err != nil {
		t.Fatalf("Failed to update session: %v", err)
	}
	if money.String(updated.StatementBalance) != "1150.00" {
		t.Errorf("StatementBalance = %s, expected 1150.00", money.String(updated.StatementBalance))
	}

	totals, err := e.Totals(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to compute totals: %v", err)
	}
	if money.String(totals.Difference) != "50.00" || totals.Balanced {
		t.Errorf("Difference = %s balanced=%v, expected 50.00 after the statement moved",
			money.String(totals.Difference), totals.Balanced)
	}

	badEnd := "2025-02-01"
	if _, err := e.UpdateDetails(ctx, sess.ID, models.UpdateSessionRequest{PeriodEnd: &badEnd}); errs.KindOf(err) != errs.KindValidation {
		t.Errorf("UpdateDetails() error = %v, expected a validation error for end before start", err)
	}
}

func TestCompleteRequiresBalance(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)

	_, err := e.Complete(ctx, sess.ID, models.CompleteSessionRequest{})
	if errs.KindOf(err) != errs.KindInvariant {
		t.Fatalf("Complete() error = %v, expected an invariant violation", err)
	}
	if errs.CodeOf(err) != errs.CodeSessionImbalance {
		t.Errorf("Code = %q, expected %q", errs.CodeOf(err), errs.CodeSessionImbalance)
	}

	// A failed completion leaves the session editable.
	got, err := e.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if got.Status != models.SessionStatusDraftPartial {
		t.Errorf("Status = %q, expected draft_partial after the failed completion", got.Status)
	}

	completed, err := e.Complete(ctx, sess.ID, models.CompleteSessionRequest{AllowImbalance: true})
	if err != nil {
		t.Fatalf("Failed to complete with allow_imbalance: %v", err)
	}
	if completed.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q, expected completed", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("Expected completed_at to be stamped")
	}
}

func TestCompleteWithMatches(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	clear(t, e, sess.ID, models.ItemTypeBank, f.withdrawal.ID)
	clear(t, e, sess.ID, models.ItemTypeLedger, f.ledgerDebit.LineID)
	clear(t, e, sess.ID, models.ItemTypeLedger, f.ledgerCredit.LineID)

	completed, err := e.Complete(ctx, sess.ID, models.CompleteSessionRequest{
		Matches: []models.MatchGroup{
			{BankIDs: []int64{f.deposit.ID}, LedgerIDs: []int64{f.ledgerDebit.LineID}},
			{BankIDs: []int64{f.withdrawal.ID}, LedgerIDs: []int64{f.ledgerCredit.LineID}},
		},
	})
	if err != nil {
		t.Fatalf("Failed to complete session: %v", err)
	}
	if completed.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q, expected completed", completed.Status)
	}

	items, err := e.ClearedItems(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to list cleared items: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Expected 4 cleared items, got %d", len(items))
	}

	matchOf := make(map[string]string)
	for _, item := range items {
		if item.MatchID == nil {
			t.Fatalf("Item %s %d has no match id", item.ItemType, item.ItemID)
		}
		key := item.ItemType + ":" + itoa(item.ItemID)
		matchOf[key] = *item.MatchID
	}
	depositKey := models.ItemTypeBank + ":" + itoa(f.deposit.ID)
	debitKey := models.ItemTypeLedger + ":" + itoa(f.ledgerDebit.LineID)
	withdrawalKey := models.ItemTypeBank + ":" + itoa(f.withdrawal.ID)
	if matchOf[depositKey] != matchOf[debitKey] {
		t.Error("Expected the deposit and its ledger debit to share a match id")
	}
	if matchOf[depositKey] == matchOf[withdrawalKey] {
		t.Error("Expected the two match groups to carry distinct ids")
	}
}

func TestCompleteMatchValidation(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	clear(t, e, sess.ID, models.ItemTypeLedger, f.ledgerDebit.LineID)
	clear(t, e, sess.ID, models.ItemTypeLedger, f.ledgerCredit.LineID)

	tests := []struct {
		name string
		req  models.CompleteSessionRequest
	}{
		{
			name: "group missing its ledger side",
			req: models.CompleteSessionRequest{AllowImbalance: true,
				Matches: []models.MatchGroup{{BankIDs: []int64{f.deposit.ID}}}},
		},
		{
			name: "group references an uncleared bank item",
			req: models.CompleteSessionRequest{AllowImbalance: true,
				Matches: []models.MatchGroup{
					{BankIDs: []int64{f.withdrawal.ID}, LedgerIDs: []int64{f.ledgerCredit.LineID}},
				}},
		},
		{
			name: "group does not net to zero",
			req: models.CompleteSessionRequest{AllowImbalance: true,
				Matches: []models.MatchGroup{
					{BankIDs: []int64{f.deposit.ID}, LedgerIDs: []int64{f.ledgerCredit.LineID}},
				}},
		},
		{
			name: "matches do not cover every cleared item",
			req: models.CompleteSessionRequest{AllowImbalance: true,
				Matches: []models.MatchGroup{
					{BankIDs: []int64{f.deposit.ID}, LedgerIDs: []int64{f.ledgerDebit.LineID}},
				}},
		},
		{
			name: "cleared item listed as unreconciled",
			req: models.CompleteSessionRequest{AllowImbalance: true,
				UnreconciledBankIDs: []int64{f.deposit.ID},
				Matches: []models.MatchGroup{
					{BankIDs: []int64{f.deposit.ID}, LedgerIDs: []int64{f.ledgerDebit.LineID}},
				}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Complete(ctx, sess.ID, tt.req)
			if errs.CodeOf(err) != errs.CodeMatchInvalid {
				t.Errorf("Complete() error = %v, expected %q", err, errs.CodeMatchInvalid)
			}
		})
	}

	// None of the failed attempts may have completed the session.
	got, err := e.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if got.Status != models.SessionStatusDraftPartial {
		t.Errorf("Status = %q, expected still draft_partial", got.Status)
	}
}

func TestReopenKeepsClearingSet(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)
	clear(t, e, sess.ID, models.ItemTypeBank, f.withdrawal.ID)
	if _, err := e.Complete(ctx, sess.ID, models.CompleteSessionRequest{}); err != nil {
		t.Fatalf("Failed to complete session: %v", err)
	}

	// Completed sessions are read-only until reopened.
	_, err := e.Toggle(ctx, sess.ID, models.ToggleItemRequest{
		ItemType: models.ItemTypeBank, ItemID: f.deposit.ID, Cleared: false,
	})
	if errs.CodeOf(err) != errs.CodeSessionState {
		t.Errorf("Toggle on completed session error = %v, expected %q", err, errs.CodeSessionState)
	}

	reopened, err := e.Reopen(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to reopen session: %v", err)
	}
	if reopened.Status != models.SessionStatusReopened {
		t.Errorf("Status = %q, expected reopened", reopened.Status)
	}

	// The clearing set persisted at completion is the working set again.
	items, err := e.ClearedItems(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to list cleared items: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected the clearing set preserved across reopen, got %d items", len(items))
	}

	totals, err := e.Toggle(ctx, sess.ID, models.ToggleItemRequest{
		ItemType: models.ItemTypeBank, ItemID: f.deposit.ID, Cleared: false,
	})
	if err != nil {
		t.Fatalf("Failed to toggle on reopened session: %v", err)
	}
	if money.String(totals.ClearedCredits) != "0.00" {
		t.Errorf("ClearedCredits = %s after unclearing the deposit, expected 0.00", money.String(totals.ClearedCredits))
	}

	// Only completed sessions reopen.
	if _, err := e.Reopen(ctx, sess.ID); errs.CodeOf(err) != errs.CodeSessionState {
		t.Errorf("Reopen on reopened session error = %v, expected %q", err, errs.CodeSessionState)
	}
}

func TestCandidates(t *testing.T) {
	e, poster, st := newTestEngine(t)
	f := seedReconFixture(t, poster, st)
	ctx := context.Background()

	sess := marchSession(t, e, f.checking.ID, "1100.00")
	clear(t, e, sess.ID, models.ItemTypeBank, f.deposit.ID)

	c, err := e.Candidates(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to load candidates: %v", err)
	}
	if c.Session.ID != sess.ID {
		t.Errorf("Session.ID = %d, expected %d", c.Session.ID, sess.ID)
	}
	// Only the account's in-period items qualify.
	if len(c.BankItems) != 2 {
		t.Errorf("Expected 2 bank items, got %d", len(c.BankItems))
	}
	for _, item := range c.BankItems {
		if item.ID == f.outOfPeriod.ID || item.ID == f.foreign.ID {
			t.Errorf("Bank item %d should not be a candidate", item.ID)
		}
	}
	if len(c.LedgerItems) != 2 {
		t.Errorf("Expected 2 ledger items, got %d", len(c.LedgerItems))
	}
	if len(c.Cleared) != 1 {
		t.Errorf("Expected 1 cleared item, got %d", len(c.Cleared))
	}
	if money.String(c.Totals.ClearedCredits) != "150.00" {
		t.Errorf("Totals.ClearedCredits = %s, expected 150.00", money.String(c.Totals.ClearedCredits))
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
