// Package ledger is the journal poster, the only component that writes
// ledger-affecting rows. Every posting is a balanced set of debit and
// credit lines inserted atomically; posted journals are never edited,
// corrections are new reversing journals.
package ledger

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Line is one side of a posting. Exactly one of Debit or Credit must be
// positive.
type Line struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Entry is a validated journal posting.
type Entry struct {
	Date       string
	Type       string
	Memo       string
	SourceType string
	SourceID   *int64
	ReversesID *int64
	CreatedBy  string
	Lines      []Line
}

// Poster posts journals.
type Poster struct {
	store *store.Store
	audit *audit.Recorder
}

// NewPoster returns a Poster over st. rec may be nil.
func NewPoster(st *store.Store, rec *audit.Recorder) *Poster {
	return &Poster{store: st, audit: rec}
}

// Validate checks an entry against the posting rules: a valid date, at
// least two lines, exactly one positive side per line, and debits equal to
// credits within the rounding tolerance.
func Validate(e Entry) error {
	if !models.ValidDate(e.Date) {
		return errs.Validation("journal", "entry date %q is not a valid YYYY-MM-DD date", e.Date)
	}
	if len(e.Lines) < 2 {
		return errs.Validation("journal", "a journal needs at least two lines, got %d", len(e.Lines))
	}

	totalDebit, totalCredit := money.Zero, money.Zero
	for i, line := range e.Lines {
		if line.AccountID == 0 {
			return errs.Validation("journal", "line %d has no account", i+1)
		}
		debit := money.Round2(line.Debit)
		credit := money.Round2(line.Credit)
		hasDebit := debit.IsPositive()
		hasCredit := credit.IsPositive()
		if hasDebit == hasCredit {
			return errs.Validation("journal", "line %d must have exactly one of debit or credit set", i+1)
		}
		if debit.IsNegative() || credit.IsNegative() {
			return errs.Validation("journal", "line %d has a negative amount", i+1)
		}
		totalDebit = money.Add(totalDebit, debit)
		totalCredit = money.Add(totalCredit, credit)
	}

	if !money.Equal(totalDebit, totalCredit) {
		return errs.Invariant(errs.CodeUnbalancedJournal, "journal",
			"debits %s do not equal credits %s", money.String(totalDebit), money.String(totalCredit))
	}
	return nil
}

// Post validates and writes a journal in its own transaction.
func (p *Poster) Post(ctx context.Context, e Entry) (j *models.Journal, err error) {
	defer func() { p.emit(ctx, "journal.post", j, err) }()

	if err := Validate(e); err != nil {
		return nil, err
	}
	err = p.store.Tx(ctx, func(q *store.Queries) error {
		j, err = insert(ctx, q, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

// PostTx validates and writes a journal on a caller-held transaction, for
// operations that must commit a document and its journal as one unit.
func (p *Poster) PostTx(ctx context.Context, q *store.Queries, e Entry) (*models.Journal, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	return insert(ctx, q, e)
}

func insert(ctx context.Context, q *store.Queries, e Entry) (*models.Journal, error) {
	if e.Type == "" {
		e.Type = models.JournalTypeManual
	}
	j := &models.Journal{
		EntryDate:  e.Date,
		Type:       e.Type,
		Memo:       e.Memo,
		Posted:     true,
		SourceType: e.SourceType,
		SourceID:   e.SourceID,
		ReversesID: e.ReversesID,
		CreatedBy:  e.CreatedBy,
	}
	for _, line := range e.Lines {
		j.Lines = append(j.Lines, models.JournalLine{
			AccountID:   line.AccountID,
			Debit:       money.Round2(line.Debit),
			Credit:      money.Round2(line.Credit),
			Description: line.Description,
		})
	}
	if err := q.InsertJournal(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Reverse posts a new journal that mirrors journalID with debits and
// credits swapped, dated date. The reversal records which journal it
// undoes; the original is left untouched.
func (p *Poster) Reverse(ctx context.Context, journalID int64, date, memo, createdBy string) (j *models.Journal, err error) {
	defer func() { p.emit(ctx, "journal.reverse", j, err) }()

	original, err := p.store.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if memo == "" {
		memo = "reversal of journal " + strconv.FormatInt(journalID, 10)
	}

	e := Entry{
		Date:       date,
		Type:       models.JournalTypeReversal,
		Memo:       memo,
		ReversesID: &original.ID,
		CreatedBy:  createdBy,
	}
	for _, line := range original.Lines {
		e.Lines = append(e.Lines, Line{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}

	if err := Validate(e); err != nil {
		return nil, err
	}
	err = p.store.Tx(ctx, func(q *store.Queries) error {
		j, err = insert(ctx, q, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

// FromRequest converts an API posting request into a typed entry.
func FromRequest(req models.CreateJournalRequest, createdBy string) (Entry, error) {
	e := Entry{
		Date:      req.EntryDate,
		Type:      req.Type,
		Memo:      req.Memo,
		CreatedBy: createdBy,
	}
	for i, lr := range req.Lines {
		debit, err := money.Parse(lr.Debit)
		if err != nil {
			return Entry{}, errs.Validation("journal", "line %d debit: %v", i+1, err)
		}
		credit, err := money.Parse(lr.Credit)
		if err != nil {
			return Entry{}, errs.Validation("journal", "line %d credit: %v", i+1, err)
		}
		e.Lines = append(e.Lines, Line{
			AccountID:   lr.AccountID,
			Debit:       debit,
			Credit:      credit,
			Description: lr.Description,
		})
	}
	return e, nil
}

// Get returns one journal with its lines.
func (p *Poster) Get(ctx context.Context, id int64) (*models.Journal, error) {
	return p.store.GetJournal(ctx, id)
}

// List returns journal headers matching the filter.
func (p *Poster) List(ctx context.Context, f store.JournalFilter) ([]*models.Journal, error) {
	return p.store.ListJournals(ctx, f)
}

// Ledger returns posted lines joined with their headers, the account
// ledger view.
func (p *Poster) Ledger(ctx context.Context, f store.LedgerFilter) ([]models.LedgerLine, error) {
	return p.store.ListLedgerLines(ctx, f)
}

func (p *Poster) emit(ctx context.Context, action string, j *models.Journal, err error) {
	ev := audit.Event{Action: action, Entity: "journal"}
	if j != nil {
		ev.EntityID = strconv.FormatInt(j.ID, 10)
		ev.After = audit.JSON(j)
	}
	if err != nil {
		ev.Outcome = audit.OutcomeError
		ev.Detail = err.Error()
		ev.After = nil
	}
	p.audit.Record(ctx, ev)
}
