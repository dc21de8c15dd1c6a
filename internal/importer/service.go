package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Result summarizes one import run.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Service parses statement files and stores their lines.
type Service struct {
	store    *store.Store
	registry *Registry
	audit    *audit.Recorder
}

// NewService returns a Service over st using the given parser registry
// (DefaultRegistry when nil). rec may be nil.
func NewService(st *store.Store, registry *Registry, rec *audit.Recorder) *Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Service{store: st, registry: registry, audit: rec}
}

// Import parses r in the named format and records each line against the
// account. Lines whose reference is already on file for the account are
// skipped, so importing the same export twice changes nothing.
func (s *Service) Import(ctx context.Context, accountID int64, format string, r io.Reader) (res *Result, err error) {
	defer func() {
		ev := audit.Event{Action: "bank.import", Entity: "bank transaction", EntityID: strconv.FormatInt(accountID, 10)}
		if res != nil {
			ev.Detail = fmt.Sprintf("format=%s imported=%d skipped=%d", format, res.Imported, res.Skipped)
		}
		if err != nil {
			ev.Outcome = audit.OutcomeError
			ev.Detail = err.Error()
		}
		s.audit.Record(ctx, ev)
	}()

	parser := s.registry.Get(format)
	if parser == nil {
		return nil, errs.Validation("bank transaction",
			"unknown import format %q (have %s)", format, strings.Join(s.registry.Formats(), ", "))
	}

	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Deleted {
		return nil, errs.NotFound("account", accountID)
	}

	parsed, err := parser.Parse(r)
	if err != nil {
		return nil, errs.Validation("bank transaction", "parse failed: %v", err)
	}

	result := &Result{}
	for _, pt := range parsed {
		txn := toBankTransaction(acc.ID, pt)
		if err := s.store.InsertBankTransaction(ctx, txn); err != nil {
			if errs.KindOf(err) == errs.KindDuplicate {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Imported++
	}
	return result, nil
}

// Add records a single statement line entered by hand rather than parsed
// from a file. The same duplicate-reference rule applies as for imports.
func (s *Service) Add(ctx context.Context, req models.CreateBankTransactionRequest) (txn *models.BankTransaction, err error) {
	defer func() {
		ev := audit.Event{Action: "bank.add", Entity: "bank transaction"}
		if txn != nil {
			ev.EntityID = strconv.FormatInt(txn.ID, 10)
			ev.After = audit.JSON(txn)
		}
		if err != nil {
			ev.Outcome = audit.OutcomeError
			ev.Detail = err.Error()
		}
		s.audit.Record(ctx, ev)
	}()

	if !models.ValidDate(req.TxnDate) {
		return nil, errs.Validation("bank transaction", "txn_date must be a valid YYYY-MM-DD date, got %q", req.TxnDate)
	}
	if req.Direction != models.DirectionCredit && req.Direction != models.DirectionDebit {
		return nil, errs.Validation("bank transaction", "direction must be %q or %q, got %q",
			models.DirectionCredit, models.DirectionDebit, req.Direction)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, errs.Validation("bank transaction", "invalid amount %q", req.Amount)
	}
	if !amount.IsPositive() {
		return nil, errs.Validation("bank transaction", "amount must be positive, got %s", money.String(amount))
	}

	acc, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if acc.Deleted {
		return nil, errs.NotFound("account", req.AccountID)
	}

	t := &models.BankTransaction{
		AccountID:   acc.ID,
		TxnDate:     req.TxnDate,
		Description: req.Description,
		Amount:      money.Round2(amount),
		Direction:   req.Direction,
		Reference:   req.Reference,
	}
	if err := s.store.InsertBankTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// toBankTransaction attaches a parsed line to an account, folding the
// signed amount into an absolute amount plus direction.
func toBankTransaction(accountID int64, pt ParsedTransaction) *models.BankTransaction {
	direction := models.DirectionCredit
	amount := pt.Amount
	if amount.IsNegative() {
		direction = models.DirectionDebit
		amount = amount.Neg()
	}
	return &models.BankTransaction{
		AccountID:   accountID,
		TxnDate:     pt.Date,
		Description: pt.Description,
		Amount:      money.Round2(amount),
		Direction:   direction,
		Reference:   pt.Reference,
	}
}
