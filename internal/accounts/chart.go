package accounts

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
)

// ChartEntry is one account in a seedable chart of accounts. Parent refers
// to another entry by code and must appear earlier in the chart.
type ChartEntry struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type,omitempty"`
	Parent string `yaml:"parent,omitempty"`
}

type chartFile struct {
	Accounts []ChartEntry `yaml:"accounts"`
}

// LoadChart reads a chart of accounts from a YAML file.
func LoadChart(path string) ([]ChartEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}

	var file chartFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chart YAML: %w", err)
	}
	if len(file.Accounts) == 0 {
		return nil, fmt.Errorf("chart file %s defines no accounts", path)
	}
	return file.Accounts, nil
}

// DefaultChart is the built-in small-business chart of accounts, used when
// no chart file is configured.
func DefaultChart() []ChartEntry {
	return []ChartEntry{
		{Code: "1000", Name: "Cash and Bank", Type: "asset"},
		{Code: "1010", Name: "Business Checking", Type: "asset", Parent: "1000"},
		{Code: "1020", Name: "Business Savings", Type: "asset", Parent: "1000"},
		{Code: "1200", Name: "Accounts Receivable", Type: "asset"},
		{Code: "1500", Name: "Equipment", Type: "asset"},
		{Code: "2000", Name: "Accounts Payable", Type: "liability"},
		{Code: "2100", Name: "Credit Card", Type: "liability"},
		{Code: "2200", Name: "Sales Tax Payable", Type: "liability"},
		{Code: "3000", Name: "Owner Equity", Type: "equity"},
		{Code: "3100", Name: "Retained Earnings", Type: "equity"},
		{Code: "4000", Name: "Sales Revenue", Type: "revenue"},
		{Code: "4100", Name: "Service Revenue", Type: "revenue"},
		{Code: "5000", Name: "Cost of Goods Sold", Type: "expense"},
		{Code: "6000", Name: "Office Supplies", Type: "expense"},
		{Code: "6100", Name: "Rent", Type: "expense"},
		{Code: "6200", Name: "Utilities", Type: "expense"},
		{Code: "6300", Name: "Software and Subscriptions", Type: "expense"},
		{Code: "6400", Name: "Travel", Type: "expense"},
		{Code: "6500", Name: "Meals", Type: "expense"},
		{Code: "6600", Name: "Professional Services", Type: "expense"},
		{Code: "6700", Name: "Insurance", Type: "expense"},
		{Code: "6800", Name: "Bank Fees", Type: "expense"},
	}
}

// Seed inserts every chart entry whose code is not already present.
// Existing accounts are never overwritten, so seeding is idempotent. It
// returns the number of accounts created.
func (d *Directory) Seed(ctx context.Context, chart []ChartEntry) (created int, err error) {
	defer func() {
		ev := audit.Event{Action: "account.seed", Entity: "account", Detail: fmt.Sprintf("created %d accounts", created)}
		if err != nil {
			ev.Outcome = audit.OutcomeError
			ev.Detail = err.Error()
		}
		d.audit.Record(ctx, ev)
	}()

	if len(chart) == 0 {
		chart = DefaultChart()
	}
	for _, entry := range chart {
		if entry.Code == "" {
			return created, errs.Validation("account", "chart entry %q has no code", entry.Name)
		}
		_, err := d.store.GetAccountByCode(ctx, entry.Code)
		if err == nil {
			continue
		}
		if !errs.IsNotFound(err) {
			return created, err
		}

		req := models.CreateAccountRequest{Code: entry.Code, Name: entry.Name, Type: entry.Type}
		if entry.Parent != "" {
			parent, err := d.store.GetAccountByCode(ctx, entry.Parent)
			if err != nil {
				return created, errs.Validation("account",
					"chart entry %q names parent %q which does not exist", entry.Code, entry.Parent)
			}
			req.ParentID = &parent.ID
		}
		if _, err := d.Create(ctx, req); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
