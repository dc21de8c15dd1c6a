package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smallbooks/bookkeeper/internal/models"
)

// GenericParser parses the plain date,description,amount,reference layout
// used when a bank has no dedicated parser. Dates are YYYY-MM-DD, amounts
// signed, and the reference column may be blank.
type GenericParser struct{}

const genericNumFields = 4

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic CSV, skipping the header row.
func (p *GenericParser) Parse(r io.Reader) ([]ParsedTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = genericNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading generic CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	seen := make(map[string]int)
	var txns []ParsedTransaction
	for i, rec := range records[1:] {
		txn, err := parseGenericRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if txn.Reference != "" {
			txn.Reference = dedupeRef(seen, txn.Reference)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseGenericRow(rec []string) (ParsedTransaction, error) {
	date, err := time.Parse(models.DateLayout, rec[0])
	if err != nil {
		return ParsedTransaction{}, fmt.Errorf("parsing date %q: %w", rec[0], err)
	}

	amount, err := decimal.NewFromString(rec[2])
	if err != nil {
		return ParsedTransaction{}, fmt.Errorf("parsing amount %q: %w", rec[2], err)
	}

	return ParsedTransaction{
		Date:        date.Format(models.DateLayout),
		Description: rec[1],
		Amount:      amount,
		Reference:   rec[3],
	}, nil
}
