// Package importer turns bank CSV exports into statement lines. Parsers
// are registered per bank format; the service feeds their output into the
// store, where the per-account reference key makes re-imports idempotent.
package importer

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsedTransaction is one statement line as read from a CSV, before it is
// attached to an account. Amount is signed: positive for money in,
// negative for money out.
type ParsedTransaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// Parser converts a bank CSV export into parsed transactions.
type Parser interface {
	Parse(r io.Reader) ([]ParsedTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&GenericParser{})
	return r
}
