// Package errs defines the typed error taxonomy shared by the ledger core.
// Every rejected operation carries a Kind for control flow, a stable machine
// code for API clients, and a human-readable message. Callers branch on
// kinds and codes, never on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy.
type Kind int

const (
	// KindValidation marks malformed or missing input, rejected before any write.
	KindValidation Kind = iota + 1
	// KindNotFound marks a reference to an absent entity.
	KindNotFound
	// KindInvariant marks a domain-rule violation (overpayment, unbalanced
	// journal, delete-with-children, update-on-paid-bill).
	KindInvariant
	// KindDuplicate marks a uniqueness collision.
	KindDuplicate
	// KindTransient marks a store failure that is safe to retry wholesale.
	KindTransient
)

// Stable machine codes returned to callers.
const (
	CodeValidationFailed   = "validation_failed"
	CodeNotFound           = "not_found"
	CodeDuplicateCode      = "duplicate_code"
	CodeDuplicateResource  = "duplicate_resource"
	CodeOverpayment        = "overpayment_rejected"
	CodeBillPaid           = "bill_paid"
	CodeUnbalancedJournal  = "unbalanced_journal"
	CodeAccountHasChildren = "account_has_children"
	CodeSessionState       = "session_state"
	CodeSessionImbalance   = "session_imbalanced"
	CodeMatchInvalid       = "match_invalid"
	CodeStoreUnavailable   = "store_unavailable"
)

// Error is the concrete error type carried across layer boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Entity  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error.
func Validation(entity, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidationFailed,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound builds a KindNotFound error for an entity id.
func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Entity:  entity,
		Message: fmt.Sprintf("%s %v not found", entity, id),
	}
}

// Invariant builds a KindInvariant error with a specific code.
func Invariant(code, entity, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvariant,
		Code:    code,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// Duplicate builds a KindDuplicate error with a specific code.
func Duplicate(code, entity, format string, args ...any) *Error {
	return &Error{
		Kind:    KindDuplicate,
		Code:    code,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// Transient wraps a store failure that left no partial state behind.
func Transient(entity string, err error) *Error {
	return &Error{
		Kind:    KindTransient,
		Code:    CodeStoreUnavailable,
		Entity:  entity,
		Message: "store unavailable, retry the operation",
		Err:     err,
	}
}

// KindOf extracts the Kind from an error chain; zero when untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf extracts the stable code from an error chain; empty when untyped.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
