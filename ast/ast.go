// Package ast declares the value types used to represent ledger directives.
//
// These types model the statements that make up a ledger: account lifecycle
// directives, transactions with their postings, balance assertions, prices,
// budgets and the undated configuration directives. Directives are produced
// by one of the dialect codecs (codec/text, codec/beancount) or constructed
// programmatically for appending back into the source files.
package ast

import (
	"golang.org/x/exp/slices"
)

// DirectiveKind identifies a directive variant for handler dispatch.
type DirectiveKind string

const (
	KindOption         DirectiveKind = "option"
	KindInclude        DirectiveKind = "include"
	KindPlugin         DirectiveKind = "plugin"
	KindComment        DirectiveKind = "comment"
	KindOpen           DirectiveKind = "open"
	KindClose          DirectiveKind = "close"
	KindCommodity      DirectiveKind = "commodity"
	KindTransaction    DirectiveKind = "transaction"
	KindBalanceCheck   DirectiveKind = "balance_check"
	KindBalancePad     DirectiveKind = "balance_pad"
	KindNote           DirectiveKind = "note"
	KindDocument       DirectiveKind = "document"
	KindPrice          DirectiveKind = "price"
	KindEvent          DirectiveKind = "event"
	KindCustom         DirectiveKind = "custom"
	KindBudget         DirectiveKind = "budget"
	KindBudgetAdd      DirectiveKind = "budget_add"
	KindBudgetTransfer DirectiveKind = "budget_transfer"
	KindBudgetClose    DirectiveKind = "budget_close"
)

// Directive is the interface implemented by all directive types.
type Directive interface {
	// Kind returns the directive variant used for handler dispatch.
	Kind() DirectiveKind

	// GetDate returns the directive's date, or nil for undated directives
	// (options, includes, plugins, comments).
	GetDate() *Date
}

// WithMeta is implemented by directives that carry a metadata multi-map.
type WithMeta interface {
	GetMeta() *Meta
}

// Spanned pairs a directive with the source span it was parsed from.
type Spanned struct {
	Directive Directive
	Span      SpanInfo
}

// NewSpanned wraps a directive with its span.
func NewSpanned(d Directive, span SpanInfo) Spanned {
	return Spanned{Directive: d, Span: span}
}

// SortSpanned stably sorts directives by date, keeping undated directives
// first and preserving source order within equal dates. The stability
// matters: within a day, postings are replayed in file order, and the
// pre-pass relies on undated directives keeping their relative order.
func SortSpanned(directives []Spanned) {
	slices.SortStableFunc(directives, func(a, b Spanned) int {
		da, db := a.Directive.GetDate(), b.Directive.GetDate()
		switch {
		case da == nil && db == nil:
			return 0
		case da == nil:
			return -1
		case db == nil:
			return 1
		}
		at, bt := da.Naive(), db.Naive()
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	})
}
