package ledger

import (
	"strconv"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// OptionHandler executes Option directives through the typed options
// parser, which performs the option's store side effects.
type OptionHandler struct{}

func (h *OptionHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool { return true }

func (h *OptionHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	option := d.(*ast.Option)
	value, err := r.options.Parse(option.Key, option.Value, r.ops(), span)
	if err != nil {
		return err
	}
	r.ops().InsertOrUpdateOptions(option.Key, value)
	return nil
}

// OpenHandler processes Open directives.
type OpenHandler struct{}

func (h *OpenHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	open := d.(*ast.Open)
	for _, commodity := range open.Commodities {
		r.checkCommodityDefined(commodity, span)
	}
	return true
}

func (h *OpenHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	open := d.(*ast.Open)
	alias, _ := open.GetMeta().GetOne("alias")
	r.ops().InsertOrUpdateAccount(r.datetime(open.Date), open.Account, store.AccountOpen, alias)
	r.ops().InsertMeta(store.AccountMeta, open.Account.Name(), open.GetMeta())
	return nil
}

// CloseHandler processes Close directives. Closing an account that still
// holds a balance records a CloseNonZeroAccount error but the account is
// closed regardless.
type CloseHandler struct{}

func (h *CloseHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	close := d.(*ast.Close)
	name := close.Account.Name()
	if !r.ops().ExistAccount(name) {
		r.ops().NewError(store.ErrAccountDoesNotExist, span, map[string]string{"account_name": name})
		return false
	}
	r.checkAccountClosed(name, span)

	for _, balance := range r.ops().SingleAccountBalances(name) {
		if !balance.BalanceNumber.IsZero() {
			r.ops().NewError(store.ErrCloseNonZeroAccount, span, map[string]string{"account_name": name})
			break
		}
	}
	return true
}

func (h *CloseHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	close := d.(*ast.Close)
	r.ops().CloseAccount(close.Account.Name())
	return nil
}

// CommodityHandler processes Commodity directives, reading precision,
// prefix, suffix and rounding from the directive meta with ledger-default
// fallbacks.
type CommodityHandler struct{}

func (h *CommodityHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool { return true }

func (h *CommodityHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	commodity := d.(*ast.Commodity)

	precision := r.options.DefaultCommodityPrecision
	if value, ok := commodity.GetMeta().GetOne("precision"); ok {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			precision = int32(n)
		}
	}

	rounding := r.options.DefaultRounding
	if value, ok := commodity.GetMeta().GetOne("rounding"); ok {
		if parsed, ok := store.ParseRounding(value); ok {
			rounding = parsed
		}
	}

	prefix, _ := commodity.GetMeta().GetOne("prefix")
	suffix, _ := commodity.GetMeta().GetOne("suffix")

	r.ops().InsertCommodity(commodity.Currency, precision, prefix, suffix, rounding)
	r.ops().InsertMeta(store.CommodityMeta, commodity.Currency, commodity.GetMeta())
	return nil
}

// NoteHandler validates Note directives; notes carry no store mutation.
type NoteHandler struct{}

func (h *NoteHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	note := d.(*ast.Note)
	r.checkAccountExists(note.Account.Name(), span)
	r.checkAccountClosed(note.Account.Name(), span)
	return true
}

func (h *NoteHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error { return nil }

// DocumentHandler processes account-attached Document directives.
type DocumentHandler struct{}

func (h *DocumentHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	document := d.(*ast.Document)
	r.checkAccountExists(document.Account.Name(), span)
	r.checkAccountClosed(document.Account.Name(), span)
	return true
}

func (h *DocumentHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	document := d.(*ast.Document)
	r.ops().InsertAccountDocument(r.datetime(document.Date), document.Account, document.Filename)
	return nil
}

// PriceHandler processes Price directives.
type PriceHandler struct{}

func (h *PriceHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	price := d.(*ast.Price)
	r.checkCommodityDefined(price.Currency, span)
	r.checkCommodityDefined(price.Amount.Commodity, span)
	return true
}

func (h *PriceHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	price := d.(*ast.Price)
	r.ops().InsertPrice(r.datetime(price.Date), price.Currency, price.Amount.Number, price.Amount.Commodity)
	return nil
}
