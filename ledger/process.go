package ledger

import (
	"time"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/options"
	"github.com/robinvdvleuten/zhang/store"
)

// run is the mutable state of one processing pass: the store being built
// and the typed options as parsed so far. Handlers mutate the store through
// the operations facade; no lock is needed because the store is not
// published until the pass completes.
type run struct {
	ledger  *Ledger
	store   *store.Store
	options *options.InMemoryOptions
}

// ops returns the operations facade over the store being built.
func (r *run) ops() *operations.Operations {
	return operations.New(r.store, r.options.Timezone)
}

// Handler processes one directive variant. Validate may record non-fatal
// errors and returns whether Process should run; Process mutates the store.
// A handler error is fatal and aborts the whole load.
type Handler interface {
	Validate(r *run, directive ast.Directive, span ast.SpanInfo) bool
	Process(r *run, directive ast.Directive, span ast.SpanInfo) error
}

// handlerRegistry maps directive kinds to their handlers. Kinds without a
// handler (comments, includes, plugins, events, customs) carry no
// processing semantics; includes are consumed by the data source and the
// rest round-trip through the codecs only.
var handlerRegistry = map[ast.DirectiveKind]Handler{
	ast.KindOption:         &OptionHandler{},
	ast.KindOpen:           &OpenHandler{},
	ast.KindClose:          &CloseHandler{},
	ast.KindCommodity:      &CommodityHandler{},
	ast.KindTransaction:    &TransactionHandler{},
	ast.KindBalanceCheck:   &BalanceCheckHandler{},
	ast.KindBalancePad:     &BalancePadHandler{},
	ast.KindNote:           &NoteHandler{},
	ast.KindDocument:       &DocumentHandler{},
	ast.KindPrice:          &PriceHandler{},
	ast.KindBudget:         &BudgetHandler{},
	ast.KindBudgetAdd:      &BudgetAddHandler{},
	ast.KindBudgetTransfer: &BudgetTransferHandler{},
	ast.KindBudgetClose:    &BudgetCloseHandler{},
}

// handle dispatches one directive through its handler.
func (r *run) handle(directive ast.Directive, span ast.SpanInfo) error {
	handler := handlerRegistry[directive.Kind()]
	if handler == nil {
		return nil
	}
	if !handler.Validate(r, directive, span) {
		return nil
	}
	return handler.Process(r, directive, span)
}

// datetime projects a directive date into the ledger timezone.
func (r *run) datetime(date *ast.Date) time.Time {
	return date.InTimezone(r.options.Timezone)
}

// checkAccountExists records an error when the account was never opened.
func (r *run) checkAccountExists(name string, span ast.SpanInfo) {
	if !r.ops().ExistAccount(name) {
		r.ops().NewError(store.ErrAccountDoesNotExist, span, map[string]string{"account_name": name})
	}
}

// checkAccountClosed records an error when the account is closed.
func (r *run) checkAccountClosed(name string, span ast.SpanInfo) {
	if account := r.ops().Account(name); account != nil && account.Status == store.AccountClose {
		r.ops().NewError(store.ErrAccountClosed, span, map[string]string{"account_name": name})
	}
}

// checkCommodityDefined records an error when the commodity has no
// definition yet.
func (r *run) checkCommodityDefined(name string, span ast.SpanInfo) {
	if !r.ops().ExistCommodity(name) {
		r.ops().NewError(store.ErrCommodityDoesNotDefine, span, map[string]string{"commodity_name": name})
	}
}
