package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// balanceDistance computes expected - actual for the account's balance in
// the asserted commodity at the end of the assertion date.
func (r *run) balanceDistance(account ast.Account, date *ast.Date, expected ast.Amount) decimal.Decimal {
	endOfDay := date.EndOfDay(r.options.Timezone)
	current := decimal.Zero
	if balance := r.ops().AccountTargetDayBalance(account.Name(), endOfDay, expected.Commodity); balance != nil {
		current = balance.Number
	}
	return expected.Number.Sub(current)
}

// assertionDate places a synthetic adjustment at the very end of the
// assertion day so it orders after every posting of that day.
func assertionDate(date *ast.Date) *ast.Date {
	naive := date.Naive()
	return ast.NewDateSecond(naive.Year(), int(naive.Month()), naive.Day(), 23, 59, 59)
}

// BalanceCheckHandler processes balance assertions. A mismatch records an
// AccountBalanceCheckError, then a synthetic single-posting transaction
// flagged BalanceCheck pushes the account to the asserted value so the
// store stays consistent even when the user is alerted.
type BalanceCheckHandler struct{}

func (h *BalanceCheckHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool { return true }

func (h *BalanceCheckHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	check := d.(*ast.BalanceCheck)

	distance := r.balanceDistance(check.Account, check.Date, check.Amount)
	if !distance.IsZero() {
		r.ops().NewError(store.ErrAccountBalanceCheckError, span, map[string]string{
			"account_name": check.Account.Name(),
		})
	}

	r.checkAccountExists(check.Account.Name(), span)
	r.checkAccountClosed(check.Account.Name(), span)

	adjustment := &ast.Transaction{
		Date:      assertionDate(check.Date),
		Flag:      ast.FlagBalanceCheck,
		Payee:     "Balance Check",
		Narration: check.Account.Name(),
		Postings: []*ast.Posting{
			{
				Account: check.Account,
				Units:   amountPtr(ast.NewAmount(distance, check.Amount.Commodity)),
			},
		},
	}
	return r.handle(adjustment, span)
}

// BalancePadHandler processes balance assertions with a pad account: it
// synthesises a two-leg transaction flagged BalancePad that brings the
// asserted account exactly to the expected value, with the pad account
// absorbing the implicit counter-leg.
type BalancePadHandler struct{}

func (h *BalancePadHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool { return true }

func (h *BalancePadHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	pad := d.(*ast.BalancePad)

	r.checkAccountExists(pad.Account.Name(), span)
	r.checkAccountExists(pad.Pad.Name(), span)
	r.checkAccountClosed(pad.Account.Name(), span)
	r.checkAccountClosed(pad.Pad.Name(), span)

	distance := r.balanceDistance(pad.Account, pad.Date, pad.Amount)

	padding := &ast.Transaction{
		Date:      assertionDate(pad.Date),
		Flag:      ast.FlagBalancePad,
		Payee:     "Balance Pad",
		Narration: fmt.Sprintf("pad %s to %s", pad.Account.Name(), pad.Pad.Name()),
		Postings: []*ast.Posting{
			{
				Account: pad.Account,
				Units:   amountPtr(ast.NewAmount(distance, pad.Amount.Commodity)),
			},
			{
				Account: pad.Pad,
			},
		},
	}
	return r.handle(padding, span)
}

func amountPtr(amount ast.Amount) *ast.Amount {
	return &amount
}
