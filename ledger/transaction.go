package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// TransactionID derives the stable transaction id from the directive's
// source span: sha256 over "path-start", truncated to 128 bits. Identical
// input yields identical ids across loads.
func TransactionID(span ast.SpanInfo) uuid.UUID {
	source := span.Filename
	if source == "" {
		source = "default_path"
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", source, span.Start)))
	id, err := uuid.Parse(hex.EncodeToString(sum[:16]))
	if err != nil {
		panic(err)
	}
	return id
}

// TransactionHandler processes Transaction directives.
type TransactionHandler struct{}

func (h *TransactionHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	txn := d.(*ast.Transaction)

	if txn.ImplicitCount() > 1 {
		r.ops().NewError(store.ErrTransactionHasMultipleImplicitPosting, span, nil)
		return false
	}

	if !txn.GetFlag().IsBalanceFlag() && !r.isBalanced(txn) {
		r.ops().NewError(store.ErrTransactionDoesNotBalance, span, nil)
	}
	return true
}

// isBalanced checks that for every commodity group the signed sum of trade
// amounts is zero within the commodity's tolerance. A transaction with an
// implicit posting balances by construction.
func (r *run) isBalanced(txn *ast.Transaction) bool {
	if txn.ImplicitCount() == 1 {
		return true
	}
	sums := make(map[string]decimal.Decimal)
	for _, tp := range txn.TxnPostings() {
		trade, ok := tp.TradeAmount()
		if !ok {
			continue
		}
		sums[trade.Commodity] = sums[trade.Commodity].Add(trade.Number)
	}
	for commodity, sum := range sums {
		if sum.Abs().GreaterThan(r.tolerance(commodity)) {
			return false
		}
	}
	return true
}

// tolerance is half of one unit in the commodity's last decimal place,
// using the commodity's declared precision when set and the ledger default
// otherwise.
func (r *run) tolerance(commodity string) decimal.Decimal {
	precision := r.options.DefaultBalanceTolerancePrecision
	if row := r.ops().Commodity(commodity); row != nil {
		precision = row.Precision
	}
	return decimal.New(5, -(precision + 1))
}

func (h *TransactionHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	txn := d.(*ast.Transaction)
	ops := r.ops()

	id := TransactionID(span)
	sequence := r.ledger.trxCounter.Add(1)
	datetime := r.datetime(txn.Date)

	ops.InsertTransaction(id, sequence, datetime, txn.GetFlag(), txn.Payee, txn.Narration, txn.Tags, txn.Links, span)

	for _, tp := range txn.TxnPostings() {
		inferred, err := tp.InferTradeAmount()
		if err != nil {
			if errors.Is(err, ast.ErrCannotInferTradeAmount) || errors.Is(err, ast.ErrMultipleImplicitPostings) {
				ops.NewError(store.ErrTransactionCannotInferTradeAmount, span, map[string]string{
					"account_name": tp.Posting.Account.Name(),
				})
				continue
			}
			return err
		}

		accountName := tp.Posting.Account.Name()
		previous := ops.AccountTargetDayBalance(accountName, datetime, inferred.Commodity)
		previousNumber := decimal.Zero
		if previous != nil {
			previousNumber = previous.Number
		}
		after := previousNumber.Add(inferred.Number)

		ops.InsertTransactionPosting(
			id,
			tp.Posting.Account,
			tp.Posting.Units,
			tp.Posting.Cost,
			inferred,
			ast.NewAmount(previousNumber, inferred.Commodity),
			ast.NewAmount(after, inferred.Commodity),
		)

		sign := decimal.NewFromInt(int64(tp.Posting.Account.NormalSign()))
		for _, budget := range ops.GetAccountBudget(accountName) {
			activity := ast.NewAmount(inferred.Number.Mul(sign), inferred.Commodity)
			if err := ops.BudgetAddActivity(budget, datetime, activity); err != nil {
				return err
			}
		}

		amount := inferred
		if tp.Posting.Units != nil {
			amount = *tp.Posting.Units
		}
		if err := r.lotAdd(accountName, amount, tp.Lots()); err != nil {
			return err
		}
	}

	for _, documentPath := range txn.GetMeta().GetAll("document") {
		ops.InsertTrxDocument(datetime, id, documentPath)
	}
	ops.InsertMeta(store.TransactionMeta, id.String(), txn.GetMeta())
	return nil
}

// lotAdd books an amount into the account's lot table: the explicit lot
// identified by its cost price, or the account's default lot under FIFO.
func (r *run) lotAdd(account string, amount ast.Amount, info ast.LotInfo) error {
	ops := r.ops()
	switch info.Policy {
	case ast.LotExplicit:
		if lot := ops.AccountLot(account, amount.Commodity, info.Price); lot != nil {
			ops.UpdateAccountLot(account, amount.Commodity, info.Price, lot.Amount.Add(amount.Number))
		} else {
			ops.InsertAccountLot(account, amount.Commodity, info.Price, amount.Number)
		}
	case ast.LotFifo:
		if lot := firstAccountLot(r.store, account, amount.Commodity); lot != nil {
			ops.UpdateAccountLot(account, amount.Commodity, lot.Price, lot.Amount.Add(amount.Number))
		} else {
			ops.InsertAccountLot(account, amount.Commodity, nil, amount.Number)
		}
	case ast.LotFilo:
		return fmt.Errorf("filo lot policy is not implemented")
	}
	return nil
}

// firstAccountLot returns the first lot of (account, commodity) regardless
// of its cost price.
func firstAccountLot(st *store.Store, account, commodity string) *store.CommodityLotRecord {
	lots := st.CommodityLots[account]
	for i := range lots {
		if lots[i].Commodity == commodity {
			return &lots[i]
		}
	}
	return nil
}
