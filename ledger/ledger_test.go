package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	_ "github.com/robinvdvleuten/zhang/codec/text"
	"github.com/robinvdvleuten/zhang/datasource"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/store"
)

// loadFixture writes the source as main.zhang in a fresh directory and
// loads it.
func loadFixture(t *testing.T, source string) *Ledger {
	t.Helper()
	root := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(root, "main.zhang"), []byte(source), 0o644))

	src, err := datasource.New(datasource.NewFsOperator(root), "main.zhang")
	assert.NoError(t, err)

	l, err := Load(context.Background(), root, "main.zhang", src)
	assert.NoError(t, err)
	return l
}

func withOps(t *testing.T, l *Ledger, fn func(ops *operations.Operations)) {
	t.Helper()
	ops, release := l.Operations()
	defer release()
	fn(ops)
}

func errorKinds(ops *operations.Operations) []store.ErrorKind {
	var kinds []store.ErrorKind
	for _, e := range ops.Errors() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func latestBalance(t *testing.T, ops *operations.Operations, account, commodity string) decimal.Decimal {
	t.Helper()
	for _, b := range ops.SingleAccountBalances(account) {
		if b.BalanceCommodity == commodity {
			return b.BalanceNumber
		}
	}
	return decimal.Zero
}

func TestBalancedPurchase(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-01 commodity CNY
1970-01-02 * "Shop" "lunch"
  Assets:Cash -10 CNY
  Expenses:Food 10 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		assert.Equal(t, 1, ops.TransactionCounts())
		assert.True(t, latestBalance(t, ops, "Assets:Cash", "CNY").Equal(decimal.NewFromInt(-10)))
		assert.True(t, latestBalance(t, ops, "Expenses:Food", "CNY").Equal(decimal.NewFromInt(10)))
	})
}

func TestImplicitPostingInference(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity USD
1970-01-01 open Assets:A USD
1970-01-01 open Expenses:B USD
1970-01-01 * "pay"
  Assets:A -5 USD
  Expenses:B
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		assert.True(t, latestBalance(t, ops, "Expenses:B", "USD").Equal(decimal.NewFromInt(5)))
	})
}

func TestBalanceCheckFailureSynthesisesAdjustment(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:X CNY
1970-01-02 balance Assets:X 100 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		kinds := errorKinds(ops)
		assert.Equal(t, []store.ErrorKind{store.ErrAccountBalanceCheckError}, kinds)

		err := ops.Errors()[0]
		assert.Equal(t, "Assets:X", err.Metas["account_name"])

		// The synthetic adjustment pushed the account to the asserted value.
		assert.True(t, latestBalance(t, ops, "Assets:X", "CNY").Equal(decimal.NewFromInt(100)))
	})
}

func TestBalancePad(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:X CNY
1970-01-01 open Equity:Open CNY
1970-01-02 balance Assets:X 50 CNY with pad Equity:Open
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		assert.True(t, latestBalance(t, ops, "Assets:X", "CNY").Equal(decimal.NewFromInt(50)))
		assert.True(t, latestBalance(t, ops, "Equity:Open", "CNY").Equal(decimal.NewFromInt(-50)))
	})
}

func TestBalanceCheckThatMatchesRecordsNoError(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:X CNY
1970-01-01 open Equity:Open CNY
1970-01-01 * "seed"
  Assets:X 100 CNY
  Equity:Open -100 CNY
1970-01-02 balance Assets:X 100 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		assert.True(t, latestBalance(t, ops, "Assets:X", "CNY").Equal(decimal.NewFromInt(100)))
	})
}

func TestPriceValuation(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity USD
1970-01-01 price USD 7 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		calculated, err := ops.Calculate(
			ast.NewDate(1970, 1, 2).EndOfDay(l.Options().Timezone),
			[]ast.Amount{ast.NewAmount(decimal.NewFromInt(10), "USD")},
		)
		assert.NoError(t, err)
		assert.Equal(t, "CNY", calculated.Calculated.Commodity)
		assert.True(t, calculated.Calculated.Number.Equal(decimal.NewFromInt(70)))
		assert.True(t, calculated.Detail["USD"].Equal(decimal.NewFromInt(10)))
	})
}

func TestPriceValuationWithoutPriceContributesZero(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity USD
`)

	withOps(t, l, func(ops *operations.Operations) {
		calculated, err := ops.Calculate(
			ast.NewDate(1970, 1, 2).EndOfDay(l.Options().Timezone),
			[]ast.Amount{ast.NewAmount(decimal.NewFromInt(10), "USD")},
		)
		assert.NoError(t, err)
		assert.True(t, calculated.Calculated.Number.IsZero())
		// The amount still shows up in the per-commodity detail.
		assert.True(t, calculated.Detail["USD"].Equal(decimal.NewFromInt(10)))
	})
}

func TestFifoLotAccumulation(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity AAPL
1970-01-01 open Assets:Broker AAPL
1970-01-01 open Assets:Cash CNY
1970-01-02 * "buy"
  Assets:Broker 10 AAPL @ 100 CNY
  Assets:Cash -1000 CNY
1970-01-03 * "buy more"
  Assets:Broker 5 AAPL @ 100 CNY
  Assets:Cash -500 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		lots := ops.AccountLots("Assets:Broker")
		assert.Equal(t, 1, len(lots))
		assert.Equal(t, "AAPL", lots[0].Commodity)
		assert.True(t, lots[0].Amount.Equal(decimal.NewFromInt(15)))
		assert.Zero(t, lots[0].Price)
	})
}

func TestExplicitLotTracking(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity AAPL
1970-01-01 open Assets:Broker AAPL
1970-01-01 open Assets:Cash CNY
1970-01-02 * "buy lot"
  Assets:Broker 10 AAPL {100 CNY}
  Assets:Cash -1000 CNY
1970-01-03 * "add to same lot"
  Assets:Broker 5 AAPL {100 CNY}
  Assets:Cash -500 CNY
1970-01-04 * "new lot"
  Assets:Broker 5 AAPL {120 CNY}
  Assets:Cash -600 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		lots := ops.AccountLots("Assets:Broker")
		assert.Equal(t, 2, len(lots))
		assert.True(t, lots[0].Amount.Equal(decimal.NewFromInt(15)))
		assert.True(t, lots[0].Price.Number.Equal(decimal.NewFromInt(100)))
		assert.True(t, lots[1].Amount.Equal(decimal.NewFromInt(5)))
		assert.True(t, lots[1].Price.Number.Equal(decimal.NewFromInt(120)))
	})
}

func TestUnbalancedTransactionRecordsErrorButProcesses(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-02 * "off by one"
  Assets:Cash -10 CNY
  Expenses:Food 11 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrTransactionDoesNotBalance}, errorKinds(ops))
		// Processing continued: postings are materialised.
		assert.Equal(t, 1, ops.TransactionCounts())
		assert.True(t, latestBalance(t, ops, "Expenses:Food", "CNY").Equal(decimal.NewFromInt(11)))
	})
}

func TestMultipleImplicitPostingsSkipProcessing(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity USD
1970-01-01 open Assets:A USD
1970-01-02 * "broken"
  Assets:A -5 USD
  Expenses:B
  Expenses:C
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrTransactionHasMultipleImplicitPosting}, errorKinds(ops))
		// No inference was performed and nothing was materialised.
		assert.Equal(t, 0, ops.TransactionCounts())
	})
}

func TestCloseNonZeroAccount(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Equity:Open CNY
1970-01-02 * "seed"
  Assets:Cash 10 CNY
  Equity:Open -10 CNY
1970-01-03 close Assets:Cash
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrCloseNonZeroAccount}, errorKinds(ops))
		account := ops.Account("Assets:Cash")
		assert.Equal(t, store.AccountClose, account.Status)
	})
}

func TestDirectiveAfterCloseRecordsAccountClosed(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-02 close Assets:Cash
1970-01-03 document Assets:Cash "receipt.pdf"
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrAccountClosed}, errorKinds(ops))
	})
}

func TestUndefinedCommodityRecordsError(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Gold XAU
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrCommodityDoesNotDefine}, errorKinds(ops))
	})
}

func TestPreviousAndAfterAmountsChain(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-02 * "one"
  Assets:Cash -10 CNY
  Expenses:Food 10 CNY
1970-01-03 * "two"
  Assets:Cash -5 CNY
  Expenses:Food 5 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		journals := ops.AccountJournals("Assets:Cash")
		assert.Equal(t, 2, len(journals))
		// Most recent first.
		assert.True(t, journals[0].AccountAfterNumber.Equal(decimal.NewFromInt(-15)))
		assert.True(t, journals[1].AccountAfterNumber.Equal(decimal.NewFromInt(-10)))

		// after_amount of the latest posting equals the summed inferred
		// amounts.
		date := ast.NewDate(1970, 1, 3).EndOfDay(l.Options().Timezone)
		balances := ops.AccountTargetDateBalance("Assets:Cash", date)
		assert.Equal(t, 1, len(balances))
		assert.True(t, balances[0].Number.Equal(decimal.NewFromInt(-15)))
	})
}

func TestTransactionMetadataAndDocuments(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-02 * "Shop" "lunch"
  document: "receipts/lunch.pdf"
  Assets:Cash -10 CNY
  Expenses:Food 10 CNY
1970-01-03 document Assets:Cash "statements/jan.pdf"
`)

	withOps(t, l, func(ops *operations.Operations) {
		documents := ops.Documents()
		assert.Equal(t, 2, len(documents))
		assert.NotZero(t, documents[0].TrxID)
		assert.Equal(t, "lunch.pdf", documents[0].Filename)
		assert.Equal(t, "Assets:Cash", documents[1].Account.Name())

		accountDocs := ops.AccountDocuments("Assets:Cash")
		assert.Equal(t, 1, len(accountDocs))
	})
}

func TestOperatingCurrencyDefinesCommodity(t *testing.T) {
	l := loadFixture(t, `option "operating_currency" "EUR"
1970-01-01 open Assets:Cash EUR
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		commodity := ops.Commodity("EUR")
		assert.NotZero(t, commodity)

		value, ok := ops.Option(store.KeyOperatingCurrency)
		assert.True(t, ok)
		assert.Equal(t, "EUR", value)
	})
}

func TestMultipleOperatingCurrencyDetected(t *testing.T) {
	l := loadFixture(t, `option "operating_currency" "EUR"
option "operating_currency" "USD"
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{store.ErrMultipleOperatingCurrencyDetect}, errorKinds(ops))
		value, _ := ops.Option(store.KeyOperatingCurrency)
		assert.Equal(t, "USD", value)
	})
}

func TestCommodityPrecisionFromMeta(t *testing.T) {
	l := loadFixture(t, `1970-01-01 commodity BTC
  precision: "8"
  rounding: "RoundUp"
  prefix: "₿"
`)

	withOps(t, l, func(ops *operations.Operations) {
		commodity := ops.Commodity("BTC")
		assert.Equal(t, int32(8), commodity.Precision)
		assert.Equal(t, store.RoundUp, commodity.Rounding)
		assert.Equal(t, "₿", commodity.Prefix)

		metas := ops.Metas(store.CommodityMeta, "BTC")
		assert.Equal(t, 3, len(metas))
	})
}

func TestLoadIdempotence(t *testing.T) {
	source := `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-02 * "Shop" "lunch"
  Assets:Cash -10 CNY
  Expenses:Food 10 CNY
1970-01-03 balance Assets:Cash -10 CNY
`
	first := loadFixture(t, source)
	second := loadFixture(t, source)

	opsA, releaseA := first.Operations()
	defer releaseA()
	opsB, releaseB := second.Operations()
	defer releaseB()

	assert.Equal(t, opsA.TransactionCounts(), opsB.TransactionCounts())
	assert.Equal(t, len(opsA.Store.Postings), len(opsB.Store.Postings))
	for i := range opsA.Store.Postings {
		a, b := opsA.Store.Postings[i], opsB.Store.Postings[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.TrxID, b.TrxID)
		assert.True(t, a.AfterAmount.Equal(b.AfterAmount))
	}
	assert.Equal(t, len(opsA.Errors()), len(opsB.Errors()))
}

func TestAppendVisibility(t *testing.T) {
	l := loadFixture(t, `1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
`)

	txn := &ast.Transaction{
		Date:      ast.NewDate(1970, 1, 5),
		Flag:      ast.FlagOkay,
		Narration: "appended",
		Postings: []*ast.Posting{
			{Account: ast.MustAccount("Assets:Cash"), Units: amountRef(t, "-3", "CNY")},
			{Account: ast.MustAccount("Expenses:Food"), Units: amountRef(t, "3", "CNY")},
		},
	}

	assert.NoError(t, l.Append(context.Background(), []ast.Directive{txn}))

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 1, ops.TransactionCounts())
		assert.True(t, latestBalance(t, ops, "Expenses:Food", "CNY").Equal(decimal.NewFromInt(3)))
	})
}

func TestTransactionIDIsStable(t *testing.T) {
	span := ast.SpanInfo{Start: 120, End: 200, Filename: "main.zhang"}
	assert.Equal(t, TransactionID(span), TransactionID(span))

	other := ast.SpanInfo{Start: 121, End: 200, Filename: "main.zhang"}
	assert.NotEqual(t, TransactionID(span), TransactionID(other))
}

func amountRef(t *testing.T, number, commodity string) *ast.Amount {
	t.Helper()
	amount, err := ast.NewAmountFromString(number, commodity)
	assert.NoError(t, err)
	return &amount
}
