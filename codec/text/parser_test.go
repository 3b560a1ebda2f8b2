package text

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
)

func parseOne(t *testing.T, source string) ast.Spanned {
	t.Helper()
	directives, err := (&DataType{}).Transform([]byte(source), "main.zhang")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(directives))
	return directives[0]
}

func TestParseOpen(t *testing.T) {
	spanned := parseOne(t, "1970-01-01 open Assets:Cash CNY, USD\n")
	open, ok := spanned.Directive.(*ast.Open)
	assert.True(t, ok)
	assert.Equal(t, "Assets:Cash", open.Account.Name())
	assert.Equal(t, []string{"CNY", "USD"}, open.Commodities)
	assert.Equal(t, "main.zhang", spanned.Span.Filename)
	assert.Equal(t, 0, spanned.Span.Start)
}

func TestParseTransaction(t *testing.T) {
	source := `1970-01-02 * "Shop" "lunch" #food ^trip
  note: "splitting the bill"
  Assets:Cash -10 CNY
    shared: "true"
  Expenses:Food 10 CNY
`
	spanned := parseOne(t, source)
	txn, ok := spanned.Directive.(*ast.Transaction)
	assert.True(t, ok)
	assert.Equal(t, "Shop", txn.Payee)
	assert.Equal(t, "lunch", txn.Narration)
	assert.Equal(t, []string{"food"}, txn.Tags)
	assert.Equal(t, []string{"trip"}, txn.Links)
	assert.Equal(t, 2, len(txn.Postings))

	note, ok := txn.GetMeta().GetOne("note")
	assert.True(t, ok)
	assert.Equal(t, "splitting the bill", note)

	shared, ok := txn.Postings[0].GetMeta().GetOne("shared")
	assert.True(t, ok)
	assert.Equal(t, "true", shared)

	assert.True(t, txn.Postings[0].Units.Number.Equal(decimal.NewFromInt(-10)))
	assert.Zero(t, txn.Postings[1].GetMeta().Len())
}

func TestParseImplicitPosting(t *testing.T) {
	source := `1970-01-01 * "pay"
  Assets:A -5 USD
  Expenses:B
`
	txn := parseOne(t, source).Directive.(*ast.Transaction)
	assert.Equal(t, 2, len(txn.Postings))
	assert.Zero(t, txn.Postings[1].Units)
}

func TestParsePostingCostAndPrice(t *testing.T) {
	source := `1970-01-01 * "buy"
  Assets:Broker 10 AAPL {100 USD, 1969-12-31} @ 105 USD
  Assets:Cash
`
	txn := parseOne(t, source).Directive.(*ast.Transaction)
	posting := txn.Postings[0]
	assert.NotZero(t, posting.Cost)
	assert.True(t, posting.Cost.Equal(ast.NewAmount(decimal.NewFromInt(100), "USD")))
	assert.Equal(t, "1969-12-31", posting.CostDate.DateOnly())
	assert.NotZero(t, posting.Price)
	assert.False(t, posting.Price.Total)
}

func TestParseBalanceDirectives(t *testing.T) {
	check := parseOne(t, "1970-01-02 balance Assets:X 100 CNY\n").Directive
	assert.Equal(t, ast.KindBalanceCheck, check.Kind())

	pad := parseOne(t, "1970-01-02 balance Assets:X 50 CNY with pad Equity:Open\n").Directive
	balancePad, ok := pad.(*ast.BalancePad)
	assert.True(t, ok)
	assert.Equal(t, "Equity:Open", balancePad.Pad.Name())
}

func TestParseBudgetDirectives(t *testing.T) {
	directives, err := (&DataType{}).Transform([]byte(`1970-01-01 budget Food CNY
1970-01-05 budget-add Food 100 CNY
1970-01-06 budget-transfer Food Rent 20 CNY
1970-02-01 budget-close Food
`), "budget.zhang")
	assert.NoError(t, err)
	assert.Equal(t, 4, len(directives))
	assert.Equal(t, ast.KindBudget, directives[0].Directive.Kind())
	assert.Equal(t, ast.KindBudgetAdd, directives[1].Directive.Kind())
	assert.Equal(t, ast.KindBudgetTransfer, directives[2].Directive.Kind())
	assert.Equal(t, ast.KindBudgetClose, directives[3].Directive.Kind())
}

func TestParseDatetimeInline(t *testing.T) {
	txn := parseOne(t, "1970-01-01 14:30 * \"pay\"\n  Assets:A -5 USD\n  Expenses:B\n").Directive.(*ast.Transaction)
	assert.Equal(t, ast.PrecisionMinute, txn.Date.Precision())
}

func TestParseTimeMetaUpgradesDate(t *testing.T) {
	doc := parseOne(t, "1970-01-01 document Assets:A \"f.pdf\"\n  time: \"08:15\"\n").Directive.(*ast.Document)
	assert.Equal(t, ast.PrecisionMinute, doc.Date.Precision())
	_, hasTime := doc.GetMeta().GetOne("time")
	assert.False(t, hasTime)
}

func TestParseUndatedDirectives(t *testing.T) {
	directives, err := (&DataType{}).Transform([]byte(`option "title" "My Ledger"
include "accounts.zhang"
plugin "demo" "cfg"
; a comment
`), "main.zhang")
	assert.NoError(t, err)
	assert.Equal(t, 4, len(directives))
	assert.Equal(t, ast.KindOption, directives[0].Directive.Kind())
	assert.Equal(t, ast.KindInclude, directives[1].Directive.Kind())
	assert.Equal(t, ast.KindPlugin, directives[2].Directive.Kind())
	assert.Equal(t, ast.KindComment, directives[3].Directive.Kind())
}

func TestParseErrorsAreFatal(t *testing.T) {
	_, err := (&DataType{}).Transform([]byte("1970-01-01 open NotAnAccount\n"), "bad.zhang")
	assert.Error(t, err)

	parseErr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, 1, parseErr.Line)
	assert.Equal(t, "bad.zhang", parseErr.Source)
}

func TestSpansAreStable(t *testing.T) {
	source := []byte("1970-01-01 open Assets:Cash\n\n1970-01-02 close Assets:Cash\n")
	first, err := (&DataType{}).Transform(source, "main.zhang")
	assert.NoError(t, err)
	second, err := (&DataType{}).Transform(source, "main.zhang")
	assert.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Span, second[i].Span)
	}
	assert.Equal(t, "1970-01-01 open Assets:Cash", first[0].Span.Content)
}
