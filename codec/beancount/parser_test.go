package beancount

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
)

func transform(t *testing.T, source string) []ast.Spanned {
	t.Helper()
	directives, err := (&DataType{}).Transform([]byte(source), "main.bean")
	assert.NoError(t, err)
	return directives
}

func TestExpressionAmounts(t *testing.T) {
	directives := transform(t, `1970-01-01 * "maths"
  Assets:A (100 + 50) * 2 USD
  Assets:B
`)
	txn := directives[0].Directive.(*ast.Transaction)
	assert.True(t, txn.Postings[0].Units.Number.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "USD", txn.Postings[0].Units.Commodity)
}

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3"},
		{"10 - 2 - 3", "5"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"-5 + 10", "5"},
		{"10 / 4", "2.5"},
		{"1,000.50", "1000.5"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpression(tt.expr)
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}

	_, err := evalExpression("1 / 0")
	assert.Error(t, err)
	_, err = evalExpression("1 +")
	assert.Error(t, err)
}

func TestPushtagAppliesToTransactions(t *testing.T) {
	directives := transform(t, `pushtag #trip
1970-01-01 * "tagged"
  Assets:A -5 USD
  Expenses:B
poptag #trip
1970-01-02 * "untagged"
  Assets:A -5 USD
  Expenses:B
`)
	assert.Equal(t, 2, len(directives))
	tagged := directives[0].Directive.(*ast.Transaction)
	untagged := directives[1].Directive.(*ast.Transaction)
	assert.Equal(t, []string{"trip"}, tagged.Tags)
	assert.Zero(t, untagged.Tags)
}

func TestPadBalanceCoalescing(t *testing.T) {
	directives := transform(t, `1970-01-01 open Assets:X
1970-01-01 pad Assets:X Equity:Open
1970-01-02 balance Assets:X 50 CNY
1970-01-03 balance Liabilities:Card -10 CNY
`)
	assert.Equal(t, 3, len(directives))

	pad, ok := directives[1].Directive.(*ast.BalancePad)
	assert.True(t, ok)
	assert.Equal(t, "Equity:Open", pad.Pad.Name())
	assert.True(t, pad.Amount.Equal(ast.NewAmount(decimal.NewFromInt(50), "CNY")))

	check, ok := directives[2].Directive.(*ast.BalanceCheck)
	assert.True(t, ok)
	assert.Equal(t, "Liabilities:Card", check.Account.Name())
}

func TestPadBeforeItsDateIsNotUsed(t *testing.T) {
	// The pad is dated after the balance, so the balance stays a check.
	directives := transform(t, `1970-01-05 pad Assets:X Equity:Open
1970-01-02 balance Assets:X 50 CNY
`)
	assert.Equal(t, 1, len(directives))
	_, ok := directives[0].Directive.(*ast.BalanceCheck)
	assert.True(t, ok)
}

func TestCustomBudgetRows(t *testing.T) {
	directives := transform(t, `1970-01-01 custom "budget" Food CNY
1970-01-05 custom "budget-add" Food 100 CNY
1970-01-06 custom "budget-transfer" Food Rent 20 CNY
1970-02-01 custom "budget-close" Food
1970-02-02 custom "forecast" "monthly"
`)
	assert.Equal(t, 5, len(directives))
	assert.Equal(t, ast.KindBudget, directives[0].Directive.Kind())
	assert.Equal(t, ast.KindBudgetAdd, directives[1].Directive.Kind())
	assert.Equal(t, ast.KindBudgetTransfer, directives[2].Directive.Kind())
	assert.Equal(t, ast.KindBudgetClose, directives[3].Directive.Kind())
	assert.Equal(t, ast.KindCustom, directives[4].Directive.Kind())
}

func TestTimeMetaRoundTrip(t *testing.T) {
	codec := &DataType{}
	directives := transform(t, "1970-01-01 document Assets:A \"f.pdf\"\n  time: \"08:15\"\n")
	doc := directives[0].Directive.(*ast.Document)
	assert.Equal(t, ast.PrecisionMinute, doc.Date.Precision())

	// Export re-serialises the time as a meta entry.
	rendered := string(codec.Export(doc))
	assert.Contains(t, rendered, "1970-01-01 document Assets:A \"f.pdf\"")
	assert.Contains(t, rendered, `time: "08:15"`)
}

func TestExportBalancePadSplitsIntoPair(t *testing.T) {
	codec := &DataType{}
	pad := &ast.BalancePad{
		Date:    ast.NewDate(1970, 1, 2),
		Account: ast.MustAccount("Assets:X"),
		Pad:     ast.MustAccount("Equity:Open"),
		Amount:  ast.NewAmount(decimal.NewFromInt(50), "CNY"),
	}

	rendered := string(codec.Export(pad))
	assert.Contains(t, rendered, "1970-01-01 pad Assets:X Equity:Open")
	assert.Contains(t, rendered, "1970-01-02 balance Assets:X 50 CNY")

	// Reparsing the pair coalesces back into a BalancePad.
	directives, err := codec.Transform(append(codec.Export(pad), '\n'), "roundtrip.bean")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(directives))
	parsed, ok := directives[0].Directive.(*ast.BalancePad)
	assert.True(t, ok)
	assert.Equal(t, "Equity:Open", parsed.Pad.Name())
}

func TestExportBudgetAsCustom(t *testing.T) {
	codec := &DataType{}
	budget := &ast.Budget{Date: ast.NewDate(1970, 1, 1), Name: "Food", Commodity: "CNY"}

	rendered := string(codec.Export(budget))
	assert.Equal(t, `1970-01-01 custom "budget" Food CNY`, rendered)

	directives, err := codec.Transform(append(codec.Export(budget), '\n'), "roundtrip.bean")
	assert.NoError(t, err)
	assert.Equal(t, ast.KindBudget, directives[0].Directive.Kind())
}
