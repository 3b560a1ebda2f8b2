package sqlview

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/store"
)

func fixtureOps(t *testing.T) *operations.Operations {
	t.Helper()
	ops := operations.New(store.New(), time.UTC)

	ops.InsertOrUpdateOptions(store.KeyOperatingCurrency, "CNY")
	ops.InsertCommodity("CNY", 2, "", "", store.RoundDown)
	ops.InsertOrUpdateAccount(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), ast.MustAccount("Assets:Cash"), store.AccountOpen, "")
	ops.InsertOrUpdateAccount(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), ast.MustAccount("Expenses:Food"), store.AccountOpen, "")

	id := ast.SpanInfo{Start: 10, Filename: "main.zhang"}
	trxID := uuid.MustParse("67e55044-10b1-426f-9247-bb680e5fe0c8")
	ops.InsertTransaction(trxID, 1, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), ast.FlagOkay, "Shop", "lunch", []string{"food"}, nil, id)
	ops.InsertTransactionPosting(
		trxID,
		ast.MustAccount("Assets:Cash"),
		nil, nil,
		ast.NewAmount(decimal.NewFromInt(-10), "CNY"),
		ast.NewAmount(decimal.Zero, "CNY"),
		ast.NewAmount(decimal.NewFromInt(-10), "CNY"),
	)
	ops.InsertTransactionPosting(
		trxID,
		ast.MustAccount("Expenses:Food"),
		nil, nil,
		ast.NewAmount(decimal.NewFromInt(10), "CNY"),
		ast.NewAmount(decimal.Zero, "CNY"),
		ast.NewAmount(decimal.NewFromInt(10), "CNY"),
	)
	ops.InsertPrice(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), "USD", decimal.NewFromInt(7), "CNY")
	ops.InitBudget("Food", "CNY", "", "")

	return ops
}

func TestAttachAndQuery(t *testing.T) {
	db, err := Attach(fixtureOps(t))
	assert.NoError(t, err)
	defer db.Close()

	result, err := Query(db, "SELECT account, inferred_number FROM postings ORDER BY account")
	assert.NoError(t, err)
	assert.Equal(t, []string{"account", "inferred_number"}, result.Columns)
	assert.Equal(t, 2, len(result.Rows))
	assert.Equal(t, "Assets:Cash", result.Rows[0]["account"])
	assert.Equal(t, "-10", result.Rows[0]["inferred_number"])

	result, err = Query(db, "SELECT count(*) AS n FROM accounts")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0]["n"].(int64))

	result, err = Query(db, "SELECT value FROM options WHERE key = 'operating_currency'")
	assert.NoError(t, err)
	assert.Equal(t, "CNY", result.Rows[0]["value"])
}

func TestQueryRejectsInvalidSQL(t *testing.T) {
	db, err := Attach(fixtureOps(t))
	assert.NoError(t, err)
	defer db.Close()

	_, err = Query(db, "SELECT FROM nothing")
	assert.Error(t, err)
}
