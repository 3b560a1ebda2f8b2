package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func amt(n string, c string) *Amount {
	a, err := NewAmountFromString(n, c)
	if err != nil {
		panic(err)
	}
	return &a
}

func TestInferTradeAmountImplicit(t *testing.T) {
	txn := &Transaction{
		Date: NewDate(1970, 1, 1),
		Postings: []*Posting{
			{Account: MustAccount("Assets:A"), Units: amt("-5", "USD")},
			{Account: MustAccount("Expenses:B")},
		},
	}

	inferred, err := (TxnPosting{Txn: txn, Posting: txn.Postings[1]}).InferTradeAmount()
	assert.NoError(t, err)
	assert.Equal(t, "USD", inferred.Commodity)
	assert.True(t, inferred.Number.Equal(decimal.NewFromInt(5)))
}

func TestInferTradeAmountExplicitIsUnits(t *testing.T) {
	txn := &Transaction{
		Date: NewDate(1970, 1, 1),
		Postings: []*Posting{
			{Account: MustAccount("Assets:A"), Units: amt("-10", "CNY")},
			{Account: MustAccount("Expenses:B"), Units: amt("10", "CNY")},
		},
	}

	inferred, err := (TxnPosting{Txn: txn, Posting: txn.Postings[0]}).InferTradeAmount()
	assert.NoError(t, err)
	assert.True(t, inferred.Equal(*amt("-10", "CNY")))
}

func TestInferTradeAmountWithSinglePrice(t *testing.T) {
	txn := &Transaction{
		Date: NewDate(1970, 1, 1),
		Postings: []*Posting{
			{
				Account: MustAccount("Assets:A"),
				Units:   amt("100", "EUR"),
				Price:   &PostingPrice{Amount: *amt("1.35", "USD")},
			},
			{Account: MustAccount("Assets:B")},
		},
	}

	inferred, err := (TxnPosting{Txn: txn, Posting: txn.Postings[1]}).InferTradeAmount()
	assert.NoError(t, err)
	assert.Equal(t, "USD", inferred.Commodity)
	assert.True(t, inferred.Number.Equal(decimal.RequireFromString("-135")))
}

func TestInferTradeAmountWithTotalPrice(t *testing.T) {
	txn := &Transaction{
		Date: NewDate(1970, 1, 1),
		Postings: []*Posting{
			{
				Account: MustAccount("Assets:A"),
				Units:   amt("-100", "EUR"),
				Price:   &PostingPrice{Amount: *amt("135", "USD"), Total: true},
			},
			{Account: MustAccount("Assets:B")},
		},
	}

	inferred, err := (TxnPosting{Txn: txn, Posting: txn.Postings[1]}).InferTradeAmount()
	assert.NoError(t, err)
	assert.True(t, inferred.Number.Equal(decimal.RequireFromString("135")))
}

func TestInferTradeAmountMultipleImplicit(t *testing.T) {
	txn := &Transaction{
		Date: NewDate(1970, 1, 1),
		Postings: []*Posting{
			{Account: MustAccount("Assets:A"), Units: amt("-5", "USD")},
			{Account: MustAccount("Expenses:B")},
			{Account: MustAccount("Expenses:C")},
		},
	}

	_, err := (TxnPosting{Txn: txn, Posting: txn.Postings[1]}).InferTradeAmount()
	assert.IsError(t, err, ErrMultipleImplicitPostings)
}

func TestLotsDefaultsToFifo(t *testing.T) {
	txn := &Transaction{
		Date:     NewDate(1970, 1, 1),
		Postings: []*Posting{{Account: MustAccount("Assets:Broker"), Units: amt("10", "AAPL")}},
	}

	info := (TxnPosting{Txn: txn, Posting: txn.Postings[0]}).Lots()
	assert.Equal(t, LotFifo, info.Policy)

	txn.Postings[0].Cost = amt("100", "USD")
	info = (TxnPosting{Txn: txn, Posting: txn.Postings[0]}).Lots()
	assert.Equal(t, LotExplicit, info.Policy)
	assert.True(t, info.Price.Equal(*amt("100", "USD")))
}

func TestSortSpannedKeepsUndatedFirst(t *testing.T) {
	directives := []Spanned{
		NewSpanned(&Transaction{Date: NewDate(1970, 1, 2)}, SpanInfo{Start: 10}),
		NewSpanned(&Option{Key: "timezone", Value: "UTC"}, SpanInfo{Start: 20}),
		NewSpanned(&Open{Date: NewDate(1970, 1, 1), Account: MustAccount("Assets:A")}, SpanInfo{Start: 30}),
	}

	SortSpanned(directives)

	assert.Equal(t, KindOption, directives[0].Directive.Kind())
	assert.Equal(t, KindOpen, directives[1].Directive.Kind())
	assert.Equal(t, KindTransaction, directives[2].Directive.Kind())
}
