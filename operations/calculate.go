package operations

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// Calculate values a list of amounts against the operating currency at a
// given instant. Amounts already in the operating currency are added
// directly; others are converted through the latest stored price at or
// before the instant. Amounts with no known price contribute zero to the
// total but still appear in the per-commodity detail.
func (o *Operations) Calculate(date time.Time, amounts []ast.Amount) (ast.CalculatedAmount, error) {
	operating, ok := o.Option(store.KeyOperatingCurrency)
	if !ok {
		return ast.CalculatedAmount{}, fmt.Errorf("cannot find operating currency")
	}

	total := decimal.Zero
	detail := make(map[string]decimal.Decimal)

	for _, amount := range amounts {
		if amount.Commodity == operating {
			total = total.Add(amount.Number)
		} else if price := o.GetPrice(date, amount.Commodity, operating); price != nil {
			total = total.Add(amount.Number.Mul(price.Amount))
		}
		detail[amount.Commodity] = detail[amount.Commodity].Add(amount.Number)
	}

	return ast.CalculatedAmount{
		Calculated: ast.NewAmount(total, operating),
		Detail:     detail,
	}, nil
}
