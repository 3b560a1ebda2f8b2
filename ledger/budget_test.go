package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/store"
)

func TestBudgetAssignAndActivity(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
  alias: "Eating out"
  category: "daily"
1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
  budget: "Food"
1970-01-05 budget-add Food 500 CNY
1970-01-10 * "lunch"
  Assets:Cash -30 CNY
  Expenses:Food 30 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))

		budgets := ops.AllBudgets()
		assert.Equal(t, 1, len(budgets))
		assert.Equal(t, "Eating out", budgets[0].Alias)
		assert.Equal(t, "daily", budgets[0].Category)
		assert.Equal(t, "CNY", budgets[0].Commodity)

		detail, ok := ops.BudgetMonthDetail("Food", 197001)
		assert.True(t, ok)
		assert.True(t, detail.AssignedAmount.Number.Equal(decimal.NewFromInt(500)))
		// Expenses has normal sign +1, so spending shows as positive
		// activity.
		assert.True(t, detail.ActivityAmount.Number.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, 1, len(detail.Events))
	})
}

func TestBudgetTransferMovesAssignedAmount(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
1970-01-01 budget Rent CNY
1970-01-05 budget-add Food 500 CNY
1970-01-06 budget-transfer Food Rent 200 CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))

		food, _ := ops.BudgetMonthDetail("Food", 197001)
		rent, _ := ops.BudgetMonthDetail("Rent", 197001)
		assert.True(t, food.AssignedAmount.Number.Equal(decimal.NewFromInt(300)))
		assert.True(t, rent.AssignedAmount.Number.Equal(decimal.NewFromInt(200)))
	})
}

func TestBudgetErrors(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
1970-01-02 budget Food CNY
1970-01-05 budget-add Missing 100 CNY
1970-01-06 budget-close Missing
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []store.ErrorKind{
			store.ErrDefineDuplicatedBudget,
			store.ErrBudgetDoesNotExist,
			store.ErrBudgetDoesNotExist,
		}, errorKinds(ops))
	})
}

func TestBudgetClose(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
1970-02-01 budget-close Food
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, 0, len(ops.Errors()))
		assert.True(t, ops.AllBudgets()[0].Closed)
	})
}

func TestBudgetMonthDetailForUntouchedInterval(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
`)

	withOps(t, l, func(ops *operations.Operations) {
		detail, ok := ops.BudgetMonthDetail("Food", 202401)
		assert.True(t, ok)
		assert.True(t, detail.AssignedAmount.Number.IsZero())
		assert.Equal(t, "CNY", detail.AssignedAmount.Commodity)

		_, ok = ops.BudgetMonthDetail("Missing", 202401)
		assert.False(t, ok)
	})
}

func TestAccountBudgetLookup(t *testing.T) {
	l := loadFixture(t, `1970-01-01 budget Food CNY
1970-01-01 open Expenses:Food CNY
  budget: "Food"
`)

	withOps(t, l, func(ops *operations.Operations) {
		assert.Equal(t, []string{"Food"}, ops.GetAccountBudget("Expenses:Food"))
		assert.Zero(t, ops.GetAccountBudget("Assets:Other"))
	})
}
