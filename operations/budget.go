package operations

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// ContainsBudget reports whether a budget with the name exists.
func (o *Operations) ContainsBudget(name string) bool {
	_, ok := o.Store.Budgets[name]
	return ok
}

// AllBudgets returns every budget, sorted by name.
func (o *Operations) AllBudgets() []*store.BudgetDomain {
	names := make([]string, 0, len(o.Store.Budgets))
	for name := range o.Store.Budgets {
		names = append(names, name)
	}
	sort.Strings(names)
	budgets := make([]*store.BudgetDomain, 0, len(names))
	for _, name := range names {
		budgets = append(budgets, o.Store.Budgets[name])
	}
	return budgets
}

// InitBudget creates a budget denominated in the given commodity.
func (o *Operations) InitBudget(name, commodity string, alias, category string) {
	o.Store.Budgets[name] = &store.BudgetDomain{
		Name:      name,
		Alias:     alias,
		Category:  category,
		Commodity: commodity,
		Detail:    make(map[uint32]*store.BudgetIntervalDetail),
	}
}

// budgetInterval returns (creating if missing) the detail row of the
// given interval. Assigned and activity amounts start at zero
// in the budget's commodity.
func budgetInterval(b *store.BudgetDomain, interval uint32) *store.BudgetIntervalDetail {
	detail, ok := b.Detail[interval]
	if !ok {
		detail = &store.BudgetIntervalDetail{
			Date:           interval,
			AssignedAmount: ast.NewAmount(decimal.Zero, b.Commodity),
			ActivityAmount: ast.NewAmount(decimal.Zero, b.Commodity),
		}
		b.Detail[interval] = detail
	}
	return detail
}

func intervalOf(datetime time.Time) uint32 {
	return uint32(datetime.Year()*100 + int(datetime.Month()))
}

// BudgetAddAssignedAmount assigns an amount to the interval containing the
// datetime. The amount must be in the budget's commodity.
func (o *Operations) BudgetAddAssignedAmount(name string, datetime time.Time, eventType store.BudgetEventType, amount ast.Amount) error {
	budget, ok := o.Store.Budgets[name]
	if !ok {
		return fmt.Errorf("budget %s does not exist", name)
	}
	if amount.Commodity != budget.Commodity {
		return fmt.Errorf("budget %s is denominated in %s, cannot assign %s", name, budget.Commodity, amount.Commodity)
	}
	detail := budgetInterval(budget, intervalOf(datetime))
	detail.AssignedAmount = detail.AssignedAmount.Add(amount.Number)
	detail.Events = append(detail.Events, store.BudgetEvent{
		Datetime: datetime,
		Amount:   amount,
		Type:     eventType,
	})
	return nil
}

// BudgetTransfer moves assigned amount between two budgets at the interval
// containing the datetime.
func (o *Operations) BudgetTransfer(datetime time.Time, from, to string, amount ast.Amount) error {
	if err := o.BudgetAddAssignedAmount(from, datetime, store.BudgetEventTransfer, amount.Neg()); err != nil {
		return err
	}
	return o.BudgetAddAssignedAmount(to, datetime, store.BudgetEventTransfer, amount)
}

// BudgetAddActivity adds a posting's signed inferred amount to the
// interval's activity. The amount must be in the budget's commodity.
func (o *Operations) BudgetAddActivity(name string, datetime time.Time, amount ast.Amount) error {
	budget, ok := o.Store.Budgets[name]
	if !ok {
		return fmt.Errorf("budget %s does not exist", name)
	}
	if amount.Commodity != budget.Commodity {
		return fmt.Errorf("budget %s is denominated in %s, cannot record activity in %s", name, budget.Commodity, amount.Commodity)
	}
	detail := budgetInterval(budget, intervalOf(datetime))
	detail.ActivityAmount = detail.ActivityAmount.Add(amount.Number)
	return nil
}

// BudgetClose marks a budget closed.
func (o *Operations) BudgetClose(name string) error {
	budget, ok := o.Store.Budgets[name]
	if !ok {
		return fmt.Errorf("budget %s does not exist", name)
	}
	budget.Closed = true
	return nil
}

// BudgetMonthDetail returns the interval detail of a budget, with a
// zero-amount row for intervals the budget has never touched.
func (o *Operations) BudgetMonthDetail(name string, interval uint32) (*store.BudgetIntervalDetail, bool) {
	budget, ok := o.Store.Budgets[name]
	if !ok {
		return nil, false
	}
	if detail, ok := budget.Detail[interval]; ok {
		return detail, true
	}
	return &store.BudgetIntervalDetail{
		Date:           interval,
		AssignedAmount: ast.NewAmount(decimal.Zero, budget.Commodity),
		ActivityAmount: ast.NewAmount(decimal.Zero, budget.Commodity),
	}, true
}

// GetAccountBudget returns the budget names the account is tagged to via
// its "budget" account meta entries.
func (o *Operations) GetAccountBudget(account string) []string {
	var names []string
	for _, m := range o.Store.Metas {
		if m.Type == store.AccountMeta && m.TypeIdentifier == account && m.Key == "budget" {
			names = append(names, m.Value)
		}
	}
	return names
}
