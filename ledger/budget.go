package ledger

import (
	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// BudgetHandler processes Budget directives. Declaring an existing budget
// again records a DefineDuplicatedBudget error and is skipped.
type BudgetHandler struct{}

func (h *BudgetHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	budget := d.(*ast.Budget)
	if r.ops().ContainsBudget(budget.Name) {
		r.ops().NewError(store.ErrDefineDuplicatedBudget, span, map[string]string{"budget_name": budget.Name})
		return false
	}
	return true
}

func (h *BudgetHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	budget := d.(*ast.Budget)
	alias, _ := budget.GetMeta().GetOne("alias")
	category, _ := budget.GetMeta().GetOne("category")
	r.ops().InitBudget(budget.Name, budget.Commodity, alias, category)
	return nil
}

// BudgetAddHandler assigns an amount to a budget's interval.
type BudgetAddHandler struct{}

func (h *BudgetAddHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	add := d.(*ast.BudgetAdd)
	if !r.ops().ContainsBudget(add.Name) {
		r.ops().NewError(store.ErrBudgetDoesNotExist, span, map[string]string{"budget_name": add.Name})
		return false
	}
	return true
}

func (h *BudgetAddHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	add := d.(*ast.BudgetAdd)
	return r.ops().BudgetAddAssignedAmount(add.Name, r.datetime(add.Date), store.BudgetEventAddAssigned, add.Amount)
}

// BudgetTransferHandler moves assigned amount between two budgets.
type BudgetTransferHandler struct{}

func (h *BudgetTransferHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	transfer := d.(*ast.BudgetTransfer)
	for _, name := range []string{transfer.From, transfer.To} {
		if !r.ops().ContainsBudget(name) {
			r.ops().NewError(store.ErrBudgetDoesNotExist, span, map[string]string{"budget_name": name})
			return false
		}
	}
	return true
}

func (h *BudgetTransferHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	transfer := d.(*ast.BudgetTransfer)
	return r.ops().BudgetTransfer(r.datetime(transfer.Date), transfer.From, transfer.To, transfer.Amount)
}

// BudgetCloseHandler marks a budget closed.
type BudgetCloseHandler struct{}

func (h *BudgetCloseHandler) Validate(r *run, d ast.Directive, span ast.SpanInfo) bool {
	close := d.(*ast.BudgetClose)
	if !r.ops().ContainsBudget(close.Name) {
		r.ops().NewError(store.ErrBudgetDoesNotExist, span, map[string]string{"budget_name": close.Name})
		return false
	}
	return true
}

func (h *BudgetCloseHandler) Process(r *run, d ast.Directive, span ast.SpanInfo) error {
	close := d.(*ast.BudgetClose)
	return r.ops().BudgetClose(close.Name)
}
