package operations

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
)

// BalanceNode is one node of a hierarchical balance report. Parent nodes
// aggregate the balances of all their descendants; type roots are virtual
// and carry no account of their own.
type BalanceNode struct {
	Name     string
	Account  string
	Depth    int
	Balances map[string]decimal.Decimal
	Children []*BalanceNode
}

// BalanceTree is a hierarchical view of account balances at a date,
// organised under the account types in reporting order.
type BalanceTree struct {
	Date        time.Time
	Roots       []*BalanceNode
	Commodities []string
}

// BalanceTree builds the report for the given account types at a date.
// Passing no types includes all five (a trial balance).
func (o *Operations) BalanceTree(types []ast.AccountType, date time.Time) *BalanceTree {
	included := make(map[ast.AccountType]bool)
	if len(types) == 0 {
		types = ast.AccountTypes
	}
	for _, t := range types {
		included[t] = true
	}

	// Collect leaf balances per account.
	balances := make(map[string]map[string]decimal.Decimal)
	commoditySet := make(map[string]bool)
	for _, name := range o.AllAccounts() {
		account := o.Store.Accounts[name]
		if !included[account.Type] {
			continue
		}
		perCommodity := make(map[string]decimal.Decimal)
		for _, balance := range o.AccountTargetDateBalance(name, date) {
			perCommodity[balance.Commodity] = balance.Number
			commoditySet[balance.Commodity] = true
		}
		balances[name] = perCommodity
	}

	commodities := make([]string, 0, len(commoditySet))
	for commodity := range commoditySet {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)

	tree := &BalanceTree{Date: date, Commodities: commodities}
	for _, accountType := range ast.AccountTypes {
		if !included[accountType] {
			continue
		}
		if root := buildTypeSubtree(accountType, balances); root != nil {
			tree.Roots = append(tree.Roots, root)
		}
	}
	return tree
}

// buildTypeSubtree builds the subtree of one account type, creating
// implicit intermediate nodes and aggregating balances bottom-up.
func buildTypeSubtree(accountType ast.AccountType, balances map[string]map[string]decimal.Decimal) *BalanceNode {
	prefix := string(accountType) + ":"
	nodes := make(map[string]*BalanceNode)

	var names []string
	for name := range balances {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	// First create leaf nodes and every implicit intermediate node, then
	// link parents to children once all nodes exist.
	for _, name := range names {
		nodes[name] = &BalanceNode{
			Name:     name,
			Account:  name,
			Depth:    strings.Count(name, ":"),
			Balances: copyBalances(balances[name]),
		}
		parts := strings.Split(name, ":")
		for i := 1; i < len(parts); i++ {
			parentPath := strings.Join(parts[:i], ":")
			if _, ok := nodes[parentPath]; !ok {
				nodes[parentPath] = &BalanceNode{
					Name:     parentPath,
					Account:  parentPath,
					Depth:    i - 1,
					Balances: make(map[string]decimal.Decimal),
				}
			}
		}
	}

	for name, node := range nodes {
		idx := strings.LastIndexByte(name, ':')
		if idx < 0 {
			continue
		}
		parent := nodes[name[:idx]]
		if !containsChild(parent, node) {
			parent.Children = append(parent.Children, node)
		}
	}

	for _, node := range nodes {
		sort.Slice(node.Children, func(i, j int) bool {
			return node.Children[i].Name < node.Children[j].Name
		})
	}

	root := nodes[string(accountType)]
	if root == nil {
		return nil
	}
	root.Account = "" // virtual type root
	aggregate(root)
	return root
}

func containsChild(parent, child *BalanceNode) bool {
	for _, c := range parent.Children {
		if c.Name == child.Name {
			return true
		}
	}
	return false
}

// aggregate sums balances bottom-up so parent nodes include all their
// descendants.
func aggregate(node *BalanceNode) {
	for _, child := range node.Children {
		aggregate(child)
		for commodity, number := range child.Balances {
			node.Balances[commodity] = node.Balances[commodity].Add(number)
		}
	}
}

func copyBalances(balances map[string]decimal.Decimal) map[string]decimal.Decimal {
	copied := make(map[string]decimal.Decimal, len(balances))
	for commodity, number := range balances {
		copied[commodity] = number
	}
	return copied
}

// BalanceSheet reports Assets, Liabilities and Equity at a date.
func (o *Operations) BalanceSheet(date time.Time) *BalanceTree {
	return o.BalanceTree([]ast.AccountType{ast.Assets, ast.Liabilities, ast.Equity}, date)
}

// IncomeStatement reports Income and Expenses activity within [from, to]:
// the signed sum of inferred amounts of the period's postings, signed by
// each account's normal sign so revenue and spending both read positive.
func (o *Operations) IncomeStatement(from, to time.Time) map[string]map[string]decimal.Decimal {
	result := make(map[string]map[string]decimal.Decimal)
	for i := range o.Store.Postings {
		p := &o.Store.Postings[i]
		if !p.Account.IsIncomeStatement() {
			continue
		}
		if p.TrxDatetime.Before(from) || p.TrxDatetime.After(to) {
			continue
		}
		name := p.Account.Name()
		if result[name] == nil {
			result[name] = make(map[string]decimal.Decimal)
		}
		sign := decimal.NewFromInt(int64(p.Account.NormalSign()))
		commodity := p.InferredAmount.Commodity
		result[name][commodity] = result[name][commodity].Add(p.InferredAmount.Number.Mul(sign))
	}
	return result
}
