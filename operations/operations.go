// Package operations is the query and mutation facade over the store. All
// reads and writes of materialised ledger data go through an Operations
// value, which borrows the Store under the ledger's read-write lock.
package operations

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// Operations wraps a borrowed Store. The caller is responsible for holding
// the appropriate ledger lock for the lifetime of the value.
type Operations struct {
	Store    *store.Store
	Timezone *time.Location
}

// New creates an Operations facade over the given store.
func New(s *store.Store, tz *time.Location) *Operations {
	if tz == nil {
		tz = time.Local
	}
	return &Operations{Store: s, Timezone: tz}
}

// AccountAmount is a per-commodity balance figure.
type AccountAmount struct {
	Number    decimal.Decimal
	Commodity string
}

// AccountBalance is one per-commodity balance row of an account.
type AccountBalance struct {
	Datetime         time.Time
	Account          string
	AccountStatus    store.AccountStatus
	BalanceNumber    decimal.Decimal
	BalanceCommodity string
}

// AllAccounts returns every account name, sorted.
func (o *Operations) AllAccounts() []string {
	names := make([]string, 0, len(o.Store.Accounts))
	for name := range o.Store.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllOpenAccounts returns every account row with Open status.
func (o *Operations) AllOpenAccounts() []*store.AccountDomain {
	var accounts []*store.AccountDomain
	for _, name := range o.AllAccounts() {
		if acc := o.Store.Accounts[name]; acc.Status == store.AccountOpen {
			accounts = append(accounts, acc)
		}
	}
	return accounts
}

// Account returns the account row, or nil when unknown.
func (o *Operations) Account(name string) *store.AccountDomain {
	return o.Store.Accounts[name]
}

// ExistAccount reports whether the account has been opened.
func (o *Operations) ExistAccount(name string) bool {
	_, ok := o.Store.Accounts[name]
	return ok
}

// SingleAccountBalances returns the account's latest balance per commodity.
func (o *Operations) SingleAccountBalances(name string) []AccountBalance {
	acc := o.Store.Accounts[name]
	status := store.AccountOpen
	if acc != nil {
		status = acc.Status
	}

	latest := make(map[string]*store.PostingDomain)
	for i := range o.Store.Postings {
		p := &o.Store.Postings[i]
		if p.Account.Name() != name {
			continue
		}
		cur := latest[p.InferredAmount.Commodity]
		if cur == nil || postingAfter(p, cur) {
			latest[p.InferredAmount.Commodity] = p
		}
	}

	commodities := make([]string, 0, len(latest))
	for commodity := range latest {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)

	balances := make([]AccountBalance, 0, len(commodities))
	for _, commodity := range commodities {
		p := latest[commodity]
		balances = append(balances, AccountBalance{
			Datetime:         p.TrxDatetime,
			Account:          name,
			AccountStatus:    status,
			BalanceNumber:    p.AfterAmount.Number,
			BalanceCommodity: commodity,
		})
	}
	return balances
}

// AccountTargetDateBalance returns, per commodity, the sum of inferred
// amounts over all postings of the account dated at or before date.
func (o *Operations) AccountTargetDateBalance(name string, date time.Time) []AccountAmount {
	sums := make(map[string]decimal.Decimal)
	for i := range o.Store.Postings {
		p := &o.Store.Postings[i]
		if p.Account.Name() != name || p.TrxDatetime.After(date) {
			continue
		}
		sums[p.InferredAmount.Commodity] = sums[p.InferredAmount.Commodity].Add(p.InferredAmount.Number)
	}

	commodities := make([]string, 0, len(sums))
	for commodity := range sums {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)

	amounts := make([]AccountAmount, 0, len(commodities))
	for _, commodity := range commodities {
		amounts = append(amounts, AccountAmount{Number: sums[commodity], Commodity: commodity})
	}
	return amounts
}

// AccountTargetDayBalance returns the after-amount of the latest posting at
// or before datetime for the (account, commodity) pair, or nil when the
// account has no posting in that commodity yet.
func (o *Operations) AccountTargetDayBalance(name string, datetime time.Time, commodity string) *AccountAmount {
	var latest *store.PostingDomain
	for i := range o.Store.Postings {
		p := &o.Store.Postings[i]
		if p.Account.Name() != name || p.InferredAmount.Commodity != commodity || p.TrxDatetime.After(datetime) {
			continue
		}
		if latest == nil || postingAfter(p, latest) {
			latest = p
		}
	}
	if latest == nil {
		return nil
	}
	return &AccountAmount{Number: latest.AfterAmount.Number, Commodity: commodity}
}

// postingAfter reports whether a orders after b by (datetime, sequence).
func postingAfter(a, b *store.PostingDomain) bool {
	if !a.TrxDatetime.Equal(b.TrxDatetime) {
		return a.TrxDatetime.After(b.TrxDatetime)
	}
	return a.TrxSequence > b.TrxSequence
}

// Commodity returns the commodity row, or nil when undefined.
func (o *Operations) Commodity(name string) *store.CommodityDomain {
	return o.Store.Commodities[name]
}

// ExistCommodity reports whether the commodity has been defined.
func (o *Operations) ExistCommodity(name string) bool {
	_, ok := o.Store.Commodities[name]
	return ok
}

// AllCommodities returns every commodity row, sorted by name.
func (o *Operations) AllCommodities() []*store.CommodityDomain {
	names := make([]string, 0, len(o.Store.Commodities))
	for name := range o.Store.Commodities {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]*store.CommodityDomain, 0, len(names))
	for _, name := range names {
		rows = append(rows, o.Store.Commodities[name])
	}
	return rows
}

// CommodityLots returns the lot records held against a commodity across all
// accounts.
func (o *Operations) CommodityLots(commodity string) []store.CommodityLotRecord {
	var lots []store.CommodityLotRecord
	for _, records := range o.Store.CommodityLots {
		for _, record := range records {
			if record.Commodity == commodity {
				lots = append(lots, record)
			}
		}
	}
	return lots
}

// GetCommodityBalances sums the inferred amounts of every posting in the
// given commodity, across all accounts.
func (o *Operations) GetCommodityBalances(commodity string) decimal.Decimal {
	total := decimal.Zero
	for i := range o.Store.Postings {
		if o.Store.Postings[i].InferredAmount.Commodity == commodity {
			total = total.Add(o.Store.Postings[i].InferredAmount.Number)
		}
	}
	return total
}

// Option returns the stored value for an option key.
func (o *Operations) Option(key string) (string, bool) {
	v, ok := o.Store.Options[key]
	return v, ok
}

// Options returns a copy of all stored options.
func (o *Operations) Options() map[string]string {
	options := make(map[string]string, len(o.Store.Options))
	for k, v := range o.Store.Options {
		options[k] = v
	}
	return options
}

// Metas returns the metadata entries of one identifier within a meta type.
func (o *Operations) Metas(typ store.MetaType, identifier string) []store.MetaDomain {
	var metas []store.MetaDomain
	for _, m := range o.Store.Metas {
		if m.Type == typ && m.TypeIdentifier == identifier {
			metas = append(metas, m)
		}
	}
	return metas
}

// TransactionCounts returns the number of materialised transactions.
func (o *Operations) TransactionCounts() int {
	return len(o.Store.Transactions)
}

// Transaction returns a transaction row by id.
func (o *Operations) Transaction(id uuid.UUID) *store.TransactionDomain {
	return o.Store.Transactions[id]
}

// TransactionSpan returns the source span of a transaction.
func (o *Operations) TransactionSpan(id uuid.UUID) (ast.SpanInfo, bool) {
	trx, ok := o.Store.Transactions[id]
	if !ok {
		return ast.SpanInfo{}, false
	}
	return trx.Span, true
}

// TrxTags returns the tags of a transaction.
func (o *Operations) TrxTags(id uuid.UUID) []string {
	if trx, ok := o.Store.Transactions[id]; ok {
		return trx.Tags
	}
	return nil
}

// TrxLinks returns the links of a transaction.
func (o *Operations) TrxLinks(id uuid.UUID) []string {
	if trx, ok := o.Store.Transactions[id]; ok {
		return trx.Links
	}
	return nil
}

// Errors returns all recorded non-fatal errors.
func (o *Operations) Errors() []store.ErrorDomain {
	return o.Store.Errors
}
