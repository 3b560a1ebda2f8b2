package ast

// withMeta is an embeddable struct implementing WithMeta.
type withMeta struct {
	Meta *Meta
}

func (w *withMeta) GetMeta() *Meta {
	if w.Meta == nil {
		w.Meta = NewMeta()
	}
	return w.Meta
}

// Option sets a configuration parameter affecting how the ledger is
// processed. Options are undated and executed in a pre-pass before any
// dated directive.
//
// Example:
//
//	option "operating_currency" "CNY"
type Option struct {
	Key   string
	Value string
}

func (o *Option) Kind() DirectiveKind { return KindOption }
func (o *Option) GetDate() *Date      { return nil }

// Include pulls the directives of another ledger file into the load. The
// path is resolved relative to the including file and may contain glob
// segments.
//
// Example:
//
//	include "accounts.zhang"
//	include "data/2024/*.zhang"
type Include struct {
	File string
}

func (i *Include) Kind() DirectiveKind { return KindInclude }
func (i *Include) GetDate() *Date      { return nil }

// Plugin declares a processing plugin with an optional configuration value.
// Plugins are only executed when the features.plugin option is enabled.
type Plugin struct {
	Module string
	Values []string
}

func (p *Plugin) Kind() DirectiveKind { return KindPlugin }
func (p *Plugin) GetDate() *Date      { return nil }

// Comment is a source comment line, preserved so a full export reproduces
// the file.
type Comment struct {
	Content string
}

func (c *Comment) Kind() DirectiveKind { return KindComment }
func (c *Comment) GetDate() *Date      { return nil }

// Open declares the opening of an account, optionally constrained to a set
// of commodities. An "alias" meta entry becomes the account's display alias.
//
// Example:
//
//	1970-01-01 open Assets:Cash CNY
type Open struct {
	Date        *Date
	Account     Account
	Commodities []string

	withMeta
}

func (o *Open) Kind() DirectiveKind { return KindOpen }
func (o *Open) GetDate() *Date      { return o.Date }

// Close declares the closing of an account. Closing an account that still
// holds a balance records a CloseNonZeroAccount error but is not fatal.
type Close struct {
	Date    *Date
	Account Account

	withMeta
}

func (c *Close) Kind() DirectiveKind { return KindClose }
func (c *Close) GetDate() *Date      { return c.Date }

// Commodity defines a commodity before it may appear in any amount.
// Precision, prefix, suffix and rounding are read from meta entries,
// falling back to the ledger defaults.
//
// Example:
//
//	1970-01-01 commodity CNY
//	  precision: 2
//	  rounding: RoundDown
type Commodity struct {
	Date     *Date
	Currency string

	withMeta
}

func (c *Commodity) Kind() DirectiveKind { return KindCommodity }
func (c *Commodity) GetDate() *Date      { return c.Date }

// BalanceCheck asserts the balance of an account at the end of a date. A
// mismatch records an AccountBalanceCheckError and synthesises an
// adjustment transaction that pushes the account to the asserted value, so
// the store stays consistent even when the user is alerted.
//
// Example:
//
//	1970-01-02 balance Assets:Cash 100 CNY
type BalanceCheck struct {
	Date    *Date
	Account Account
	Amount  Amount

	withMeta
}

func (b *BalanceCheck) Kind() DirectiveKind { return KindBalanceCheck }
func (b *BalanceCheck) GetDate() *Date      { return b.Date }

// BalancePad asserts a balance and pads the difference from another
// account, synthesising a two-leg transaction that brings the asserted
// account exactly to the expected value.
//
// Example:
//
//	1970-01-02 balance Assets:Cash 50 CNY with pad Equity:Open
type BalancePad struct {
	Date    *Date
	Account Account
	Pad     Account
	Amount  Amount

	withMeta
}

func (b *BalancePad) Kind() DirectiveKind { return KindBalancePad }
func (b *BalancePad) GetDate() *Date      { return b.Date }

// Note attaches a dated comment to an account.
type Note struct {
	Date    *Date
	Account Account
	Comment string

	withMeta
}

func (n *Note) Kind() DirectiveKind { return KindNote }
func (n *Note) GetDate() *Date      { return n.Date }

// Document associates an external file with an account.
//
// Example:
//
//	1970-01-02 document Assets:Cash "statements/1970-01.pdf"
type Document struct {
	Date     *Date
	Account  Account
	Filename string

	withMeta
}

func (d *Document) Kind() DirectiveKind { return KindDocument }
func (d *Document) GetDate() *Date      { return d.Date }

// Price records the price of a commodity in terms of another at a date.
// The effective price for a lookup is the most recent entry at or before
// the queried date.
//
// Example:
//
//	1970-01-01 price USD 7 CNY
type Price struct {
	Date     *Date
	Currency string
	Amount   Amount

	withMeta
}

func (p *Price) Kind() DirectiveKind { return KindPrice }
func (p *Price) GetDate() *Date      { return p.Date }

// Event records a named value change at a date. Events round-trip through
// the codecs but are not materialised into the store.
type Event struct {
	Date  *Date
	Key   string
	Value string

	withMeta
}

func (e *Event) Kind() DirectiveKind { return KindEvent }
func (e *Event) GetDate() *Date      { return e.Date }

// CustomValue is a single token of a custom directive, remembering whether
// it was quoted in the source so exports reproduce it.
type CustomValue struct {
	Value  string
	Quoted bool
}

// Custom is an open-ended dated directive carrying arbitrary values.
type Custom struct {
	Date   *Date
	Type   string
	Values []CustomValue

	withMeta
}

func (c *Custom) Kind() DirectiveKind { return KindCustom }
func (c *Custom) GetDate() *Date      { return c.Date }

// Budget declares a named monthly budget denominated in a single commodity.
// "alias" and "category" meta entries decorate the budget for reporting.
//
// Example:
//
//	1970-01-01 budget Food CNY
type Budget struct {
	Date      *Date
	Name      string
	Commodity string

	withMeta
}

func (b *Budget) Kind() DirectiveKind { return KindBudget }
func (b *Budget) GetDate() *Date      { return b.Date }

// BudgetAdd assigns an amount to the budget interval containing the date.
type BudgetAdd struct {
	Date   *Date
	Name   string
	Amount Amount

	withMeta
}

func (b *BudgetAdd) Kind() DirectiveKind { return KindBudgetAdd }
func (b *BudgetAdd) GetDate() *Date      { return b.Date }

// BudgetTransfer moves assigned amount between two budgets at the date's
// interval.
type BudgetTransfer struct {
	Date   *Date
	From   string
	To     string
	Amount Amount

	withMeta
}

func (b *BudgetTransfer) Kind() DirectiveKind { return KindBudgetTransfer }
func (b *BudgetTransfer) GetDate() *Date      { return b.Date }

// BudgetClose marks a budget closed as of the date.
type BudgetClose struct {
	Date *Date
	Name string

	withMeta
}

func (b *BudgetClose) Kind() DirectiveKind { return KindBudgetClose }
func (b *BudgetClose) GetDate() *Date      { return b.Date }
