package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
)

// AccountStatus tracks the lifecycle of an account row.
type AccountStatus string

const (
	AccountOpen  AccountStatus = "Open"
	AccountClose AccountStatus = "Close"
)

// AccountDomain is the materialised account row.
type AccountDomain struct {
	Datetime time.Time
	Type     ast.AccountType
	Name     string
	Status   AccountStatus
	Alias    string
}

// CommodityDomain is the materialised commodity row.
type CommodityDomain struct {
	Name      string
	Precision int32
	Prefix    string
	Suffix    string
	Rounding  Rounding
}

// Rounding selects the rounding policy applied when formatting amounts in a
// commodity.
type Rounding string

const (
	RoundDown Rounding = "RoundDown"
	RoundUp   Rounding = "RoundUp"
)

// ParseRounding parses a rounding policy name.
func ParseRounding(s string) (Rounding, bool) {
	switch Rounding(s) {
	case RoundDown:
		return RoundDown, true
	case RoundUp:
		return RoundUp, true
	default:
		return "", false
	}
}

// TransactionDomain is the materialised transaction row. Postings are kept
// both inline (for journal queries) and in the Store's flat posting table
// (for balance queries).
type TransactionDomain struct {
	ID        uuid.UUID
	Sequence  int32
	Datetime  time.Time
	Flag      ast.Flag
	Payee     string
	Narration string
	Span      ast.SpanInfo
	Tags      []string
	Links     []string
	Postings  []PostingDomain
}

// ContainsKeyword reports whether the keyword matches the payee, narration,
// any tag, any link or any posting account, case-insensitively.
func (t *TransactionDomain) ContainsKeyword(keyword string) bool {
	keyword = strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(t.Payee), keyword) || strings.Contains(strings.ToLower(t.Narration), keyword) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), keyword) {
			return true
		}
	}
	for _, link := range t.Links {
		if strings.Contains(strings.ToLower(link), keyword) {
			return true
		}
	}
	for _, posting := range t.Postings {
		if strings.Contains(strings.ToLower(posting.Account.Name()), keyword) {
			return true
		}
	}
	return false
}

// PostingDomain is the materialised posting row. InferredAmount is what the
// posting actually moves; PreviousAmount and AfterAmount are the account's
// balance in that commodity immediately before and after this posting,
// computed from the stream ordered by (datetime, sequence).
type PostingDomain struct {
	ID             uuid.UUID
	TrxID          uuid.UUID
	TrxSequence    int32
	TrxDatetime    time.Time
	Account        ast.Account
	Unit           *ast.Amount
	Cost           *ast.Amount
	InferredAmount ast.Amount
	PreviousAmount ast.Amount
	AfterAmount    ast.Amount
}

// PriceDomain is one recorded price point.
type PriceDomain struct {
	Datetime        time.Time
	Commodity       string
	Amount          decimal.Decimal
	TargetCommodity string
}

// DocumentDomain links an external file to a transaction or an account.
type DocumentDomain struct {
	Datetime time.Time
	TrxID    *uuid.UUID  // set when attached to a transaction
	Account  ast.Account // set when attached to an account
	Filename string
	Path     string
}

// CommodityLotRecord is one inventory lot of a commodity held by an
// account, identified by its optional acquisition price.
type CommodityLotRecord struct {
	Commodity string
	Datetime  *time.Time
	Amount    decimal.Decimal
	Price     *ast.Amount
}

// MetaType partitions the metadata table.
type MetaType string

const (
	AccountMeta     MetaType = "AccountMeta"
	CommodityMeta   MetaType = "CommodityMeta"
	TransactionMeta MetaType = "TransactionMeta"
)

// MetaDomain is one materialised metadata entry.
type MetaDomain struct {
	Type           MetaType
	TypeIdentifier string
	Key            string
	Value          string
}

// BudgetDomain is a named monthly budget with per-interval detail.
type BudgetDomain struct {
	Name      string
	Alias     string
	Category  string
	Closed    bool
	Commodity string
	// Detail is keyed by the interval encoding year*100+month.
	Detail map[uint32]*BudgetIntervalDetail
}

// BudgetIntervalDetail records assignments and activity of one calendar
// month.
type BudgetIntervalDetail struct {
	Date           uint32
	AssignedAmount ast.Amount
	ActivityAmount ast.Amount
	Events         []BudgetEvent
}

// BudgetEventType distinguishes assignment events.
type BudgetEventType string

const (
	BudgetEventAddAssigned BudgetEventType = "AddAssignedAmount"
	BudgetEventTransfer    BudgetEventType = "Transfer"
)

// BudgetEvent is one assignment or transfer applied to an interval.
type BudgetEvent struct {
	Datetime time.Time
	Amount   ast.Amount
	Type     BudgetEventType
}
