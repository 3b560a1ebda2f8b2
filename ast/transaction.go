package ast

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Flag marks the state of a transaction. BalanceCheck and BalancePad flag
// the synthetic correction entries emitted while processing balance
// assertions; those bypass the balance validation.
type Flag string

const (
	FlagOkay         Flag = "*"
	FlagWarning      Flag = "!"
	FlagBalanceCheck Flag = "BC"
	FlagBalancePad   Flag = "PAD"
)

// IsBalanceFlag reports whether the flag marks a synthetic balance
// correction entry.
func (f Flag) IsBalanceFlag() bool {
	return f == FlagBalanceCheck || f == FlagBalancePad
}

// PostingPrice is the @ (single, per-unit) or @@ (total) price attached to
// a posting.
type PostingPrice struct {
	Amount Amount
	Total  bool
}

// Posting is one leg of a transaction affecting a single account. Units may
// be omitted for at most one posting per transaction; the omitted amount is
// inferred from the others.
type Posting struct {
	Flag     Flag
	Account  Account
	Units    *Amount
	Cost     *Amount
	CostDate *Date
	Price    *PostingPrice

	withMeta
}

// Transaction records a dated movement between accounts.
//
// Example:
//
//	1970-01-02 * "Shop" "lunch" #food ^trip
//	  Assets:Cash -10 CNY
//	  Expenses:Food 10 CNY
type Transaction struct {
	Date      *Date
	Flag      Flag
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []*Posting

	withMeta
}

func (t *Transaction) Kind() DirectiveKind { return KindTransaction }
func (t *Transaction) GetDate() *Date      { return t.Date }

// GetFlag returns the transaction flag, defaulting to Okay.
func (t *Transaction) GetFlag() Flag {
	if t.Flag == "" {
		return FlagOkay
	}
	return t.Flag
}

// Inference errors reported by TxnPosting.
var (
	// ErrMultipleImplicitPostings is returned when more than one posting
	// omits its units; no inference is performed in that case.
	ErrMultipleImplicitPostings = errors.New("transaction has multiple implicit postings")
	// ErrCannotInferTradeAmount is returned when the explicit postings mix
	// commodities so the implicit amount has no unique commodity.
	ErrCannotInferTradeAmount = errors.New("cannot infer trade amount")
)

// TxnPosting pairs a posting with its owning transaction for amount
// inference.
type TxnPosting struct {
	Txn     *Transaction
	Posting *Posting
}

// TxnPostings returns one TxnPosting per posting.
func (t *Transaction) TxnPostings() []TxnPosting {
	pairs := make([]TxnPosting, len(t.Postings))
	for i, p := range t.Postings {
		pairs[i] = TxnPosting{Txn: t, Posting: p}
	}
	return pairs
}

// ImplicitCount returns the number of postings with absent units.
func (t *Transaction) ImplicitCount() int {
	n := 0
	for _, p := range t.Postings {
		if p.Units == nil {
			n++
		}
	}
	return n
}

// TradeAmount returns the posting's weight for balancing: the units
// converted through the attached price when one is present, otherwise the
// units themselves. Returns false for implicit postings.
func (tp TxnPosting) TradeAmount() (Amount, bool) {
	p := tp.Posting
	if p.Units == nil {
		return Amount{}, false
	}
	if p.Price != nil {
		if p.Price.Total {
			// The total price carries the magnitude; the units carry the sign.
			n := p.Price.Amount.Number
			if p.Units.Number.IsNegative() {
				n = n.Neg()
			}
			return NewAmount(n, p.Price.Amount.Commodity), true
		}
		return NewAmount(p.Units.Number.Mul(p.Price.Amount.Number), p.Price.Amount.Commodity), true
	}
	if p.Cost != nil {
		return NewAmount(p.Units.Number.Mul(p.Cost.Number), p.Cost.Commodity), true
	}
	return *p.Units, true
}

// InferTradeAmount resolves the amount a posting actually moves: the units
// when given, else the negation of the sum of the other postings' trade
// amounts in their single shared commodity.
func (tp TxnPosting) InferTradeAmount() (Amount, error) {
	if tp.Posting.Units != nil {
		return *tp.Posting.Units, nil
	}
	if tp.Txn.ImplicitCount() > 1 {
		return Amount{}, ErrMultipleImplicitPostings
	}
	sum := decimal.Zero
	commodity := ""
	for _, other := range tp.Txn.Postings {
		if other == tp.Posting {
			continue
		}
		trade, ok := (TxnPosting{Txn: tp.Txn, Posting: other}).TradeAmount()
		if !ok {
			continue
		}
		if commodity == "" {
			commodity = trade.Commodity
		} else if commodity != trade.Commodity {
			return Amount{}, ErrCannotInferTradeAmount
		}
		sum = sum.Add(trade.Number)
	}
	if commodity == "" {
		return Amount{}, ErrCannotInferTradeAmount
	}
	return NewAmount(sum.Neg(), commodity), nil
}

// LotInfo selects the commodity lot a posting books against.
type LotInfo struct {
	// Policy is Fifo unless an explicit cost names a lot.
	Policy LotPolicy
	// Price is the acquisition cost per unit for explicit lots.
	Price *Amount
}

// LotPolicy enumerates lot selection policies. Filo is reserved and
// deliberately unimplemented.
type LotPolicy int

const (
	LotFifo LotPolicy = iota
	LotExplicit
	LotFilo
)

// Lots derives the posting's lot selection: an explicit lot when a cost is
// attached, FIFO otherwise.
func (tp TxnPosting) Lots() LotInfo {
	if tp.Posting.Cost != nil {
		cost := *tp.Posting.Cost
		return LotInfo{Policy: LotExplicit, Price: &cost}
	}
	return LotInfo{Policy: LotFifo}
}
