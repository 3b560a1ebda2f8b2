package operations

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// AccountJournal is one journal line: a posting joined with its owning
// transaction's header fields.
type AccountJournal struct {
	Datetime              time.Time
	Account               string
	TrxID                 string
	Payee                 string
	Narration             string
	InferredUnitNumber    decimal.Decimal
	InferredUnitCommodity string
	AccountAfterNumber    decimal.Decimal
	AccountAfterCommodity string
}

func journalRow(p *store.PostingDomain, trx *store.TransactionDomain) AccountJournal {
	row := AccountJournal{
		Datetime:              p.TrxDatetime,
		Account:               p.Account.Name(),
		TrxID:                 p.TrxID.String(),
		InferredUnitNumber:    p.InferredAmount.Number,
		InferredUnitCommodity: p.InferredAmount.Commodity,
		AccountAfterNumber:    p.AfterAmount.Number,
		AccountAfterCommodity: p.AfterAmount.Commodity,
	}
	if trx != nil {
		row.Payee = trx.Payee
		row.Narration = trx.Narration
	}
	return row
}

// AccountJournals returns the postings of one account, most recent first.
func (o *Operations) AccountJournals(name string) []AccountJournal {
	return o.journals(func(p *store.PostingDomain) bool {
		return p.Account.Name() == name
	}, nil, nil)
}

// AccountTypeDatedJournals returns the postings of every account of a type
// within [from, to], most recent first.
func (o *Operations) AccountTypeDatedJournals(typ ast.AccountType, from, to time.Time) []AccountJournal {
	return o.journals(func(p *store.PostingDomain) bool {
		return p.Account.Type() == typ
	}, &from, &to)
}

// DatedJournals returns every posting within [from, to], most recent first.
func (o *Operations) DatedJournals(from, to time.Time) []AccountJournal {
	return o.journals(func(p *store.PostingDomain) bool { return true }, &from, &to)
}

func (o *Operations) journals(match func(*store.PostingDomain) bool, from, to *time.Time) []AccountJournal {
	type entry struct {
		posting *store.PostingDomain
	}
	var entries []entry
	for i := range o.Store.Postings {
		p := &o.Store.Postings[i]
		if !match(p) {
			continue
		}
		if from != nil && p.TrxDatetime.Before(*from) {
			continue
		}
		if to != nil && p.TrxDatetime.After(*to) {
			continue
		}
		entries = append(entries, entry{posting: p})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return postingAfter(entries[i].posting, entries[j].posting)
	})

	rows := make([]AccountJournal, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, journalRow(e.posting, o.Store.Transactions[e.posting.TrxID]))
	}
	return rows
}

// AccountDocuments returns the documents attached to an account.
func (o *Operations) AccountDocuments(name string) []store.DocumentDomain {
	var documents []store.DocumentDomain
	for _, d := range o.Store.Documents {
		if d.TrxID == nil && d.Account.Name() == name {
			documents = append(documents, d)
		}
	}
	return documents
}

// Documents returns every stored document.
func (o *Operations) Documents() []store.DocumentDomain {
	return o.Store.Documents
}
