package operations

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/store"
)

// hashID derives a stable 128-bit id from its parts, keeping store
// contents identical across loads of the same source.
func hashID(parts ...any) uuid.UUID {
	sum := sha256.Sum256([]byte(fmt.Sprintln(parts...)))
	id, err := uuid.Parse(hex.EncodeToString(sum[:16]))
	if err != nil {
		panic(err)
	}
	return id
}

// InsertOrUpdateAccount creates the account row or refreshes its opening
// attributes.
func (o *Operations) InsertOrUpdateAccount(datetime time.Time, account ast.Account, status store.AccountStatus, alias string) {
	o.Store.Accounts[account.Name()] = &store.AccountDomain{
		Datetime: datetime,
		Type:     account.Type(),
		Name:     account.Name(),
		Status:   status,
		Alias:    alias,
	}
}

// CloseAccount flips the account's status to Close.
func (o *Operations) CloseAccount(name string) {
	if acc, ok := o.Store.Accounts[name]; ok {
		acc.Status = store.AccountClose
	}
}

// InsertCommodity creates or replaces a commodity row.
func (o *Operations) InsertCommodity(name string, precision int32, prefix, suffix string, rounding store.Rounding) {
	o.Store.Commodities[name] = &store.CommodityDomain{
		Name:      name,
		Precision: precision,
		Prefix:    prefix,
		Suffix:    suffix,
		Rounding:  rounding,
	}
}

// InsertMeta records every entry of a metadata multi-map for an identifier.
func (o *Operations) InsertMeta(typ store.MetaType, identifier string, meta *ast.Meta) {
	for _, entry := range meta.Flatten() {
		o.Store.Metas = append(o.Store.Metas, store.MetaDomain{
			Type:           typ,
			TypeIdentifier: identifier,
			Key:            entry.Key,
			Value:          entry.Value,
		})
	}
}

// InsertOrUpdateOptions stores an option value.
func (o *Operations) InsertOrUpdateOptions(key, value string) {
	o.Store.Options[key] = value
}

// InsertTransaction creates a transaction row.
func (o *Operations) InsertTransaction(id uuid.UUID, sequence int32, datetime time.Time, flag ast.Flag, payee, narration string, tags, links []string, span ast.SpanInfo) *store.TransactionDomain {
	trx := &store.TransactionDomain{
		ID:        id,
		Sequence:  sequence,
		Datetime:  datetime,
		Flag:      flag,
		Payee:     payee,
		Narration: narration,
		Span:      span,
		Tags:      tags,
		Links:     links,
	}
	o.Store.Transactions[id] = trx
	return trx
}

// InsertTransactionPosting appends a posting row to both the flat posting
// table and its owning transaction.
func (o *Operations) InsertTransactionPosting(trxID uuid.UUID, account ast.Account, unit, cost *ast.Amount, inferred, previous, after ast.Amount) {
	trx := o.Store.Transactions[trxID]
	posting := store.PostingDomain{
		ID:             hashID("posting", trxID.String(), len(trx.Postings)),
		TrxID:          trxID,
		TrxSequence:    trx.Sequence,
		TrxDatetime:    trx.Datetime,
		Account:        account,
		Unit:           unit,
		Cost:           cost,
		InferredAmount: inferred,
		PreviousAmount: previous,
		AfterAmount:    after,
	}
	o.Store.Postings = append(o.Store.Postings, posting)
	trx.Postings = append(trx.Postings, posting)
}

// InsertTrxDocument records a document attached to a transaction.
func (o *Operations) InsertTrxDocument(datetime time.Time, trxID uuid.UUID, docPath string) {
	id := trxID
	o.Store.Documents = append(o.Store.Documents, store.DocumentDomain{
		Datetime: datetime,
		TrxID:    &id,
		Filename: path.Base(docPath),
		Path:     docPath,
	})
}

// InsertAccountDocument records a document attached to an account.
func (o *Operations) InsertAccountDocument(datetime time.Time, account ast.Account, docPath string) {
	o.Store.Documents = append(o.Store.Documents, store.DocumentDomain{
		Datetime: datetime,
		Account:  account,
		Filename: path.Base(docPath),
		Path:     docPath,
	})
}

// InsertPrice records a price point.
func (o *Operations) InsertPrice(datetime time.Time, commodity string, amount decimal.Decimal, target string) {
	o.Store.Prices = append(o.Store.Prices, store.PriceDomain{
		Datetime:        datetime,
		Commodity:       commodity,
		Amount:          amount,
		TargetCommodity: target,
	})
}

// AccountLot finds the lot of (account, commodity) matching the optional
// acquisition price, or nil.
func (o *Operations) AccountLot(account, commodity string, price *ast.Amount) *store.CommodityLotRecord {
	lots := o.Store.CommodityLots[account]
	for i := range lots {
		if lots[i].Commodity != commodity {
			continue
		}
		if lotPriceEqual(lots[i].Price, price) {
			return &lots[i]
		}
	}
	return nil
}

// AccountLots returns every lot of an account.
func (o *Operations) AccountLots(account string) []store.CommodityLotRecord {
	return o.Store.CommodityLots[account]
}

// InsertAccountLot creates a new lot record.
func (o *Operations) InsertAccountLot(account, commodity string, price *ast.Amount, amount decimal.Decimal) {
	o.Store.CommodityLots[account] = append(o.Store.CommodityLots[account], store.CommodityLotRecord{
		Commodity: commodity,
		Amount:    amount,
		Price:     price,
	})
}

// UpdateAccountLot replaces the amount of the lot matching the price.
func (o *Operations) UpdateAccountLot(account, commodity string, price *ast.Amount, amount decimal.Decimal) {
	lots := o.Store.CommodityLots[account]
	for i := range lots {
		if lots[i].Commodity == commodity && lotPriceEqual(lots[i].Price, price) {
			lots[i].Amount = amount
			return
		}
	}
	o.InsertAccountLot(account, commodity, price, amount)
}

func lotPriceEqual(a, b *ast.Amount) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// NewError records a non-fatal error with its span and context bag.
func (o *Operations) NewError(kind store.ErrorKind, span ast.SpanInfo, metas map[string]string) {
	if metas == nil {
		metas = map[string]string{}
	}
	spanCopy := span
	o.Store.Errors = append(o.Store.Errors, store.ErrorDomain{
		ID:    hashID("error", string(kind), span.Filename, span.Start, len(o.Store.Errors)),
		Span:  &spanCopy,
		Kind:  kind,
		Metas: metas,
	})
}
