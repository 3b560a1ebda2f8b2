// Package store holds the in-memory tables of all facts materialised from a
// processed directive stream: accounts, commodities, transactions and their
// postings, prices, commodity lots, documents, metadata, budgets, options
// and non-fatal errors. The store is pure data; every read and write goes
// through the operations package.
package store

import (
	"github.com/google/uuid"
)

// Store aggregates the materialised collections of one ledger pass. A fresh
// Store is built on every load; the text files remain the system of record.
type Store struct {
	Options      map[string]string
	Accounts     map[string]*AccountDomain
	Commodities  map[string]*CommodityDomain
	Transactions map[uuid.UUID]*TransactionDomain
	Postings     []PostingDomain

	Prices []PriceDomain

	Budgets map[string]*BudgetDomain

	// CommodityLots is keyed by account name.
	CommodityLots map[string][]CommodityLotRecord

	Documents []DocumentDomain

	Metas []MetaDomain

	Errors []ErrorDomain
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Options:       make(map[string]string),
		Accounts:      make(map[string]*AccountDomain),
		Commodities:   make(map[string]*CommodityDomain),
		Transactions:  make(map[uuid.UUID]*TransactionDomain),
		Budgets:       make(map[string]*BudgetDomain),
		CommodityLots: make(map[string][]CommodityLotRecord),
	}
}
