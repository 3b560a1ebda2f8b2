// Package sqlview projects the store's tables into an embedded SQLite
// database for ad-hoc SQL queries. The projection is read-only: it is
// rebuilt from a snapshot and never written back to the ledger.
//
// Decimal numbers are stored as TEXT to preserve arbitrary precision.
package sqlview

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/robinvdvleuten/zhang/operations"
)

const schema = `
CREATE TABLE accounts (
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	alias TEXT,
	datetime TEXT NOT NULL
);
CREATE TABLE commodities (
	name TEXT PRIMARY KEY,
	precision INTEGER NOT NULL,
	prefix TEXT,
	suffix TEXT,
	rounding TEXT
);
CREATE TABLE transactions (
	id TEXT PRIMARY KEY,
	sequence INTEGER NOT NULL,
	datetime TEXT NOT NULL,
	flag TEXT NOT NULL,
	payee TEXT,
	narration TEXT
);
CREATE TABLE trx_tags (
	trx_id TEXT NOT NULL,
	tag TEXT NOT NULL
);
CREATE TABLE trx_links (
	trx_id TEXT NOT NULL,
	link TEXT NOT NULL
);
CREATE TABLE postings (
	id TEXT PRIMARY KEY,
	trx_id TEXT NOT NULL,
	trx_sequence INTEGER NOT NULL,
	trx_datetime TEXT NOT NULL,
	account TEXT NOT NULL,
	unit_number TEXT,
	unit_commodity TEXT,
	cost_number TEXT,
	cost_commodity TEXT,
	inferred_number TEXT NOT NULL,
	inferred_commodity TEXT NOT NULL,
	previous_number TEXT NOT NULL,
	after_number TEXT NOT NULL
);
CREATE TABLE prices (
	datetime TEXT NOT NULL,
	commodity TEXT NOT NULL,
	amount TEXT NOT NULL,
	target_commodity TEXT NOT NULL
);
CREATE TABLE commodity_lots (
	account TEXT NOT NULL,
	commodity TEXT NOT NULL,
	amount TEXT NOT NULL,
	price_number TEXT,
	price_commodity TEXT
);
CREATE TABLE documents (
	datetime TEXT NOT NULL,
	trx_id TEXT,
	account TEXT,
	filename TEXT NOT NULL,
	path TEXT NOT NULL
);
CREATE TABLE metas (
	type TEXT NOT NULL,
	type_identifier TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE TABLE errors (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	filename TEXT,
	span_start INTEGER,
	span_end INTEGER
);
CREATE TABLE budgets (
	name TEXT PRIMARY KEY,
	alias TEXT,
	category TEXT,
	commodity TEXT NOT NULL,
	closed INTEGER NOT NULL
);
CREATE TABLE budget_details (
	budget TEXT NOT NULL,
	interval INTEGER NOT NULL,
	assigned_number TEXT NOT NULL,
	activity_number TEXT NOT NULL,
	commodity TEXT NOT NULL
);
CREATE TABLE options (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Attach materialises the snapshot behind ops into a fresh in-memory
// SQLite database. The caller owns the returned handle.
func Attach(ops *operations.Operations) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	if err := fill(db, ops); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func fill(db *sql.DB, ops *operations.Operations) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("cannot create sql view schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st := ops.Store

	for _, name := range ops.AllAccounts() {
		account := st.Accounts[name]
		if _, err := tx.Exec(
			"INSERT INTO accounts (name, type, status, alias, datetime) VALUES (?, ?, ?, ?, ?)",
			account.Name, string(account.Type), string(account.Status), account.Alias, account.Datetime.Format("2006-01-02 15:04:05"),
		); err != nil {
			return err
		}
	}

	for _, commodity := range ops.AllCommodities() {
		if _, err := tx.Exec(
			"INSERT INTO commodities (name, precision, prefix, suffix, rounding) VALUES (?, ?, ?, ?, ?)",
			commodity.Name, commodity.Precision, commodity.Prefix, commodity.Suffix, string(commodity.Rounding),
		); err != nil {
			return err
		}
	}

	for id, trx := range st.Transactions {
		if _, err := tx.Exec(
			"INSERT INTO transactions (id, sequence, datetime, flag, payee, narration) VALUES (?, ?, ?, ?, ?, ?)",
			id.String(), trx.Sequence, trx.Datetime.Format("2006-01-02 15:04:05"), string(trx.Flag), trx.Payee, trx.Narration,
		); err != nil {
			return err
		}
		for _, tag := range trx.Tags {
			if _, err := tx.Exec("INSERT INTO trx_tags (trx_id, tag) VALUES (?, ?)", id.String(), tag); err != nil {
				return err
			}
		}
		for _, link := range trx.Links {
			if _, err := tx.Exec("INSERT INTO trx_links (trx_id, link) VALUES (?, ?)", id.String(), link); err != nil {
				return err
			}
		}
	}

	for i := range st.Postings {
		p := &st.Postings[i]
		var unitNumber, unitCommodity, costNumber, costCommodity any
		if p.Unit != nil {
			unitNumber, unitCommodity = p.Unit.Number.String(), p.Unit.Commodity
		}
		if p.Cost != nil {
			costNumber, costCommodity = p.Cost.Number.String(), p.Cost.Commodity
		}
		if _, err := tx.Exec(
			`INSERT INTO postings (id, trx_id, trx_sequence, trx_datetime, account,
				unit_number, unit_commodity, cost_number, cost_commodity,
				inferred_number, inferred_commodity, previous_number, after_number)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID.String(), p.TrxID.String(), p.TrxSequence, p.TrxDatetime.Format("2006-01-02 15:04:05"), p.Account.Name(),
			unitNumber, unitCommodity, costNumber, costCommodity,
			p.InferredAmount.Number.String(), p.InferredAmount.Commodity,
			p.PreviousAmount.Number.String(), p.AfterAmount.Number.String(),
		); err != nil {
			return err
		}
	}

	for _, price := range st.Prices {
		if _, err := tx.Exec(
			"INSERT INTO prices (datetime, commodity, amount, target_commodity) VALUES (?, ?, ?, ?)",
			price.Datetime.Format("2006-01-02 15:04:05"), price.Commodity, price.Amount.String(), price.TargetCommodity,
		); err != nil {
			return err
		}
	}

	for account, lots := range st.CommodityLots {
		for _, lot := range lots {
			var priceNumber, priceCommodity any
			if lot.Price != nil {
				priceNumber, priceCommodity = lot.Price.Number.String(), lot.Price.Commodity
			}
			if _, err := tx.Exec(
				"INSERT INTO commodity_lots (account, commodity, amount, price_number, price_commodity) VALUES (?, ?, ?, ?, ?)",
				account, lot.Commodity, lot.Amount.String(), priceNumber, priceCommodity,
			); err != nil {
				return err
			}
		}
	}

	for _, document := range st.Documents {
		var trxID, account any
		if document.TrxID != nil {
			trxID = document.TrxID.String()
		}
		if !document.Account.IsZero() {
			account = document.Account.Name()
		}
		if _, err := tx.Exec(
			"INSERT INTO documents (datetime, trx_id, account, filename, path) VALUES (?, ?, ?, ?, ?)",
			document.Datetime.Format("2006-01-02 15:04:05"), trxID, account, document.Filename, document.Path,
		); err != nil {
			return err
		}
	}

	for _, meta := range st.Metas {
		if _, err := tx.Exec(
			"INSERT INTO metas (type, type_identifier, key, value) VALUES (?, ?, ?, ?)",
			string(meta.Type), meta.TypeIdentifier, meta.Key, meta.Value,
		); err != nil {
			return err
		}
	}

	for _, e := range st.Errors {
		var filename any
		var spanStart, spanEnd any
		if e.Span != nil {
			filename, spanStart, spanEnd = e.Span.Filename, e.Span.Start, e.Span.End
		}
		if _, err := tx.Exec(
			"INSERT INTO errors (id, kind, filename, span_start, span_end) VALUES (?, ?, ?, ?, ?)",
			e.ID.String(), string(e.Kind), filename, spanStart, spanEnd,
		); err != nil {
			return err
		}
	}

	for _, budget := range ops.AllBudgets() {
		closed := 0
		if budget.Closed {
			closed = 1
		}
		if _, err := tx.Exec(
			"INSERT INTO budgets (name, alias, category, commodity, closed) VALUES (?, ?, ?, ?, ?)",
			budget.Name, budget.Alias, budget.Category, budget.Commodity, closed,
		); err != nil {
			return err
		}
		for interval, detail := range budget.Detail {
			if _, err := tx.Exec(
				"INSERT INTO budget_details (budget, interval, assigned_number, activity_number, commodity) VALUES (?, ?, ?, ?, ?)",
				budget.Name, interval, detail.AssignedAmount.Number.String(), detail.ActivityAmount.Number.String(), budget.Commodity,
			); err != nil {
				return err
			}
		}
	}

	for key, value := range st.Options {
		if _, err := tx.Exec("INSERT INTO options (key, value) VALUES (?, ?)", key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// QueryResult is the generic result of an ad-hoc query.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Query runs an ad-hoc SQL statement against the projection and renders
// every row as a column-keyed map.
func Query(db *sql.DB, query string) (*QueryResult, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}
