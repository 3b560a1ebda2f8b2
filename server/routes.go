package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/sqlview"
	"github.com/robinvdvleuten/zhang/store"
)

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	title, _ := ops.Option(store.KeyTitle)
	writeJSON(w, http.StatusOK, map[string]any{
		"title":        title,
		"version":      s.Version,
		"transactions": ops.TransactionCounts(),
		"errors":       len(ops.Errors()),
	})
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	errors := make([]errorResponse, 0)
	for _, e := range ops.Errors() {
		response := errorResponse{ID: e.ID.String(), Kind: string(e.Kind), Metas: e.Metas}
		if e.Span != nil && !e.Span.IsZero() {
			response.Span = e.Span.String()
		}
		errors = append(errors, response)
	}
	writeJSON(w, http.StatusOK, errors)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()
	writeJSON(w, http.StatusOK, ops.Options())
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	accounts := make([]accountResponse, 0)
	for _, name := range ops.AllAccounts() {
		accounts = append(accounts, newAccountResponse(ops, ops.Account(name)))
	}
	writeJSON(w, http.StatusOK, accounts)
}

// accountParam decodes the {account} path segment, which contains colons.
func accountParam(r *http.Request) string {
	raw := chi.URLParam(r, "account")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (s *Server) handleAccountJournals(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	name := accountParam(r)
	if !ops.ExistAccount(name) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	journals := make([]journalResponse, 0)
	for _, row := range ops.AccountJournals(name) {
		journals = append(journals, newJournalResponse(row))
	}
	writeJSON(w, http.StatusOK, journals)
}

func (s *Server) handleAccountBalances(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	name := accountParam(r)
	if !ops.ExistAccount(name) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	balances := make([]amountResponse, 0)
	for _, balance := range ops.SingleAccountBalances(name) {
		balances = append(balances, newNumberResponse(balance.BalanceNumber, balance.BalanceCommodity))
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleAccountDocuments(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	documents := make([]documentResponse, 0)
	for _, document := range ops.AccountDocuments(accountParam(r)) {
		documents = append(documents, newDocumentResponse(document))
	}
	writeJSON(w, http.StatusOK, documents)
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()
	writeJSON(w, http.StatusOK, ops.AllCommodities())
}

func (s *Server) handleCommodityDetail(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	name := chi.URLParam(r, "name")
	commodity := ops.Commodity(name)
	if commodity == nil {
		writeError(w, http.StatusNotFound, "commodity not found")
		return
	}

	prices := make([]map[string]any, 0)
	for _, price := range ops.CommodityPrices(name) {
		prices = append(prices, map[string]any{
			"datetime":         price.Datetime,
			"amount":           price.Amount.String(),
			"target_commodity": price.TargetCommodity,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"info":    commodity,
		"lots":    ops.CommodityLots(name),
		"prices":  prices,
		"balance": ops.GetCommodityBalances(name).String(),
	})
}

// dateRange reads from/to query params, defaulting to all of time.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, err
		}
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}

func (s *Server) handleJournals(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range")
		return
	}

	journals := make([]journalResponse, 0)
	for _, row := range ops.DatedJournals(from, to) {
		journals = append(journals, newJournalResponse(row))
	}
	writeJSON(w, http.StatusOK, journals)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	documents := make([]documentResponse, 0)
	for _, document := range ops.Documents() {
		documents = append(documents, newDocumentResponse(document))
	}
	writeJSON(w, http.StatusOK, documents)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	budgets := make([]budgetResponse, 0)
	for _, budget := range ops.AllBudgets() {
		budgets = append(budgets, budgetResponse{
			Name:      budget.Name,
			Alias:     budget.Alias,
			Category:  budget.Category,
			Commodity: budget.Commodity,
			Closed:    budget.Closed,
		})
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleBudgetDetail(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	interval, err := strconv.ParseUint(chi.URLParam(r, "interval"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid interval")
		return
	}

	detail, ok := ops.BudgetMonthDetail(chi.URLParam(r, "name"), uint32(interval))
	if !ok {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}

	writeJSON(w, http.StatusOK, budgetDetailResponse{
		Interval:       detail.Date,
		AssignedAmount: newAmountResponse(detail.AssignedAmount),
		ActivityAmount: newAmountResponse(detail.ActivityAmount),
		Available:      newAmountResponse(detail.AssignedAmount.Sub(detail.ActivityAmount.Number)),
	})
}

// handleStatistics values the balance-sheet accounts against the operating
// currency using the stored prices.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	var amounts []ast.Amount
	for _, account := range ops.AllOpenAccounts() {
		if !ast.MustAccount(account.Name).IsBalanceSheet() {
			continue
		}
		for _, balance := range ops.SingleAccountBalances(account.Name) {
			amounts = append(amounts, ast.NewAmount(balance.BalanceNumber, balance.BalanceCommodity))
		}
	}

	calculated, err := ops.Calculate(time.Now(), amounts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail := make(map[string]string, len(calculated.Detail))
	for commodity, number := range calculated.Detail {
		detail[commodity] = number.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calculated": newAmountResponse(calculated.Calculated),
		"detail":     detail,
	})
}

// balanceNodeResponse renders a balance tree node with stringified
// numbers.
type balanceNodeResponse struct {
	Name     string                `json:"name"`
	Account  string                `json:"account,omitempty"`
	Balances map[string]string     `json:"balances"`
	Children []balanceNodeResponse `json:"children,omitempty"`
}

func newBalanceNodeResponse(node *operations.BalanceNode) balanceNodeResponse {
	response := balanceNodeResponse{
		Name:     node.Name,
		Account:  node.Account,
		Balances: make(map[string]string, len(node.Balances)),
	}
	for commodity, number := range node.Balances {
		response.Balances[commodity] = number.String()
	}
	for _, child := range node.Children {
		response.Children = append(response.Children, newBalanceNodeResponse(child))
	}
	return response
}

func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	_, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range")
		return
	}

	tree := ops.BalanceSheet(to)
	roots := make([]balanceNodeResponse, 0, len(tree.Roots))
	for _, root := range tree.Roots {
		roots = append(roots, newBalanceNodeResponse(root))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"commodities": tree.Commodities,
		"roots":       roots,
	})
}

func (s *Server) handleIncomeStatement(w http.ResponseWriter, r *http.Request) {
	ops, release := s.ledger.Operations()
	defer release()

	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range")
		return
	}

	statement := ops.IncomeStatement(from, to)
	response := make(map[string]map[string]string, len(statement))
	for account, balances := range statement {
		response[account] = make(map[string]string, len(balances))
		for commodity, number := range balances {
			response[account][commodity] = number.String()
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// createTransactionRequest is the append payload.
type createTransactionRequest struct {
	Date      string                     `json:"date"`
	Payee     string                     `json:"payee"`
	Narration string                     `json:"narration"`
	Tags      []string                   `json:"tags"`
	Links     []string                   `json:"links"`
	Postings  []createPostingRequest     `json:"postings"`
	Metas     []map[string]string        `json:"metas"`
}

type createPostingRequest struct {
	Account string          `json:"account"`
	Amount  *amountResponse `json:"amount"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var request createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := ast.ParseDate(request.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	txn := &ast.Transaction{
		Date:      date,
		Flag:      ast.FlagOkay,
		Payee:     request.Payee,
		Narration: request.Narration,
		Tags:      request.Tags,
		Links:     request.Links,
	}
	for _, posting := range request.Postings {
		account, err := ast.ParseAccount(posting.Account)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		leg := &ast.Posting{Account: account}
		if posting.Amount != nil {
			number, err := decimal.NewFromString(posting.Amount.Number)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid amount")
				return
			}
			amount := ast.NewAmount(number, posting.Amount.Commodity)
			leg.Units = &amount
		}
		txn.Postings = append(txn.Postings, leg)
	}
	for _, meta := range request.Metas {
		for key, value := range meta {
			txn.GetMeta().Add(key, value)
		}
	}

	if err := s.ledger.Append(r.Context(), []ast.Directive{txn}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, "ok")
}

// handleSQL projects the current snapshot into SQLite and runs an ad-hoc
// query against it.
func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ops, release := s.ledger.Operations()
	defer release()

	db, err := sqlview.Attach(ops)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer db.Close()

	result, err := sqlview.Query(db, request.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
