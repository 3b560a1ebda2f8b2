package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/store"
)

// envelope is the uniform response wrapper of the API.
type envelope struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		log.Error().Err(err).Msg("cannot encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// amountResponse renders an amount with the number as a string, preserving
// precision over the wire.
type amountResponse struct {
	Number    string `json:"number"`
	Commodity string `json:"commodity"`
}

func newAmountResponse(amount ast.Amount) amountResponse {
	return amountResponse{Number: amount.Number.String(), Commodity: amount.Commodity}
}

func newNumberResponse(number decimal.Decimal, commodity string) amountResponse {
	return amountResponse{Number: number.String(), Commodity: commodity}
}

type accountResponse struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Status   string           `json:"status"`
	Alias    string           `json:"alias,omitempty"`
	Balances []amountResponse `json:"balances"`
}

func newAccountResponse(ops *operations.Operations, account *store.AccountDomain) accountResponse {
	response := accountResponse{
		Name:   account.Name,
		Type:   string(account.Type),
		Status: string(account.Status),
		Alias:  account.Alias,
	}
	for _, balance := range ops.SingleAccountBalances(account.Name) {
		response.Balances = append(response.Balances, newNumberResponse(balance.BalanceNumber, balance.BalanceCommodity))
	}
	return response
}

type journalResponse struct {
	Datetime       time.Time      `json:"datetime"`
	Account        string         `json:"account"`
	TrxID          string         `json:"trx_id"`
	Payee          string         `json:"payee,omitempty"`
	Narration      string         `json:"narration,omitempty"`
	InferredAmount amountResponse `json:"inferred_amount"`
	AfterAmount    amountResponse `json:"after_amount"`
}

func newJournalResponse(row operations.AccountJournal) journalResponse {
	return journalResponse{
		Datetime:       row.Datetime,
		Account:        row.Account,
		TrxID:          row.TrxID,
		Payee:          row.Payee,
		Narration:      row.Narration,
		InferredAmount: newNumberResponse(row.InferredUnitNumber, row.InferredUnitCommodity),
		AfterAmount:    newNumberResponse(row.AccountAfterNumber, row.AccountAfterCommodity),
	}
}

type errorResponse struct {
	ID    string            `json:"id"`
	Kind  string            `json:"kind"`
	Span  string            `json:"span,omitempty"`
	Metas map[string]string `json:"metas"`
}

type documentResponse struct {
	Datetime time.Time `json:"datetime"`
	TrxID    string    `json:"trx_id,omitempty"`
	Account  string    `json:"account,omitempty"`
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
}

func newDocumentResponse(document store.DocumentDomain) documentResponse {
	response := documentResponse{
		Datetime: document.Datetime,
		Filename: document.Filename,
		Path:     document.Path,
	}
	if document.TrxID != nil {
		response.TrxID = document.TrxID.String()
	}
	if !document.Account.IsZero() {
		response.Account = document.Account.Name()
	}
	return response
}

type budgetResponse struct {
	Name      string `json:"name"`
	Alias     string `json:"alias,omitempty"`
	Category  string `json:"category,omitempty"`
	Commodity string `json:"commodity"`
	Closed    bool   `json:"closed"`
}

type budgetDetailResponse struct {
	Interval       uint32         `json:"interval"`
	AssignedAmount amountResponse `json:"assigned_amount"`
	ActivityAmount amountResponse `json:"activity_amount"`
	Available      amountResponse `json:"available"`
}
