package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	_ "github.com/robinvdvleuten/zhang/codec/text"
	"github.com/robinvdvleuten/zhang/datasource"
	"github.com/robinvdvleuten/zhang/ledger"
)

func fixtureServer(t *testing.T, source string) *Server {
	t.Helper()
	root := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(root, "main.zhang"), []byte(source), 0o644))

	src, err := datasource.New(datasource.NewFsOperator(root), "main.zhang")
	assert.NoError(t, err)
	l, err := ledger.Load(context.Background(), root, "main.zhang", src)
	assert.NoError(t, err)

	s := New(l, "127.0.0.1", 0)
	s.EnableSQL = true
	return s
}

const fixtureLedger = `option "title" "Test Ledger"
1970-01-01 open Assets:Cash CNY
1970-01-01 open Expenses:Food CNY
1970-01-02 * "Shop" "lunch"
  Assets:Cash -10 CNY
  Expenses:Food 10 CNY
`

func get(t *testing.T, handler http.Handler, path string) map[string]any {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestInfoEndpoint(t *testing.T) {
	handler := fixtureServer(t, fixtureLedger).Router()
	body := get(t, handler, "/api/info")
	data := body["data"].(map[string]any)
	assert.Equal(t, "Test Ledger", data["title"])
	assert.Equal(t, float64(1), data["transactions"].(float64))
}

func TestAccountsEndpoint(t *testing.T) {
	handler := fixtureServer(t, fixtureLedger).Router()
	body := get(t, handler, "/api/accounts")
	accounts := body["data"].([]any)
	assert.Equal(t, 2, len(accounts))

	first := accounts[0].(map[string]any)
	assert.Equal(t, "Assets:Cash", first["name"])
	balances := first["balances"].([]any)
	balance := balances[0].(map[string]any)
	assert.Equal(t, "-10", balance["number"])
	assert.Equal(t, "CNY", balance["commodity"])
}

func TestAccountJournalsEndpoint(t *testing.T) {
	handler := fixtureServer(t, fixtureLedger).Router()
	body := get(t, handler, "/api/accounts/Assets:Cash/journals")
	journals := body["data"].([]any)
	assert.Equal(t, 1, len(journals))

	row := journals[0].(map[string]any)
	assert.Equal(t, "lunch", row["narration"])

	// Unknown accounts are a 404.
	request := httptest.NewRequest(http.MethodGet, "/api/accounts/Assets:Nope/journals", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestErrorsEndpoint(t *testing.T) {
	handler := fixtureServer(t, `1970-01-01 open Assets:X CNY
1970-01-02 balance Assets:X 100 CNY
`).Router()
	body := get(t, handler, "/api/errors")
	errors := body["data"].([]any)
	assert.Equal(t, 1, len(errors))
	assert.Equal(t, "AccountBalanceCheckError", errors[0].(map[string]any)["kind"])
}

func TestCreateTransactionAppendsAndReloads(t *testing.T) {
	s := fixtureServer(t, fixtureLedger)
	handler := s.Router()

	payload := `{
		"date": "1970-01-05",
		"narration": "tea",
		"postings": [
			{"account": "Assets:Cash", "amount": {"number": "-3", "commodity": "CNY"}},
			{"account": "Expenses:Food", "amount": {"number": "3", "commodity": "CNY"}}
		]
	}`
	request := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	body := get(t, handler, "/api/info")
	assert.Equal(t, float64(2), body["data"].(map[string]any)["transactions"].(float64))
}

func TestSQLEndpoint(t *testing.T) {
	handler := fixtureServer(t, fixtureLedger).Router()

	request := httptest.NewRequest(http.MethodPost, "/api/sql", strings.NewReader(`{"query": "SELECT count(*) AS n FROM postings"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	rows := body["data"].(map[string]any)["rows"].([]any)
	assert.Equal(t, float64(2), rows[0].(map[string]any)["n"].(float64))
}

func TestBasicAuthGuardsRoutes(t *testing.T) {
	s := fixtureServer(t, fixtureLedger)
	s.Auth = "admin:secret"
	handler := s.Router()

	request := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request = httptest.NewRequest(http.MethodGet, "/api/info", nil)
	request.SetBasicAuth("admin", "secret")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
