package store

import (
	"github.com/google/uuid"

	"github.com/robinvdvleuten/zhang/ast"
)

// ErrorKind enumerates the non-fatal errors a load can record. Some kinds
// are declared for API completeness without currently being emitted.
type ErrorKind string

const (
	ErrUnbalancedTransaction                          ErrorKind = "UnbalancedTransaction"
	ErrTransactionDoesNotBalance                      ErrorKind = "TransactionDoesNotBalance"
	ErrTransactionCannotInferTradeAmount              ErrorKind = "TransactionCannotInferTradeAmount"
	ErrTransactionHasMultipleImplicitPosting          ErrorKind = "TransactionHasMultipleImplicitPosting"
	ErrTransactionExplicitPostingHaveMultipleCommodity ErrorKind = "TransactionExplicitPostingHaveMultipleCommodity"
	ErrInvalidFlag                                    ErrorKind = "InvalidFlag"
	ErrAccountBalanceCheckError                       ErrorKind = "AccountBalanceCheckError"
	ErrAccountDoesNotExist                            ErrorKind = "AccountDoesNotExist"
	ErrAccountClosed                                  ErrorKind = "AccountClosed"
	ErrCommodityDoesNotDefine                         ErrorKind = "CommodityDoesNotDefine"
	ErrCloseNonZeroAccount                            ErrorKind = "CloseNonZeroAccount"
	ErrBudgetDoesNotExist                             ErrorKind = "BudgetDoesNotExist"
	ErrDefineDuplicatedBudget                         ErrorKind = "DefineDuplicatedBudget"
	ErrMultipleOperatingCurrencyDetect                ErrorKind = "MultipleOperatingCurrencyDetect"
	ErrParseInvalidMeta                               ErrorKind = "ParseInvalidMeta"
)

// ErrorDomain is one recorded non-fatal error with the span it originated
// from and a key/value context bag.
type ErrorDomain struct {
	ID    uuid.UUID
	Span  *ast.SpanInfo
	Kind  ErrorKind
	Metas map[string]string
}
