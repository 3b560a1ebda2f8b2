package ast

import (
	"fmt"
	"strings"
)

// AccountType is the root segment of an account path, one of the five
// double-entry categories.
type AccountType string

const (
	Assets      AccountType = "Assets"
	Liabilities AccountType = "Liabilities"
	Equity      AccountType = "Equity"
	Income      AccountType = "Income"
	Expenses    AccountType = "Expenses"
)

// AccountTypes lists the five account types in reporting order.
var AccountTypes = []AccountType{Assets, Liabilities, Equity, Income, Expenses}

// Account is a typed, colon-separated path such as Assets:US:Checking. The
// parsed form and the string form round-trip; two accounts are equal iff
// their type and component sequence are equal, which for this representation
// is plain string equality on the full name.
type Account struct {
	name string
	typ  AccountType
}

// ParseAccount parses a full account name. The root segment must be one of
// the five account types and every following segment must be non-empty.
func ParseAccount(name string) (Account, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 2 {
		return Account{}, fmt.Errorf("account must have at least two segments: %s", name)
	}
	typ := AccountType(parts[0])
	switch typ {
	case Assets, Liabilities, Equity, Income, Expenses:
	default:
		return Account{}, fmt.Errorf("unexpected account type %q", parts[0])
	}
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			return Account{}, fmt.Errorf("empty account segment at position %d: %s", i, name)
		}
	}
	return Account{name: name, typ: typ}, nil
}

// MustAccount parses an account name, panicking on error. Use only in tests
// or for literals known to be valid.
func MustAccount(name string) Account {
	a, err := ParseAccount(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the full colon-separated account name.
func (a Account) Name() string { return a.name }

// Type returns the account's root type.
func (a Account) Type() AccountType { return a.typ }

// Components returns the path segments after the root type.
func (a Account) Components() []string {
	return strings.Split(a.name, ":")[1:]
}

// IsZero reports whether the account is the zero value.
func (a Account) IsZero() bool { return a.name == "" }

// IsBalanceSheet reports whether the account appears on the balance sheet
// (Assets, Liabilities or Equity).
func (a Account) IsBalanceSheet() bool {
	return a.typ == Assets || a.typ == Liabilities || a.typ == Equity
}

// IsIncomeStatement reports whether the account appears on the income
// statement (Income or Expenses).
func (a Account) IsIncomeStatement() bool {
	return a.typ == Income || a.typ == Expenses
}

// NormalSign returns +1 for Assets and Expenses, -1 otherwise.
func (a Account) NormalSign() int {
	if a.typ == Assets || a.typ == Expenses {
		return 1
	}
	return -1
}

// IsInverted reports whether the account's normal sign is negative.
func (a Account) IsInverted() bool { return a.NormalSign() < 0 }

// String returns the full account name.
func (a Account) String() string { return a.name }
