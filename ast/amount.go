package ast

import (
	"github.com/shopspring/decimal"
)

// Amount is an arbitrary-precision decimal number paired with a commodity
// name. Amounts of different commodities are never mixed arithmetically;
// cross-commodity sums are a validation concern at the directive level.
type Amount struct {
	Number    decimal.Decimal
	Commodity string
}

// NewAmount creates an amount from a decimal and a commodity name.
func NewAmount(number decimal.Decimal, commodity string) Amount {
	return Amount{Number: number, Commodity: commodity}
}

// NewAmountFromString parses the numeric part with full precision.
func NewAmountFromString(number, commodity string) (Amount, error) {
	d, err := decimal.NewFromString(number)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Number: d, Commodity: commodity}, nil
}

// Add returns a new amount with the number added, same commodity.
func (a Amount) Add(n decimal.Decimal) Amount {
	return Amount{Number: a.Number.Add(n), Commodity: a.Commodity}
}

// Sub returns a new amount with the number subtracted, same commodity.
func (a Amount) Sub(n decimal.Decimal) Amount {
	return Amount{Number: a.Number.Sub(n), Commodity: a.Commodity}
}

// Mul returns a new amount with the number multiplied, same commodity.
func (a Amount) Mul(n decimal.Decimal) Amount {
	return Amount{Number: a.Number.Mul(n), Commodity: a.Commodity}
}

// Neg returns the negated amount.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Commodity: a.Commodity}
}

// Abs returns the absolute amount.
func (a Amount) Abs() Amount {
	return Amount{Number: a.Number.Abs(), Commodity: a.Commodity}
}

// IsZero reports whether the number is zero.
func (a Amount) IsZero() bool { return a.Number.IsZero() }

// Equal reports value equality of number and commodity.
func (a Amount) Equal(b Amount) bool {
	return a.Commodity == b.Commodity && a.Number.Equal(b.Number)
}

// String renders "NUMBER COMMODITY".
func (a Amount) String() string {
	return a.Number.String() + " " + a.Commodity
}

// CalculatedAmount is the result of valuing a set of amounts against the
// operating currency: a single converted total plus the per-commodity
// detail that fed it. Amounts with no known price contribute zero to the
// total but still appear in the detail map.
type CalculatedAmount struct {
	Calculated Amount
	Detail     map[string]decimal.Decimal
}
