package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(12,2) and stock and quantities are INTEGER.
const (
	MoneyScale = 2
	MaxStock   = math.MaxInt32
)

// MaxAmount is the first value a money column can no longer hold.
var MaxAmount = decimal.New(1, 10)

// ValidAmount reports whether d can be stored without rounding: not negative,
// at most two decimals and below MaxAmount.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(MoneyScale)) && d.LessThan(MaxAmount)
}

// UseNumericMoney makes decimals encode as JSON numbers ("prix": 10.5)
// instead of strings. Decoding accepts both forms either way.
func UseNumericMoney() {
	decimal.MarshalJSONWithoutQuotes = true
}
