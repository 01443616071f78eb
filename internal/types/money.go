// README: Common money value object used across modules.
package types

import "fmt"

// DefaultCurrency is the Honduran lempira; amounts are whole units.
const DefaultCurrency = "HNL"

type Money struct {
	Amount   int64
	Currency string
}

// Lempira builds a Money in the default currency.
func Lempira(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// FormatAmount renders money the way the rider sees it, e.g. "L 150.00".
func FormatAmount(m Money) string {
	return fmt.Sprintf("L %.2f", float64(m.Amount))
}
