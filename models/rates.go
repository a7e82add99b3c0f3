package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable is a frozen snapshot of currency exchange rates against the
// reporting currency. Loaded once per run and never mutated afterwards, so
// every comparison within a run uses the same rates.
type RateTable struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Source    string                     `json:"source"`
}

// Rate returns the rate for the given currency code and whether it is known.
// The base currency always converts at 1 without a table lookup.
func (t *RateTable) Rate(currency string) (decimal.Decimal, bool) {
	if currency == t.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[currency]
	return r, ok
}
