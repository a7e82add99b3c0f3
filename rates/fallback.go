package rates

import "github.com/shopspring/decimal"

// fallbackRates is the static table used when the live feed is disabled or
// unreachable. Rates are against PLN.
var fallbackRates = map[string]string{
	// Europe
	"EUR": "4.3",
	"GBP": "5.1",
	"CHF": "4.6",
	"SEK": "0.38",
	"NOK": "0.37",
	"DKK": "0.58",
	"CZK": "0.17",
	"HUF": "0.011",
	"RON": "0.86",
	"BGN": "2.2",
	"UAH": "0.097",
	"ALL": "0.042",
	"TRY": "0.12",
	// Americas
	"USD": "4.0",
	"CAD": "2.9",
	"MXN": "0.23",
	"BRL": "0.78",
	"ARS": "0.004",
	// Asia and Middle East
	"JPY": "0.027",
	"KRW": "0.0029",
	"CNY": "0.55",
	"INR": "0.048",
	"THB": "0.12",
	"SGD": "3.0",
	"MYR": "0.9",
	"IDR": "0.00025",
	"VND": "0.00016",
	"PHP": "0.07",
	"AED": "1.09",
	"ILS": "1.1",
	"SAR": "1.07",
	// Oceania and Africa
	"AUD": "2.6",
	"NZD": "2.4",
	"ZAR": "0.22",
	"EGP": "0.08",
	"MAD": "0.4",
}

// nbpSupported lists the currency codes the NBP table A feed publishes.
// Codes outside this list always come from the fallback table.
var nbpSupported = []string{
	"EUR", "USD", "GBP", "CHF", "SEK", "NOK", "DKK", "CZK", "HUF", "RON",
	"BGN", "TRY", "CAD", "AUD", "NZD", "JPY", "CNY", "INR", "THB", "SGD",
	"MYR", "IDR", "PHP", "ZAR", "BRL", "MXN", "ILS", "KRW", "AED",
}

// FallbackTable returns a fresh copy of the static rate table.
func FallbackTable() map[string]decimal.Decimal {
	table := make(map[string]decimal.Decimal, len(fallbackRates))
	for code, raw := range fallbackRates {
		table[code] = decimal.RequireFromString(raw)
	}
	return table
}
