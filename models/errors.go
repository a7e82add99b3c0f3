package models

import "fmt"

// FetchKind classifies offer source failures.
type FetchKind string

const (
	FetchNetworkError      FetchKind = "network_error"
	FetchRateLimited       FetchKind = "rate_limited"
	FetchMalformedResponse FetchKind = "malformed_response"
)

// FetchError reports a failed offer source call for one country. The probe
// that receives it records status fetch_failed and the run continues.
type FetchError struct {
	Kind FetchKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("offer fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("offer fetch failed (%s)", e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SwitchError reports that a country's network identity could not be
// established. The probe records status identity_switch_failed; not retried.
type SwitchError struct {
	Country string
	Err     error
}

func (e *SwitchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity switch to %s failed: %v", e.Country, e.Err)
	}
	return fmt.Sprintf("identity switch to %s failed", e.Country)
}

func (e *SwitchError) Unwrap() error { return e.Err }

// UnknownCurrencyError means an offer's currency code is absent from the
// rate table. The single offer is skipped, never the whole country.
type UnknownCurrencyError struct {
	Currency string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Currency)
}

// InvalidAmountError rejects a negative amount before normalization.
type InvalidAmountError struct {
	Amount string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be non-negative", e.Amount)
}

// InvalidRequestError is a construction-time validation failure. It is the
// only error class that terminates a run before any network activity.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// InsufficientDataError is returned when statistics requiring at least two
// ranked entries are requested with fewer available. The ranked list itself
// is still produced; presentation degrades instead of crashing.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d ranked entries, need %d", e.Have, e.Need)
}
