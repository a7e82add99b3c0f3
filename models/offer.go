package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Offer is one purchasable flight option as returned by an offer source.
// Immutable once returned.
type Offer struct {
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Airline   string          `json:"airline"`
	Stops     int             `json:"stops"`
	Departure time.Time       `json:"departure,omitempty"`
	Arrival   time.Time       `json:"arrival,omitempty"`
	Duration  string          `json:"duration,omitempty"`
	Source    string          `json:"source,omitempty"`
}

// SearchRequest describes one run's query. Constructed once from CLI input
// and immutable for the duration of the run.
type SearchRequest struct {
	Origin        string
	Destination   string
	DepartureDate string
	Adults        int
	Countries     []string
}

var iataRegexp = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate checks the request before any network activity. Failures are
// reported as InvalidRequestError.
func (r SearchRequest) Validate() error {
	if !iataRegexp.MatchString(r.Origin) {
		return &InvalidRequestError{Field: "origin", Reason: fmt.Sprintf("%q is not an IATA airport code", r.Origin)}
	}
	if !iataRegexp.MatchString(r.Destination) {
		return &InvalidRequestError{Field: "destination", Reason: fmt.Sprintf("%q is not an IATA airport code", r.Destination)}
	}
	if _, err := time.Parse("2006-01-02", r.DepartureDate); err != nil {
		return &InvalidRequestError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", r.DepartureDate)}
	}
	if r.Adults <= 0 {
		return &InvalidRequestError{Field: "adults", Reason: "passenger count must be positive"}
	}
	if len(r.Countries) == 0 {
		return &InvalidRequestError{Field: "countries", Reason: "at least one country is required"}
	}
	for _, c := range r.Countries {
		if strings.TrimSpace(c) == "" {
			return &InvalidRequestError{Field: "countries", Reason: "empty country identifier"}
		}
	}
	return nil
}

// ProbeStatus is the outcome class of one country probe.
type ProbeStatus string

const (
	StatusOK           ProbeStatus = "ok"
	StatusNoOffers     ProbeStatus = "no_offers"
	StatusFetchFailed  ProbeStatus = "fetch_failed"
	StatusSwitchFailed ProbeStatus = "identity_switch_failed"
)

// CountryResult is the outcome of probing a single country. Offers keep the
// order the source returned them in; Error carries the failure detail for
// the non-ok statuses.
type CountryResult struct {
	Country  string      `json:"country"`
	Currency string      `json:"currency"`
	Status   ProbeStatus `json:"status"`
	Offers   []Offer     `json:"offers"`
	Error    string      `json:"error,omitempty"`
	Duration time.Duration
}

// RankedEntry is a country's cheapest offer expressed in the reporting
// currency. Recomputed fully on each aggregation pass.
type RankedEntry struct {
	Country          string
	Price            decimal.Decimal // in reporting currency
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
	Airline          string
	Stops            int
	Departure        time.Time
}

// Summary holds the statistics of one aggregation pass. All amounts are in
// the reporting currency.
type Summary struct {
	Currency     string
	Min          decimal.Decimal
	Max          decimal.Decimal
	Mean         decimal.Decimal
	Spread       decimal.Decimal
	SavingsPct   decimal.Decimal
	BestCountry  string
	WorstCountry string
}

// Ranking is the outcome of one aggregation pass over a run's results:
// the ranked list plus the per-status counts needed for honest reporting.
type Ranking struct {
	Entries       []RankedEntry
	Currency      string
	Succeeded     int
	NoOffers      int
	Failed        int
	SkippedOffers int // offers dropped for unknown currency
}
