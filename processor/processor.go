// Package processor turns raw per-country probe results into a ranked
// comparison: normalize every price into the reporting currency, pick each
// country's cheapest offer, sort, and summarize. All functions are pure and
// recompute from scratch on every call.
package processor

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"flightlooker/logger"
	"flightlooker/models"
)

var hundred = decimal.NewFromInt(100)

// Normalize converts an amount from its original currency into the reporting
// currency using the run's frozen rate table, rounded to two decimal places.
func Normalize(amount decimal.Decimal, currency string, table *models.RateTable, reporting string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, &models.InvalidAmountError{Amount: amount.String()}
	}
	if currency == reporting {
		return amount.Round(2), nil
	}
	rate, ok := table.Rate(currency)
	if !ok {
		return decimal.Zero, &models.UnknownCurrencyError{Currency: currency}
	}
	return amount.Mul(rate).Round(2), nil
}

// Aggregate builds the ranked comparison from a run's results. Each country
// with status ok contributes its single cheapest offer; ties keep the first
// offer in source order. Offers whose currency is missing from the rate
// table are skipped and counted, never fatal. Output is sorted by normalized
// price ascending with probe order breaking ties.
func Aggregate(results []models.CountryResult, table *models.RateTable, reporting string) models.Ranking {
	log := logger.GetLogger().WithComponent("processor")

	ranking := models.Ranking{Currency: reporting}
	for _, result := range results {
		switch result.Status {
		case models.StatusNoOffers:
			ranking.NoOffers++
			continue
		case models.StatusFetchFailed, models.StatusSwitchFailed:
			ranking.Failed++
			continue
		case models.StatusOK:
		default:
			continue
		}
		ranking.Succeeded++

		var best *models.RankedEntry
		for _, offer := range result.Offers {
			price, err := Normalize(offer.Price, offer.Currency, table, reporting)
			if err != nil {
				var unknownErr *models.UnknownCurrencyError
				if errors.As(err, &unknownErr) {
					ranking.SkippedOffers++
					log.WithFields(logger.Fields{
						"country":  result.Country,
						"currency": offer.Currency,
					}).Warn("skipping offer with unknown currency")
					continue
				}
				log.WithError(err).WithFields(logger.Fields{"country": result.Country}).Warn("skipping unusable offer")
				continue
			}
			if best == nil || price.LessThan(best.Price) {
				best = &models.RankedEntry{
					Country:          result.Country,
					Price:            price,
					OriginalAmount:   offer.Price,
					OriginalCurrency: offer.Currency,
					Airline:          offer.Airline,
					Stops:            offer.Stops,
					Departure:        offer.Departure,
				}
			}
		}
		if best != nil {
			ranking.Entries = append(ranking.Entries, *best)
		}
	}

	// Stable sort keeps probe order for equal prices.
	sort.SliceStable(ranking.Entries, func(i, j int) bool {
		return ranking.Entries[i].Price.LessThan(ranking.Entries[j].Price)
	})
	return ranking
}

// Statistics summarizes a ranking. It needs at least two entries for a
// meaningful comparison; with fewer it returns InsufficientDataError and the
// caller degrades its presentation instead of failing the run.
func Statistics(ranking models.Ranking) (*models.Summary, error) {
	if len(ranking.Entries) < 2 {
		return nil, &models.InsufficientDataError{Have: len(ranking.Entries), Need: 2}
	}

	best := ranking.Entries[0]
	worst := ranking.Entries[len(ranking.Entries)-1]

	sum := decimal.Zero
	for _, entry := range ranking.Entries {
		sum = sum.Add(entry.Price)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(ranking.Entries)))).Round(2)
	spread := worst.Price.Sub(best.Price)

	savings := decimal.Zero
	if worst.Price.IsPositive() {
		savings = spread.Div(worst.Price).Mul(hundred).Round(2)
	}

	return &models.Summary{
		Currency:     ranking.Currency,
		Min:          best.Price,
		Max:          worst.Price,
		Mean:         mean,
		Spread:       spread,
		SavingsPct:   savings,
		BestCountry:  best.Country,
		WorstCountry: worst.Country,
	}, nil
}
