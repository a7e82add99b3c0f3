// Package writer renders and persists a run's results: console report, CSV
// and Parquet exports, optional S3 upload and Kafka publishing.
package writer

import (
	"fmt"
	"io"
	"strings"

	"flightlooker/models"
)

// PrintReport writes the human-readable run report. The succeeded, no-offer
// and failed counts are always printed so a partially failed run is never
// mistaken for a complete one.
func PrintReport(w io.Writer, req models.SearchRequest, results []models.CountryResult, ranking models.Ranking, summary *models.Summary) {
	line := strings.Repeat("=", 64)

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  %s -> %s on %s (%d adult(s))\n", req.Origin, req.Destination, req.DepartureDate, req.Adults)
	fmt.Fprintln(w, line)

	for _, result := range results {
		switch result.Status {
		case models.StatusOK:
			fmt.Fprintf(w, "  %-14s ok, %d offers (%s)\n", result.Country, len(result.Offers), result.Currency)
		case models.StatusNoOffers:
			fmt.Fprintf(w, "  %-14s no offers\n", result.Country)
		case models.StatusFetchFailed:
			fmt.Fprintf(w, "  %-14s fetch failed: %s\n", result.Country, result.Error)
		case models.StatusSwitchFailed:
			fmt.Fprintf(w, "  %-14s identity switch failed: %s\n", result.Country, result.Error)
		}
	}

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  probed: %d   ok: %d   no offers: %d   failed: %d\n",
		len(results), ranking.Succeeded, ranking.NoOffers, ranking.Failed)
	if ranking.SkippedOffers > 0 {
		fmt.Fprintf(w, "  offers skipped (unknown currency): %d\n", ranking.SkippedOffers)
	}
	fmt.Fprintln(w, line)

	if len(ranking.Entries) == 0 {
		fmt.Fprintln(w, "  no usable offers found in any market")
		fmt.Fprintln(w, line)
		return
	}

	fmt.Fprintf(w, "  cheapest markets (%s)\n", ranking.Currency)
	for i, entry := range ranking.Entries {
		fmt.Fprintf(w, "  %2d. %-14s %10s %s", i+1, entry.Country, entry.Price.StringFixed(2), ranking.Currency)
		if entry.OriginalCurrency != ranking.Currency {
			fmt.Fprintf(w, "  (%s %s)", entry.OriginalAmount.StringFixed(2), entry.OriginalCurrency)
		}
		if entry.Airline != "" {
			fmt.Fprintf(w, "  %s", entry.Airline)
		}
		if entry.Stops == 0 {
			fmt.Fprint(w, "  direct")
		} else {
			fmt.Fprintf(w, "  %d stop(s)", entry.Stops)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, line)

	if summary == nil {
		fmt.Fprintln(w, "  not enough markets for price statistics")
		fmt.Fprintln(w, line)
		return
	}

	fmt.Fprintf(w, "  min %s  max %s  mean %s %s\n",
		summary.Min.StringFixed(2), summary.Max.StringFixed(2), summary.Mean.StringFixed(2), summary.Currency)
	fmt.Fprintf(w, "  buying via %s instead of %s saves %s %s (%s%%)\n",
		summary.BestCountry, summary.WorstCountry,
		summary.Spread.StringFixed(2), summary.Currency, summary.SavingsPct.StringFixed(2))
	fmt.Fprintln(w, line)
}
