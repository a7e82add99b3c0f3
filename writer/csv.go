package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flightlooker/models"
)

var csvHeader = []string{
	"rank", "country", "price", "currency",
	"original_price", "original_currency",
	"airline", "stops", "departure",
	"origin", "destination", "date",
}

// writeCSV exports the ranking as one row per ranked country. The file is
// written to a temp path and renamed so a failed export never leaves a
// partial file behind.
func writeCSV(path string, req models.SearchRequest, ranking models.Ranking) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, entry := range ranking.Entries {
		departure := ""
		if !entry.Departure.IsZero() {
			departure = entry.Departure.Format(time.RFC3339)
		}
		row := []string{
			fmt.Sprintf("%d", i+1),
			entry.Country,
			entry.Price.StringFixed(2),
			ranking.Currency,
			entry.OriginalAmount.StringFixed(2),
			entry.OriginalCurrency,
			entry.Airline,
			fmt.Sprintf("%d", entry.Stops),
			departure,
			req.Origin,
			req.Destination,
			req.DepartureDate,
		}
		if err := cw.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize csv export: %w", err)
	}
	return nil
}
