package writer

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	appconfig "flightlooker/config"
	"flightlooker/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleRequest() models.SearchRequest {
	return models.SearchRequest{
		Origin:        "WAW",
		Destination:   "BCN",
		DepartureDate: "2026-10-01",
		Adults:        1,
		Countries:     []string{"poland", "sweden", "czech"},
	}
}

func sampleRanking() models.Ranking {
	return models.Ranking{
		Currency:  "PLN",
		Succeeded: 3,
		Entries: []models.RankedEntry{
			{Country: "sweden", Price: dec("426.74"), OriginalAmount: dec("1123.00"), OriginalCurrency: "SEK", Airline: "SK", Stops: 1},
			{Country: "czech", Price: dec("433.16"), OriginalAmount: dec("2548.00"), OriginalCurrency: "CZK", Airline: "OK", Stops: 0},
			{Country: "poland", Price: dec("441.53"), OriginalAmount: dec("441.53"), OriginalCurrency: "PLN", Airline: "LO", Stops: 0},
		},
	}
}

func sampleResults() []models.CountryResult {
	return []models.CountryResult{
		{Country: "poland", Currency: "PLN", Status: models.StatusOK, Offers: make([]models.Offer, 3)},
		{Country: "sweden", Currency: "SEK", Status: models.StatusOK, Offers: make([]models.Offer, 2)},
		{Country: "czech", Currency: "CZK", Status: models.StatusOK, Offers: make([]models.Offer, 4)},
	}
}

func TestPrintReport(t *testing.T) {
	summary := &models.Summary{
		Currency:     "PLN",
		Min:          dec("426.74"),
		Max:          dec("441.53"),
		Mean:         dec("433.81"),
		Spread:       dec("14.79"),
		SavingsPct:   dec("3.35"),
		BestCountry:  "sweden",
		WorstCountry: "poland",
	}

	var buf bytes.Buffer
	PrintReport(&buf, sampleRequest(), sampleResults(), sampleRanking(), summary)
	out := buf.String()

	for _, want := range []string{
		"WAW -> BCN on 2026-10-01",
		"probed: 3   ok: 3   no offers: 0   failed: 0",
		"1. sweden",
		"426.74 PLN",
		"1123.00 SEK",
		"3.35%",
		"buying via sweden instead of poland",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestPrintReportDegradesWithoutSummary(t *testing.T) {
	ranking := models.Ranking{
		Currency:  "PLN",
		Succeeded: 1,
		Failed:    2,
		Entries: []models.RankedEntry{
			{Country: "poland", Price: dec("441.53"), OriginalAmount: dec("441.53"), OriginalCurrency: "PLN"},
		},
	}
	results := []models.CountryResult{
		{Country: "poland", Currency: "PLN", Status: models.StatusOK, Offers: make([]models.Offer, 1)},
		{Country: "sweden", Currency: "SEK", Status: models.StatusSwitchFailed, Error: "no servers"},
		{Country: "czech", Currency: "CZK", Status: models.StatusFetchFailed, Error: "timeout"},
	}

	var buf bytes.Buffer
	PrintReport(&buf, sampleRequest(), results, ranking, nil)
	out := buf.String()

	if !strings.Contains(out, "ok: 1   no offers: 0   failed: 2") {
		t.Errorf("report missing failure counts:\n%s", out)
	}
	if !strings.Contains(out, "not enough markets for price statistics") {
		t.Errorf("report missing degraded statistics note:\n%s", out)
	}
	if !strings.Contains(out, "identity switch failed") {
		t.Errorf("report missing switch failure detail:\n%s", out)
	}
}

func TestPrintReportAllFailed(t *testing.T) {
	ranking := models.Ranking{Currency: "PLN", Failed: 2}
	results := []models.CountryResult{
		{Country: "poland", Currency: "PLN", Status: models.StatusFetchFailed, Error: "timeout"},
		{Country: "sweden", Currency: "SEK", Status: models.StatusFetchFailed, Error: "timeout"},
	}

	var buf bytes.Buffer
	PrintReport(&buf, sampleRequest(), results, ranking, nil)

	if !strings.Contains(buf.String(), "no usable offers found in any market") {
		t.Errorf("report missing empty-run message:\n%s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deals.csv")
	if err := writeCSV(path, sampleRequest(), sampleRanking()); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header plus 3", len(rows))
	}
	if rows[0][0] != "rank" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "sweden" || rows[1][2] != "426.74" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[3][1] != "poland" {
		t.Errorf("last row = %v", rows[3])
	}
}

func TestWriteCSVEmptyRanking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deals.csv")
	if err := writeCSV(path, sampleRequest(), models.Ranking{Currency: "PLN"}); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Header only.
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 0 {
		t.Errorf("empty ranking export has %d extra lines", lines)
	}
}

func TestEncodeParquet(t *testing.T) {
	data, err := encodeParquet(sampleRequest(), sampleRanking(), "snappy")
	if err != nil {
		t.Fatalf("encodeParquet: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty parquet output")
	}
	// Parquet files end with the PAR1 magic bytes.
	if !bytes.HasSuffix(data, []byte("PAR1")) {
		t.Error("output missing parquet magic footer")
	}
}

func TestExporterWritesEnabledFormats(t *testing.T) {
	dir := t.TempDir()
	cfg := appconfig.DefaultConfig()
	cfg.Writer.OutputDir = dir
	cfg.Writer.CSV.Enabled = true
	cfg.Writer.Parquet.Enabled = true

	e, err := NewExporter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	defer e.Close()

	paths, err := e.Export(context.Background(), sampleRequest(), sampleRanking())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d exports, want 2", len(paths))
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("export %s missing: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("export %s is empty", p)
		}
		if !strings.Contains(filepath.Base(p), "WAW-BCN_2026-10-01") {
			t.Errorf("export name %s missing route and date", filepath.Base(p))
		}
	}
}

func TestExporterNothingEnabled(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Writer.OutputDir = t.TempDir()

	e, err := NewExporter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	paths, err := e.Export(context.Background(), sampleRequest(), sampleRanking())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("got %d exports, want 0", len(paths))
	}
}
