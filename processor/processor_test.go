package processor

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"flightlooker/models"
)

func testTable() *models.RateTable {
	return &models.RateTable{
		Base: "PLN",
		Rates: map[string]decimal.Decimal{
			"SEK": decimal.RequireFromString("0.38"),
			"CZK": decimal.RequireFromString("0.17"),
			"EUR": decimal.RequireFromString("4.27"),
		},
		Source: "static",
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func okResult(country, currency string, prices ...string) models.CountryResult {
	result := models.CountryResult{Country: country, Currency: currency, Status: models.StatusOK}
	for _, p := range prices {
		result.Offers = append(result.Offers, models.Offer{Price: dec(p), Currency: currency, Airline: "LO"})
	}
	return result
}

func TestNormalize(t *testing.T) {
	table := testTable()

	cases := []struct {
		name     string
		amount   string
		currency string
		want     string
		wantErr  bool
	}{
		{"reporting currency is identity", "441.53", "PLN", "441.53", false},
		{"swedish krona", "1123.00", "SEK", "426.74", false},
		{"czech koruna", "2548.00", "CZK", "433.16", false},
		{"zero amount", "0", "EUR", "0", false},
		{"rounds to grosze", "100.555", "PLN", "100.56", false},
		{"unknown currency", "100", "XXX", "", true},
		{"negative amount", "-5", "EUR", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(dec(tc.amount), tc.currency, table, "PLN")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !got.Equal(dec(tc.want)) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNormalizeErrorTypes(t *testing.T) {
	table := testTable()

	_, err := Normalize(dec("-1"), "EUR", table, "PLN")
	var amountErr *models.InvalidAmountError
	if !errors.As(err, &amountErr) {
		t.Errorf("negative amount err = %T, want InvalidAmountError", err)
	}

	_, err = Normalize(dec("10"), "XXX", table, "PLN")
	var currencyErr *models.UnknownCurrencyError
	if !errors.As(err, &currencyErr) {
		t.Errorf("unknown currency err = %T, want UnknownCurrencyError", err)
	}
	if currencyErr != nil && currencyErr.Currency != "XXX" {
		t.Errorf("currency = %q, want XXX", currencyErr.Currency)
	}
}

func TestAggregateRanksCheapestPerCountry(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "441.53", "523.10", "610.00"),
		okResult("sweden", "SEK", "1123.00", "1350.00"),
		okResult("czech", "CZK", "2548.00", "2999.00"),
	}

	ranking := Aggregate(results, testTable(), "PLN")
	if len(ranking.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(ranking.Entries))
	}

	want := []struct {
		country string
		price   string
	}{
		{"sweden", "426.74"},
		{"czech", "433.16"},
		{"poland", "441.53"},
	}
	for i, w := range want {
		entry := ranking.Entries[i]
		if entry.Country != w.country {
			t.Errorf("rank %d country = %q, want %q", i+1, entry.Country, w.country)
		}
		if !entry.Price.Equal(dec(w.price)) {
			t.Errorf("rank %d price = %s, want %s", i+1, entry.Price, w.price)
		}
	}
	if ranking.Succeeded != 3 || ranking.Failed != 0 || ranking.NoOffers != 0 {
		t.Errorf("counts = %d/%d/%d, want 3/0/0", ranking.Succeeded, ranking.NoOffers, ranking.Failed)
	}

	// Original market prices survive the normalization.
	if !ranking.Entries[0].OriginalAmount.Equal(dec("1123.00")) || ranking.Entries[0].OriginalCurrency != "SEK" {
		t.Errorf("sweden original = %s %s, want 1123.00 SEK",
			ranking.Entries[0].OriginalAmount, ranking.Entries[0].OriginalCurrency)
	}
}

func TestAggregateSkipsFailedCountries(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "441.53"),
		{Country: "sweden", Currency: "SEK", Status: models.StatusSwitchFailed, Error: "no servers"},
		{Country: "czech", Currency: "CZK", Status: models.StatusFetchFailed, Error: "timeout"},
		{Country: "germany", Currency: "EUR", Status: models.StatusNoOffers},
	}

	ranking := Aggregate(results, testTable(), "PLN")
	if len(ranking.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(ranking.Entries))
	}
	if ranking.Succeeded != 1 || ranking.NoOffers != 1 || ranking.Failed != 2 {
		t.Errorf("counts = %d/%d/%d, want 1/1/2", ranking.Succeeded, ranking.NoOffers, ranking.Failed)
	}
}

func TestAggregateSkipsUnknownCurrencyOffers(t *testing.T) {
	mixed := models.CountryResult{
		Country:  "poland",
		Currency: "PLN",
		Status:   models.StatusOK,
		Offers: []models.Offer{
			{Price: dec("1.00"), Currency: "XXX"},
			{Price: dec("500.00"), Currency: "PLN"},
		},
	}

	ranking := Aggregate([]models.CountryResult{mixed}, testTable(), "PLN")
	if len(ranking.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(ranking.Entries))
	}
	if !ranking.Entries[0].Price.Equal(dec("500.00")) {
		t.Errorf("price = %s, want 500.00 (unknown-currency offer skipped)", ranking.Entries[0].Price)
	}
	if ranking.SkippedOffers != 1 {
		t.Errorf("skipped = %d, want 1", ranking.SkippedOffers)
	}
}

func TestAggregateTieBreakFirstOffer(t *testing.T) {
	result := models.CountryResult{
		Country:  "poland",
		Currency: "PLN",
		Status:   models.StatusOK,
		Offers: []models.Offer{
			{Price: dec("400.00"), Currency: "PLN", Airline: "LO"},
			{Price: dec("400.00"), Currency: "PLN", Airline: "W6"},
		},
	}

	ranking := Aggregate([]models.CountryResult{result}, testTable(), "PLN")
	if ranking.Entries[0].Airline != "LO" {
		t.Errorf("airline = %q, want LO (first offer wins ties)", ranking.Entries[0].Airline)
	}
}

func TestAggregateEqualPricesKeepProbeOrder(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "400.00"),
		okResult("germany", "PLN", "400.00"),
	}

	ranking := Aggregate(results, testTable(), "PLN")
	if ranking.Entries[0].Country != "poland" || ranking.Entries[1].Country != "germany" {
		t.Errorf("order = %s, %s; want poland, germany", ranking.Entries[0].Country, ranking.Entries[1].Country)
	}
}

func TestAggregateEmpty(t *testing.T) {
	ranking := Aggregate(nil, testTable(), "PLN")
	if len(ranking.Entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(ranking.Entries))
	}
}

func TestAggregateIdempotent(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "441.53"),
		okResult("sweden", "SEK", "1123.00"),
	}
	table := testTable()

	first := Aggregate(results, table, "PLN")
	second := Aggregate(results, table, "PLN")
	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if !first.Entries[i].Price.Equal(second.Entries[i].Price) || first.Entries[i].Country != second.Entries[i].Country {
			t.Errorf("entry %d differs between passes", i)
		}
	}
}

func TestStatistics(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "441.53"),
		okResult("sweden", "SEK", "1123.00"),
		okResult("czech", "CZK", "2548.00"),
	}

	summary, err := Statistics(Aggregate(results, testTable(), "PLN"))
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if !summary.Min.Equal(dec("426.74")) {
		t.Errorf("min = %s, want 426.74", summary.Min)
	}
	if !summary.Max.Equal(dec("441.53")) {
		t.Errorf("max = %s, want 441.53", summary.Max)
	}
	if !summary.Spread.Equal(dec("14.79")) {
		t.Errorf("spread = %s, want 14.79", summary.Spread)
	}
	if !summary.SavingsPct.Equal(dec("3.35")) {
		t.Errorf("savings = %s%%, want 3.35%%", summary.SavingsPct)
	}
	if summary.BestCountry != "sweden" || summary.WorstCountry != "poland" {
		t.Errorf("best/worst = %s/%s, want sweden/poland", summary.BestCountry, summary.WorstCountry)
	}
	if summary.Currency != "PLN" {
		t.Errorf("currency = %q, want PLN", summary.Currency)
	}
}

func TestStatisticsSavingsPercentage(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "100"),
		okResult("germany", "PLN", "150"),
		okResult("sweden", "PLN", "200"),
	}

	summary, err := Statistics(Aggregate(results, testTable(), "PLN"))
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if !summary.SavingsPct.Equal(dec("50")) {
		t.Errorf("savings = %s%%, want 50%%", summary.SavingsPct)
	}
	if !summary.Mean.Equal(dec("150")) {
		t.Errorf("mean = %s, want 150", summary.Mean)
	}
}

func TestStatisticsInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		results := make([]models.CountryResult, n)
		for i := range results {
			results[i] = okResult("poland", "PLN", "441.53")
		}
		_, err := Statistics(Aggregate(results, testTable(), "PLN"))
		var insufficientErr *models.InsufficientDataError
		if !errors.As(err, &insufficientErr) {
			t.Errorf("n=%d: err = %T, want InsufficientDataError", n, err)
		}
	}
}

func TestStatisticsZeroMax(t *testing.T) {
	results := []models.CountryResult{
		okResult("poland", "PLN", "0"),
		okResult("germany", "PLN", "0"),
	}

	summary, err := Statistics(Aggregate(results, testTable(), "PLN"))
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if !summary.SavingsPct.IsZero() {
		t.Errorf("savings = %s, want 0 when max is 0", summary.SavingsPct)
	}
}
