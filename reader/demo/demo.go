// Package demo generates plausible offers locally so the tool can run end
// to end without Amadeus credentials or a VPN subscription.
package demo

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

var airlines = []string{"LO", "W6", "FR", "LH", "KL"}

// priceRanges gives each currency a plausible ticket price band. Currencies
// without an entry use the default band.
var priceRanges = map[string][2]float64{
	"PLN": {400, 1200},
	"EUR": {90, 280},
	"USD": {100, 300},
	"GBP": {80, 250},
	"SEK": {950, 3000},
	"CZK": {2200, 7000},
	"TRY": {3000, 9000},
	"ALL": {10000, 30000},
}

var defaultRange = [2]float64{100, 500}

// Generator produces deterministic offers for a request and currency. The
// same request always yields the same offers, which keeps runs and tests
// reproducible while still varying by country.
type Generator struct {
	config *config.Config
	log    *logger.Log
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{config: cfg, log: logger.GetLogger()}
}

// Name identifies this source in logs and reports.
func (g *Generator) Name() string { return "demo" }

// Search fabricates offers in the given currency.
func (g *Generator) Search(ctx context.Context, req models.SearchRequest, currency string) ([]models.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}

	rng := rand.New(rand.NewSource(g.seed(req, currency)))

	min := g.config.Source.Demo.MinOffers
	max := g.config.Source.Demo.MaxOffers
	if min <= 0 {
		min = 3
	}
	if max < min {
		max = min
	}
	count := min + rng.Intn(max-min+1)

	band, ok := priceRanges[currency]
	if !ok {
		band = defaultRange
	}

	day, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchMalformedResponse, Err: err}
	}

	offers := make([]models.Offer, 0, count)
	for i := 0; i < count; i++ {
		price := band[0] + rng.Float64()*(band[1]-band[0])
		departure := day.Add(time.Duration(6+rng.Intn(14)) * time.Hour)
		flightHours := 2 + rng.Intn(4)
		offers = append(offers, models.Offer{
			Price:     decimal.NewFromFloat(price).Round(2),
			Currency:  currency,
			Airline:   airlines[rng.Intn(len(airlines))],
			Stops:     []int{0, 0, 0, 1, 1, 2}[rng.Intn(6)],
			Departure: departure,
			Arrival:   departure.Add(time.Duration(flightHours) * time.Hour),
			Duration:  fmt.Sprintf("PT%dH", flightHours),
			Source:    "demo",
		})
	}

	g.log.WithComponent("demo_source").WithFields(logger.Fields{
		"currency": currency,
		"offers":   len(offers),
	}).Info("generated demo offers")
	logger.RecordOffers(g.Name(), len(offers))

	return offers, nil
}

func (g *Generator) seed(req models.SearchRequest, currency string) int64 {
	if g.config.Source.Demo.Seed != 0 {
		return g.config.Source.Demo.Seed
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s", req.Origin, req.Destination, req.DepartureDate, req.Adults, currency)
	return int64(h.Sum64())
}
